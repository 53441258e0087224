package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"

	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/templates"
	"github.com/orcidhub/orcidhub/internal/ui/browser"
	"github.com/orcidhub/orcidhub/internal/view"
)

var browseCmd = &cobra.Command{
	Use:   "browse USER_ID",
	Short: "Browse a researcher's record sections in the terminal",
	Long: `Open the terminal browser on one researcher.

Keys: tab/shift+tab switch section, j/k move, d deletes the selected
record, x edits its external identifiers, r reloads, ? shows help, L shows the debug log (with --debug), q quits.
Tabs and rows can also be selected with the mouse.`,
	Args: cobra.ExactArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cleanup, err := setupLogging(true)
	if err != nil {
		return err
	}
	defer cleanup()

	reg, err := registry()
	if err != nil {
		return err
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx := cmd.Context()
	user, err := db.Users().FindUser(ctx, args[0])
	if err != nil {
		return err
	}

	model := browser.New(ctx, browser.Config{
		Registry:      reg,
		Records:       db.Records(reg, source()),
		User:          *user,
		OwnerClientID: cfg.Organisation.ClientID,
		Rule:          view.RuleFromFlags(featureFlags()),
		About:         string(templates.About()),
		MarkdownStyle: cfg.UI.MarkdownStyle,
		Events:        db.Events(),
		Logs:          log.NewListener(ctx),
	})
	log.Info(log.CatUI, "Browser starting", "user", user.ID)

	zone.NewGlobal()
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	return nil
}

