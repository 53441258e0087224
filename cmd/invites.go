package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/orcidhub/orcidhub/internal/invite"
)

var invitesCmd = &cobra.Command{
	Use:   "invites",
	Short: "Inspect and settle update permission invitations",
}

var invitesListCmd = &cobra.Command{
	Use:   "list USER_ID",
	Short: "List a researcher's pending invitations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		pending, err := invite.NewDispatcher(db).Pending(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No pending invitations.")
			return nil
		}
		t := newTable("Token", "Organisation", "Email", "Sent")
		for _, inv := range pending {
			t.Row(inv.Token, inv.OrgClientID, inv.Email, inv.CreatedAt.Local().Format(time.DateTime))
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return err
	},
}

var invitesAcceptCmd = &cobra.Command{
	Use:   "accept TOKEN",
	Short: "Mark an invitation as accepted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := invite.NewDispatcher(db).Accept(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("accepting %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Accepted %s\n", args[0])
		return nil
	},
}

func init() {
	invitesCmd.AddCommand(invitesListCmd, invitesAcceptCmd)
	rootCmd.AddCommand(invitesCmd)
}
