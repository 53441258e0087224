package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/orcidhub/orcidhub/internal/schema"
)

var sectionsFormat string

var sectionsCmd = &cobra.Command{
	Use:   "sections [CODE]",
	Short: "List record sections, or describe one",
	Long: `Without arguments, list every record section with its code and title.
With a section code (e.g. FUN), show its listing columns and form fields.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSections,
}

func init() {
	sectionsCmd.Flags().StringVarP(&sectionsFormat, "format", "f", "table", "output format: table or json")
	rootCmd.AddCommand(sectionsCmd)
}

// sectionInfo is the JSON shape of one section.
type sectionInfo struct {
	Code          string       `json:"code"`
	Name          string       `json:"name"`
	Title         string       `json:"title"`
	SourceBearing bool         `json:"source_bearing"`
	PutCodePath   string       `json:"put_code_path"`
	SourcePath    string       `json:"source_path"`
	ExternalIDs   string       `json:"external_ids_path,omitempty"`
	Columns       []columnInfo `json:"columns,omitempty"`
	Fields        []fieldInfo  `json:"fields,omitempty"`
}

type columnInfo struct {
	Label     string `json:"label"`
	Accessor  string `json:"accessor"`
	Formatter string `json:"formatter,omitempty"`
}

type fieldInfo struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Accessor string   `json:"accessor"`
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
}

func newSectionInfo(d *schema.Descriptor, detailed bool) sectionInfo {
	info := sectionInfo{
		Code:          d.Discriminator.String(),
		Name:          d.Discriminator.Name(),
		Title:         d.Title,
		SourceBearing: d.SourceBearing,
		PutCodePath:   d.PutCodePath.String(),
		SourcePath:    d.SourcePath.String(),
		ExternalIDs:   d.ExternalIDsPath.String(),
	}
	if !detailed {
		return info
	}
	for _, c := range d.Columns {
		info.Columns = append(info.Columns, columnInfo{Label: c.Label, Accessor: c.Accessor.String(), Formatter: c.Formatter})
	}
	for _, f := range d.VisibleFields() {
		info.Fields = append(info.Fields, fieldInfo{
			Name:     f.Name,
			Label:    f.Label,
			Type:     string(f.Type),
			Accessor: f.Accessor.String(),
			Required: f.Required,
			Options:  f.Options,
		})
	}
	return info
}

func runSections(cmd *cobra.Command, args []string) error {
	reg, err := registry()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		desc, err := reg.Lookup(args[0])
		if err != nil {
			return err
		}
		info := newSectionInfo(desc, true)
		if sectionsFormat == "json" {
			return writeJSON(out, info)
		}
		return describeSection(out, info)
	}

	all := reg.All()
	infos := make([]sectionInfo, 0, len(all))
	for _, d := range all {
		infos = append(infos, newSectionInfo(d, false))
	}
	switch sectionsFormat {
	case "json":
		return writeJSON(out, infos)
	case "table":
		t := newTable("Code", "Name", "Title", "Source", "External IDs")
		for _, info := range infos {
			t.Row(info.Code, info.Name, info.Title, yesNo(info.SourceBearing), yesNo(info.ExternalIDs != ""))
		}
		_, err := fmt.Fprintln(out, t.Render())
		return err
	default:
		return fmt.Errorf("unknown format %q (want table or json)", sectionsFormat)
	}
}

func describeSection(w io.Writer, info sectionInfo) error {
	title := lipgloss.NewStyle().Bold(true)
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s (%s)\n", title.Render(info.Code), info.Title, info.Name)
	fmt.Fprintf(&b, "put code: %s\n", info.PutCodePath)
	if info.SourcePath != "" {
		fmt.Fprintf(&b, "source:   %s\n", info.SourcePath)
	}
	if info.ExternalIDs != "" {
		fmt.Fprintf(&b, "ext ids:  %s\n", info.ExternalIDs)
	}

	cols := newTable("Column", "Accessor", "Formatter")
	for _, c := range info.Columns {
		cols.Row(c.Label, c.Accessor, c.Formatter)
	}
	fields := newTable("Field", "Label", "Type", "Accessor", "Required")
	for _, f := range info.Fields {
		fields.Row(f.Name, f.Label, f.Type, f.Accessor, yesNo(f.Required))
	}
	fmt.Fprintf(&b, "\n%s\n\n%s\n", cols.Render(), fields.Render())
	_, err := io.WriteString(w, b.String())
	return err
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
