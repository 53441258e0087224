// Package markdown renders markdown for the terminal.
package markdown

import (
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// flat drops the document margin so rendered text lines up with the
// surrounding panes.
const flat = `{"document": {"margin": 0, "block_prefix": "", "block_suffix": ""}}`

// Renderer wraps a glamour renderer of a fixed width.
type Renderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// AutoStyle picks a glamour style for stdout: "notty" when NO_COLOR or
// CLICOLOR=0 is set, otherwise by terminal background.
func AutoStyle() string {
	out := termenv.NewOutput(os.Stdout)
	if out.EnvColorProfile() == termenv.Ascii {
		return "notty"
	}
	if out.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// New creates a renderer wrapping at width columns. style is a glamour
// style name ("dark", "light", "notty"); empty selects AutoStyle.
func New(width int, style string) (*Renderer, error) {
	if style == "" {
		style = AutoStyle()
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithWordWrap(width),
		glamour.WithStandardStyle(style),
		glamour.WithStylesFromJSONBytes([]byte(flat)),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{renderer: r, width: width}, nil
}

// Width returns the wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Render renders md.
func (r *Renderer) Render(md string) (string, error) {
	return r.renderer.Render(md)
}
