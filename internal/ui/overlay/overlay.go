// Package overlay draws a box over a rendered screen without clearing it.
package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Position anchors the foreground within the viewport.
type Position int

const (
	Center Position = iota
	Top
	Bottom
)

// Config describes the viewport and anchoring.
type Config struct {
	Width, Height int
	Position      Position
	// PadY is the distance from the anchored edge for Top and Bottom.
	PadY int
}

// Place splices fg into bg line by line. Both may carry ANSI styling.
func Place(cfg Config, fg, bg string) string {
	screen := strings.Split(bg, "\n")
	for len(screen) < cfg.Height {
		screen = append(screen, strings.Repeat(" ", cfg.Width))
	}
	box := strings.Split(fg, "\n")
	x, y := origin(cfg, lipgloss.Width(fg), len(box))

	for i, line := range box {
		row := y + i
		if row >= len(screen) {
			break
		}
		screen[row] = splice(screen[row], line, x)
	}
	return strings.Join(screen, "\n")
}

// splice replaces the cells of row starting at column x with line.
func splice(row, line string, x int) string {
	left := ansi.Truncate(row, x, "")
	if w := ansi.StringWidth(left); w < x {
		left += strings.Repeat(" ", x-w)
	}
	var right string
	if end := x + ansi.StringWidth(line); end < ansi.StringWidth(row) {
		right = ansi.TruncateLeft(row, end, "")
	}
	return left + line + right
}

func origin(cfg Config, w, h int) (x, y int) {
	x = max((cfg.Width-w)/2, 0)
	switch cfg.Position {
	case Top:
		y = cfg.PadY
	case Bottom:
		y = cfg.Height - h - cfg.PadY
	default:
		y = (cfg.Height - h) / 2
	}
	return x, max(y, 0)
}
