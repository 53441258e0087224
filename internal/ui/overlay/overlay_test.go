package overlay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func screen(w, h int) string {
	return strings.TrimSuffix(strings.Repeat(strings.Repeat(".", w)+"\n", h), "\n")
}

func TestPlace_Center(t *testing.T) {
	out := Place(Config{Width: 10, Height: 5, Position: Center}, "ab\ncd", screen(10, 5))
	lines := strings.Split(out, "\n")

	require.Len(t, lines, 5)
	require.Equal(t, "..........", lines[0])
	require.Equal(t, "....ab....", lines[1])
	require.Equal(t, "....cd....", lines[2])
	require.Equal(t, "..........", lines[4])
}

func TestPlace_TopAndBottom(t *testing.T) {
	top := strings.Split(Place(Config{Width: 6, Height: 4, Position: Top, PadY: 1}, "XX", screen(6, 4)), "\n")
	require.Equal(t, "..XX..", top[1])

	bottom := strings.Split(Place(Config{Width: 6, Height: 4, Position: Bottom, PadY: 1}, "XX", screen(6, 4)), "\n")
	require.Equal(t, "..XX..", bottom[2])
	require.Equal(t, "......", bottom[3])
}

func TestPlace_PadsShortBackground(t *testing.T) {
	out := Place(Config{Width: 4, Height: 3, Position: Center}, "X", "ab")
	lines := strings.Split(out, "\n")

	require.Len(t, lines, 3)
	require.Equal(t, " X  ", lines[1])
}

func TestPlace_ShortRowIsExtended(t *testing.T) {
	out := Place(Config{Width: 8, Height: 1, Position: Top}, "XX", "ab")
	require.Equal(t, "ab XX", out)
}

func TestPlace_ForegroundWiderThanScreen(t *testing.T) {
	out := Place(Config{Width: 3, Height: 1}, "ABCDE", "...")
	require.Equal(t, "ABCDE", out)
}

func TestPlace_KeepsStyledBackground(t *testing.T) {
	bg := "\x1b[31m" + "......" + "\x1b[0m"
	out := Place(Config{Width: 6, Height: 1, Position: Top}, "XX", bg)

	require.Contains(t, out, "XX")
	require.Contains(t, out, "\x1b[31m")
}
