package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	r, err := New(40, "notty")
	require.NoError(t, err)
	require.Equal(t, 40, r.Width())

	out, err := r.Render("# About\n\nSections of a **researcher** profile.")
	require.NoError(t, err)
	require.Contains(t, out, "About")
	require.Contains(t, out, "researcher")
}

func TestAutoStyle_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	require.Equal(t, "notty", AutoStyle())

	r, err := New(30, "")
	require.NoError(t, err)
	out, err := r.Render("plain **text**")
	require.NoError(t, err)
	require.Contains(t, out, "text")
}
