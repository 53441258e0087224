package schema

import (
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

// minimalSections renders a valid sections file, letting tests patch one section.
func minimalSections(override func(code Discriminator) string) string {
	var b strings.Builder
	b.WriteString(`option_sets:
  visibility: [PUBLIC, PRIVATE]
fields:
  - name: content
    accessor: content
    visible_for: [EDU, EMP, FUN, PRR, WOR, RUR, ONR, KWR, ADR, EXR]
  - name: visibility
    type: select
    options: visibility
    accessor: visibility
    visible_for: [RUR]
sections:
`)
	for _, d := range canonical {
		if override != nil {
			if s := override(d); s != "" {
				b.WriteString(s)
				continue
			}
		}
		fmt.Fprintf(&b, `  - code: %s
    put_code_path: put-code
    source_path: source.source-client-id.path
    columns:
      - {label: Content, accessor: content}
`, d)
	}
	return b.String()
}

func TestParseYAML_Minimal(t *testing.T) {
	reg, err := ParseYAML([]byte(minimalSections(nil)))
	require.NoError(t, err)
	require.Len(t, reg.All(), 10)

	desc, err := reg.Describe(Keyword)
	require.NoError(t, err)
	require.Equal(t, "keyword", desc.Title, "title defaults to the long name")
}

func TestParseYAML_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing section",
			content: minimalSections(func(d Discriminator) string {
				if d == ExternalID {
					return "\n"
				}
				return ""
			}),
			wantErr: "section EXR (external-id) is not described",
		},
		{
			name: "duplicate section",
			content: minimalSections(func(d Discriminator) string {
				if d == ExternalID {
					return "  - code: WOR\n    put_code_path: a\n    source_path: b\n    columns: [{label: X, accessor: x}]\n"
				}
				return ""
			}),
			wantErr: "section WOR declared twice",
		},
		{
			name: "unknown formatter",
			content: minimalSections(func(d Discriminator) string {
				if d == Work {
					return "  - code: WOR\n    put_code_path: a\n    source_path: b\n    columns: [{label: X, accessor: x, formatter: rot13}]\n"
				}
				return ""
			}),
			wantErr: `unknown formatter "rot13"`,
		},
		{
			name: "no columns",
			content: minimalSections(func(d Discriminator) string {
				if d == Work {
					return "  - code: WOR\n    put_code_path: a\n    source_path: b\n"
				}
				return ""
			}),
			wantErr: "no columns",
		},
		{
			name: "name mismatch",
			content: minimalSections(func(d Discriminator) string {
				if d == Work {
					return "  - code: WOR\n    name: works\n    put_code_path: a\n    source_path: b\n    columns: [{label: X, accessor: x}]\n"
				}
				return ""
			}),
			wantErr: `name "works" does not match code`,
		},
		{
			name:    "unknown code",
			content: strings.Replace(minimalSections(nil), "code: EDU", "code: XYZ", 1),
			wantErr: `unknown discriminator "XYZ"`,
		},
		{
			name:    "select without options",
			content: strings.Replace(minimalSections(nil), "options: visibility", "options: colours", 1),
			wantErr: `unknown option set "colours"`,
		},
		{
			name:    "field type",
			content: strings.Replace(minimalSections(nil), "type: select", "type: slider", 1),
			wantErr: `unknown type "slider"`,
		},
		{
			name:    "not yaml",
			content: "sections: [",
			wantErr: "parse sections",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.content))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromYAML_MissingFile(t *testing.T) {
	_, err := LoadFromYAML(fstest.MapFS{}, "sections.yaml")
	require.ErrorContains(t, err, "read sections.yaml")
}

func TestLoadFromYAML_MapFS(t *testing.T) {
	fsys := fstest.MapFS{"s.yaml": {Data: []byte(minimalSections(nil))}}
	reg, err := LoadFromYAML(fsys, "s.yaml")
	require.NoError(t, err)

	rur, err := reg.Describe(ResearcherURL)
	require.NoError(t, err)
	require.Len(t, rur.VisibleFields(), 2)

	wor, err := reg.Describe(Work)
	require.NoError(t, err)
	require.Len(t, wor.VisibleFields(), 1)
}
