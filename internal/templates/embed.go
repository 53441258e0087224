package templates

import (
	"embed"
	"io/fs"
)

// assets embeds every static input the application renders from:
//   - sections/sections.yaml (record section descriptors)
//   - html/*.tmpl (server-rendered pages)
//   - migrations/*.sql (record store schema)
//   - about.md (about page, rendered as HTML and in the terminal)
//
//go:embed sections html migrations about.md
var assets embed.FS

// SectionsFS returns the filesystem holding sections/sections.yaml.
func SectionsFS() fs.FS {
	return assets
}

// SectionsFile is the path of the descriptor file inside SectionsFS.
const SectionsFile = "sections/sections.yaml"

// HTMLFS returns the page templates rooted at html/.
func HTMLFS() fs.FS {
	sub, err := fs.Sub(assets, "html")
	if err != nil {
		panic(err) // embedded directory always exists
	}
	return sub
}

// MigrationsFS returns the SQL migrations rooted at migrations/.
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(assets, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// About returns the markdown source of the about page.
func About() []byte {
	data, err := assets.ReadFile("about.md")
	if err != nil {
		panic(err)
	}
	return data
}
