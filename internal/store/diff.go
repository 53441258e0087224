package store

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// documentChange summarises how an update rewrote a stored document.
type documentChange struct {
	Inserted int
	Deleted  int
}

func (c documentChange) unchanged() bool {
	return c.Inserted == 0 && c.Deleted == 0
}

// diffDocuments counts the runes an update inserted into and deleted from
// the encoded document.
func diffDocuments(before, after string) documentChange {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))
	var c documentChange
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			c.Inserted += utf8.RuneCountInString(d.Text)
		case diffmatchpatch.DiffDelete:
			c.Deleted += utf8.RuneCountInString(d.Text)
		}
	}
	return c
}
