// Package extid implements the repeatable external identifier editor
// attached to funding, peer-review and work forms: an ordered list where
// positions are the only identity.
package extid

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrPositionOutOfRange is returned for positions outside the list.
var ErrPositionOutOfRange = errors.New("external id position out of range")

// Relationship of an identifier to the record. Empty means unset.
type Relationship string

const (
	RelationshipPartOf Relationship = "PART_OF"
	RelationshipSelf   Relationship = "SELF"
)

// Relationships lists the valid non-empty relationships.
func Relationships() []Relationship {
	return []Relationship{RelationshipPartOf, RelationshipSelf}
}

// Valid reports whether r is unset or one of the known relationships.
func (r Relationship) Valid() bool {
	return r == "" || r == RelationshipPartOf || r == RelationshipSelf
}

// Entry is one external identifier.
type Entry struct {
	Type         string       `json:"type"`
	Value        string       `json:"value"`
	URL          string       `json:"url"`
	Relationship Relationship `json:"relationship"`
}

// IsBlank reports whether nothing has been filled in.
func (e Entry) IsBlank() bool {
	return e == Entry{}
}

// Confirmer gates destructive edits behind an explicit yes/no answer.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

var (
	// Yes confirms everything; used when the answer was given up front,
	// e.g. a submitted confirm=yes field.
	Yes Confirmer = ConfirmFunc(func(string) bool { return true })
	// No cancels everything.
	No Confirmer = ConfirmFunc(func(string) bool { return false })
)

// List is the editor state. It is not safe for concurrent mutation; one
// interaction surface owns it at a time.
type List struct {
	entries []Entry
}

// NewList returns a list holding a copy of entries.
func NewList(entries ...Entry) *List {
	return &List{entries: slices.Clone(entries)}
}

// Len returns the number of entries.
func (l *List) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries in display order.
func (l *List) Entries() []Entry {
	if len(l.entries) == 0 {
		return []Entry{}
	}
	return slices.Clone(l.entries)
}

// NonBlank returns the entries with at least one field filled in.
func (l *List) NonBlank() []Entry {
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if !e.IsBlank() {
			out = append(out, e)
		}
	}
	return out
}

// At returns the entry at pos.
func (l *List) At(pos int) (Entry, error) {
	if pos < 0 || pos >= len(l.entries) {
		return Entry{}, fmt.Errorf("%w: %d (len %d)", ErrPositionOutOfRange, pos, len(l.entries))
	}
	return l.entries[pos], nil
}

// Add prepends a blank entry so the newest entry is shown first.
func (l *List) Add() {
	l.entries = slices.Insert(l.entries, 0, Entry{})
}

// Set replaces the entry at pos.
func (l *List) Set(pos int, e Entry) error {
	if pos < 0 || pos >= len(l.entries) {
		return fmt.Errorf("%w: %d (len %d)", ErrPositionOutOfRange, pos, len(l.entries))
	}
	l.entries[pos] = e
	return nil
}

// Delete removes the entry at pos once c confirms. A declined (or nil)
// confirmer leaves the list untouched and reports false. Later entries
// shift down by one.
func (l *List) Delete(pos int, c Confirmer) (bool, error) {
	e, err := l.At(pos)
	if err != nil {
		return false, err
	}
	if c == nil || !c.Confirm(DeletePrompt(pos, e)) {
		return false, nil
	}
	l.entries = slices.Delete(l.entries, pos, pos+1)
	return true, nil
}

// DeletePrompt is the question Delete puts to its Confirmer for the
// entry e at pos.
func DeletePrompt(pos int, e Entry) string {
	if e.IsBlank() {
		return fmt.Sprintf("Delete blank external id #%d?", pos+1)
	}
	return fmt.Sprintf("Delete external id %s %q?", e.Type, e.Value)
}

// Marshal serialises the entries as a JSON array; an empty list is "[]".
func (l *List) Marshal() ([]byte, error) {
	data, err := json.Marshal(l.Entries())
	if err != nil {
		return nil, fmt.Errorf("marshal external ids: %w", err)
	}
	return data, nil
}

// Unmarshal parses a JSON array produced by Marshal. Blank input yields
// an empty list.
func Unmarshal(data []byte) (*List, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewList(), nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal external ids: %w", err)
	}
	return &List{entries: entries}, nil
}
