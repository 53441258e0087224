package extid

import (
	"fmt"
	"slices"
)

var knownTypes = []string{
	"agr", "ark", "arxiv", "asin", "asin-tld", "authenticusid", "bibcode", "cba", "cienciaiul",
	"cit", "ctx", "dnb", "doi", "eid", "ethos", "grant_number", "handle", "hir", "isbn",
	"issn", "jfm", "jstor", "kuid", "lccn", "lensid", "mr", "oclc", "ol", "osti", "other-id",
	"pat", "pdb", "pmc", "pmid", "rfc", "rrid", "source-work-id", "ssrn", "uri", "urn",
	"wosuid", "zbl",
}

// KnownTypes returns the external id types offered by the type selector.
func KnownTypes() []string {
	return slices.Clone(knownTypes)
}

// Issue is an advisory problem with one entry. Issues never block a save.
type Issue struct {
	Position int
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("#%d: %s", i.Position+1, i.Message)
}

// Validate reports advisory issues for every non-blank entry.
func (l *List) Validate() []Issue {
	var issues []Issue
	for pos, e := range l.entries {
		if e.IsBlank() {
			continue
		}
		if e.Type == "" {
			issues = append(issues, Issue{pos, "type is not set"})
		} else if !slices.Contains(knownTypes, e.Type) {
			issues = append(issues, Issue{pos, fmt.Sprintf("unknown type %q", e.Type)})
		}
		if e.Value == "" {
			issues = append(issues, Issue{pos, "value is empty"})
		}
		if !e.Relationship.Valid() {
			issues = append(issues, Issue{pos, fmt.Sprintf("unknown relationship %q", e.Relationship)})
		}
	}
	return issues
}
