package view

import (
	"strings"

	"github.com/orcidhub/orcidhub/internal/flags"
	"github.com/orcidhub/orcidhub/internal/record"
	"github.com/orcidhub/orcidhub/internal/schema"
)

// MatchRule decides how a record's source client id is compared with the
// owning organisation's client id.
type MatchRule int

const (
	// MatchContainment: the owner's client id contains the record's.
	MatchContainment MatchRule = iota
	// MatchExact: the ids are equal.
	MatchExact
)

func (r MatchRule) String() string {
	if r == MatchExact {
		return "exact"
	}
	return "containment"
}

// RuleFromFlags selects MatchExact when the exact-client-match flag is on.
func RuleFromFlags(reg *flags.Registry) MatchRule {
	if reg.Enabled(flags.FlagExactClientMatch) {
		return MatchExact
	}
	return MatchContainment
}

// SourceClientID resolves the record's source client id through the
// descriptor's source path; "" when absent.
func SourceClientID(desc *schema.Descriptor, rec record.Record) string {
	return strings.TrimSpace(rec.String(desc.SourcePath, ""))
}

// Eligible reports whether the owner may edit and delete rec. Records
// without a source client id are never eligible.
func Eligible(desc *schema.Descriptor, rec record.Record, ownerClientID string, rule MatchRule) bool {
	id := SourceClientID(desc, rec)
	if id == "" || ownerClientID == "" {
		return false
	}
	if rule == MatchExact {
		return id == ownerClientID
	}
	return strings.Contains(ownerClientID, id)
}
