// Package schema holds the record section registry: for every
// discriminator, which columns a listing shows and which fields its edit
// form carries. Descriptors are loaded once and never mutated.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Discriminator identifies one of the ten record section types.
type Discriminator string

const (
	Education     Discriminator = "EDU"
	Employment    Discriminator = "EMP"
	Funding       Discriminator = "FUN"
	PeerReview    Discriminator = "PRR"
	Work          Discriminator = "WOR"
	ResearcherURL Discriminator = "RUR"
	OtherName     Discriminator = "ONR"
	Keyword       Discriminator = "KWR"
	Address       Discriminator = "ADR"
	ExternalID    Discriminator = "EXR"
)

var canonical = []Discriminator{
	Education, Employment, Funding, PeerReview, Work,
	ResearcherURL, OtherName, Keyword, Address, ExternalID,
}

var longNames = map[Discriminator]string{
	Education:     "education",
	Employment:    "employment",
	Funding:       "funding",
	PeerReview:    "peer-review",
	Work:          "work",
	ResearcherURL: "researcher-url",
	OtherName:     "other-name",
	Keyword:       "keyword",
	Address:       "address",
	ExternalID:    "external-id",
}

// ErrUnknownDiscriminator matches every UnknownDiscriminatorError.
var ErrUnknownDiscriminator = errors.New("unknown discriminator")

// UnknownDiscriminatorError reports a code outside the ten known sections.
type UnknownDiscriminatorError struct {
	Value string
}

func (e *UnknownDiscriminatorError) Error() string {
	return fmt.Sprintf("unknown discriminator %q", e.Value)
}

// Is makes errors.Is(err, ErrUnknownDiscriminator) hold.
func (e *UnknownDiscriminatorError) Is(target error) bool {
	return target == ErrUnknownDiscriminator
}

// Discriminators returns the ten codes in canonical order.
func Discriminators() []Discriminator {
	out := make([]Discriminator, len(canonical))
	copy(out, canonical)
	return out
}

// ParseDiscriminator accepts a code in any case ("wor", "WOR") or a long
// name ("work", "peer-review", "peer_review").
func ParseDiscriminator(s string) (Discriminator, error) {
	norm := strings.TrimSpace(s)
	if d := Discriminator(strings.ToUpper(norm)); d.Valid() {
		return d, nil
	}
	long := strings.ReplaceAll(strings.ToLower(norm), "_", "-")
	for d, name := range longNames {
		if name == long {
			return d, nil
		}
	}
	return "", &UnknownDiscriminatorError{Value: s}
}

// Valid reports whether d is one of the ten codes.
func (d Discriminator) Valid() bool {
	_, ok := longNames[d]
	return ok
}

// Name returns the long name, e.g. "peer-review".
func (d Discriminator) Name() string {
	return longNames[d]
}

func (d Discriminator) String() string {
	return string(d)
}

// UnmarshalText lets YAML and flags carry discriminators by code or name.
func (d *Discriminator) UnmarshalText(text []byte) error {
	parsed, err := ParseDiscriminator(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
