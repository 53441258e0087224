package testutil

import "github.com/orcidhub/orcidhub/internal/store"

// Carberry is the researcher most tests act on.
var Carberry = store.User{
	ID:    "u1",
	Name:  "Josiah Carberry",
	Email: "jc@example.org",
	ORCID: "0000-0002-1825-0097",
}

// WithCarberry adds Carberry.
func (b *Builder) WithCarberry() *Builder {
	return b.WithUser(Carberry.ID, Name(Carberry.Name), Email(Carberry.Email), ORCID(Carberry.ORCID))
}

// EmploymentPayload is a complete employment form submission.
func EmploymentPayload() map[string]string {
	return map[string]string{
		"org_name":   "Brown University",
		"city":       "Providence",
		"country":    "US",
		"department": "Psychoceramics",
		"role":       "Professor",
		"start_date": "1992-09",
	}
}

// FundingPayload is a funding form submission without external ids.
func FundingPayload(title string) map[string]string {
	return map[string]string{
		"org_name":      "National Science Foundation",
		"city":          "Alexandria",
		"country":       "US",
		"funding_title": title,
		"funding_type":  "GRANT",
	}
}

// KeywordPayload is a keyword form submission.
func KeywordPayload(content string) map[string]string {
	return map[string]string{"content": content}
}

// WithStandardTestData adds Carberry with an employment, a funding and
// two keywords, the second attributed to other.
func (b *Builder) WithStandardTestData(other store.Source) *Builder {
	return b.
		WithCarberry().
		WithRecord(Carberry.ID, "EMP", EmploymentPayload()).
		WithRecord(Carberry.ID, "FUN", FundingPayload("Cracked pots")).
		WithRecord(Carberry.ID, "KWR", KeywordPayload("psychoceramics")).
		WithRecord(Carberry.ID, "KWR", KeywordPayload("ceramics"), FromSource(other))
}
