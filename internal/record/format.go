package record

import (
	"slices"
	"strconv"
	"strings"
)

// Formatter renders a resolved value (nil when the accessor missed) plus
// any extra resolved arguments into display text. An empty result means
// the column default applies.
type Formatter func(v any, args ...any) string

// Formatter names understood by section descriptors.
const (
	FormatYearRange   = "year-range"
	FormatPartialDate = "partial-date"
	FormatURL         = "url"
	FormatUpper       = "upper"
)

var formatters = map[string]Formatter{
	FormatYearRange:   yearRange,
	FormatPartialDate: partialDate,
	FormatURL:         plain,
	FormatUpper:       upper,
}

// LookupFormatter returns the named formatter.
func LookupFormatter(name string) (Formatter, bool) {
	f, ok := formatters[name]
	return f, ok
}

// FormatterNames lists the registered formatter names, sorted.
func FormatterNames() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// YearRange renders "2010–2015", "2010–present", "–2015" or "".
func YearRange(start, end PartialDate) string {
	switch {
	case start.Year != 0 && end.Year != 0:
		return strconv.Itoa(start.Year) + "–" + strconv.Itoa(end.Year)
	case start.Year != 0:
		return strconv.Itoa(start.Year) + "–present"
	case end.Year != 0:
		return "–" + strconv.Itoa(end.Year)
	default:
		return ""
	}
}

func yearRange(v any, args ...any) string {
	start, _ := ParsePartialDate(v)
	var end PartialDate
	if len(args) > 0 {
		end, _ = ParsePartialDate(args[0])
	}
	return YearRange(start, end)
}

func partialDate(v any, _ ...any) string {
	d, err := ParsePartialDate(v)
	if err != nil {
		return ""
	}
	return d.String()
}

func plain(v any, _ ...any) string {
	s, _ := Scalar(v)
	return s
}

func upper(v any, _ ...any) string {
	s, _ := Scalar(v)
	return strings.ToUpper(s)
}
