package record

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var partialDatePattern = regexp.MustCompile(`\d+([/\-.]\d+){0,2}`)

// PartialDate is a date where the month, or the month and day, may be
// unknown. Zero means unknown.
type PartialDate struct {
	Year  int
	Month int
	Day   int
}

// IsZero reports whether no year is known.
func (d PartialDate) IsZero() bool {
	return d.Year == 0
}

// String renders YYYY, YYYY-MM or YYYY-MM-DD, or "" when the year is unknown.
func (d PartialDate) String() string {
	if d.Year == 0 {
		return ""
	}
	s := fmt.Sprintf("%04d", d.Year)
	if d.Month == 0 {
		return s
	}
	s += fmt.Sprintf("-%02d", d.Month)
	if d.Day == 0 {
		return s
	}
	return s + fmt.Sprintf("-%02d", d.Day)
}

// ORCID returns the {"year": {"value": "2003"}, "month": nil, "day": nil}
// shape, or nil for an unknown date.
func (d PartialDate) ORCID() map[string]any {
	if d.IsZero() {
		return nil
	}
	part := func(v int, format string) any {
		if v == 0 {
			return nil
		}
		return map[string]any{"value": fmt.Sprintf(format, v)}
	}
	return map[string]any{
		"year":  part(d.Year, "%04d"),
		"month": part(d.Month, "%02d"),
		"day":   part(d.Day, "%02d"),
	}
}

// ParsePartialDateString accepts 2003, 2003-03, 2003-07-14, 2003/03,
// 2003/07/14, 03/2003, 14/07/2003 and the stored form 2003-**-**.
// Slash and dot separated values are read day-first when the last part
// is the year.
func ParsePartialDateString(s string) (PartialDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PartialDate{}, nil
	}
	match := partialDatePattern.FindString(s)
	if match == "" {
		return PartialDate{}, fmt.Errorf("wrong partial date value %q", s)
	}

	var parts []string
	switch {
	case strings.ContainsAny(match, "/."):
		parts = strings.FieldsFunc(match, func(r rune) bool { return r == '/' || r == '.' })
		if len(parts[len(parts)-1]) > 2 {
			for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
				parts[i], parts[j] = parts[j], parts[i]
			}
		}
	default:
		parts = strings.Split(match, "-")
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return PartialDate{}, fmt.Errorf("wrong partial date value %q: %w", s, err)
		}
		nums[i] = n
	}

	d := PartialDate{Year: nums[0]}
	if len(nums) > 1 {
		d.Month = nums[1]
	}
	if len(nums) > 2 {
		d.Day = nums[2]
	}
	if err := d.validate(); err != nil {
		return PartialDate{}, fmt.Errorf("wrong partial date value %q: %w", s, err)
	}
	return d, nil
}

func (d PartialDate) validate() error {
	if d.Month < 0 || d.Month > 12 {
		return fmt.Errorf("month %d out of range", d.Month)
	}
	if d.Day < 0 || d.Day > 31 {
		return fmt.Errorf("day %d out of range", d.Day)
	}
	if d.Day != 0 && d.Month == 0 {
		return fmt.Errorf("day without month")
	}
	return nil
}

// ParsePartialDate accepts a date string, a bare year number, or the
// ORCID dictionary form. nil and empty maps yield the zero date.
func ParsePartialDate(v any) (PartialDate, error) {
	switch x := v.(type) {
	case nil:
		return PartialDate{}, nil
	case PartialDate:
		return x, nil
	case string:
		return ParsePartialDateString(x)
	case float64:
		return PartialDate{Year: int(x)}, nil
	case int:
		return PartialDate{Year: x}, nil
	case json.Number:
		return ParsePartialDateString(x.String())
	case Record:
		return parseDateMap(x)
	case map[string]any:
		return parseDateMap(x)
	default:
		return PartialDate{}, fmt.Errorf("unsupported partial date value %T", v)
	}
}

func parseDateMap(m map[string]any) (PartialDate, error) {
	var d PartialDate
	fields := []struct {
		key string
		dst *int
	}{
		{"year", &d.Year},
		{"month", &d.Month},
		{"day", &d.Day},
	}
	for _, f := range fields {
		raw, ok := m[f.key]
		if !ok || raw == nil {
			continue
		}
		s, ok := Scalar(raw)
		if !ok || s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return PartialDate{}, fmt.Errorf("partial date %s %q: %w", f.key, s, err)
		}
		*f.dst = n
	}
	if err := d.validate(); err != nil {
		return PartialDate{}, err
	}
	return d, nil
}
