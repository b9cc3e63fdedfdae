package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ItemKey identifies an ingredient or inventory item across record sets.
// Both fields are lowercased.
type ItemKey struct {
	Name string
	Unit string
}

func (k ItemKey) String() string {
	return k.Name + "|" + k.Unit
}

// NormalizeKey builds the matching key for a name and unit pair.
func NormalizeKey(name, unit string) ItemKey {
	return ItemKey{
		Name: strings.ToLower(strings.TrimSpace(name)),
		Unit: strings.ToLower(strings.TrimSpace(unit)),
	}
}

// TitleCase uppercases the first letter of every word and lowercases the
// rest, the way computed shopping entries are displayed.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	startOfWord := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			if startOfWord {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(unicode.ToLower(r))
			}
			startOfWord = false
		default:
			b.WriteRune(r)
			startOfWord = true
		}
	}
	return b.String()
}

// CategoryOrDefault returns c, or CategoryOther when c is blank.
func CategoryOrDefault(c string) string {
	if strings.TrimSpace(c) == "" {
		return CategoryOther
	}
	return c
}

// NormalizeMultiplier maps an absent multiplier to the default of 1.
func NormalizeMultiplier(m float64) float64 {
	if m == 0 {
		return DefaultServingMultiplier
	}
	return m
}

// Date truncates t to midnight of its calendar day. Calendar math is done
// in UTC so a date survives round trips through stores that hand back
// times in the local zone.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate accepts a plain date or a timestamp and returns the calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// ParseOptionalDate is ParseDate for nullable columns. Empty input yields nil.
func ParseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
