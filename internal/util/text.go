package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// None is the serialized form of an absent value.
const None = "NONE"

var (
	reSpaces   = regexp.MustCompile(`\s+`)
	foldAccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeSpaces collapses whitespace runs and trims.
func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// CleanText collapses whitespace and returns nil for an empty result.
func CleanText(input string) *string {
	s := NormalizeSpaces(input)
	if s == "" {
		return nil
	}
	return &s
}

// Fold strips Romanian diacritics (comma-below and cedilla forms alike).
func Fold(input string) string {
	out, _, err := transform.String(foldAccent, input)
	if err != nil {
		return input
	}
	return out
}

// IsUpper reports whether s has at least one cased rune and no lower-case ones.
func IsUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func HasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// OrNone renders an optional string for CSV/XLSX output.
func OrNone(v *string) string {
	if v == nil {
		return None
	}
	return *v
}

// FromNone is the inverse of OrNone for values read back from exported files.
func FromNone(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, None) {
		return nil
	}
	return &v
}

func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
