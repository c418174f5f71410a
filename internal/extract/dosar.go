// Package extract pulls structured case fields out of the portal's HTML and free text.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"restituiri/internal/util"
)

// UnknownDosar is returned when no identifier survives sanitizing.
const UnknownDosar = "DOSAR_UNKNOWN"

var (
	reLeadingNumber = regexp.MustCompile(`^\s*(\d+)`)
	reIDSplit       = regexp.MustCompile(`[/\s]`)
)

// DosarNumber returns the leading digit run of a case identifier such as "123 / 2005-01-02",
// or a filename-safe first token when the identifier does not start with digits.
func DosarNumber(text string) string {
	if text == "" {
		return UnknownDosar
	}
	if m := reLeadingNumber.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	first := reIDSplit.Split(strings.TrimSpace(text), 2)[0]
	if cleaned := SanitizeToken(first); cleaned != "" {
		return cleaned
	}
	return UnknownDosar
}

// SanitizeToken replaces anything other than letters, digits, '_', '-' and '.' with '_'.
func SanitizeToken(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

// CaseID joins a case number and date as "number / date". A missing half is written as
// NONE; nil when both are missing.
func CaseID(number, date *string) *string {
	if number == nil && date == nil {
		return nil
	}
	id := util.OrNone(number) + " / " + util.OrNone(date)
	return &id
}
