package address

import (
	"regexp"
	"strconv"
	"strings"

	"restituiri/internal/util"
)

var (
	reFiller      = regexp.MustCompile(`(?i)\b(?:ETAJ|ETJ|AP|DE\s+LA|CU\s+APA\s+RECE)\b`)
	reStradaWord  = regexp.MustCompile(`(?i)\bStrada\b`)
	reSectorWord  = regexp.MustCompile(`(?i)\bsector\b`)
	reNotFoundRow = regexp.MustCompile(`(?i)^Linia\s+(\d+):\s*(.*)$`)
)

// CleanupNotFound reworks an address that the geocoder could not place. A
// "<prefix>: <address>" line keeps its prefix. This stage runs before Normalize in the
// not-found reprocessing workflow and is deliberately kept separate from it.
func CleanupNotFound(line string) string {
	if prefix, rest, ok := strings.Cut(line, ":"); ok {
		return strings.TrimSpace(prefix) + ": " + cleanupAfterStrada(rest)
	}
	return cleanupAfterStrada(line)
}

// ParseNotFoundLine splits a "Linia N: address" line.
func ParseNotFoundLine(line string) (int, string, bool) {
	m := reNotFoundRow.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return n, strings.TrimSpace(m[2]), true
}

// cleanupAfterStrada works on the segment starting at the first "Strada"; text before
// it is dropped. Between "Strada" and "sector": with two or more digit tokens ahead of
// the street name the last stays in front and the first moves behind the name; behind
// the name only the first digit token is kept.
func cleanupAfterStrada(text string) string {
	t := reFiller.ReplaceAllString(text, "")
	t = util.NormalizeSpaces(t)

	loc := reStradaWord.FindStringIndex(t)
	if loc == nil {
		return t
	}
	seg := t[loc[0]:]
	head := seg[:loc[1]-loc[0]]
	rest := seg[loc[1]-loc[0]:]

	body, suffix := rest, ""
	if sl := reSectorWord.FindStringIndex(rest); sl != nil {
		body, suffix = rest[:sl[0]], rest[sl[0]:]
	}

	tokens := strings.Fields(body)
	if len(tokens) == 0 {
		return strings.TrimSpace(head + " " + suffix)
	}

	start, end, ok := nameBounds(tokens)
	if !ok {
		return strings.TrimSpace(head + " " + strings.TrimSpace(body) + " " + suffix)
	}

	before := tokens[:start]
	name := tokens[start : end+1]
	after := append([]string(nil), tokens[end+1:]...)

	var digitsBefore []string
	for _, tok := range before {
		if util.IsDigits(tok) {
			digitsBefore = append(digitsBefore, tok)
		}
	}
	if len(digitsBefore) >= 2 {
		moved := digitsBefore[0]
		kept := make([]string, 0, len(before))
		for _, tok := range before {
			if !util.IsDigits(tok) {
				kept = append(kept, tok)
			}
		}
		before = append(kept, digitsBefore[len(digitsBefore)-1])
		after = append([]string{moved}, after...)
	}

	seenDigit := false
	deduped := make([]string, 0, len(after))
	for _, tok := range after {
		if util.IsDigits(tok) {
			if seenDigit {
				continue
			}
			seenDigit = true
		}
		deduped = append(deduped, tok)
	}

	parts := make([]string, 0, len(before)+len(name)+len(deduped))
	parts = append(parts, before...)
	parts = append(parts, name...)
	parts = append(parts, deduped...)
	return strings.TrimSpace(head + " " + strings.Join(parts, " ") + " " + suffix)
}

// nameBounds finds the street name: from the first token with a letter up to the token
// before the next all-digit token.
func nameBounds(tokens []string) (int, int, bool) {
	start := -1
	for i, tok := range tokens {
		if util.HasLetter(tok) {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, 0, false
	}
	end := start
	for j := start + 1; j < len(tokens); j++ {
		if util.IsDigits(tokens[j]) {
			break
		}
		end = j
	}
	return start, end, true
}
