// Package classify buckets free-text case solutions into outcome groups.
package classify

import (
	"regexp"
	"strings"

	"restituiri/internal"
	"restituiri/internal/extract"
	"restituiri/internal/util"
)

type rule struct {
	re    *regexp.Regexp
	group internal.SolutionGroup
}

// Order matters: "restituire respinsa" is a restitution, not a rejection.
var rules = []rule{
	{regexp.MustCompile(`restit`), internal.GroupRestitution},
	{regexp.MustCompile(`\bmre\b|\bmcp\b|masuri|compens`), internal.GroupCompensation},
	{regexp.MustCompile(`resp|\brn\b`), internal.GroupRejection},
	{regexp.MustCompile(`revoc|anul`), internal.GroupRevocation},
	{regexp.MustCompile(`declin|djcl|transmis`), internal.GroupReferral},
}

// SolutionString returns the last comma-separated clause of a solution, which holds
// the outcome wording ("DPG: 12, Data: ..., Restituire in natura" -> "Restituire in natura").
func SolutionString(solution *string) *string {
	if solution == nil {
		return nil
	}
	s := *solution
	if i := strings.LastIndex(s, ","); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	return &s
}

// Group maps a solution string to its outcome group. Unmatched text is returned trimmed.
func Group(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	lower := strings.ToLower(trimmed)
	for _, r := range rules {
		if r.re.MatchString(lower) {
			g := string(r.group)
			return &g
		}
	}
	return &trimmed
}

// SolutionYear is the year of the first dated DPG reference in the solution text.
func SolutionYear(solution *string) *int {
	if solution == nil {
		return nil
	}
	for _, ref := range extract.AllDPGs(*solution) {
		if ref.Year != nil {
			return util.IntPtr(*ref.Year)
		}
	}
	return nil
}
