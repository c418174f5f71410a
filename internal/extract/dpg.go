package extract

import (
	"regexp"
	"strings"
	"time"

	"restituiri/internal"
)

const datePattern = `[0-9]{4}-[0-9]{2}-[0-9]{2}|[0-9]{2}/[0-9]{2}/[0-9]{4}|[0-9]{4}/[0-9]{2}/[0-9]{2}|[0-9]{2}-[0-9]{2}-[0-9]{4}`

var (
	// The date must sit in the same clause as the code: no ';' or line break in between.
	reDPG = regexp.MustCompile(`(?i)DPG[:\s]*([0-9]+)(?:[^;\n\r]*?Dat[ăa]:?\s*(` + datePattern + `))?`)

	dateLayouts = []string{"2006-01-02", "02/01/2006", "2006/01/02", "02-01-2006"}

	dateScans = []struct {
		re     *regexp.Regexp
		layout string
	}{
		{regexp.MustCompile(`\d{4}-\d{2}-\d{2}`), "2006-01-02"},
		{regexp.MustCompile(`\d{2}/\d{2}/\d{4}`), "02/01/2006"},
		{regexp.MustCompile(`\d{4}/\d{2}/\d{2}`), "2006/01/02"},
		{regexp.MustCompile(`\d{2}-\d{2}-\d{4}`), "02-01-2006"},
	}
)

// AllDPGs returns every DPG reference in text in source order. Duplicates are kept;
// see DedupeDPGs.
func AllDPGs(text string) []internal.DpgReference {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.EqualFold(trimmed, "NONE") {
		return nil
	}

	var out []internal.DpgReference
	for _, m := range reDPG.FindAllStringSubmatch(text, -1) {
		ref := internal.DpgReference{Code: m[1]}
		if m[2] != "" {
			raw := m[2]
			ref.RawDate = &raw
			ref.ISODate = NormalizeDate(raw)
			ref.Year = YearFromISO(ref.ISODate)
		}
		out = append(out, ref)
	}
	return out
}

// DedupeDPGs drops repeated (code, ISO date) pairs, keeping the first occurrence.
func DedupeDPGs(refs []internal.DpgReference) []internal.DpgReference {
	seen := map[internal.DpgKey]struct{}{}
	out := make([]internal.DpgReference, 0, len(refs))
	for _, ref := range refs {
		key := ref.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// NormalizeDate parses one of the four portal date shapes into YYYY-MM-DD. When the
// whole string does not parse it scans for an embedded date; nil if nothing is valid.
func NormalizeDate(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			iso := t.Format("2006-01-02")
			return &iso
		}
	}
	for _, scan := range dateScans {
		found := scan.re.FindString(s)
		if found == "" {
			continue
		}
		if t, err := time.Parse(scan.layout, found); err == nil {
			iso := t.Format("2006-01-02")
			return &iso
		}
	}
	return nil
}

func YearFromISO(iso *string) *int {
	if iso == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", *iso)
	if err != nil {
		return nil
	}
	y := t.Year()
	return &y
}
