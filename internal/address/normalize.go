// Package address turns free-text Bucharest addresses into a form a geocoder accepts.
package address

import (
	"regexp"
	"strings"

	"restituiri/internal/util"
)

// City is appended to every normalized address.
const City = "bucuresti"

const keywordAlt = `Strada|Bulevardul|Calea|Soseaua|Aleea|Intrarea|Fundatura|Comuna|Cartierul|Satul|Piata|Drumul|Zona|Mosia|Parcul|Prelungirea|Localitatea`

type streetType struct {
	pattern *regexp.Regexp
	keyword string
}

// streetTypes must be applied in this exact order: later entries can match text
// produced by earlier ones (a bare "S." becomes Strada, never Soseaua).
var streetTypes = []streetType{
	{regexp.MustCompile(`(?i)\bS(TRA?D?A?)?\.?\b`), "Strada"},
	{regexp.MustCompile(`(?i)\bIN(TR(ARE|\.?)?)?\b|\bIN\b`), "Intrarea"},
	{regexp.MustCompile(`(?i)\bFUND(ATURA?|AT|A|\.?)\b|\bFUNDA\.?\b`), "Fundatura"},
	{regexp.MustCompile(`(?i)\bB([- ]?DUL|D|UL|UL\.?|ULUI|DULUI|ULEVARD|ULEVARDUL)?\.?\b`), "Bulevardul"},
	{regexp.MustCompile(`(?i)\bCAL(EA)?\.?\b|\bCALE\.?\b`), "Calea"},
	{regexp.MustCompile(`(?i)\bS(OS(EAUA?)?|OSEA)?\.?\b`), "Soseaua"},
	{regexp.MustCompile(`(?i)\bAL(EE?A?)?\.?\b`), "Aleea"},
	{regexp.MustCompile(`(?i)\bPREL(UNGIREA?)?\.?\b`), "Prelungirea"},
	{regexp.MustCompile(`(?i)\bCOM(UNA?|\.?)\b|\bCO\b`), "Comuna"},
	{regexp.MustCompile(`(?i)\bCART(IER(UL)?|\.?)\b|\bCAR\b`), "Cartierul"},
	{regexp.MustCompile(`(?i)\bSAT(UL)?\.?\b`), "Satul"},
	{regexp.MustCompile(`(?i)\bPIA(TA)?\.?\b`), "Piata"},
	{regexp.MustCompile(`(?i)\bDRUM(UL)?\.?\b|\bDR\b`), "Drumul"},
	{regexp.MustCompile(`(?i)\bZONA?\.?\b`), "Zona"},
	{regexp.MustCompile(`(?i)\bMOS(IA)?\.?\b`), "Mosia"},
	{regexp.MustCompile(`(?i)\bPARC(UL)?\.?\b`), "Parcul"},
	{regexp.MustCompile(`(?i)\bLOCALIT(ATEA)?\.?\b|\bLOC\b`), "Localitatea"},
}

var (
	reNoise        = regexp.MustCompile(`(?i)\b(?:ETAJ|ETJ|AP|DE\s+LA|CU\s+APA\s+RECE|G-RAL|BIS|SNIC)\b`)
	reSpaces       = regexp.MustCompile(`\s+`)
	reKeywordDot   = regexp.MustCompile(`(?i)(` + keywordAlt + `)\.`)
	reKeywordGlued = regexp.MustCompile(`(?i)(` + keywordAlt + `)([A-Z])`)
	reKeywordRun   = regexp.MustCompile(`(?i)(` + keywordAlt + `)([^0-9]*)`)
	reKeywordWord  = regexp.MustCompile(`\b(?:` + keywordAlt + `)\b`)
	reKeywordTail  = regexp.MustCompile(`\b(?:` + keywordAlt + `)\s*$`)
	reInitial      = regexp.MustCompile(`\b([A-Z])\.\s*`)
	rePunct        = regexp.MustCompile(`[,:.]`)

	reFNNumber   = regexp.MustCompile(`(?i)\bFN\s*\((\d+)\)`)
	reParens     = regexp.MustCompile(`\([^)]*\)`)
	reFN         = regexp.MustCompile(`(?i)\bFN\b`)
	reNrVariant  = regexp.MustCompile(`(?i)\b(nr|numar|nrul|numarul)\b`)
	reNrFN       = regexp.MustCompile(`(?i)\bnr\s*[:.]*\s*FN\b`)
	reNrNumber   = regexp.MustCompile(`(?i)\bnr\s*[:.]*\s*(\d+)`)
	reParcela    = regexp.MustCompile(`(?i)\bPARCELA\s*([A-Z0-9]+)\b`)
	reLeadDigits = regexp.MustCompile(`^\d+`)
	reNrClause   = regexp.MustCompile(`(?i)\bnr\s*[:.]*\s*[^,]*`)
	reParcClause = regexp.MustCompile(`(?i)\bPARC(ELA)?\s*[A-Z0-9]*`)

	reSector       = regexp.MustCompile(`(?i)\bsector\s*:?\.?\s*(\d+)`)
	reNumberToken  = regexp.MustCompile(`^\d+[A-Z]*$`)
	reTrailingComa = regexp.MustCompile(`,\s*$`)
	reCitySuffix   = regexp.MustCompile(`(?i)\b` + City + `$`)
)

// Result carries the normalized address together with what the pipeline found on the way.
type Result struct {
	Address string
	// Number is the house number placed after the street name, empty if none.
	Number string
	// NoNumber is set when the text carried an "nr FN" marker.
	NoNumber bool
	// FNNumber is set when an "FN(<digits>)" marker stood in for the house number.
	FNNumber bool
	Parcel   string
	Sector   string
	// HasStreetType is false when no canonical keyword survived canonicalization.
	HasStreetType bool
}

// Normalize canonicalizes a raw address. It never fails; unrecognized input degrades to
// a cleaned string that still ends in the city token.
func Normalize(raw string) string {
	return NormalizeDetailed(raw).Address
}

// NormalizeDetailed is Normalize plus the markers met on the way: the chosen house
// number, "nr FN" and "FN(n)" markers, the parcel, the sector and whether a street type
// was recognized.
func NormalizeDetailed(raw string) Result {
	var res Result

	s := removeNoise(util.Fold(raw))
	s = canonicalizeStreetType(s)
	res.HasStreetType = reKeywordWord.MatchString(s)

	// Sector clauses leave the working text before the number is placed; the sector
	// comes back once, as the suffix.
	s, sector := stripSector(s)
	if sector != "0" {
		res.Sector = sector
	}

	if m := reFNNumber.FindStringSubmatch(s); m != nil {
		res.FNNumber = true
		s = reFNNumber.ReplaceAllLiteralString(s, m[1])
	}
	s = reParens.ReplaceAllString(s, "")
	s = reFN.ReplaceAllString(s, "FN")
	s = reNrVariant.ReplaceAllString(s, "nr")

	res.NoNumber = reNrFN.MatchString(s)
	firstNr := ""
	if m := reNrNumber.FindStringSubmatch(s); m != nil {
		firstNr = m[1]
	}
	if m := reParcela.FindStringSubmatch(s); m != nil {
		res.Parcel = reLeadDigits.FindString(m[1])
	}
	s = reNrClause.ReplaceAllString(s, "")
	s = reParcClause.ReplaceAllString(s, "")

	switch {
	case res.NoNumber && res.Parcel != "":
		res.Number = res.Parcel
	case firstNr != "":
		res.Number = firstNr
	}
	if res.Number != "" {
		s = insertAfterStreetName(s, res.Number)
	}

	if res.Sector != "" {
		s += " sector " + res.Sector
	}

	s = filterTokens(s)

	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
	s = reTrailingComa.ReplaceAllString(s, "")
	if !reCitySuffix.MatchString(s) {
		s = strings.TrimSpace(s + " " + City)
	}
	res.Address = s
	return res
}

// stripSector removes every "sector N" clause and returns the first N. A SECTOR right
// after the street-type keyword is the street name and stays.
func stripSector(s string) (string, string) {
	var b strings.Builder
	sector := ""
	last := 0
	for _, m := range reSector.FindAllStringSubmatchIndex(s, -1) {
		if reKeywordTail.MatchString(s[:m[0]]) {
			continue
		}
		if sector == "" {
			sector = s[m[2]:m[3]]
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(" ")
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), sector
}

func removeNoise(s string) string {
	s = reNoise.ReplaceAllString(s, "")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

func canonicalizeStreetType(s string) string {
	for _, st := range streetTypes {
		s = st.pattern.ReplaceAllLiteralString(s, st.keyword)
	}
	s = reKeywordDot.ReplaceAllString(s, "${1}")
	s = reKeywordGlued.ReplaceAllString(s, "${1} ${2}")
	s = reInitial.ReplaceAllString(s, "")
	s = rePunct.ReplaceAllString(s, " ")
	return reSpaces.ReplaceAllString(s, " ")
}

// insertAfterStreetName places number after the first keyword and the non-digit run
// that follows it. Only the first keyword occurrence is touched.
func insertAfterStreetName(s, number string) string {
	loc := reKeywordRun.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[1]] + " " + number + " " + s[loc[1]:]
}

// filterTokens keeps the first token, then only numbers (optionally lettered),
// all-caps words and the word "sector".
func filterTokens(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return ""
	}
	kept := make([]string, 0, len(tokens))
	kept = append(kept, tokens[0])
	for _, t := range tokens[1:] {
		if reNumberToken.MatchString(t) || util.IsUpper(t) || strings.EqualFold(t, "sector") {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}
