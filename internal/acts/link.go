package acts

import (
	"regexp"
	"strings"

	"restituiri/internal"
	"restituiri/internal/extract"
	"restituiri/internal/util"
)

// Only the "DPG: n, Dată: yyyy-mm-dd" shape used in file names takes part in linking.
var reStrictPair = regexp.MustCompile(`DPG[: ]+(\d+)[, ]+Dat[ăa][: ]+(\d{4}-\d{2}-\d{2})`)

func strictPairs(text string) map[internal.DpgKey]struct{} {
	out := map[internal.DpgKey]struct{}{}
	for _, m := range reStrictPair.FindAllStringSubmatch(text, -1) {
		out[internal.DpgKey{Code: m[1], ISODate: m[2]}] = struct{}{}
	}
	return out
}

// DosarID is the part of the case identifier before the first '/'.
func DosarID(rec internal.CaseRecord) string {
	id := util.OrNone(extract.CaseID(rec.CaseNumber, rec.CaseDate))
	head, _, _ := strings.Cut(id, "/")
	return strings.TrimSpace(head)
}

// Link returns, for each record, the PDF names that belong to it: same dosar id and a
// (DPG, date) pair that appears in the row's solution or act history. Names that do not
// parse as act file names are ignored.
func Link(records []internal.CaseRecord, names []string) [][]string {
	byDosar := map[string][]int{}
	pairs := make([]map[internal.DpgKey]struct{}, len(records))
	for i, rec := range records {
		byDosar[DosarID(rec)] = append(byDosar[DosarID(rec)], i)
		pairs[i] = strictPairs(util.Deref(rec.Solution) + "\n" + util.Deref(rec.ActHistory))
	}

	out := make([][]string, len(records))
	for _, name := range names {
		parsed, ok := ParsePDFName(name)
		if !ok {
			continue
		}
		key := internal.DpgKey{Code: parsed.Code, ISODate: parsed.Date}
		for _, i := range byDosar[parsed.Dosar] {
			if _, ok := pairs[i][key]; ok {
				out[i] = append(out[i], name)
			}
		}
	}
	return out
}
