// Package acts locates, downloads and links the decision PDFs (DPG acts) referenced by
// case solutions.
package acts

import (
	"restituiri/internal"
	"restituiri/internal/extract"
	"restituiri/internal/util"
)

// Plan lists the acts to fetch for records: DPG references from the solution and then the
// act history of each row. Pairs repeated within a row or across rows are planned once,
// under the first row that mentions them. References without a usable date are skipped,
// as are keys for which done reports true.
func Plan(records []internal.CaseRecord, done func(internal.DpgKey) bool) []internal.DownloadTask {
	var tasks []internal.DownloadTask
	planned := map[internal.DpgKey]struct{}{}

	for _, rec := range records {
		refs := append(extract.AllDPGs(util.Deref(rec.Solution)), extract.AllDPGs(util.Deref(rec.ActHistory))...)
		if len(refs) == 0 {
			continue
		}
		dosar := extract.UnknownDosar
		if id := extract.CaseID(rec.CaseNumber, rec.CaseDate); id != nil {
			dosar = extract.DosarNumber(*id)
		}

		for _, ref := range extract.DedupeDPGs(refs) {
			if ref.ISODate == nil || ref.Year == nil {
				continue
			}
			key := ref.Key()
			if _, ok := planned[key]; ok {
				continue
			}
			planned[key] = struct{}{}
			if done != nil && done(key) {
				continue
			}
			tasks = append(tasks, internal.DownloadTask{
				CaseNumber: dosar,
				Code:       ref.Code,
				ISODate:    *ref.ISODate,
				Year:       *ref.Year,
			})
		}
	}
	return tasks
}
