package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"restituiri/internal"
	"restituiri/internal/storage"
	"restituiri/internal/util"
)

const caseIDSep = "/"

// ImportCSV reads a dataset written by ExportCSV, or by the older scraper, back into case
// records. Columns are located by header name; "NONE" cells become absent values.
func ImportCSV(r io.Reader) ([]internal.CaseRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))] = i
	}
	if _, ok := cols[exportHeaders[0]]; !ok {
		return nil, fmt.Errorf("missing %q column", exportHeaders[0])
	}

	cell := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var out []internal.CaseRecord
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := internal.CaseRecord{
			Requesters: splitRequesters(cell(rec, "Solicitant")),
			Address: internal.AddressEntry{
				Contemporary: util.FromNone(cell(rec, "Adresa contemporană")),
				Historical:   util.FromNone(cell(rec, "Adresa istorică")),
				PropertyType: util.FromNone(cell(rec, "Tip proprietate")),
			},
			Solution:          util.FromNone(cell(rec, "Soluție")),
			ActHistory:        util.FromNone(cell(rec, "Istorie acte")),
			MultipleAddresses: strings.EqualFold(strings.TrimSpace(cell(rec, "Mai multe adrese")), yes),
		}
		row.CaseNumber, row.CaseDate = splitCaseID(cell(rec, "Dosar PMB"))
		row.NotificationNumber, row.NotificationDate = splitCaseID(cell(rec, "Notificare PMB"))
		out = append(out, row)
	}
	return out, nil
}

// ImportCSVFile stores the rows of a CSV dataset under the file's base name.
func ImportCSVFile(db *storage.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	rows, err := ImportCSV(f)
	if err != nil {
		return 0, fmt.Errorf("import %s: %w", path, err)
	}
	if err := db.RecordFile(filepath.Base(path), storage.FileImported, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// splitCaseID reverses the "number / date" rendering; either half may be "NONE".
func splitCaseID(v string) (*string, *string) {
	if util.FromNone(v) == nil {
		return nil, nil
	}
	number, date, ok := strings.Cut(v, caseIDSep)
	if !ok {
		return util.FromNone(number), nil
	}
	return util.FromNone(number), util.FromNone(date)
}

func splitRequesters(v string) []string {
	if util.FromNone(v) == nil {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, strings.TrimSpace(requesterSep)) {
		if p := util.CleanText(part); p != nil {
			out = append(out, *p)
		}
	}
	return out
}
