package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"restituiri/internal"
	"restituiri/internal/extract"
)

// ReadRecords loads case records from a single file without touching the store.
func ReadRecords(inputType string, input string) ([]internal.CaseRecord, error) {
	if inputType == "" {
		inputType = strings.TrimPrefix(strings.ToLower(filepath.Ext(input)), ".")
	}
	switch inputType {
	case "html", "htm":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		return extract.ParseDosar(string(blob))
	case "csv":
		f, err := os.Open(input)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ImportCSV(f)
	default:
		return nil, fmt.Errorf("unsupported input type: %s", inputType)
	}
}

// StandaloneRows wraps records for export when no store is involved: no geocodes and no
// linked PDFs.
func StandaloneRows(recs []internal.CaseRecord, cutoff int) []internal.ExportRow {
	cases := make([]internal.StoredCase, len(recs))
	for i, r := range recs {
		cases[i] = internal.StoredCase{ID: int64(i + 1), Ordinal: i, Record: r}
	}
	return BuildExportRows(cases, nil, nil, cutoff)
}
