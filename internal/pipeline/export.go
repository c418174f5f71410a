package pipeline

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"restituiri/internal"
	"restituiri/internal/acts"
	"restituiri/internal/classify"
	"restituiri/internal/extract"
	"restituiri/internal/util"
)

const (
	yes     = "DA"
	no      = "NU"
	utf8BOM = "\ufeff"

	requesterSep = "; "
	pdfNameSep   = ";"
)

var exportHeaders = []string{
	"Dosar PMB", "Solicitant", "Notificare PMB",
	"Adresa contemporană", "Adresa istorică", "Tip proprietate",
	"Soluție", "Istorie acte", "Mai multe adrese",
	"latitude", "longitude",
	"Solutie_string", "Solutie_grup", "An_solutie",
	"Pdf_nume", "Pdf_valid",
}

// BuildExportRows joins stored cases with their geocode outcome and linked PDFs and
// derives the solution columns.
func BuildExportRows(cases []internal.StoredCase, geocodes map[int64]internal.GeocodeRow, links map[int64][]string, cutoff int) []internal.ExportRow {
	rows := make([]internal.ExportRow, 0, len(cases))
	for _, c := range cases {
		rec := c.Record
		solution := classify.SolutionString(rec.Solution)
		row := internal.ExportRow{
			CaseNumber:         rec.CaseNumber,
			CaseDate:           rec.CaseDate,
			Requesters:         rec.Requesters,
			NotificationNumber: rec.NotificationNumber,
			NotificationDate:   rec.NotificationDate,
			Contemporary:       rec.Address.Contemporary,
			Historical:         rec.Address.Historical,
			PropertyType:       rec.Address.PropertyType,
			Solution:           rec.Solution,
			ActHistory:         rec.ActHistory,
			MultipleAddresses:  rec.MultipleAddresses,
			SolutionString:     solution,
			SolutionGroup:      classify.Group(solution),
			SolutionYear:       classify.SolutionYear(rec.Solution),
			PDFNames:           links[c.ID],
		}
		if g, ok := geocodes[c.ID]; ok && g.Status == internal.GeocodeFound {
			row.Latitude = g.Latitude
			row.Longitude = g.Longitude
		}
		row.PDFValid = acts.Valid(row.PDFNames, cutoff)
		rows = append(rows, row)
	}
	return rows
}

// exportRecord renders one row as text cells; absent text fields become "NONE", absent
// numbers stay empty.
func exportRecord(r internal.ExportRow) []string {
	requesters := util.None
	if len(r.Requesters) > 0 {
		requesters = strings.Join(r.Requesters, requesterSep)
	}
	multiple := no
	if r.MultipleAddresses {
		multiple = yes
	}
	year := ""
	if r.SolutionYear != nil {
		year = strconv.Itoa(*r.SolutionYear)
	}
	return []string{
		util.OrNone(extract.CaseID(r.CaseNumber, r.CaseDate)),
		requesters,
		util.OrNone(extract.CaseID(r.NotificationNumber, r.NotificationDate)),
		util.OrNone(r.Contemporary),
		util.OrNone(r.Historical),
		util.OrNone(r.PropertyType),
		util.OrNone(r.Solution),
		util.OrNone(r.ActHistory),
		multiple,
		formatCoord(r.Latitude),
		formatCoord(r.Longitude),
		util.OrNone(r.SolutionString),
		util.OrNone(r.SolutionGroup),
		year,
		strings.Join(r.PDFNames, pdfNameSep),
		formatBool(r.PDFValid),
	}
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// WriteCSV writes the rows with a UTF-8 byte order mark so spreadsheet tools pick up the
// diacritics.
func WriteCSV(w io.Writer, rows []internal.ExportRow) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(exportRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ExportCSV(rows []internal.ExportRow, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ExportXLSX(rows []internal.ExportRow, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		cells := exportRecord(row)
		for col, v := range cells {
			set(col+1, v)
		}
		// numeric columns keep their cell type
		set(10, derefFloat(row.Latitude))
		set(11, derefFloat(row.Longitude))
		set(14, derefInt(row.SolutionYear))
		set(16, row.PDFValid)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
