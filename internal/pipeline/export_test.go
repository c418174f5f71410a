package pipeline

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"restituiri/internal"
	"restituiri/internal/util"
)

func sampleRecords() []internal.CaseRecord {
	return []internal.CaseRecord{
		{
			CaseNumber:         util.StringPtr("1234"),
			CaseDate:           util.StringPtr("2002-02-14"),
			Requesters:         []string{"POPESCU ION", "POPESCU MARIA"},
			NotificationNumber: util.StringPtr("567"),
			NotificationDate:   util.StringPtr("14/02/2002"),
			Address: internal.AddressEntry{
				Contemporary: util.StringPtr("Str. Lalelelor nr. 5"),
				Historical:   util.StringPtr("Str. Regele Carol nr. 5"),
				PropertyType: util.StringPtr("teren"),
			},
			Solution:          util.StringPtr("DPG: 55, Dată: 2005-03-01, Restituire în natură"),
			ActHistory:        util.StringPtr("DL10 transmis"),
			MultipleAddresses: true,
		},
		{CaseDate: util.StringPtr("2003-01-01")},
	}
}

func readExport(t *testing.T, data string) [][]string {
	t.Helper()
	require.True(t, strings.HasPrefix(data, utf8BOM))
	recs, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(data, utf8BOM))).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestWriteCSVRendersAbsentValues(t *testing.T) {
	cases := []internal.StoredCase{{ID: 1, Record: sampleRecords()[0]}, {ID: 2, Record: sampleRecords()[1]}}
	geocodes := map[int64]internal.GeocodeRow{
		1: {CaseID: 1, Status: internal.GeocodeFound, Latitude: util.FloatPtr(44.4268), Longitude: util.FloatPtr(26.1025)},
		2: {CaseID: 2, Status: internal.GeocodeNotFound},
	}
	links := map[int64][]string{1: {"1234_55_2005-03-01.pdf", "1234_55_2005-03-01_b.pdf"}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, BuildExportRows(cases, geocodes, links, 17033)))
	recs := readExport(t, buf.String())
	require.Len(t, recs, 3)
	assert.Equal(t, exportHeaders, recs[0])

	assert.Equal(t, []string{
		"1234 / 2002-02-14",
		"POPESCU ION; POPESCU MARIA",
		"567 / 14/02/2002",
		"Str. Lalelelor nr. 5",
		"Str. Regele Carol nr. 5",
		"teren",
		"DPG: 55, Dată: 2005-03-01, Restituire în natură",
		"DL10 transmis",
		"DA",
		"44.4268",
		"26.1025",
		"Restituire în natură",
		"Restituire",
		"2005",
		"1234_55_2005-03-01.pdf;1234_55_2005-03-01_b.pdf",
		"True",
	}, recs[1])

	assert.Equal(t, []string{
		"NONE / 2003-01-01", "NONE", "NONE", "NONE", "NONE", "NONE", "NONE", "NONE",
		"NU", "", "", "NONE", "NONE", "", "", "False",
	}, recs[2])
}

func TestImportCSVReadsExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, StandaloneRows(sampleRecords(), 17033)))

	got, err := ImportCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)
}

func TestImportCSVOlderLayout(t *testing.T) {
	data := "Dosar PMB,Solicitant,Notificare PMB,Adresa contemporană,Adresa istorică,Tip proprietate,Soluție,Istorie acte,Mai multe adrese\n" +
		"12 / NONE,ION,NONE,Str. Morii 3,NONE,teren,NONE,NONE,NU\n"
	got, err := ImportCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "12", *got[0].CaseNumber)
	assert.Nil(t, got[0].CaseDate)
	assert.Equal(t, []string{"ION"}, got[0].Requesters)
	assert.Nil(t, got[0].NotificationNumber)
	assert.Nil(t, got[0].Solution)
	assert.False(t, got[0].MultipleAddresses)
}

func TestImportCSVRejectsForeignFile(t *testing.T) {
	_, err := ImportCSV(strings.NewReader("a,b\n1,2\n"))
	assert.Error(t, err)

	got, err := ImportCSV(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "dosare.xlsx")
	require.NoError(t, ExportXLSX(StandaloneRows(sampleRecords(), 17033), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Dosar PMB", rows[0][0])
	assert.Equal(t, "1234 / 2002-02-14", rows[1][0])
	assert.Equal(t, "2005", rows[1][13])
	assert.Equal(t, "NONE", rows[2][1])
}

func TestReadRecords(t *testing.T) {
	recs, err := ReadRecords("", fixturePage)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = ReadRecords("pdf", "x.pdf")
	assert.Error(t, err)
}
