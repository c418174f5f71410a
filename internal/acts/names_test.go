package acts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"restituiri/internal"
)

func TestFileName(t *testing.T) {
	name := FileName(internal.DownloadTask{CaseNumber: "12", Code: "55", ISODate: "2005-03-01", Year: 2005})
	assert.Equal(t, "12_55_2005-03-01.pdf", name)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c.pdf", SanitizeFilename("a/b c.pdf"))
	assert.Equal(t, "Ștefan-1.pdf", SanitizeFilename("Ștefan-1.pdf"))

	long := SanitizeFilename(strings.Repeat("ș", 250))
	assert.Equal(t, 200, len([]rune(long)))
}

func TestParsePDFName(t *testing.T) {
	got, ok := ParsePDFName("12_55_2005-03-01.pdf")
	assert.True(t, ok)
	assert.Equal(t, PDFName{Dosar: "12", Code: "55", Date: "2005-03-01"}, got)

	for _, bad := range []string{"12_55.pdf", "12_55_2005_x.pdf", "12_55_2005-03-01.txt"} {
		_, ok := ParsePDFName(bad)
		assert.False(t, ok, bad)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid([]string{"20000_1_2005-01-01.pdf", " 17033_2_2005-01-01.pdf"}, 17033))
	assert.False(t, Valid([]string{"17034_1_2005-01-01.pdf", "ABC_1_2005-01-01.pdf"}, 17033))
	assert.False(t, Valid(nil, 17033))
}
