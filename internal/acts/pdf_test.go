package acts

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestPDF writes a one-page PDF showing text in Helvetica.
func writeTestPDF(t *testing.T, text string) string {
	t.Helper()

	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "12_55_2005-03-01.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestInspect(t *testing.T) {
	path := writeTestPDF(t, "DPG: 55, Data: 2005-03-01")

	got, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Pages)
	require.Len(t, got.Refs, 1)
	assert.Equal(t, "55", got.Refs[0].Code)
	require.NotNil(t, got.Refs[0].ISODate)
	assert.Equal(t, "2005-03-01", *got.Refs[0].ISODate)
}

func TestReadPDFTextMissingFile(t *testing.T) {
	_, _, err := ReadPDFText(filepath.Join(t.TempDir(), "absent.pdf"))
	assert.Error(t, err)
}
