package acts

import (
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"restituiri/internal"
	"restituiri/internal/extract"
)

// ReadPDFText returns the plain text of every readable page, pages separated by newlines.
func ReadPDFText(path string) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String(), pages, nil
}

// Inspection summarizes a downloaded act.
type Inspection struct {
	Pages int
	Refs  []internal.DpgReference
}

// Inspect reads a PDF and collects the DPG references printed in it.
func Inspect(path string) (Inspection, error) {
	text, pages, err := ReadPDFText(path)
	if err != nil {
		return Inspection{}, err
	}
	return Inspection{Pages: pages, Refs: extract.DedupeDPGs(extract.AllDPGs(text))}, nil
}
