package acts

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"restituiri/internal"
)

const maxFileNameLen = 200

var reUnsafeName = regexp.MustCompile(`[^\p{L}\p{N}_\-.]`)

// FileName is the on-disk name of a task's PDF: {dosar}_{dpg}_{iso date}.pdf.
func FileName(task internal.DownloadTask) string {
	return SanitizeFilename(task.CaseNumber + "_" + task.Code + "_" + task.ISODate + ".pdf")
}

// SanitizeFilename replaces characters outside letters, digits, '_', '-' and '.' and
// truncates to 200 characters.
func SanitizeFilename(name string) string {
	name = reUnsafeName.ReplaceAllString(name, "_")
	if utf8.RuneCountInString(name) > maxFileNameLen {
		name = string([]rune(name)[:maxFileNameLen])
	}
	return name
}

// PDFName is a parsed act file name.
type PDFName struct {
	Dosar string
	Code  string
	Date  string
}

// ParsePDFName splits "dosar_dpg_date.pdf". Names with any other number of '_'
// separated parts are rejected.
func ParsePDFName(name string) (PDFName, bool) {
	if !strings.HasSuffix(name, ".pdf") {
		return PDFName{}, false
	}
	parts := strings.Split(strings.TrimSuffix(name, ".pdf"), "_")
	if len(parts) != 3 {
		return PDFName{}, false
	}
	return PDFName{Dosar: parts[0], Code: parts[1], Date: parts[2]}, true
}

// Valid reports whether any of the names belongs to a dosar numbered at or below cutoff.
func Valid(names []string, cutoff int) bool {
	for _, name := range names {
		name = strings.TrimSpace(name)
		head, _, _ := strings.Cut(name, "_")
		n, err := strconv.Atoi(head)
		if err != nil {
			continue
		}
		if n <= cutoff {
			return true
		}
	}
	return false
}
