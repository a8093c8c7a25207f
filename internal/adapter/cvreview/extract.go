package cvreview

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadableCV is returned when an upload is neither a PDF nor UTF-8 text.
var ErrUnreadableCV = errors.New("cv is not a readable PDF or text file")

var pdfMagic = []byte("%PDF-")

// ExtractText returns the plain text of an uploaded CV. PDFs are detected by
// content type, extension or magic bytes; anything else must be UTF-8 text.
func ExtractText(filename, contentType string, data []byte) (string, error) {
	if isPDF(filename, contentType, data) {
		return pdfText(data)
	}
	if !utf8.Valid(data) {
		return "", ErrUnreadableCV
	}
	return string(data), nil
}

func isPDF(filename, contentType string, data []byte) bool {
	return strings.HasPrefix(contentType, "application/pdf") ||
		strings.EqualFold(filepath.Ext(filename), ".pdf") ||
		bytes.HasPrefix(data, pdfMagic)
}

// pdfText concatenates the text of every page, separating pages with a space.
func pdfText(data []byte) (text string, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrUnreadableCV, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableCV, err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if s = strings.TrimSpace(s); s != "" {
			pages = append(pages, s)
		}
	}
	return strings.Join(pages, " "), nil
}
