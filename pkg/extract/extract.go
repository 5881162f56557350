// Package extract pulls plain text out of PDF documents for the naming
// pipeline. Only the first page is read.
package extract

import (
	"fmt"
	"path/filepath"

	"github.com/ledongthuc/pdf"
)

// FirstPageText returns the plain text of the document's first page. A
// document that opens successfully but has no pages (or a null first page)
// yields empty text and no error. The underlying parser panics on some
// malformed documents; those are recovered and reported as errors.
func FirstPageText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("parsing pdf %s: %v", filepath.Base(path), r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	if reader.NumPage() < 1 {
		return "", nil
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return "", nil
	}

	content, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}
	return content, nil
}
