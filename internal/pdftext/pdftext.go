// Package pdftext turns uploaded PDF files into the plain text the
// parsers consume. Page boundaries are preserved as newlines, which the
// extraction patterns rely on for section scanning.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractFile reads a PDF from disk and returns its full text.
func ExtractFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("pdftext: open %s: %w", path, err)
	}
	defer f.Close()
	return Extract(f)
}

// Extract reads a whole PDF stream and returns the concatenated text of
// all pages, one row per line, pages joined with a newline.
func Extract(reader io.Reader) (string, error) {
	// The PDF reader needs the file size, so buffer the stream first.
	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(reader)
	if err != nil {
		return "", fmt.Errorf("pdftext: read stream: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(buf.Bytes()), size)
	if err != nil {
		return "", fmt.Errorf("pdftext: parse pdf: %w", err)
	}

	var textBuilder strings.Builder
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("pdftext: page %d: %w", pageNum, err)
		}
		for _, row := range rows {
			for _, word := range row.Content {
				textBuilder.WriteString(word.S + " ")
			}
			textBuilder.WriteString("\n")
		}
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}
