// Package extract turns uploaded document bytes into plain text. Each
// supported format has its own extractor; dispatch is by declared file
// extension over a closed format set, so adding a format means adding an
// entry to the table rather than another branch in callers.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Format identifies a supported document format.
type Format string

// Supported formats.
const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatCSV      Format = "csv"
)

var (
	// ErrUnsupportedFormat reports a file extension outside the supported set.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmptyDocument reports a document with no extractable text.
	ErrEmptyDocument = errors.New("document contains no extractable text")
	// ErrMalformedDocument reports a file whose bytes do not parse as the
	// declared format.
	ErrMalformedDocument = errors.New("malformed document")
)

// extractor converts raw file bytes of one format into text.
type extractor interface {
	extract(data []byte) (string, error)
}

var extractors = map[Format]extractor{
	FormatPDF:      pdfExtractor{},
	FormatDOCX:     docxExtractor{},
	FormatText:     plaintextExtractor{},
	FormatMarkdown: plaintextExtractor{},
	FormatCSV:      csvExtractor{},
}

// Detect maps a filename to its Format by extension, case-insensitively.
func Detect(filename string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	f := Format(ext)
	if _, ok := extractors[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	return f, nil
}

// Supported reports whether the filename's extension is in the supported set.
func Supported(filename string) bool {
	_, err := Detect(filename)
	return err == nil
}

// Text extracts normalized plain text from data in the given format. The
// result has Unix line endings, no trailing whitespace on lines, and at
// most one blank line between paragraphs. A document that yields only
// whitespace fails with ErrEmptyDocument.
func Text(format Format, data []byte) (string, error) {
	ex, ok := extractors[format]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	raw, err := ex.extract(data)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", format, err)
	}

	text := normalize(raw)
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

var multiNewline = regexp.MustCompile(`\n{3,}`)

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")

	s = multiNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
