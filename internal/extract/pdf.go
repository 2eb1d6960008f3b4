package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// pdfExtractor pulls the plain-text layer out of a PDF. Scanned PDFs with
// no text layer come back empty and fail upstream with ErrEmptyDocument.
type pdfExtractor struct{}

func (pdfExtractor) extract(data []byte) (text string, err error) {
	// The pdf package panics on some corrupt inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrMalformedDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	var b bytes.Buffer
	if _, err := io.Copy(&b, plain); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return b.String(), nil
}
