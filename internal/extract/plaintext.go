package extract

import (
	"fmt"
	"unicode/utf8"
)

// plaintextExtractor handles txt and md files. Markdown passes through
// as-is; its structural markers survive chunking and read fine in prompts.
type plaintextExtractor struct{}

func (plaintextExtractor) extract(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrMalformedDocument)
	}
	return string(data), nil
}
