package core

import (
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewDecodingReader wraps r so that a leading byte order mark is dropped and
// invalid UTF-8 sequences come out as U+FFFD. UTF-16 input with a BOM is
// transcoded to UTF-8.
func NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// readFromStart rewinds rs and returns its decoded content. Each parse
// attempt calls this so no attempt depends on where the previous one stopped.
func readFromStart(rs io.ReadSeeker) ([]byte, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}
	data, err := io.ReadAll(NewDecodingReader(rs))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return data, nil
}
