package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/filecheck/internal/schema"
)

var (
	// ErrNoFile is returned when a submission carries no content.
	ErrNoFile = errors.New("no file provided")

	// ErrEmptyFile is returned when a report has no header row.
	ErrEmptyFile = errors.New("empty file: no columns to parse")

	// ErrUnsupportedType is returned when no parser exists for a declared type.
	ErrUnsupportedType = errors.New("unsupported declared type")

	errNoHeaderMatch = errors.New("no candidate delimiter produced the required header")
)

// ParseError reports that a report could not be turned into a table.
type ParseError struct {
	Declared   schema.DeclaredType
	Delimiters []rune // delimiters attempted, in order
	Err        error
}

func (e *ParseError) Error() string {
	if e.Declared == schema.TypeTXT {
		return fmt.Sprintf("failed to parse the .txt file with common delimiters (%s)", delimiterList(e.Delimiters))
	}
	if !e.Declared.Supported() {
		return fmt.Sprintf("failed to parse the file: %v %q", e.Err, e.Declared)
	}
	return fmt.Sprintf("failed to parse the .%s file: %v", e.Declared, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func delimiterList(ds []rune) string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = schema.DelimiterName(d)
	}
	return strings.Join(names, ", ")
}

// RecordError reports that a verdict could not be persisted. The run that
// produced it was aborted.
type RecordError struct {
	Rule string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record verdict %q: %v", e.Rule, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
