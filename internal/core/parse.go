package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/filecheck/internal/schema"
)

// ParseFunc turns report content into a table.
type ParseFunc func(content io.ReadSeeker, declared schema.DeclaredType) (*ParsedTable, error)

// Parse tokenizes a report according to its declared type.
//
// csv content is split on commas. txt content is tried with each candidate
// delimiter in order and the first one whose header equals the report
// columns wins; a candidate that fails to tokenize is skipped. Failures are
// returned as *ParseError.
func Parse(content io.ReadSeeker, declared schema.DeclaredType) (*ParsedTable, error) {
	declared = schema.ParseDeclaredType(string(declared))

	switch declared {
	case schema.TypeCSV:
		delims := []rune{','}
		data, err := readFromStart(content)
		if err != nil {
			return nil, &ParseError{Declared: declared, Delimiters: delims, Err: err}
		}
		table, err := parseDelimited(data, ',')
		if err != nil {
			return nil, &ParseError{Declared: declared, Delimiters: delims, Err: err}
		}
		return table, nil

	case schema.TypeTXT:
		delims := schema.DelimiterCandidates()
		lastErr := errNoHeaderMatch
		for _, d := range delims {
			data, err := readFromStart(content)
			if err != nil {
				return nil, &ParseError{Declared: declared, Delimiters: delims, Err: err}
			}
			table, err := parseDelimited(data, d)
			if err != nil {
				lastErr = err
				continue
			}
			if schema.MatchesReportColumns(table.Columns) {
				return table, nil
			}
		}
		return nil, &ParseError{Declared: declared, Delimiters: delims, Err: lastErr}

	default:
		return nil, &ParseError{Declared: declared, Err: ErrUnsupportedType}
	}
}

// parseDelimited splits data into a header and rows. Blank lines after the
// header become rows of empty cells, short rows are padded and rows wider
// than the header are an error.
func parseDelimited(data []byte, delim rune) (*ParsedTable, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var (
		table  *ParsedTable
		offset int64
	)

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if table == nil {
			table = &ParsedTable{Columns: record}
			offset = r.InputOffset()
			continue
		}

		table.appendBlank(blankLinesAt(data, offset))
		offset = r.InputOffset()

		if len(record) > len(table.Columns) {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(table.Columns), len(record))
		}
		table.Rows = append(table.Rows, padRow(record, len(table.Columns)))
	}

	if table == nil {
		return nil, ErrEmptyFile
	}
	table.appendBlank(blankLinesAt(data, offset))

	return table, nil
}

// blankLinesAt counts the empty lines starting at offset. encoding/csv skips
// these silently, so they are recovered from the raw bytes.
func blankLinesAt(data []byte, offset int64) int {
	n := 0
	for i := offset; i < int64(len(data)); i++ {
		switch data[i] {
		case '\n':
			n++
		case '\r':
		default:
			return n
		}
	}
	return n
}

func (t *ParsedTable) appendBlank(n int) {
	for range n {
		t.Rows = append(t.Rows, make([]string, len(t.Columns)))
	}
}

func padRow(record []string, width int) []string {
	if len(record) == width {
		return record
	}
	row := make([]string, width)
	copy(row, record)
	return row
}
