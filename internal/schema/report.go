// Package schema holds the fixed contract every uploaded report is checked
// against: the declared file types, the required column order, the size
// ceiling and the delimiter candidates tried for plain-text reports.
package schema

import (
	"slices"
	"strings"
)

// DeclaredType is the file type a caller claims for an upload.
type DeclaredType string

const (
	TypeCSV DeclaredType = "csv"
	TypeTXT DeclaredType = "txt"
)

// ParseDeclaredType normalizes caller input. Unknown values are kept as-is so
// the extension rule can report them.
func ParseDeclaredType(s string) DeclaredType {
	return DeclaredType(strings.ToLower(strings.TrimSpace(s)))
}

// Supported reports whether the type has a parser.
func (t DeclaredType) Supported() bool {
	return t == TypeCSV || t == TypeTXT
}

func (t DeclaredType) String() string {
	return string(t)
}

// SupportedTypes lists the declared types in display order.
func SupportedTypes() []DeclaredType {
	return []DeclaredType{TypeCSV, TypeTXT}
}

// MaxFileSize is the largest accepted upload, in bytes (10 KB).
const MaxFileSize int64 = 10 * 1024

var reportColumns = []string{"CUSTOMER", "ADDRESS", "PRODUCT", "PRODUCT_TYPE", "PRICE"}

// ReportColumns returns a copy of the required header, in order.
func ReportColumns() []string {
	return slices.Clone(reportColumns)
}

// MatchesReportColumns reports whether columns equal the required header
// exactly. Case and order both matter.
func MatchesReportColumns(columns []string) bool {
	return slices.Equal(columns, reportColumns)
}

var delimiterCandidates = []rune{'\t', ',', ' '}

// DelimiterCandidates returns the delimiters tried for txt reports, in the
// order they are attempted.
func DelimiterCandidates() []rune {
	return slices.Clone(delimiterCandidates)
}

// DelimiterName returns a human-readable label for a delimiter.
func DelimiterName(r rune) string {
	switch r {
	case '\t':
		return "tab"
	case ',':
		return "comma"
	case ' ':
		return "space"
	default:
		return string(r)
	}
}
