package core

// rules.go defines the fixed checks run against every report.
//
// File rules look only at the upload's metadata. Table rules look at the
// parsed content and only run once the parse step has succeeded. Each check
// is a pure function returning a Verdict with a fixed sentence; the pipeline
// decides what a failure means.

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JonMunkholm/filecheck/internal/schema"
)

// Rule names as they appear in verdicts and persisted records.
const (
	RuleFileType   = "File Type"
	RuleFileName   = "File Name"
	RuleFileSize   = "File Size"
	RuleHeaders    = "Headers"
	RuleNullValues = "Null Values"
	RuleEmptyRows  = "Empty Rows"

	// RuleSummary tags the second copy of each verdict written when a run is
	// accepted.
	RuleSummary = "Validation"
)

// Rule describes one step of the pipeline. Exactly one of FileCheck and
// TableCheck is set.
type Rule struct {
	Name string

	// Terminal rules end the run on failure.
	Terminal bool

	// QuietPass rules are neither recorded nor reported when they pass.
	QuietPass bool

	FileCheck  func(UploadedFile) Verdict
	TableCheck func(*ParsedTable) Verdict
}

// NeedsTable reports whether the rule inspects parsed content.
func (r Rule) NeedsTable() bool {
	return r.TableCheck != nil
}

func (r Rule) evaluate(f UploadedFile, t *ParsedTable) Verdict {
	if r.TableCheck != nil {
		return r.TableCheck(t)
	}
	return r.FileCheck(f)
}

// DefaultRules returns the report rule set in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleFileType, Terminal: true, QuietPass: true, FileCheck: CheckFileType},
		{Name: RuleFileName, FileCheck: CheckFileName},
		{Name: RuleFileSize, FileCheck: CheckFileSize},
		{Name: RuleHeaders, TableCheck: CheckHeaders},
		{Name: RuleNullValues, TableCheck: CheckNullValues},
		{Name: RuleEmptyRows, TableCheck: CheckEmptyRows},
	}
}

// =============================================================================
// File rules
// =============================================================================

var fileNamePattern = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)

// CheckFileType passes when the file's extension equals the declared type,
// ignoring case, and the declared type is one we can parse.
func CheckFileType(f UploadedFile) Verdict {
	_, ext := splitExt(f.Name)
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	declared := schema.ParseDeclaredType(string(f.Declared))

	if declared.Supported() && ext == string(declared) {
		return Verdict{Rule: RuleFileType, Passed: true, Message: "File type matched."}
	}
	return Verdict{
		Rule:    RuleFileType,
		Message: fmt.Sprintf("File type mismatch. Expected %s file.", f.Declared),
	}
}

// CheckFileName passes when the name without its extension is made only of
// ASCII letters, digits and spaces.
func CheckFileName(f UploadedFile) Verdict {
	base, _ := splitExt(f.Name)
	if fileNamePattern.MatchString(base) {
		return Verdict{Rule: RuleFileName, Passed: true, Message: "File name is valid."}
	}
	return Verdict{Rule: RuleFileName, Message: "File name is invalid."}
}

// CheckFileSize passes when the file is at most schema.MaxFileSize bytes.
func CheckFileSize(f UploadedFile) Verdict {
	if f.Size <= schema.MaxFileSize {
		return Verdict{Rule: RuleFileSize, Passed: true, Message: "File size is valid."}
	}
	return Verdict{Rule: RuleFileSize, Message: "File size must be under 10 KB."}
}

// splitExt splits name into base and extension, the extension keeping its
// dot. Leading dots of the final path element are not treated as an
// extension separator, so ".csv" has no extension.
func splitExt(name string) (base, ext string) {
	dir, file := "", name
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		dir, file = name[:i+1], name[i+1:]
	}
	trimmed := strings.TrimLeft(file, ".")
	i := strings.LastIndex(trimmed, ".")
	if i < 0 {
		return name, ""
	}
	cut := len(file) - len(trimmed) + i
	return dir + file[:cut], file[cut:]
}

// =============================================================================
// Table rules
// =============================================================================

// CheckHeaders passes when the header equals the report columns exactly.
func CheckHeaders(t *ParsedTable) Verdict {
	if schema.MatchesReportColumns(t.Columns) {
		return Verdict{Rule: RuleHeaders, Passed: true, Message: "Headers matched."}
	}
	return Verdict{Rule: RuleHeaders, Message: "Headers are not matching."}
}

// CheckNullValues fails when any cell is missing.
func CheckNullValues(t *ParsedTable) Verdict {
	for _, row := range t.Rows {
		for _, cell := range row {
			if cell == "" {
				return Verdict{Rule: RuleNullValues, Message: "Uploaded file contains null values."}
			}
		}
	}
	return Verdict{Rule: RuleNullValues, Passed: true, Message: "Uploaded file does not contain null values."}
}

// CheckEmptyRows fails when any row has no non-blank cell.
func CheckEmptyRows(t *ParsedTable) Verdict {
	for _, row := range t.Rows {
		if isEmptyRow(row) {
			return Verdict{Rule: RuleEmptyRows, Message: "Uploaded file contains empty rows."}
		}
	}
	return Verdict{Rule: RuleEmptyRows, Passed: true, Message: "Uploaded file does not contain empty rows."}
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
