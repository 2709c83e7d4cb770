// Package store persists validation verdicts. Every backend writes the same
// validation_results shape and satisfies core.Recorder.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/filecheck/internal/core"
)

// DefaultListLimit caps List when the filter sets no limit.
const DefaultListLimit = 100

// MaxListLimit is the largest limit List honours.
const MaxListLimit = 1000

// Entry is one persisted verdict.
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	RunID     string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	FileName  string    `json:"file_name" yaml:"file_name"`
	Rule      string    `json:"validation_rule" yaml:"validation_rule"`
	Result    string    `json:"result" yaml:"result"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	FileName string
	Rule     string
	RunID    string
	Limit    int
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

func (f Filter) matches(e Entry) bool {
	return (f.FileName == "" || f.FileName == e.FileName) &&
		(f.Rule == "" || f.Rule == e.Rule) &&
		(f.RunID == "" || f.RunID == e.RunID)
}

// Store is a Recorder that can also read its records back.
type Store interface {
	core.Recorder

	// List returns matching entries, newest first.
	List(ctx context.Context, f Filter) ([]Entry, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// newEntry stamps a record with an ID, its run and the current time.
func newEntry(ctx context.Context, rec core.Record, id string, now time.Time) Entry {
	return Entry{
		ID:        id,
		RunID:     core.RunIDFromContext(ctx),
		FileName:  rec.FileName,
		Rule:      rec.Rule,
		Result:    rec.Message,
		CreatedAt: now,
	}
}

// =============================================================================
// Query building
// =============================================================================

// whereBuilder assembles a WHERE clause with numbered or positional
// placeholders. Empty values are skipped.
type whereBuilder struct {
	placeholder func(n int) string
	conditions  []string
	args        []any
	argIndex    int
}

func newWhereBuilder(placeholder func(n int) string) *whereBuilder {
	return &whereBuilder{placeholder: placeholder, argIndex: 1}
}

func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func questionPlaceholder(int) string { return "?" }

// Add appends "column = value" unless value is empty.
func (wb *whereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = %s", column, wb.placeholder(wb.argIndex)))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// Next returns the placeholder for an argument appended after the WHERE
// clause, such as a LIMIT.
func (wb *whereBuilder) Next(value any) string {
	p := wb.placeholder(wb.argIndex)
	wb.args = append(wb.args, value)
	wb.argIndex++
	return p
}

// Build returns the clause (with a leading space) and its arguments.
func (wb *whereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", wb.args
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// listQuery renders the shared SELECT for List in the given dialect.
func listQuery(f Filter, placeholder func(int) string) (string, []any) {
	wb := newWhereBuilder(placeholder)
	wb.Add("file_name", f.FileName)
	wb.Add("validation_rule", f.Rule)
	wb.Add("run_id", f.RunID)

	where, _ := wb.Build()
	limit := wb.Next(f.limit())
	_, args := wb.Build()

	query := "SELECT id, run_id, file_name, validation_rule, result, created_at FROM validation_results" +
		where + " ORDER BY seq DESC LIMIT " + limit
	return query, args
}
