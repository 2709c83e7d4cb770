package core

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/filecheck/internal/schema"
)

// UploadedFile is the subject of one validation run. It is owned by that run
// and not modified while the run is in progress.
type UploadedFile struct {
	Declared schema.DeclaredType
	Name     string
	Size     int64
	Content  io.ReadSeeker
}

// NewUploadedFile builds an UploadedFile. A negative size means the caller
// does not know it, in which case the content is measured by seeking.
func NewUploadedFile(declared schema.DeclaredType, name string, content io.ReadSeeker, size int64) (UploadedFile, error) {
	if content == nil {
		return UploadedFile{}, ErrNoFile
	}
	if size < 0 {
		n, err := measure(content)
		if err != nil {
			return UploadedFile{}, fmt.Errorf("measure %q: %w", name, err)
		}
		size = n
	}
	return UploadedFile{Declared: declared, Name: name, Size: size, Content: content}, nil
}

func measure(rs io.ReadSeeker) (int64, error) {
	n, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return n, nil
}

// ParsedTable is the tokenized content of a report. Every row has exactly
// len(Columns) cells; cells missing in the source are "".
type ParsedTable struct {
	Columns []string
	Rows    [][]string
}

// Verdict is the result of one rule.
type Verdict struct {
	Rule    string `json:"rule" yaml:"rule"`
	Passed  bool   `json:"passed" yaml:"passed"`
	Message string `json:"message" yaml:"message"`
}

// Status is the overall result of a run.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusError    Status = "error"
)

// Outcome is what a run returns to its caller.
type Outcome struct {
	RunID    string
	Status   Status
	Verdicts []Verdict
	Err      error
}

// Accepted reports whether at least one verdict was produced and all passed.
func (o Outcome) Accepted() bool {
	if len(o.Verdicts) == 0 {
		return false
	}
	for _, v := range o.Verdicts {
		if !v.Passed {
			return false
		}
	}
	return true
}

// Failures returns the failing verdicts in the order they were produced.
func (o Outcome) Failures() []Verdict {
	var out []Verdict
	for _, v := range o.Verdicts {
		if !v.Passed {
			out = append(out, v)
		}
	}
	return out
}

// Record is the triple persisted for every verdict.
type Record struct {
	FileName string
	Rule     string
	Message  string
}

// Recorder persists verdicts. Implementations are append-only.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, rec Record) error

func (f RecorderFunc) Record(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}
