package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/JonMunkholm/filecheck/internal/schema"
)

// =============================================================================
// Test Fakes
// =============================================================================

// memRecorder keeps records in order. If failOn is n > 0, the nth call fails.
type memRecorder struct {
	mu      sync.Mutex
	records []Record
	calls   int
	failOn  int
	err     error
}

func (m *memRecorder) Record(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.failOn > 0 && m.calls == m.failOn {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memRecorder) rules() []string {
	out := make([]string, len(m.records))
	for i, r := range m.records {
		out[i] = r.Rule
	}
	return out
}

const validCSV = reportHeader + "\n" +
	"Acme,1 Main St,Widget,Hardware,9.99\n" +
	"Globex,2 Side St,Gadget,Software,19.99\n"

func uploaded(t *testing.T, declared schema.DeclaredType, name, content string) UploadedFile {
	t.Helper()
	f, err := NewUploadedFile(declared, name, strings.NewReader(content), -1)
	if err != nil {
		t.Fatalf("NewUploadedFile() error = %v", err)
	}
	return f
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// Scenarios
// =============================================================================

func TestPipeline_AcceptedRecordsTenEntries(t *testing.T) {
	rec := &memRecorder{}
	p := NewPipeline(rec)

	out, err := p.Run(context.Background(), uploaded(t, schema.TypeCSV, "report.csv", validCSV))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Status != StatusAccepted || !out.Accepted() {
		t.Fatalf("Status = %q, want accepted", out.Status)
	}

	wantVerdicts := []string{RuleFileName, RuleFileSize, RuleHeaders, RuleNullValues, RuleEmptyRows}
	gotVerdicts := make([]string, len(out.Verdicts))
	for i, v := range out.Verdicts {
		gotVerdicts[i] = v.Rule
	}
	if !equalStrings(gotVerdicts, wantVerdicts) {
		t.Errorf("verdict rules = %v, want %v", gotVerdicts, wantVerdicts)
	}

	if len(rec.records) != 10 {
		t.Fatalf("recorded %d entries, want 10: %v", len(rec.records), rec.rules())
	}
	for i := 0; i < 5; i++ {
		if rec.records[i].Rule != wantVerdicts[i] {
			t.Errorf("records[%d].Rule = %q, want %q", i, rec.records[i].Rule, wantVerdicts[i])
		}
		summary := rec.records[i+5]
		if summary.Rule != RuleSummary {
			t.Errorf("records[%d].Rule = %q, want %q", i+5, summary.Rule, RuleSummary)
		}
		if summary.Message != rec.records[i].Message {
			t.Errorf("summary %d message = %q, want %q", i, summary.Message, rec.records[i].Message)
		}
	}
	for _, r := range rec.records {
		if r.FileName != "report.csv" {
			t.Errorf("FileName = %q, want report.csv", r.FileName)
		}
	}
}

func TestPipeline_BadNameRecordsEveryRule(t *testing.T) {
	rec := &memRecorder{}
	p := NewPipeline(rec)

	out, err := p.Run(context.Background(), uploaded(t, schema.TypeCSV, "report_2024.csv", validCSV))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Status != StatusRejected {
		t.Fatalf("Status = %q, want rejected", out.Status)
	}

	failures := out.Failures()
	if len(failures) != 1 || failures[0].Message != "File name is invalid." {
		t.Errorf("Failures() = %+v, want only the file name failure", failures)
	}

	want := []string{RuleFileName, RuleFileSize, RuleHeaders, RuleNullValues, RuleEmptyRows}
	if !equalStrings(rec.rules(), want) {
		t.Errorf("recorded rules = %v, want %v", rec.rules(), want)
	}
}

func TestPipeline_SpaceDelimitedText(t *testing.T) {
	content := "CUSTOMER ADDRESS PRODUCT PRODUCT_TYPE PRICE\n" +
		"Acme Main Widget Hardware 9.99\n"

	rec := &memRecorder{}
	out, err := NewPipeline(rec).Run(context.Background(), uploaded(t, schema.TypeTXT, "data.txt", content))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Status != StatusAccepted {
		t.Errorf("Status = %q, want accepted; verdicts %+v", out.Status, out.Verdicts)
	}
	if len(rec.records) != 10 {
		t.Errorf("recorded %d entries, want 10", len(rec.records))
	}
}

func TestPipeline_TypeMismatchStopsImmediately(t *testing.T) {
	rec := &memRecorder{}
	parsed := false
	p := NewPipeline(rec, WithParser(func(c io.ReadSeeker, d schema.DeclaredType) (*ParsedTable, error) {
		parsed = true
		return Parse(c, d)
	}))

	out, err := p.Run(context.Background(), uploaded(t, schema.TypeCSV, "report.txt", validCSV))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Status != StatusRejected {
		t.Fatalf("Status = %q, want rejected", out.Status)
	}
	if len(out.Verdicts) != 1 || out.Verdicts[0].Message != "File type mismatch. Expected csv file." {
		t.Errorf("Verdicts = %+v, want the type mismatch only", out.Verdicts)
	}
	if len(rec.records) != 1 || rec.records[0].Rule != RuleFileType {
		t.Errorf("records = %+v, want one File Type record", rec.records)
	}
	if parsed {
		t.Error("parser ran after a terminal failure")
	}
}

func TestPipeline_ParseErrorKeepsEarlierVerdicts(t *testing.T) {
	content := "CUSTOMER;ADDRESS;PRODUCT;PRODUCT_TYPE;PRICE\nA;B;C;D;E\n"

	rec := &memRecorder{}
	out, err := NewPipeline(rec).Run(context.Background(), uploaded(t, schema.TypeTXT, "report.txt", content))

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Run() error = %v, want *ParseError", err)
	}
	if out.Status != StatusError || out.Err != err {
		t.Errorf("Outcome = %+v, want status error carrying the parse error", out)
	}
	want := []string{RuleFileName, RuleFileSize}
	if !equalStrings(rec.rules(), want) {
		t.Errorf("recorded rules = %v, want %v", rec.rules(), want)
	}
	if len(out.Verdicts) != 2 {
		t.Errorf("len(Verdicts) = %d, want 2", len(out.Verdicts))
	}
}

func TestPipeline_PermutedTXTHeaderIsParseError(t *testing.T) {
	content := "ADDRESS\tCUSTOMER\tPRODUCT\tPRODUCT_TYPE\tPRICE\nMain\tAcme\tWidget\tHardware\t9.99\n"

	rec := &memRecorder{}
	out, err := NewPipeline(rec).Run(context.Background(), uploaded(t, schema.TypeTXT, "report.txt", content))

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Run() error = %v, want *ParseError", err)
	}
	if out.Status != StatusError {
		t.Errorf("Status = %q, want %q", out.Status, StatusError)
	}
	if got, want := string(pe.Delimiters), string(schema.DelimiterCandidates()); got != want {
		t.Errorf("Delimiters = %q, want %q", got, want)
	}
	if want := "failed to parse the .txt file with common delimiters (tab, comma, space)"; pe.Error() != want {
		t.Errorf("Error() = %q, want %q", pe.Error(), want)
	}
	want := []string{RuleFileName, RuleFileSize}
	if !equalStrings(rec.rules(), want) {
		t.Errorf("recorded rules = %v, want %v", rec.rules(), want)
	}
}

func TestPipeline_TableRulesNeverShortCircuit(t *testing.T) {
	content := "customer,address,product,product_type,price\nAcme,,Widget,Hardware,9.99\n\n"

	rec := &memRecorder{}
	out, err := NewPipeline(rec).Run(context.Background(), uploaded(t, schema.TypeCSV, "report.csv", content))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Status != StatusRejected {
		t.Fatalf("Status = %q, want rejected", out.Status)
	}

	want := []string{"Headers are not matching.", "Uploaded file contains null values.", "Uploaded file contains empty rows."}
	failures := out.Failures()
	if len(failures) != len(want) {
		t.Fatalf("Failures() = %+v, want %d", failures, len(want))
	}
	for i, f := range failures {
		if f.Message != want[i] {
			t.Errorf("failures[%d] = %q, want %q", i, f.Message, want[i])
		}
	}
	if len(rec.records) != 5 {
		t.Errorf("recorded %d entries, want 5", len(rec.records))
	}
}

func TestPipeline_OversizedFileStillChecksContent(t *testing.T) {
	var b strings.Builder
	b.WriteString(reportHeader + "\n")
	for b.Len() <= int(schema.MaxFileSize) {
		b.WriteString("Acme,1 Main St,Widget,Hardware,9.99\n")
	}

	rec := &memRecorder{}
	out, err := NewPipeline(rec).Run(context.Background(), uploaded(t, schema.TypeCSV, "big.csv", b.String()))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	failures := out.Failures()
	if len(failures) != 1 || failures[0].Rule != RuleFileSize {
		t.Errorf("Failures() = %+v, want only File Size", failures)
	}
	if len(out.Verdicts) != 5 {
		t.Errorf("len(Verdicts) = %d, want 5", len(out.Verdicts))
	}
}

// =============================================================================
// Recorder contract
// =============================================================================

func TestPipeline_RecorderFailureAborts(t *testing.T) {
	storeErr := errors.New("connection refused")
	rec := &memRecorder{failOn: 2, err: storeErr}

	out, err := NewPipeline(rec).Run(context.Background(), uploaded(t, schema.TypeCSV, "report.csv", validCSV))

	var re *RecordError
	if !errors.As(err, &re) {
		t.Fatalf("Run() error = %v, want *RecordError", err)
	}
	if re.Rule != RuleFileSize {
		t.Errorf("RecordError.Rule = %q, want %q", re.Rule, RuleFileSize)
	}
	if !errors.Is(err, storeErr) {
		t.Error("RecordError should unwrap to the recorder's error")
	}
	if out.Status != StatusError {
		t.Errorf("Status = %q, want error", out.Status)
	}
	if rec.calls != 2 {
		t.Errorf("recorder called %d times, want 2", rec.calls)
	}
}

func TestPipeline_SummaryRecordFailure(t *testing.T) {
	rec := &memRecorder{failOn: 6, err: errors.New("disk full")}

	out, err := NewPipeline(rec).Run(context.Background(), uploaded(t, schema.TypeCSV, "report.csv", validCSV))

	var re *RecordError
	if !errors.As(err, &re) || re.Rule != RuleSummary {
		t.Fatalf("Run() error = %v, want *RecordError for %q", err, RuleSummary)
	}
	if out.Status != StatusError {
		t.Errorf("Status = %q, want error", out.Status)
	}
}

func TestPipeline_WithoutSummaryRecords(t *testing.T) {
	rec := &memRecorder{}
	p := NewPipeline(rec, WithSummaryRecords(false))

	out, err := p.Run(context.Background(), uploaded(t, schema.TypeCSV, "report.csv", validCSV))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Status != StatusAccepted {
		t.Errorf("Status = %q, want accepted", out.Status)
	}
	if len(rec.records) != 5 {
		t.Errorf("recorded %d entries, want 5", len(rec.records))
	}
}

func TestPipeline_RecorderSeesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")

	var seen int
	rec := RecorderFunc(func(ctx context.Context, _ Record) error {
		if ctx.Value(key{}) == "marker" {
			seen++
		}
		return nil
	})

	if _, err := NewPipeline(rec).Run(ctx, uploaded(t, schema.TypeCSV, "report.csv", validCSV)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if seen != 10 {
		t.Errorf("recorder saw the caller's context %d times, want 10", seen)
	}
}

func TestPipeline_EmptyRuleSetRejects(t *testing.T) {
	out, err := NewPipeline(&memRecorder{}, WithRules(nil)).Run(context.Background(), uploaded(t, schema.TypeCSV, "report.csv", validCSV))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Status != StatusRejected || out.Accepted() {
		t.Errorf("Status = %q, want rejected", out.Status)
	}
}

func TestPipeline_ConcurrentRuns(t *testing.T) {
	rec := &memRecorder{}
	p := NewPipeline(rec)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := NewUploadedFile(schema.TypeCSV, "report.csv", strings.NewReader(validCSV), -1)
			if err != nil {
				t.Error(err)
				return
			}
			if out, err := p.Run(context.Background(), f); err != nil || out.Status != StatusAccepted {
				t.Errorf("Run() = %q, %v", out.Status, err)
			}
		}()
	}
	wg.Wait()

	if len(rec.records) != 80 {
		t.Errorf("recorded %d entries, want 80", len(rec.records))
	}
}

// =============================================================================
// Outcome helpers
// =============================================================================

func TestOutcomeAccepted(t *testing.T) {
	tests := []struct {
		name     string
		verdicts []Verdict
		want     bool
	}{
		{"no verdicts", nil, false},
		{"all pass", []Verdict{{Passed: true}, {Passed: true}}, true},
		{"one failure", []Verdict{{Passed: true}, {Passed: false}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Outcome{Verdicts: tt.verdicts}).Accepted(); got != tt.want {
				t.Errorf("Accepted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUploadedFile(t *testing.T) {
	f, err := NewUploadedFile(schema.TypeCSV, "report.csv", strings.NewReader("12345"), -1)
	if err != nil {
		t.Fatalf("NewUploadedFile() error = %v", err)
	}
	if f.Size != 5 {
		t.Errorf("Size = %d, want 5", f.Size)
	}

	f, err = NewUploadedFile(schema.TypeCSV, "report.csv", strings.NewReader("12345"), 99)
	if err != nil {
		t.Fatalf("NewUploadedFile() error = %v", err)
	}
	if f.Size != 99 {
		t.Errorf("known Size = %d, want 99", f.Size)
	}

	if _, err := NewUploadedFile(schema.TypeCSV, "report.csv", nil, -1); !errors.Is(err, ErrNoFile) {
		t.Errorf("nil content error = %v, want ErrNoFile", err)
	}
}
