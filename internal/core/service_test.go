package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (o *recordingObserver) ObserveRun(out Outcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, out)
}

func newTestService(rec Recorder, obs RunObserver) *Service {
	return NewService(NewPipeline(rec), ServiceConfig{
		MaxConcurrent: 1,
		MaxWait:       20 * time.Millisecond,
		Observer:      obs,
	})
}

func TestService_Validate(t *testing.T) {
	rec := &memRecorder{}
	obs := &recordingObserver{}
	svc := newTestService(rec, obs)

	out, err := svc.Validate(context.Background(), Submission{
		DeclaredType: "CSV",
		FileName:     "report.csv",
		Content:      strings.NewReader(validCSV),
		Size:         -1,
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if out.Status != StatusAccepted {
		t.Errorf("Status = %q, want accepted", out.Status)
	}
	if out.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0].RunID != out.RunID {
		t.Errorf("observer saw %+v, want one outcome for run %s", obs.outcomes, out.RunID)
	}
}

func TestService_UnknownTypeEchoesCallerSpelling(t *testing.T) {
	svc := newTestService(&memRecorder{}, nil)

	out, err := svc.Validate(context.Background(), Submission{
		DeclaredType: "XLSX",
		FileName:     "report.xlsx",
		Content:      strings.NewReader(validCSV),
		Size:         -1,
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if out.Status != StatusRejected {
		t.Fatalf("Status = %q, want rejected", out.Status)
	}
	if got := out.Verdicts[0].Message; got != "File type mismatch. Expected XLSX file." {
		t.Errorf("Message = %q", got)
	}
}

func TestService_RunIDReachesRecorder(t *testing.T) {
	var ids []string
	rec := RecorderFunc(func(ctx context.Context, _ Record) error {
		ids = append(ids, RunIDFromContext(ctx))
		return nil
	})
	svc := newTestService(rec, nil)

	out, err := svc.Validate(context.Background(), Submission{
		DeclaredType: "csv",
		FileName:     "report.csv",
		Content:      strings.NewReader(validCSV),
		Size:         -1,
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	for i, id := range ids {
		if id != out.RunID {
			t.Errorf("record %d run ID = %q, want %q", i, id, out.RunID)
		}
	}
}

func TestService_NoContent(t *testing.T) {
	obs := &recordingObserver{}
	svc := newTestService(&memRecorder{}, obs)

	out, err := svc.Validate(context.Background(), Submission{DeclaredType: "csv", FileName: "report.csv"})
	if !errors.Is(err, ErrNoFile) {
		t.Fatalf("Validate() error = %v, want ErrNoFile", err)
	}
	if out.Status != StatusError || out.RunID == "" {
		t.Errorf("Outcome = %+v, want error status with run ID", out)
	}
	if len(obs.outcomes) != 1 {
		t.Errorf("observer called %d times, want 1", len(obs.outcomes))
	}
}

func TestService_BusyLimiter(t *testing.T) {
	svc := newTestService(&memRecorder{}, nil)

	if err := svc.limiter.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer svc.limiter.Release()

	_, err := svc.Validate(context.Background(), Submission{
		DeclaredType: "csv",
		FileName:     "report.csv",
		Content:      strings.NewReader(validCSV),
		Size:         -1,
	})
	if !errors.Is(err, ErrTooManyUploads) {
		t.Errorf("Validate() error = %v, want ErrTooManyUploads", err)
	}
	if code := MapError(err).Code; code != "UPL002" {
		t.Errorf("MapError code = %q, want UPL002", code)
	}
}

func TestService_ReleasesSlot(t *testing.T) {
	svc := newTestService(&memRecorder{}, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Validate(context.Background(), Submission{
			DeclaredType: "csv",
			FileName:     "report.csv",
			Content:      strings.NewReader(validCSV),
			Size:         -1,
		})
		if err != nil {
			t.Fatalf("run %d: Validate() error = %v", i, err)
		}
	}

	if got := svc.LimiterStatus().Active; got != 0 {
		t.Errorf("Active = %d after runs, want 0", got)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.Drain(ctx); err != nil {
		t.Errorf("Drain() error = %v", err)
	}
}
