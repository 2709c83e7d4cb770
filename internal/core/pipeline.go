package core

import (
	"context"
)

// Pipeline runs the rule set against one file at a time, recording every
// verdict before moving on. A Pipeline has no per-run state and may be shared
// by concurrent callers as long as its Recorder is safe for concurrent use.
type Pipeline struct {
	rules    []Rule
	recorder Recorder
	parse    ParseFunc
	summary  bool
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithRules replaces the default rule set.
func WithRules(rules []Rule) PipelineOption {
	return func(p *Pipeline) {
		p.rules = rules
	}
}

// WithParser replaces Parse.
func WithParser(parse ParseFunc) PipelineOption {
	return func(p *Pipeline) {
		p.parse = parse
	}
}

// WithSummaryRecords controls whether an accepted run records each verdict a
// second time under RuleSummary. Enabled by default.
func WithSummaryRecords(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.summary = enabled
	}
}

// NewPipeline creates a pipeline that writes verdicts to rec.
func NewPipeline(rec Recorder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		rules:    DefaultRules(),
		recorder: rec,
		parse:    Parse,
		summary:  true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run validates f.
//
// Rule failures are not errors: they produce a rejected Outcome and a nil
// error. A parse failure or a recorder failure ends the run with status
// error; the returned Outcome then holds the verdicts produced so far and
// the same error.
func (p *Pipeline) Run(ctx context.Context, f UploadedFile) (Outcome, error) {
	var (
		out   Outcome
		table *ParsedTable
	)

	fail := func(err error) (Outcome, error) {
		out.Status = StatusError
		out.Err = err
		return out, err
	}

	for _, rule := range p.rules {
		if rule.NeedsTable() && table == nil {
			t, err := p.parse(f.Content, f.Declared)
			if err != nil {
				return fail(err)
			}
			table = t
		}

		v := rule.evaluate(f, table)
		if v.Passed && rule.QuietPass {
			continue
		}

		if err := p.record(ctx, f.Name, v.Rule, v.Message); err != nil {
			return fail(err)
		}
		out.Verdicts = append(out.Verdicts, v)

		if !v.Passed && rule.Terminal {
			out.Status = StatusRejected
			return out, nil
		}
	}

	if !out.Accepted() {
		out.Status = StatusRejected
		return out, nil
	}

	if p.summary {
		for _, v := range out.Verdicts {
			if err := p.record(ctx, f.Name, RuleSummary, v.Message); err != nil {
				return fail(err)
			}
		}
	}

	out.Status = StatusAccepted
	return out, nil
}

func (p *Pipeline) record(ctx context.Context, fileName, rule, message string) error {
	if err := p.recorder.Record(ctx, Record{FileName: fileName, Rule: rule, Message: message}); err != nil {
		return &RecordError{Rule: rule, Err: err}
	}
	return nil
}
