package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Step represents a single step in the audit pipeline.
type Step interface {
	Execute(ctx context.Context, state *AuditState) error
}

// AuditState holds the shared state across all pipeline steps. Each
// step reads the fields filled by the ones before it; there is no
// ambient status anywhere else.
type AuditState struct {
	OrderDocs []Document
	NoteDocs  []Document

	Orders []*TransportOrder
	Notes  []*CreditNote

	// Failures collects per-document parse errors. A failed document is
	// dropped from the batch, never aborts it.
	Failures []*ParseError

	MatchedCount int
	Report       *Report
}

// Step 1: ParseOrdersStep parses every order document. Documents are
// independent, so they are parsed on a bounded worker fan-out; results
// keep load order regardless of which worker finishes first.
type ParseOrdersStep struct {
	Workers int
}

func (s *ParseOrdersStep) Execute(ctx context.Context, state *AuditState) error {
	results := make([]*TransportOrder, len(state.OrderDocs))
	errs := make([]*ParseError, len(state.OrderDocs))

	runParallel(ctx, len(state.OrderDocs), s.Workers, func(i int) {
		o, err := ParseTransportOrder(state.OrderDocs[i].ID, state.OrderDocs[i].Text)
		if err != nil {
			errs[i] = asParseError(state.OrderDocs[i].ID, err)
			return
		}
		results[i] = o
	})

	for i := range results {
		if errs[i] != nil {
			state.Failures = append(state.Failures, errs[i])
			continue
		}
		state.Orders = append(state.Orders, results[i])
	}
	return ctx.Err()
}

// Step 2: ParseNotesStep parses every credit note document, same
// fan-out as the orders.
type ParseNotesStep struct {
	Workers int
}

func (s *ParseNotesStep) Execute(ctx context.Context, state *AuditState) error {
	results := make([]*CreditNote, len(state.NoteDocs))
	errs := make([]*ParseError, len(state.NoteDocs))

	runParallel(ctx, len(state.NoteDocs), s.Workers, func(i int) {
		n, err := ParseCreditNote(state.NoteDocs[i].ID, state.NoteDocs[i].Text)
		if err != nil {
			errs[i] = asParseError(state.NoteDocs[i].ID, err)
			return
		}
		results[i] = n
	})

	for i := range results {
		if errs[i] != nil {
			state.Failures = append(state.Failures, errs[i])
			continue
		}
		state.Notes = append(state.Notes, results[i])
	}
	return ctx.Err()
}

// Step 3: MatchStep links orders to credit note line items. It runs
// only after both parse steps completed, so the index always covers the
// full note set.
type MatchStep struct{}

func (s *MatchStep) Execute(ctx context.Context, state *AuditState) error {
	state.MatchedCount = MatchOrders(state.Orders, state.Notes)
	return nil
}

// Step 4: BuildReportStep projects the matched batch into report rows.
type BuildReportStep struct {
	Builder *ReportBuilder
}

func (s *BuildReportStep) Execute(ctx context.Context, state *AuditState) error {
	state.Report = s.Builder.Build(state.Orders, state.Notes)
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *AuditState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewAuditPipeline creates the standard 4-step pipeline for one
// reconciliation batch.
func NewAuditPipeline(builder *ReportBuilder, workers int) *Pipeline {
	if workers <= 0 {
		workers = 4
	}
	return NewPipeline(
		&ParseOrdersStep{Workers: workers},
		&ParseNotesStep{Workers: workers},
		&MatchStep{},
		&BuildReportStep{Builder: builder},
	)
}

// asParseError keeps the parser's own ParseError when it produced one.
func asParseError(docID string, err error) *ParseError {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}
	return &ParseError{Document: docID, Err: err}
}

// runParallel runs fn(0..n-1) across at most workers goroutines and
// waits for all of them.
func runParallel(ctx context.Context, n, workers int, fn func(i int)) {
	if workers <= 0 || workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				return
			}
			fn(i)
		}
		return
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		idx <- i
	}
	close(idx)
	wg.Wait()
}
