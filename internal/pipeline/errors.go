package pipeline

import (
	"errors"
	"fmt"
)

// Expected data-quality failures. Anything else coming out of a parser
// is a programming error and propagates unwrapped.
var (
	// ErrEmptyText means the document yielded no text at all.
	ErrEmptyText = errors.New("document contains no text")

	// ErrMissingOrderNumber means an order document carried no TRN order
	// number, so the record cannot participate in matching.
	ErrMissingOrderNumber = errors.New("no order number found")

	// ErrMissingNoteNumber means a credit note carried no Nr. header.
	ErrMissingNoteNumber = errors.New("no credit note number found")
)

// ParseError records one document that was excluded from the batch. The
// batch itself continues; callers collect these for the job summary.
type ParseError struct {
	Document string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Document, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
