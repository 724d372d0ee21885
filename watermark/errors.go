package watermark

import (
	"fmt"
	"sort"
	"time"
)

// ParseError indicates the document or one of its structures could not be
// read. It is fatal for the whole operation.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse: %s: %v", e.Op, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// IOError indicates reading the input or writing the output failed. It is
// fatal for the whole operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// PageError records a single page failing during removal. Other pages are
// unaffected by it.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string { return fmt.Sprintf("page %d: %v", e.Page, e.Err) }
func (e *PageError) Unwrap() error { return e.Err }

// RemovalError aggregates per-page failures after all pages have been
// drained. Pages lists the failed zero-based page indexes in ascending order.
type RemovalError struct {
	Pages  []int
	Errors []*PageError
}

func newRemovalError(pageErrs []*PageError) *RemovalError {
	sort.Slice(pageErrs, func(i, j int) bool { return pageErrs[i].Page < pageErrs[j].Page })
	pages := make([]int, len(pageErrs))
	for i, pe := range pageErrs {
		pages[i] = pe.Page
	}
	return &RemovalError{Pages: pages, Errors: pageErrs}
}

func (e *RemovalError) Error() string {
	return fmt.Sprintf("removal failed on %d page(s) %v: %v", len(e.Pages), e.Pages, e.Errors[0])
}

// Unwrap exposes the individual page errors to errors.Is and errors.As.
func (e *RemovalError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, pe := range e.Errors {
		errs[i] = pe
	}
	return errs
}

// TimeoutError indicates the operation exceeded its time budget. It is
// distinct from page failures and from explicit cancellation.
type TimeoutError struct {
	Budget time.Duration
	Err    error
}

func (e *TimeoutError) Error() string {
	if e.Budget > 0 {
		return fmt.Sprintf("removal timed out after %s", e.Budget)
	}
	return "removal timed out"
}

func (e *TimeoutError) Unwrap() error { return e.Err }
