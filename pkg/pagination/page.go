package pagination

import (
	"errors"
	"fmt"
)

// ErrInvalidPageRequest is returned for non-positive page or page size values.
var ErrInvalidPageRequest = errors.New("invalid page request")

// PageRequest addresses one page of a paginated query.
type PageRequest struct {
	Page     int
	PageSize int
}

// NewPageRequest validates and creates a PageRequest. Both values must be >= 1.
func NewPageRequest(page, pageSize int) (PageRequest, error) {
	if page < 1 {
		return PageRequest{}, fmt.Errorf("%w: page must be >= 1 (got %d)", ErrInvalidPageRequest, page)
	}
	if pageSize < 1 {
		return PageRequest{}, fmt.Errorf("%w: page size must be >= 1 (got %d)", ErrInvalidPageRequest, pageSize)
	}
	return PageRequest{Page: page, PageSize: pageSize}, nil
}

// PageResult is a single decoded page.
type PageResult[T any] struct {
	Records []T

	// TotalRecords and TotalPages are only trusted from the first page of a run.
	TotalRecords int
	TotalPages   int
}

// ReadError describes a page that failed with a skippable error and was skipped.
type ReadError struct {
	SourceQuery string
	Page        int
	PageSize    int
	Err         error
}

// Error implements the error interface.
func (e ReadError) Error() string {
	return fmt.Sprintf("read %s page %d (size %d): %v", e.SourceQuery, e.Page, e.PageSize, e.Err)
}

// Unwrap returns the underlying page error.
func (e ReadError) Unwrap() error {
	return e.Err
}

// RunResult is the outcome of one paginated run.
type RunResult[T any] struct {
	Query                 string
	Records               []T
	TotalPagesExpected    int
	TotalEntitiesExpected int
	PagesReceived         int
	ReadErrors            []ReadError
}

// Summary drops the records.
func (r RunResult[T]) Summary() RunSummary {
	return RunSummary{
		Query:                 r.Query,
		TotalPagesExpected:    r.TotalPagesExpected,
		TotalEntitiesExpected: r.TotalEntitiesExpected,
		PagesReceived:         r.PagesReceived,
		ReadErrors:            len(r.ReadErrors),
	}
}

// RunSummary reports the bookkeeping of a run without its records.
type RunSummary struct {
	Query                 string
	TotalPagesExpected    int
	TotalEntitiesExpected int
	PagesReceived         int
	ReadErrors            int
}

// AggregatedResponse is the merged, deduplicated result of one or more runs.
// It is not modified after being returned.
type AggregatedResponse[T any] struct {
	// Data holds unique records in first-seen order.
	Data []T

	TotalPagesExpected    int
	TotalEntitiesExpected int
	TotalPagesReceived    int

	// ReadErrors are the skipped pages of all runs, in run order.
	ReadErrors []ReadError

	// Runs holds per-run bookkeeping in run order.
	Runs []RunSummary
}

// Partial reports whether any page was skipped.
func (a AggregatedResponse[T]) Partial() bool {
	return len(a.ReadErrors) > 0
}
