// Package pagination turns page-at-a-time API calls into complete, deduplicated
// result sets.
//
// A Paginator walks the pages of one logical query sequentially. The expected
// page count is captured once from the first page; the run stops when it is
// exceeded or an empty page arrives, so a server that over-reports pages cannot
// keep it spinning. Pages that fail with a skippable error are recorded as
// ReadErrors and the run moves on; any other error aborts the run.
//
// Example usage:
//
//	p := &pagination.Paginator[Order]{
//		Query:     "orders:created",
//		PageSize:  100,
//		Fetch:     fetchOrdersPage,
//		Skippable: client.IsSkippable,
//	}
//	created, err := p.Run(ctx)
//	...
//	agg := pagination.Merge(func(o Order) int64 { return o.OrderID }, created, modified)
//
// MapConcurrently post-processes merged records with a fixed concurrency cap.
// Unlike page reads it has no partial-success mode: one failed transform fails
// the batch.
package pagination
