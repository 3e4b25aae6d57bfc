package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for paginated runs.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbridge_pages_fetched_total",
		Help: "Total pages fetched successfully by query",
	}, []string{"query"})

	readErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbridge_read_errors_total",
		Help: "Total pages skipped after a skippable error by query",
	}, []string{"query"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orderbridge_run_duration_seconds",
		Help:    "Duration of a full paginated run by query",
		Buckets: []float64{0.5, 1, 5, 15, 60, 300},
	}, []string{"query"})
)

// PageFunc fetches one page. Throttling and transient retries are expected to be
// handled inside it; any error it returns is final for that page.
type PageFunc[T any] func(ctx context.Context, req PageRequest) (PageResult[T], error)

// Paginator drives sequential page fetches for one logical query.
type Paginator[T any] struct {
	// Query names the run in read errors, logs and metrics.
	Query string

	// PageSize is the number of records requested per page.
	PageSize int

	// Fetch retrieves a single page.
	Fetch PageFunc[T]

	// Skippable reports whether a page error may be recorded and skipped.
	// Nil treats every error as fatal.
	Skippable func(error) bool

	Logger zerolog.Logger
}

// Run fetches pages 1..n in strictly increasing order, one at a time.
//
// The expected page count is captured from the first successful page and never
// refreshed. The run ends when the page index passes that count or a page comes
// back empty. If the first page is skipped there is no bound to advance against,
// so the run ends after recording the read error.
func (p *Paginator[T]) Run(ctx context.Context) (RunResult[T], error) {
	if p.Fetch == nil {
		return RunResult[T]{}, errors.New("paginator fetch function is required")
	}
	if _, err := NewPageRequest(1, p.PageSize); err != nil {
		return RunResult[T]{}, err
	}

	start := time.Now()
	defer func() {
		runDuration.WithLabelValues(p.Query).Observe(time.Since(start).Seconds())
	}()

	result := RunResult[T]{Query: p.Query}
	pagesExpected := -1

	for page := 1; pagesExpected < 0 || page <= pagesExpected; {
		if err := ctx.Err(); err != nil {
			return RunResult[T]{}, fmt.Errorf("%s: page %d: %w", p.Query, page, err)
		}

		req, err := NewPageRequest(page, p.PageSize)
		if err != nil {
			return RunResult[T]{}, err
		}

		p.Logger.Debug().
			Str("query", p.Query).
			Int("page", req.Page).
			Int("page_size", req.PageSize).
			Int("pages_expected", pagesExpected).
			Msg("Fetching page")

		pr, err := p.Fetch(ctx, req)
		if err != nil {
			if p.Skippable == nil || !p.Skippable(err) {
				p.Logger.Error().
					Err(err).
					Str("query", p.Query).
					Int("page", req.Page).
					Msg("Page fetch failed - aborting run")
				return RunResult[T]{}, fmt.Errorf("%s: page %d: %w", p.Query, req.Page, err)
			}

			result.ReadErrors = append(result.ReadErrors, ReadError{
				SourceQuery: p.Query,
				Page:        req.Page,
				PageSize:    req.PageSize,
				Err:         err,
			})
			readErrorsTotal.WithLabelValues(p.Query).Inc()

			p.Logger.Warn().
				Err(err).
				Str("query", p.Query).
				Int("page", req.Page).
				Msg("Skipping page after recoverable error")

			if pagesExpected < 0 {
				break
			}
			page++
			continue
		}

		result.PagesReceived++
		pagesFetchedTotal.WithLabelValues(p.Query).Inc()

		if pagesExpected < 0 {
			pagesExpected = max(pr.TotalPages, 0)
			result.TotalPagesExpected = pagesExpected
			result.TotalEntitiesExpected = pr.TotalRecords
		}

		if len(pr.Records) == 0 {
			p.Logger.Debug().
				Str("query", p.Query).
				Int("page", req.Page).
				Msg("Empty page - ending run")
			break
		}

		result.Records = append(result.Records, pr.Records...)
		page++
	}

	p.Logger.Info().
		Str("query", p.Query).
		Int("records", len(result.Records)).
		Int("pages_received", result.PagesReceived).
		Int("pages_expected", result.TotalPagesExpected).
		Int("read_errors", len(result.ReadErrors)).
		Dur("duration", time.Since(start)).
		Msg("Run complete")

	return result, nil
}
