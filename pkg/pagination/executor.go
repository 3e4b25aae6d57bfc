package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency bounds in-flight transforms when no limit is given.
const DefaultMaxConcurrency = 5

// MapConcurrently applies fn to every item with at most maxConcurrency calls in
// flight. Results keep the index of their input. The first failure cancels the
// remaining calls and is returned without any partial results.
func MapConcurrently[T, R any](ctx context.Context, items []T, maxConcurrency int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if fn == nil {
		return nil, errors.New("transform function is required")
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	if len(items) == 0 {
		return []R{}, nil
	}

	start := time.Now()
	results := make([]R, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := fn(gctx, item)
			if err != nil {
				return fmt.Errorf("transform item %d: %w", i, err)
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Warn().
			Err(err).
			Int("items", len(items)).
			Int("max_concurrency", maxConcurrency).
			Msg("Concurrent transform aborted")
		return nil, err
	}

	log.Debug().
		Int("items", len(items)).
		Int("max_concurrency", maxConcurrency).
		Dur("duration", time.Since(start)).
		Msg("Concurrent transform complete")

	return results, nil
}
