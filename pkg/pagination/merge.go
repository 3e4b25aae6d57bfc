package pagination

// Merge unions runs by identity. The first occurrence of a key wins, scanning
// runs in argument order and records in page order. Read errors are
// concatenated in run order.
func Merge[T any, K comparable](key func(T) K, runs ...RunResult[T]) AggregatedResponse[T] {
	total := 0
	for _, run := range runs {
		total += len(run.Records)
	}

	seen := make(map[K]struct{}, total)
	agg := AggregatedResponse[T]{
		Data: make([]T, 0, total),
		Runs: make([]RunSummary, 0, len(runs)),
	}

	for _, run := range runs {
		for _, rec := range run.Records {
			k := key(rec)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			agg.Data = append(agg.Data, rec)
		}

		agg.TotalPagesExpected += run.TotalPagesExpected
		agg.TotalEntitiesExpected += run.TotalEntitiesExpected
		agg.TotalPagesReceived += run.PagesReceived
		agg.ReadErrors = append(agg.ReadErrors, run.ReadErrors...)
		agg.Runs = append(agg.Runs, run.Summary())
	}

	return agg
}
