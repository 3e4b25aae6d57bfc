package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type tagged struct {
	ID     int
	Source string
}

func taggedKey(r tagged) int { return r.ID }

func taggedRun(query string, pages int, ids ...int) RunResult[tagged] {
	recs := make([]tagged, len(ids))
	for i, id := range ids {
		recs[i] = tagged{ID: id, Source: query}
	}
	return RunResult[tagged]{
		Query:                 query,
		Records:               recs,
		TotalPagesExpected:    pages,
		TotalEntitiesExpected: len(ids),
		PagesReceived:         pages,
	}
}

func TestMerge_FirstSeenWins(t *testing.T) {
	created := taggedRun("created", 1, 1, 2, 3)
	modified := taggedRun("modified", 1, 3, 4, 1)

	agg := Merge(taggedKey, created, modified)

	assert.Equal(t, []tagged{
		{ID: 1, Source: "created"},
		{ID: 2, Source: "created"},
		{ID: 3, Source: "created"},
		{ID: 4, Source: "modified"},
	}, agg.Data)
}

func TestMerge_DuplicatesWithinRun(t *testing.T) {
	agg := Merge(taggedKey, taggedRun("created", 2, 7, 7, 8))

	assert.Len(t, agg.Data, 2)
}

func TestMerge_Totals(t *testing.T) {
	created := taggedRun("created", 2, 1, 2)
	modified := taggedRun("modified", 1, 2)
	modified.ReadErrors = []ReadError{{SourceQuery: "modified", Page: 2, PageSize: 1}}
	created.ReadErrors = []ReadError{{SourceQuery: "created", Page: 3, PageSize: 1}}

	agg := Merge(taggedKey, created, modified)

	assert.Equal(t, 3, agg.TotalPagesExpected)
	assert.Equal(t, 3, agg.TotalEntitiesExpected)
	assert.Equal(t, 3, agg.TotalPagesReceived)
	assert.Equal(t, []string{"created", "modified"}, []string{agg.ReadErrors[0].SourceQuery, agg.ReadErrors[1].SourceQuery})
	assert.Equal(t, []RunSummary{
		{Query: "created", TotalPagesExpected: 2, TotalEntitiesExpected: 2, PagesReceived: 2, ReadErrors: 1},
		{Query: "modified", TotalPagesExpected: 1, TotalEntitiesExpected: 1, PagesReceived: 1, ReadErrors: 1},
	}, agg.Runs)
}

func TestMerge_Idempotent(t *testing.T) {
	created := taggedRun("created", 1, 5, 6, 7)
	modified := taggedRun("modified", 1, 7, 8)

	first := Merge(taggedKey, created, modified)
	second := Merge(taggedKey, created, modified)

	assert.Equal(t, first.Data, second.Data)
}

func TestMerge_NoRuns(t *testing.T) {
	agg := Merge(taggedKey)

	assert.Empty(t, agg.Data)
	assert.Empty(t, agg.ReadErrors)
	assert.False(t, agg.Partial())
}
