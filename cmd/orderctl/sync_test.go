package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/orderbridge/internal/testutil"
	"github.com/Sternrassler/orderbridge/pkg/client"
)

// stepClock returns successive instants one minute apart.
func stepClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Minute)
		return now
	}
}

func TestSyncer_CompleteRunAdvancesWindow(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/orders", testutil.NewPageResponse([]client.Order{sampleOrder(1)}, 1, 1, 1))

	c := newMockClient(t, mock.URL())
	s := newSyncer(c, time.Minute, zerolog.Nop())

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = stepClock(start)
	s.from = start.Add(-time.Minute)

	require.NoError(t, s.syncOnce(context.Background()))
	assert.Equal(t, start, s.from)

	require.NoError(t, s.syncOnce(context.Background()))
	assert.Equal(t, start.Add(time.Minute), s.from)

	// one created and one modified request per run
	assert.Len(t, mock.RequestsFor("/orders"), 4)
}

func TestSyncer_PartialRunKeepsWindow(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetHandler("/orders", func(w http.ResponseWriter, r *http.Request) {
		if testutil.QueryInt(r, "page", 1) == 2 {
			testutil.WriteJSON(w, http.StatusBadGateway, map[string]string{"message": "upstream"})
			return
		}
		testutil.WriteJSON(w, http.StatusOK, client.Envelope[client.Order]{
			Data: []client.Order{sampleOrder(1)}, Total: 2, Page: 1, Pages: 2,
		})
	})

	c := newMockClient(t, mock.URL())
	s := newSyncer(c, time.Minute, zerolog.Nop())
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = stepClock(start)
	s.from = start.Add(-time.Minute)

	require.NoError(t, s.syncOnce(context.Background()))
	assert.Equal(t, start.Add(-time.Minute), s.from)
}

func TestSyncer_FailedRunKeepsWindow(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/orders", testutil.NewUnauthorizedResponse())

	c := newMockClient(t, mock.URL())
	s := newSyncer(c, time.Minute, zerolog.Nop())
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = stepClock(start)
	s.from = start.Add(-time.Minute)

	err := s.syncOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, client.StatusCode(err))
	assert.Equal(t, start.Add(-time.Minute), s.from)
}

func TestSyncer_RunFeedsHealth(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/orders", testutil.NewPageResponse([]client.Order{}, 0, 1, 0))

	c := newMockClient(t, mock.URL())
	s := newSyncer(c, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.run(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(mock.RequestsFor("/orders")) >= 2
	}, 5*time.Second, 10*time.Millisecond, "first sync runs immediately")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("syncer did not stop after cancellation")
	}

	w := httptest.NewRecorder()
	healthHandler(c)(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var status healthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.NotNil(t, status.LastNetworkActivity, "sync traffic is reported by /health")
}
