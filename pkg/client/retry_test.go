package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

// sleepRecorder simulates time: it records requested waits and returns at once.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

func (s *sleepRecorder) total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum time.Duration
	for _, d := range s.waits {
		sum += d
	}
	return sum
}

func (s *sleepRecorder) calls() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

func serverError() error {
	return &APIError{Method: http.MethodGet, Path: "/orders", StatusCode: http.StatusInternalServerError}
}

func TestRetryPolicies(t *testing.T) {
	tests := []struct {
		name        string
		policy      RetryPolicy
		wantBackoff []time.Duration
	}{
		{
			name:        "get",
			policy:      GetPolicy(),
			wantBackoff: []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second, 10 * time.Second},
		},
		{
			name:        "submit",
			policy:      SubmitPolicy(),
			wantBackoff: []time.Duration{2 * time.Second, 3 * time.Second, 4 * time.Second, 11 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.policy.MaxAttempts != 10 {
				t.Errorf("MaxAttempts = %d, want 10", tt.policy.MaxAttempts)
			}
			for i, attempt := range []int{0, 1, 2, 9} {
				if got := tt.policy.Backoff(attempt); got != tt.wantBackoff[i] {
					t.Errorf("Backoff(%d) = %v, want %v", attempt, got, tt.wantBackoff[i])
				}
			}
		})
	}
}

func TestRetryPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  RetryPolicy
		wantErr bool
	}{
		{name: "get", policy: GetPolicy()},
		{name: "single attempt", policy: RetryPolicy{Name: "once", MaxAttempts: 1}},
		{name: "zero attempts", policy: RetryPolicy{Name: "none"}, wantErr: true},
		{name: "negative delay", policy: RetryPolicy{Name: "neg", MaxAttempts: 2, BaseDelay: -time.Second}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithRetry_Success(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0

	got, err := WithRetry(context.Background(), GetPolicy(), rec.sleep, func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	if err != nil {
		t.Errorf("WithRetry() error = %v, want nil", err)
	}
	if got != "ok" {
		t.Errorf("WithRetry() = %q, want ok", got)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(rec.calls()) != 0 {
		t.Errorf("sleeps = %v, want none", rec.calls())
	}
}

func TestWithRetry_TransientThenSuccess(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0

	_, err := WithRetry(context.Background(), SubmitPolicy(), rec.sleep, func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, serverError()
		}
		return calls, nil
	})

	if err != nil {
		t.Fatalf("WithRetry() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{2 * time.Second, 3 * time.Second}
	got := rec.calls()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", got, want)
	}
}

func TestWithRetry_Exhausted(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0

	_, err := WithRetry(context.Background(), GetPolicy(), rec.sleep, func(ctx context.Context) (int, error) {
		calls++
		return 0, serverError()
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}
	if StatusCode(err) != http.StatusInternalServerError {
		t.Errorf("StatusCode(err) = %d, want 500 (last error must stay reachable)", StatusCode(err))
	}
	if calls != 10 {
		t.Errorf("calls = %d, want 10", calls)
	}
	// 9 sleeps: 1s + 2s + ... + 9s
	if rec.total() != 45*time.Second {
		t.Errorf("total sleep = %v, want 45s", rec.total())
	}
}

func TestWithRetry_NonRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "unauthorized", err: &APIError{StatusCode: http.StatusUnauthorized}},
		{name: "bad request", err: &APIError{StatusCode: http.StatusBadRequest}},
		{name: "timeout", err: &TimeoutError{Timeout: time.Second, Err: context.DeadlineExceeded}},
		{name: "canceled", err: canceledError(context.Canceled)},
		{name: "unknown", err: errors.New("decode failure")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &sleepRecorder{}
			calls := 0

			_, err := WithRetry(context.Background(), GetPolicy(), rec.sleep, func(ctx context.Context) (int, error) {
				calls++
				return 0, tt.err
			})

			if !errors.Is(err, tt.err) {
				t.Errorf("error = %v, want %v", err, tt.err)
			}
			if errors.Is(err, ErrRetryExhausted) {
				t.Error("non-retryable error must not be reported as exhausted")
			}
			if calls != 1 {
				t.Errorf("calls = %d, want 1", calls)
			}
		})
	}
}

func TestWithRetry_NetworkErrorRetried(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0

	_, err := WithRetry(context.Background(), GetPolicy(), rec.sleep, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, &NetworkError{Method: http.MethodGet, Path: "/orders", Err: errors.New("connection reset")}
		}
		return 1, nil
	})

	if err != nil {
		t.Errorf("error = %v, want nil", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestWithRetry_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	sleeps := 0
	sleep := func(ctx context.Context, d time.Duration) error {
		sleeps++
		if sleeps == 2 {
			cancel()
		}
		return ctx.Err()
	}

	_, err := WithRetry(ctx, GetPolicy(), sleep, func(ctx context.Context) (int, error) {
		calls++
		return 0, serverError()
	})

	if !errors.Is(err, ErrCanceled) {
		t.Errorf("error = %v, want ErrCanceled", err)
	}
	if !IsCanceled(err) {
		t.Error("IsCanceled() = false, want true")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (no attempt after cancellation)", calls)
	}
}

func TestWithRetry_RealSleepAbortsPromptly(t *testing.T) {
	policy := RetryPolicy{Name: "test", MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, Step: 0}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := WithRetry(ctx, policy, nil, func(ctx context.Context) (int, error) {
		return 0, serverError()
	})
	elapsed := time.Since(start)

	if !IsCanceled(err) {
		t.Errorf("error = %v, want cancellation", err)
	}
	if elapsed >= policy.BaseDelay {
		t.Errorf("elapsed = %v, want less than one backoff interval (%v)", elapsed, policy.BaseDelay)
	}
}

func TestWithRetry_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := WithRetry(ctx, GetPolicy(), nil, func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})

	if !errors.Is(err, ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want ErrCanceled wrapping context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() error = %v, want nil", err)
	}
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("sleepContext(0) error = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext() error = %v, want context.Canceled", err)
	}
}
