package ratelimit

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInspect(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		reset         string
		body          string
		wantThrottled bool
		wantReset     time.Duration
	}{
		{
			name:          "429 with reset header",
			status:        http.StatusTooManyRequests,
			reset:         "2",
			wantThrottled: true,
			wantReset:     2 * time.Second,
		},
		{
			name:          "429 without reset header",
			status:        http.StatusTooManyRequests,
			wantThrottled: true,
			wantReset:     0,
		},
		{
			name:          "429 with unparsable reset",
			status:        http.StatusTooManyRequests,
			reset:         "soon",
			wantThrottled: true,
			wantReset:     0,
		},
		{
			name:          "429 with negative reset",
			status:        http.StatusTooManyRequests,
			reset:         "-4",
			wantThrottled: true,
			wantReset:     0,
		},
		{
			name:          "200 with embedded marker",
			status:        http.StatusOK,
			reset:         "7",
			body:          `{"Message":"Too Many Requests"}`,
			wantThrottled: true,
			wantReset:     7 * time.Second,
		},
		{
			name:          "marker is case insensitive",
			status:        http.StatusOK,
			body:          `too MANY requests, slow down`,
			wantThrottled: true,
		},
		{
			name:          "200 with marker in exception message",
			status:        http.StatusOK,
			body:          `{"Message":"An error has occurred.","ExceptionMessage":"too many requests"}`,
			wantThrottled: true,
		},
		{
			name:          "503 text body with marker",
			status:        http.StatusServiceUnavailable,
			reset:         "3",
			body:          `Too Many Requests`,
			wantThrottled: true,
			wantReset:     3 * time.Second,
		},
		{
			name:          "200 page whose record mentions the marker",
			status:        http.StatusOK,
			reset:         "5",
			body:          `{"data":[{"orderId":1,"orderKey":"customer note: too many requests for refunds"}],"total":1,"page":1,"pages":1}`,
			wantThrottled: false,
		},
		{
			name:          "200 entity whose field mentions the marker",
			status:        http.StatusOK,
			body:          `{"orderId":1,"internalNotes":"Too Many Requests from this buyer"}`,
			wantThrottled: false,
		},
		{
			name:          "200 array whose item mentions the marker",
			status:        http.StatusOK,
			body:          `[{"storeId":3,"storeName":"Too Many Requests Outlet"}]`,
			wantThrottled: false,
		},
		{
			name:          "plain 200",
			status:        http.StatusOK,
			reset:         "30",
			body:          `{"data":[]}`,
			wantThrottled: false,
		},
		{
			name:          "500 is not throttling",
			status:        http.StatusInternalServerError,
			body:          `{"Message":"An error has occurred."}`,
			wantThrottled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.reset != "" {
				header.Set(HeaderRateLimitReset, tt.reset)
			}

			got := Inspect(tt.status, header, []byte(tt.body))

			assert.Equal(t, tt.wantThrottled, got.Throttled)
			assert.Equal(t, tt.wantReset, got.ResetIn)
		})
	}
}

func TestInspect_NotThrottledIgnoresReset(t *testing.T) {
	header := http.Header{}
	header.Set(HeaderRateLimitReset, "12")

	got := Inspect(http.StatusOK, header, nil)

	assert.Equal(t, ThrottleSignal{}, got)
}

func TestParseReset_NilHeader(t *testing.T) {
	assert.Equal(t, time.Duration(0), ParseReset(nil))
}
