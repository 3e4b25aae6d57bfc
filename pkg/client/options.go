package client

import (
	"context"
	"time"

	"github.com/Sternrassler/orderbridge/pkg/pagination"
)

// CallOption customizes a single client call.
type CallOption func(*callOptions)

type callOptions struct {
	timeout        time.Duration
	pageSize       int
	maxConcurrency int
	postProcess    func(context.Context, Order) (Order, error)
	onReadErrors   func([]pagination.ReadError)
}

// WithTimeout overrides the per-request timeout. It bounds each HTTP attempt,
// not the whole call.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.timeout = d
	}
}

// WithPageSize overrides the configured page size for list calls.
func WithPageSize(n int) CallOption {
	return func(o *callOptions) {
		o.pageSize = n
	}
}

// WithMaxConcurrency bounds post-processing and bulk submission.
func WithMaxConcurrency(n int) CallOption {
	return func(o *callOptions) {
		o.maxConcurrency = n
	}
}

// WithPostProcess transforms every listed order through the bounded executor.
// A failure aborts the call.
func WithPostProcess(fn func(context.Context, Order) (Order, error)) CallOption {
	return func(o *callOptions) {
		o.postProcess = fn
	}
}

// WithReadErrorHandler receives skipped-page errors when a listing is partial.
func WithReadErrorHandler(fn func([]pagination.ReadError)) CallOption {
	return func(o *callOptions) {
		o.onReadErrors = fn
	}
}

func (c *Client) resolveOptions(defaultTimeout time.Duration, opts []CallOption) callOptions {
	o := callOptions{
		timeout:        defaultTimeout,
		pageSize:       c.config.PageSize,
		maxConcurrency: c.config.MaxConcurrency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
