package client

import (
	"context"

	"github.com/Sternrassler/orderbridge/pkg/pagination"
)

// Future is the pending result of an asynchronous call.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Async runs fn in a new goroutine. fn observes ctx exactly as its blocking
// counterpart would.
func Async[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done. Abandoning the wait
// does not cancel the call; cancel the context passed to Async for that.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, canceledError(ctx.Err())
	}
}

// ListOrdersAsync is the asynchronous form of ListOrders.
func (c *Client) ListOrdersAsync(ctx context.Context, filter OrderFilter, opts ...CallOption) *Future[pagination.AggregatedResponse[Order]] {
	return Async(ctx, func(ctx context.Context) (pagination.AggregatedResponse[Order], error) {
		return c.ListOrders(ctx, filter, opts...)
	})
}

// FetchChangedOrdersAsync is the asynchronous form of FetchChangedOrders.
func (c *Client) FetchChangedOrdersAsync(ctx context.Context, window Window, opts ...CallOption) *Future[pagination.AggregatedResponse[Order]] {
	return Async(ctx, func(ctx context.Context) (pagination.AggregatedResponse[Order], error) {
		return c.FetchChangedOrders(ctx, window, opts...)
	})
}

// GetOrderAsync is the asynchronous form of GetOrder.
func (c *Client) GetOrderAsync(ctx context.Context, orderID int64, opts ...CallOption) *Future[*Order] {
	return Async(ctx, func(ctx context.Context) (*Order, error) {
		return c.GetOrder(ctx, orderID, opts...)
	})
}

// CreateOrderAsync is the asynchronous form of CreateOrder.
func (c *Client) CreateOrderAsync(ctx context.Context, order Order, opts ...CallOption) *Future[*Order] {
	return Async(ctx, func(ctx context.Context) (*Order, error) {
		return c.CreateOrder(ctx, order, opts...)
	})
}

// UpdateOrderAsync is the asynchronous form of UpdateOrder.
func (c *Client) UpdateOrderAsync(ctx context.Context, order Order, opts ...CallOption) *Future[*Order] {
	return Async(ctx, func(ctx context.Context) (*Order, error) {
		return c.UpdateOrder(ctx, order, opts...)
	})
}

// SubmitOrdersAsync is the asynchronous form of SubmitOrders.
func (c *Client) SubmitOrdersAsync(ctx context.Context, orders []Order, opts ...CallOption) *Future[SubmitResult] {
	return Async(ctx, func(ctx context.Context) (SubmitResult, error) {
		return c.SubmitOrders(ctx, orders, opts...)
	})
}

// ListStoresAsync is the asynchronous form of ListStores.
func (c *Client) ListStoresAsync(ctx context.Context, opts ...CallOption) *Future[[]Store] {
	return Async(ctx, func(ctx context.Context) ([]Store, error) {
		return c.ListStores(ctx, opts...)
	})
}

// GetStoreAsync is the asynchronous form of GetStore.
func (c *Client) GetStoreAsync(ctx context.Context, storeID int64, opts ...CallOption) *Future[*Store] {
	return Async(ctx, func(ctx context.Context) (*Store, error) {
		return c.GetStore(ctx, storeID, opts...)
	})
}
