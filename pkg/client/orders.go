package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/orderbridge/pkg/pagination"
)

const (
	ordersPath      = "/orders"
	createOrderPath = "/orders/createorder"
)

// Query names used in read errors, logs and metrics.
const (
	QueryOrdersList     = "orders:list"
	QueryOrdersCreated  = "orders:created"
	QueryOrdersModified = "orders:modified"
)

// OrderFilter narrows an order listing. Zero fields are not sent.
type OrderFilter struct {
	Created     *Window
	Modified    *Window
	OrderStatus string
	StoreID     int64
}

func (f OrderFilter) params() Params {
	var p Params
	if f.Created != nil {
		p = p.Add("createDateStart", f.Created.From).Add("createDateEnd", f.Created.To)
	}
	if f.Modified != nil {
		p = p.Add("modifyDateStart", f.Modified.From).Add("modifyDateEnd", f.Modified.To)
	}
	if f.OrderStatus != "" {
		p = p.Add("orderStatus", f.OrderStatus)
	}
	if f.StoreID != 0 {
		p = p.Add("storeId", f.StoreID)
	}
	return p
}

// SubmitResult reports a bulk submission.
type SubmitResult struct {
	// Submitted holds the server's view of each accepted order, in input order
	// with skipped records removed.
	Submitted []Order

	// Skipped holds records rejected by validation. They were never sent.
	Skipped []*ValidationError
}

// ordersPaginator builds a paginator over GET /orders for one filter.
func (c *Client) ordersPaginator(query string, filter OrderFilter, o callOptions) *pagination.Paginator[Order] {
	base := filter.params()
	return &pagination.Paginator[Order]{
		Query:     query,
		PageSize:  o.pageSize,
		Skippable: c.IsSkippable,
		Logger:    c.logger.With().Str("component", "paginator").Logger(),
		Fetch: func(ctx context.Context, req pagination.PageRequest) (pagination.PageResult[Order], error) {
			params := append(Params{}, base...).
				Add("page", req.Page).
				Add("pageSize", req.PageSize)

			var env Envelope[Order]
			if _, err := c.getJSON(ctx, ordersPath, params, o.timeout, &env); err != nil {
				return pagination.PageResult[Order]{}, err
			}
			return pagination.PageResult[Order]{
				Records:      env.Data,
				TotalRecords: env.Total,
				TotalPages:   env.Pages,
			}, nil
		},
	}
}

// ListOrders fetches every page of orders matching filter.
func (c *Client) ListOrders(ctx context.Context, filter OrderFilter, opts ...CallOption) (pagination.AggregatedResponse[Order], error) {
	o := c.resolveOptions(c.config.ListTimeout, opts)
	return c.collectOrders(ctx, o, c.ordersPaginator(QueryOrdersList, filter, o))
}

// FetchChangedOrders returns every order created or modified within window.
// The created run goes first and wins on duplicates.
func (c *Client) FetchChangedOrders(ctx context.Context, window Window, opts ...CallOption) (pagination.AggregatedResponse[Order], error) {
	if _, err := NewWindow(window.From, window.To); err != nil {
		return pagination.AggregatedResponse[Order]{}, err
	}

	o := c.resolveOptions(c.config.ListTimeout, opts)
	return c.collectOrders(ctx, o,
		c.ordersPaginator(QueryOrdersCreated, OrderFilter{Created: &window}, o),
		c.ordersPaginator(QueryOrdersModified, OrderFilter{Modified: &window}, o),
	)
}

// collectOrders runs the paginators in order, merges their records and applies
// post-processing. Any fatal run error discards all runs.
func (c *Client) collectOrders(ctx context.Context, o callOptions, paginators ...*pagination.Paginator[Order]) (pagination.AggregatedResponse[Order], error) {
	runs := make([]pagination.RunResult[Order], 0, len(paginators))
	for _, p := range paginators {
		run, err := p.Run(ctx)
		if err != nil {
			return pagination.AggregatedResponse[Order]{}, err
		}
		runs = append(runs, run)
	}

	agg := pagination.Merge(Order.Key, runs...)

	if agg.Partial() {
		c.logger.Warn().
			Int("read_errors", len(agg.ReadErrors)).
			Int("records", len(agg.Data)).
			Msg("Order listing is partial")
		if o.onReadErrors != nil {
			o.onReadErrors(agg.ReadErrors)
		}
	}

	if o.postProcess != nil && len(agg.Data) > 0 {
		processed, err := pagination.MapConcurrently(ctx, agg.Data, o.maxConcurrency, o.postProcess)
		if err != nil {
			return pagination.AggregatedResponse[Order]{}, fmt.Errorf("post-process orders: %w", err)
		}
		agg.Data = processed
	}

	c.logger.Info().
		Int("records", len(agg.Data)).
		Int("pages_expected", agg.TotalPagesExpected).
		Int("pages_received", agg.TotalPagesReceived).
		Int("runs", len(agg.Runs)).
		Msg("Order listing complete")

	return agg, nil
}

// GetOrder fetches a single order by id.
func (c *Client) GetOrder(ctx context.Context, orderID int64, opts ...CallOption) (*Order, error) {
	if orderID <= 0 {
		return nil, fmt.Errorf("order id must be positive (got %d)", orderID)
	}

	o := c.resolveOptions(c.config.GetTimeout, opts)

	var order Order
	if _, err := c.getJSON(ctx, ordersPath+"/"+strconv.FormatInt(orderID, 10), nil, o.timeout, &order); err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	return &order, nil
}

// CreateOrder validates and submits a new order.
func (c *Client) CreateOrder(ctx context.Context, order Order, opts ...CallOption) (*Order, error) {
	if err := c.ValidateOrder(order); err != nil {
		return nil, err
	}
	o := c.resolveOptions(c.config.SubmitTimeout, opts)
	return c.submitOrder(ctx, order, o.timeout)
}

// UpdateOrder replaces an existing order. The order must carry its OrderKey or
// OrderID so the server upserts instead of creating a duplicate.
func (c *Client) UpdateOrder(ctx context.Context, order Order, opts ...CallOption) (*Order, error) {
	if order.OrderKey == "" && order.OrderID == 0 {
		validationFailuresTotal.Inc()
		return nil, &ValidationError{Record: order.label(), Err: fmt.Errorf("update requires orderKey or orderId")}
	}
	if err := c.ValidateOrder(order); err != nil {
		return nil, err
	}
	o := c.resolveOptions(c.config.SubmitTimeout, opts)
	return c.submitOrder(ctx, order, o.timeout)
}

// SubmitOrders validates every order, skips invalid ones and submits the rest
// with bounded concurrency. The first submission failure aborts the batch.
func (c *Client) SubmitOrders(ctx context.Context, orders []Order, opts ...CallOption) (SubmitResult, error) {
	o := c.resolveOptions(c.config.SubmitTimeout, opts)

	var result SubmitResult
	valid := make([]Order, 0, len(orders))
	for _, order := range orders {
		if err := c.ValidateOrder(order); err != nil {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				ve = &ValidationError{Record: order.label(), Err: err}
			}
			result.Skipped = append(result.Skipped, ve)
			c.logger.Warn().Err(err).Str("order", order.label()).Msg("Skipping invalid order")
			continue
		}
		valid = append(valid, order)
	}

	submitted, err := pagination.MapConcurrently(ctx, valid, o.maxConcurrency, func(ctx context.Context, order Order) (Order, error) {
		created, err := c.submitOrder(ctx, order, o.timeout)
		if err != nil {
			return Order{}, err
		}
		return *created, nil
	})
	if err != nil {
		return SubmitResult{Skipped: result.Skipped}, fmt.Errorf("submit orders: %w", err)
	}
	result.Submitted = submitted

	c.logger.Info().
		Int("submitted", len(result.Submitted)).
		Int("skipped", len(result.Skipped)).
		Msg("Order submission complete")

	return result, nil
}

// ValidateOrder checks an order against its field constraints.
func (c *Client) ValidateOrder(order Order) error {
	if err := c.validate.Struct(order); err != nil {
		validationFailuresTotal.Inc()
		return &ValidationError{Record: order.label(), Err: err}
	}
	return nil
}

func (c *Client) submitOrder(ctx context.Context, order Order, timeout time.Duration) (*Order, error) {
	resp, err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    createOrderPath,
		body:    order,
		timeout: timeout,
		policy:  c.config.SubmitRetry,
	})
	if err != nil {
		return nil, fmt.Errorf("submit order %s: %w", order.label(), err)
	}

	var created Order
	if err := resp.Decode(&created); err != nil {
		return nil, err
	}
	return &created, nil
}
