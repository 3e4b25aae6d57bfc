package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/orderbridge/pkg/client"
	"github.com/Sternrassler/orderbridge/pkg/pagination"
)

// timeLayouts are accepted for --from and --to.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want RFC3339 or YYYY-MM-DD)", s)
}

// changedOutput is the JSON document printed by `orderctl changed`.
type changedOutput struct {
	Orders                []client.Order          `json:"orders"`
	TotalPagesExpected    int                     `json:"totalPagesExpected"`
	TotalEntitiesExpected int                     `json:"totalEntitiesExpected"`
	TotalPagesReceived    int                     `json:"totalPagesReceived"`
	ReadErrors            []string                `json:"readErrors,omitempty"`
	Runs                  []pagination.RunSummary `json:"runs"`
}

func newChangedOutput(agg pagination.AggregatedResponse[client.Order]) changedOutput {
	out := changedOutput{
		Orders:                agg.Data,
		TotalPagesExpected:    agg.TotalPagesExpected,
		TotalEntitiesExpected: agg.TotalEntitiesExpected,
		TotalPagesReceived:    agg.TotalPagesReceived,
		Runs:                  agg.Runs,
	}
	if out.Orders == nil {
		out.Orders = []client.Order{}
	}
	for _, re := range agg.ReadErrors {
		out.ReadErrors = append(out.ReadErrors, re.Error())
	}
	return out
}

func newChangedCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "changed",
		Short: "List orders created or modified within a time window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseTime(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := parseTime(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			window, err := client.NewWindow(start, end)
			if err != nil {
				return err
			}

			c, _, cleanup, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			agg, err := c.FetchChangedOrders(cmd.Context(), window)
			if err != nil {
				return err
			}
			return a.printJSON(newChangedOutput(agg))
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "window start (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "window end (inclusive)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newOrderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "order <id>",
		Short: "Fetch a single order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id %q", args[0])
			}

			c, _, cleanup, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			order, err := c.GetOrder(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printJSON(order)
		},
	}
}

func newStoresCmd(a *app) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "stores",
		Short: "List stores on the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, cleanup, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if refresh {
				if err := c.InvalidateStores(cmd.Context()); err != nil {
					return err
				}
			}

			stores, err := c.ListStores(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(stores)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "drop cached store data before listing")

	return cmd
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
