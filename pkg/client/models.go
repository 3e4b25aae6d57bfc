package client

import (
	"fmt"
	"time"
)

// Envelope is the list response wrapper returned by paginated endpoints.
type Envelope[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// Window is a time range, inclusive on both ends.
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow validates and returns a window.
func NewWindow(from, to time.Time) (Window, error) {
	if from.IsZero() || to.IsZero() {
		return Window{}, fmt.Errorf("window bounds must be set")
	}
	if from.After(to) {
		return Window{}, fmt.Errorf("window start %s is after end %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return Window{From: from, To: to}, nil
}

// Order is a remote order record. Only the fields declared here are decoded;
// any other fields in the API payload are dropped.
type Order struct {
	OrderID        int64       `json:"orderId,omitempty"`
	OrderNumber    string      `json:"orderNumber" validate:"required,max=50"`
	OrderKey       string      `json:"orderKey,omitempty"`
	OrderDate      string      `json:"orderDate" validate:"required"`
	CreateDate     string      `json:"createDate,omitempty"`
	ModifyDate     string      `json:"modifyDate,omitempty"`
	OrderStatus    string      `json:"orderStatus" validate:"required,oneof=awaiting_payment awaiting_shipment pending_fulfillment shipped on_hold cancelled"`
	CustomerEmail  string      `json:"customerEmail,omitempty" validate:"omitempty,email"`
	BillTo         *Address    `json:"billTo" validate:"required"`
	ShipTo         *Address    `json:"shipTo" validate:"required"`
	Items          []OrderItem `json:"items,omitempty" validate:"dive"`
	OrderTotal     float64     `json:"orderTotal,omitempty" validate:"gte=0"`
	ShippingAmount float64     `json:"shippingAmount,omitempty" validate:"gte=0"`
	StoreID        int64       `json:"storeId,omitempty"`
}

// Key returns the order's identity.
func (o Order) Key() int64 {
	return o.OrderID
}

// label identifies the order in logs and validation errors.
func (o Order) label() string {
	switch {
	case o.OrderKey != "":
		return o.OrderKey
	case o.OrderNumber != "":
		return o.OrderNumber
	default:
		return fmt.Sprintf("%d", o.OrderID)
	}
}

// Address is a billing or shipping address.
type Address struct {
	Name       string `json:"name" validate:"required"`
	Company    string `json:"company,omitempty"`
	Street1    string `json:"street1,omitempty"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty" validate:"omitempty,len=2"`
	Phone      string `json:"phone,omitempty"`
}

// OrderItem is a single order line.
type OrderItem struct {
	SKU       string  `json:"sku,omitempty"`
	Name      string  `json:"name" validate:"required"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
}

// Store is a sales channel configured on the account.
type Store struct {
	StoreID         int64  `json:"storeId"`
	StoreName       string `json:"storeName"`
	MarketplaceID   int    `json:"marketplaceId"`
	MarketplaceName string `json:"marketplaceName"`
	Active          bool   `json:"active"`
	CreateDate      string `json:"createDate,omitempty"`
	ModifyDate      string `json:"modifyDate,omitempty"`
}

// Key returns the store's identity.
func (s Store) Key() int64 {
	return s.StoreID
}
