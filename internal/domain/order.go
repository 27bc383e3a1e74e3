package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrMissingCustomer   = errors.New("order has no customer")
	ErrInvalidOrderID    = errors.New("invalid order id")
	ErrNoLineItems       = errors.New("order has no line items")
	ErrUnknownProfile    = errors.New("unknown policy profile")
	ErrInvalidThreshold  = errors.New("discount threshold must be between 0 and 100")
)

// ShipmentStatus represents a fulfillment's shipment state as reported
// by the storefront.
type ShipmentStatus string

const (
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	ShipmentStatusFailure   ShipmentStatus = "failure"
)

// FulfillmentHoldStatus is the per-item fulfillment order status used
// to annotate line items during review.
type FulfillmentHoldStatus string

const (
	HoldStatusOpen      FulfillmentHoldStatus = "open"
	HoldStatusOnHold    FulfillmentHoldStatus = "on_hold"
	HoldStatusClosed    FulfillmentHoldStatus = "closed"
	HoldStatusScheduled FulfillmentHoldStatus = "scheduled"
	HoldStatusUnknown   FulfillmentHoldStatus = "Unknown"
)

// Money is a decimal amount in a specific presentment currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney builds a Money value from a decimal string as received on the wire.
func NewMoney(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money amount %q: %w", amount, err)
	}
	return Money{Amount: d, Currency: currency}, nil
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// String renders the amount followed by its currency code, e.g. "120.00 AUD".
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + m.Currency
}

// Property is a line item property attached at checkout.
type Property struct {
	Name  string
	Value string
}

// DiscountAllocation is a single discount applied to a line item. The
// shop amount drives percentage math, the presentment amount drives the
// customer-facing net figure.
type DiscountAllocation struct {
	ShopAmount       decimal.Decimal
	Amount           Money
	ApplicationIndex int
}

// LineItem is one purchasable line of an order.
type LineItem struct {
	ID                  int64
	VariantID           int64
	ProductID           int64
	Name                string
	Title               string
	SKU                 string
	Quantity            int
	CurrentQuantity     int
	FulfillableQuantity int
	FulfillmentStatus   string
	ShopUnitPrice       decimal.Decimal // unit price in the shop currency
	UnitPrice           Money           // presentment unit price, already net of sale pricing
	Allocations         []DiscountAllocation
	Properties          []Property
}

// TotalAllocated sums the line's discount allocations in the
// presentment currency.
func (li LineItem) TotalAllocated() decimal.Decimal {
	total := decimal.Zero
	for _, a := range li.Allocations {
		total = total.Add(a.Amount.Amount)
	}
	return total
}

// TotalAllocatedShop sums the line's discount allocations in the shop
// currency.
func (li LineItem) TotalAllocatedShop() decimal.Decimal {
	total := decimal.Zero
	for _, a := range li.Allocations {
		total = total.Add(a.ShopAmount)
	}
	return total
}

// IsFinalSale reports whether the item carries the Final Sale property.
func (li LineItem) IsFinalSale() bool {
	for _, p := range li.Properties {
		if p.Value == "Final Sale" {
			return true
		}
	}
	return false
}

// Fulfillment is a shipment record covering a subset of an order's items.
type Fulfillment struct {
	ID             int64
	ShipmentStatus ShipmentStatus
	UpdatedAt      time.Time
	LineItemIDs    []int64
}

// Covers reports whether the fulfillment contains the given line item.
func (f Fulfillment) Covers(lineItemID int64) bool {
	for _, id := range f.LineItemIDs {
		if id == lineItemID {
			return true
		}
	}
	return false
}

// Refund contains the line items reversed by a refund.
type Refund struct {
	ID          int64
	LineItemIDs []int64
}

// Address is the subset of a billing address the review surface needs.
type Address struct {
	Name        string
	Address1    string
	Address2    string
	City        string
	Zip         string
	Province    string
	Country     string
	CountryCode string
	Phone       string
}

// Customer identifies the purchaser.
type Customer struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
}

// Order is the full storefront order as the review pipeline consumes it.
type Order struct {
	ID              int64
	Name            string
	Email           string
	CreatedAt       time.Time
	Tags            string
	Customer        Customer
	BillingAddress  Address
	ShippingAddress Address
	TotalPrice      Money
	DiscountCodes   []string
	LineItems       []LineItem
	Fulfillments    []Fulfillment
	Refunds         []Refund
}

// HasDiscountCode reports whether any discount code was applied at checkout.
func (o Order) HasDiscountCode() bool {
	return len(o.DiscountCodes) > 0
}

// FirstDiscountCode returns the first applied code, or "" when none.
func (o Order) FirstDiscountCode() string {
	if len(o.DiscountCodes) == 0 {
		return ""
	}
	return o.DiscountCodes[0]
}

// WasReturned reports whether any refund reversed the given line item.
func (o Order) WasReturned(lineItemID int64) bool {
	for _, r := range o.Refunds {
		for _, id := range r.LineItemIDs {
			if id == lineItemID {
				return true
			}
		}
	}
	return false
}

// DeliveredAt returns the updated-at timestamp of the delivered fulfillment
// covering the line item, or the zero time when none has been delivered.
// When several delivered fulfillments cover the item the most recently
// listed one wins.
func (o Order) DeliveredAt(lineItemID int64) (time.Time, bool) {
	var deliveredAt time.Time
	found := false
	for _, f := range o.Fulfillments {
		if f.ShipmentStatus == ShipmentStatusDelivered && f.Covers(lineItemID) {
			deliveredAt = f.UpdatedAt
			found = true
		}
	}
	return deliveredAt, found
}

// OrderSummary is the compact order row returned by search.
type OrderSummary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// LineItemFulfillment is the per-line-item fulfillment order view: the
// hold status plus the country of the assigned fulfillment location.
type LineItemFulfillment struct {
	Status          FulfillmentHoldStatus
	AssignedCountry string
}

// Product is one catalog entry.
type Product struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	Handle   string           `json:"handle"`
	Variants []ProductVariant `json:"variants"`
}

// ProductVariant is a sellable variation of a product.
type ProductVariant struct {
	ID             int64           `json:"id"`
	SKU            string          `json:"sku"`
	Title          string          `json:"title"`
	Price          decimal.Decimal `json:"price"`
	CompareAtPrice decimal.Decimal `json:"compareAtPrice"`
}

// VariantPrices carries a variant's current and compare-at prices.
// CompareAt is zero when the variant has no compare-at price set.
type VariantPrices struct {
	Price     decimal.Decimal
	CompareAt decimal.Decimal
}

// OnSale reports whether the compare-at price exceeds the current price.
func (v VariantPrices) OnSale() bool {
	return v.CompareAt.GreaterThan(v.Price)
}

// SaleFraction returns (price/compare_at)-1, the variant's markdown as a
// negative fraction, or zero when no compare-at price is set.
func (v VariantPrices) SaleFraction() decimal.Decimal {
	if v.CompareAt.IsZero() {
		return decimal.Zero
	}
	return v.Price.Div(v.CompareAt).Sub(decimal.NewFromInt(1))
}
