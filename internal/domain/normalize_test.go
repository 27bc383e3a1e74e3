package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test fixtures

type stubPricer struct {
	prices map[int64]VariantPrices
	err    error
}

func (s *stubPricer) GetVariantPrices(_ context.Context, variantID int64) (VariantPrices, error) {
	if s.err != nil {
		return VariantPrices{}, s.err
	}
	p, ok := s.prices[variantID]
	if !ok {
		return VariantPrices{}, ErrVariantNotFound
	}
	return p, nil
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func money(amount, currency string) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func createTestLineItem() LineItem {
	return LineItem{
		ID:              1001,
		VariantID:       501,
		Name:            "Linen Midi Dress - White / M",
		SKU:             "LMD-W-M",
		Quantity:        2,
		CurrentQuantity: 2,
		ShopUnitPrice:   decimal.RequireFromString("100.00"),
		UnitPrice:       money("100.00", "AUD"),
		Allocations: []DiscountAllocation{
			{ShopAmount: decimal.RequireFromString("20.00"), Amount: money("20.00", "AUD")},
		},
	}
}

func createTestOrder() Order {
	return Order{
		ID:    9001,
		Name:  "#4821",
		Email: "jane@example.com",
		Customer: Customer{
			ID:        301,
			Email:     "jane@example.com",
			FirstName: "Jane",
			LastName:  "Doe",
		},
		BillingAddress: Address{Name: "Jane Doe", Country: "Australia"},
		TotalPrice:     money("180.00", "AUD"),
		LineItems:      []LineItem{createTestLineItem()},
	}
}

func defaultPricer() *stubPricer {
	return &stubPricer{prices: map[int64]VariantPrices{
		501: {Price: decimal.RequireFromString("100.00"), CompareAt: decimal.Zero},
	}}
}

func TestNormalizeOrder_DiscountPercentage(t *testing.T) {
	// qty 2, unit 100.00 AUD, one 20.00 AUD allocation -> 20% discount.
	n := NewNormalizer(defaultPricer(), fixedClock())

	rows, err := n.NormalizeOrder(context.Background(), createTestOrder(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "20", row.DiscountPercentage.String())
	assert.Equal(t, "10", row.DiscountAmount.String())
	assert.Equal(t, "100.00 AUD", row.ActualPaid)
	assert.Equal(t, "180.00 AUD", row.LineNet)
	assert.Nil(t, row.DaysHeld)
	assert.Equal(t, HoldStatusUnknown, row.Status)
	assert.False(t, row.WasReturned)
	assert.True(t, row.VariantPricingKnown)
	assert.False(t, row.HasVariantDiscount)
}

func TestNormalizeOrder_FiltersRemovedItems(t *testing.T) {
	order := createTestOrder()
	removed := createTestLineItem()
	removed.ID = 1002
	removed.CurrentQuantity = 0
	order.LineItems = append(order.LineItems, removed)

	n := NewNormalizer(defaultPricer(), fixedClock())
	rows, err := n.NormalizeOrder(context.Background(), order, nil)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, int64(1001), rows[0].LineItemID)
}

func TestNormalizeOrder_DaysHeld(t *testing.T) {
	tests := []struct {
		name         string
		deliveredAgo time.Duration
		status       ShipmentStatus
		wantDays     *int
	}{
		{
			name:         "delivered 35 days ago",
			deliveredAgo: 35 * 24 * time.Hour,
			status:       ShipmentStatusDelivered,
			wantDays:     intPtr(35),
		},
		{
			name:         "delivered moments ago",
			deliveredAgo: time.Hour,
			status:       ShipmentStatusDelivered,
			wantDays:     intPtr(0),
		},
		{
			name:         "in transit only",
			deliveredAgo: 10 * 24 * time.Hour,
			status:       ShipmentStatusInTransit,
			wantDays:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := fixedClock()
			order := createTestOrder()
			order.Fulfillments = []Fulfillment{{
				ID:             1,
				ShipmentStatus: tt.status,
				UpdatedAt:      clock().Add(-tt.deliveredAgo),
				LineItemIDs:    []int64{1001},
			}}

			n := NewNormalizer(defaultPricer(), clock)
			rows, err := n.NormalizeOrder(context.Background(), order, nil)
			require.NoError(t, err)
			require.Len(t, rows, 1)

			if tt.wantDays == nil {
				assert.Nil(t, rows[0].DaysHeld)
			} else {
				require.NotNil(t, rows[0].DaysHeld)
				assert.Equal(t, *tt.wantDays, *rows[0].DaysHeld)
			}
		})
	}
}

func TestNormalizeOrder_LastDeliveredFulfillmentWins(t *testing.T) {
	clock := fixedClock()
	order := createTestOrder()
	order.Fulfillments = []Fulfillment{
		{ID: 1, ShipmentStatus: ShipmentStatusDelivered, UpdatedAt: clock().Add(-40 * 24 * time.Hour), LineItemIDs: []int64{1001}},
		{ID: 2, ShipmentStatus: ShipmentStatusDelivered, UpdatedAt: clock().Add(-5 * 24 * time.Hour), LineItemIDs: []int64{1001}},
	}

	n := NewNormalizer(defaultPricer(), clock)
	rows, err := n.NormalizeOrder(context.Background(), order, nil)
	require.NoError(t, err)

	require.NotNil(t, rows[0].DaysHeld)
	assert.Equal(t, 5, *rows[0].DaysHeld)
}

func TestNormalizeOrder_VariantLookupDegrades(t *testing.T) {
	order := createTestOrder()
	second := createTestLineItem()
	second.ID = 1002
	second.VariantID = 502
	order.LineItems = append(order.LineItems, second)

	pricer := defaultPricer() // only variant 501 resolves
	n := NewNormalizer(pricer, fixedClock())

	rows, err := n.NormalizeOrder(context.Background(), order, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.True(t, rows[0].VariantPricingKnown)
	assert.False(t, rows[1].VariantPricingKnown)
	assert.False(t, rows[1].HasVariantDiscount)
}

func TestNormalizeOrder_VariantSaleDetected(t *testing.T) {
	pricer := &stubPricer{prices: map[int64]VariantPrices{
		501: {
			Price:     decimal.RequireFromString("80.00"),
			CompareAt: decimal.RequireFromString("100.00"),
		},
	}}
	n := NewNormalizer(pricer, fixedClock())

	rows, err := n.NormalizeOrder(context.Background(), createTestOrder(), nil)
	require.NoError(t, err)

	row := rows[0]
	assert.True(t, row.HasVariantDiscount)
	assert.Equal(t, "-20", row.VariantDiscountPct.String())
	assert.Contains(t, row.DiscountSources, SourceVariantSale)
}

func TestNormalizeOrder_DiscountSources(t *testing.T) {
	order := createTestOrder()
	order.DiscountCodes = []string{"WELCOME10"}

	n := NewNormalizer(defaultPricer(), fixedClock())
	rows, err := n.NormalizeOrder(context.Background(), order, nil)
	require.NoError(t, err)

	assert.Equal(t, "Item Discount Allocation, Order Discount Code", rows[0].DiscountSources)
}

func TestNormalizeOrder_NoDiscounts(t *testing.T) {
	order := createTestOrder()
	order.LineItems[0].Allocations = nil

	n := NewNormalizer(defaultPricer(), fixedClock())
	rows, err := n.NormalizeOrder(context.Background(), order, nil)
	require.NoError(t, err)

	row := rows[0]
	assert.True(t, row.DiscountPercentage.IsZero())
	assert.True(t, row.DiscountAmount.IsZero())
	assert.Equal(t, "None", row.DiscountSources)
	assert.Equal(t, "200.00 AUD", row.LineNet)
}

func TestNormalizeOrder_WasReturned(t *testing.T) {
	order := createTestOrder()
	order.Refunds = []Refund{{ID: 1, LineItemIDs: []int64{1001}}}

	n := NewNormalizer(defaultPricer(), fixedClock())
	rows, err := n.NormalizeOrder(context.Background(), order, nil)
	require.NoError(t, err)

	assert.True(t, rows[0].WasReturned)
}

func TestNormalizeOrder_StatusMap(t *testing.T) {
	n := NewNormalizer(defaultPricer(), fixedClock())
	statuses := map[int64]FulfillmentHoldStatus{1001: HoldStatusOnHold}

	rows, err := n.NormalizeOrder(context.Background(), createTestOrder(), statuses)
	require.NoError(t, err)

	assert.Equal(t, HoldStatusOnHold, rows[0].Status)
}

func TestNormalizeOrder_Idempotent(t *testing.T) {
	clock := fixedClock()
	order := createTestOrder()
	order.Fulfillments = []Fulfillment{{
		ID: 1, ShipmentStatus: ShipmentStatusDelivered,
		UpdatedAt: clock().Add(-12 * 24 * time.Hour), LineItemIDs: []int64{1001},
	}}

	n := NewNormalizer(defaultPricer(), clock)
	first, err := n.NormalizeOrder(context.Background(), order, nil)
	require.NoError(t, err)
	second, err := n.NormalizeOrder(context.Background(), order, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNormalizeOrder_EmptyOrder(t *testing.T) {
	n := NewNormalizer(defaultPricer(), fixedClock())

	_, err := n.NormalizeOrder(context.Background(), Order{}, nil)
	assert.True(t, errors.Is(err, ErrNoLineItems))
}

func TestNormalizeOrder_PercentClamped(t *testing.T) {
	order := createTestOrder()
	order.LineItems[0].Allocations = []DiscountAllocation{
		{ShopAmount: decimal.RequireFromString("500.00"), Amount: money("500.00", "AUD")},
	}

	n := NewNormalizer(defaultPricer(), fixedClock())
	rows, err := n.NormalizeOrder(context.Background(), order, nil)
	require.NoError(t, err)

	assert.Equal(t, "100", rows[0].DiscountPercentage.String())
}

func intPtr(v int) *int { return &v }
