package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// VariantPricer resolves a variant's current and compare-at prices.
// Implementations are expected to hit the storefront API.
type VariantPricer interface {
	GetVariantPrices(ctx context.Context, variantID int64) (VariantPrices, error)
}

// Discount source labels surfaced to operators.
const (
	SourceVariantSale    = "Variant Sale Price"
	SourceItemAllocation = "Item Discount Allocation"
	SourceOrderCode      = "Order Discount Code"
)

// NormalizedLineItem is one reviewable row of an order: every fact the
// eligibility decision and the operator display need, computed once.
type NormalizedLineItem struct {
	LineItemID int64
	Name       string
	SKU        string
	Quantity   int

	// PaidPrice is the shop-currency unit price, rounded to cents.
	PaidPrice decimal.Decimal
	// ActualPaid is the presentment unit price, e.g. "100.00 AUD".
	ActualPaid string
	// LineNet is unit price x quantity minus all allocations, in the
	// presentment currency, e.g. "180.00 AUD".
	LineNet string

	// DiscountAmount is the allocated discount per unit, shop currency.
	DiscountAmount decimal.Decimal
	// DiscountPercentage is the allocation discount relative to the unit
	// price, clamped to [0, 100] with two decimal places.
	DiscountPercentage decimal.Decimal
	// DiscountSources is the comma-joined set of discount origins, or
	// "None" when the line carries no discount at all.
	DiscountSources string

	HasVariantDiscount  bool
	VariantPricingKnown bool
	// VariantDiscountPct is the variant markdown percentage, negative for
	// a markdown, zero when no compare-at price is set.
	VariantDiscountPct decimal.Decimal

	Status      FulfillmentHoldStatus
	WasReturned bool
	FinalSale   bool
	// DaysHeld is the whole days since delivery, nil until the covering
	// fulfillment reports delivered.
	DaysHeld *int
}

// Normalizer flattens raw orders into reviewable line items. The clock is
// injectable so day computations are reproducible in tests.
type Normalizer struct {
	pricer VariantPricer
	now    func() time.Time
}

// NewNormalizer builds a Normalizer. A nil clock defaults to time.Now.
func NewNormalizer(pricer VariantPricer, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{pricer: pricer, now: now}
}

// NormalizeOrder produces one row per line item still present on the
// order. Items whose current quantity is zero were fully removed or
// refunded and are dropped. A failed variant price lookup degrades that
// row to unknown pricing instead of failing the order.
func (n *Normalizer) NormalizeOrder(ctx context.Context, order Order, statuses map[int64]FulfillmentHoldStatus) ([]NormalizedLineItem, error) {
	if len(order.LineItems) == 0 {
		return nil, ErrNoLineItems
	}

	hundred := decimal.NewFromInt(100)
	results := make([]NormalizedLineItem, 0, len(order.LineItems))

	for _, item := range order.LineItems {
		if item.CurrentQuantity <= 0 {
			continue
		}

		qty := decimal.NewFromInt(int64(item.Quantity))

		// Presentment figures for the customer-facing columns.
		lineGross := item.UnitPrice.Amount.Mul(qty)
		lineNet := lineGross.Sub(item.TotalAllocated())

		// Shop-currency allocation figures for the discount decision.
		totalAllocated := item.TotalAllocatedShop()

		discountAmount := decimal.Zero
		discountPct := decimal.Zero
		if item.Quantity > 0 {
			discountAmount = totalAllocated.Div(qty).Round(2)
			if totalAllocated.IsPositive() && item.ShopUnitPrice.IsPositive() {
				discountPct = clampPercent(totalAllocated.Div(item.ShopUnitPrice).Mul(hundred).Round(2))
			}
		}

		row := NormalizedLineItem{
			LineItemID:         item.ID,
			Name:               item.Name,
			SKU:                item.SKU,
			Quantity:           item.Quantity,
			PaidPrice:          item.ShopUnitPrice.Round(2),
			ActualPaid:         item.UnitPrice.String(),
			LineNet:            Money{Amount: lineNet, Currency: item.UnitPrice.Currency}.String(),
			DiscountAmount:     discountAmount,
			DiscountPercentage: discountPct,
			Status:             holdStatus(statuses, item.ID),
			WasReturned:        order.WasReturned(item.ID),
			FinalSale:          item.IsFinalSale(),
		}

		if deliveredAt, ok := order.DeliveredAt(item.ID); ok {
			days := int(n.now().Sub(deliveredAt).Hours() / 24)
			if days < 0 {
				days = 0
			}
			row.DaysHeld = &days
		}

		prices, err := n.pricer.GetVariantPrices(ctx, item.VariantID)
		if err == nil {
			row.VariantPricingKnown = true
			row.HasVariantDiscount = prices.OnSale()
			row.VariantDiscountPct = prices.SaleFraction().Round(2).Mul(hundred)
		}

		row.DiscountSources = discountSources(row.HasVariantDiscount, totalAllocated.IsPositive(), order.HasDiscountCode())

		results = append(results, row)
	}

	return results, nil
}

func holdStatus(statuses map[int64]FulfillmentHoldStatus, lineItemID int64) FulfillmentHoldStatus {
	if s, ok := statuses[lineItemID]; ok {
		return s
	}
	return HoldStatusUnknown
}

func discountSources(variantSale, itemAllocation, orderCode bool) string {
	var sources []string
	if variantSale {
		sources = append(sources, SourceVariantSale)
	}
	if itemAllocation {
		sources = append(sources, SourceItemAllocation)
	}
	if orderCode {
		sources = append(sources, SourceOrderCode)
	}
	if len(sources) == 0 {
		return "None"
	}
	return strings.Join(sources, ", ")
}

func clampPercent(pct decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
