package invoicexpress

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/backoffice-platform/returns-service/internal/domain"
)

// BuilderConfig tunes how orders become invoices.
type BuilderConfig struct {
	SequenceID          string
	TaxExemptionCode    string
	ExporterName        string
	DeclaredValueFactor decimal.Decimal // fraction of the retail price declared for customs
}

// DefaultBuilderConfig returns the production invoicing defaults.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		SequenceID:          "DefaultSequence",
		TaxExemptionCode:    "M05",
		ExporterName:        "Hanse Pty Ltd",
		DeclaredValueFactor: decimal.NewFromFloat(0.3),
	}
}

// Builder converts storefront orders into invoice payloads, applying
// the exchange rate and declared-value factor to every amount.
type Builder struct {
	cfg BuilderConfig
	now func() time.Time
}

// NewBuilder creates a Builder. A nil clock falls back to time.Now.
func NewBuilder(cfg BuilderConfig, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	if cfg.DeclaredValueFactor.IsZero() {
		cfg.DeclaredValueFactor = decimal.NewFromFloat(0.3)
	}
	return &Builder{cfg: cfg, now: now}
}

// Build produces the invoice for an order at the given exchange rate.
// Fulfilled and fully removed lines are skipped. United Kingdom
// shipments get the preferential-origin declaration and the short
// country name customs expects.
func (b *Builder) Build(order domain.Order, rate decimal.Decimal) Invoice {
	today := b.now().Format("02/01/2006")

	country := order.ShippingAddress.Country
	observations := "Product origin: Portugal"
	if country == "United Kingdom" {
		observations = fmt.Sprintf(
			"Product origin: Portugal\nThe exporter of the products covered by this document declares that, except where otherwise clearly indicated, these products are of Portuguese preferential origin.\nLisbon, %s, %s",
			b.now().Format("02 January 2006"), b.cfg.ExporterName)
		country = "UK"
	}

	reference := strings.TrimPrefix(order.Name, "#")

	inv := Invoice{
		Date:               today,
		DueDate:            today,
		Reference:          reference,
		Observations:       observations,
		TaxExemptionReason: b.cfg.TaxExemptionCode,
		TaxExemption:       b.cfg.TaxExemptionCode,
		SequenceID:         b.cfg.SequenceID,
		Client: InvoiceClient{
			Name:       order.ShippingAddress.Name,
			Code:       reference,
			Address:    joinAddress(order.ShippingAddress),
			City:       order.ShippingAddress.City,
			PostalCode: order.ShippingAddress.Zip,
			Country:    country,
		},
	}

	for _, li := range order.LineItems {
		if li.FulfillmentStatus == "fulfilled" || li.CurrentQuantity <= 0 {
			continue
		}
		inv.Items = append(inv.Items, b.buildItem(li, rate))
	}
	return inv
}

func (b *Builder) buildItem(li domain.LineItem, rate decimal.Decimal) InvoiceItem {
	// Amounts convert from the shop currency; the presentment price is
	// whatever the customer's checkout displayed and the rate does not
	// apply to it.
	unitPrice := li.ShopUnitPrice.Mul(rate).Mul(b.cfg.DeclaredValueFactor).Round(2)

	item := InvoiceItem{
		Name:        li.Name,
		Description: li.SKU,
		UnitPrice:   unitPrice.InexactFloat64(),
		Quantity:    li.Quantity,
	}

	allocated := li.TotalAllocatedShop()
	if allocated.IsPositive() && unitPrice.IsPositive() {
		discountAmount := allocated.Mul(rate).Mul(b.cfg.DeclaredValueFactor).Round(2)
		discountPct := discountAmount.Div(unitPrice).Mul(decimal.NewFromInt(100)).Round(2)

		pct := discountPct.InexactFloat64()
		amount := discountAmount.InexactFloat64()
		item.Discount = &pct
		item.DiscountAmount = &amount
	}
	return item
}

func joinAddress(a domain.Address) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.Address1, a.Address2, a.Province} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
