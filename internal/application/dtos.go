package application

import (
	"time"

	"github.com/backoffice-platform/returns-service/internal/domain"
	"github.com/backoffice-platform/returns-service/internal/infrastructure/picklist"
)

// ReviewedItemDTO is one classified line item of an order review.
type ReviewedItemDTO struct {
	LineItemID         int64    `json:"lineItemId"`
	Name               string   `json:"name"`
	SKU                string   `json:"sku"`
	Quantity           int      `json:"quantity"`
	PaidPrice          string   `json:"paidPrice"`
	ActualPaid         string   `json:"actualPaid"`
	LineNet            string   `json:"lineNet"`
	DiscountAmount     string   `json:"discountAmount"`
	DiscountPercentage string   `json:"discountPercentage"`
	DiscountSources    string   `json:"discountSources"`
	FulfillmentStatus  string   `json:"fulfillmentStatus"`
	EligibilityStatus  string   `json:"eligibilityStatus"`
	Label              string   `json:"label"`
	ReturnCode         string   `json:"returnCode"`
	Options            []string `json:"options"`
	WasReturned        bool     `json:"wasReturned"`
	FinalSale          bool     `json:"finalSale"`
	DaysHeld           *int     `json:"daysHeld,omitempty"`
}

// OrderReviewDTO is the full review of one order under a policy profile.
type OrderReviewDTO struct {
	OrderID           int64             `json:"orderId"`
	OrderName         string            `json:"orderName"`
	CustomerName      string            `json:"customerName"`
	Email             string            `json:"email"`
	CreatedAt         time.Time         `json:"createdAt"`
	Tags              string            `json:"tags,omitempty"`
	TotalPrice        string            `json:"totalPrice"`
	DiscountCode      string            `json:"discountCode,omitempty"`
	OrderCount        int               `json:"orderCount"`
	FirstTimeCustomer bool              `json:"firstTimeCustomer"`
	Profile           string            `json:"profile"`
	Items             []ReviewedItemDTO `json:"items"`
}

// ComposedResponseDTO is a generated customer reply.
type ComposedResponseDTO struct {
	Segment string `json:"segment"`
	Body    string `json:"body"`
}

// PicklistDTO carries both pick list tabs.
type PicklistDTO struct {
	Items    []picklist.ItemRow    `json:"items"`
	Products []picklist.ProductRow `json:"products"`
}

// PicklistRefreshDTO summarizes a refresh run.
type PicklistRefreshDTO struct {
	Orders   int `json:"orders"`
	Items    int `json:"items"`
	Products int `json:"products"`
}

// InvoiceBatchDTO reports the outcome of an invoicing run, bucketed the
// way operators triage it: fully processed, invoice creation failed, or
// invoice created but client sync failed.
type InvoiceBatchDTO struct {
	Rate           string  `json:"rate"`
	Successful     []int64 `json:"successful"`
	FailedInvoices []int64 `json:"failedInvoices"`
	FailedClients  []int64 `json:"failedClients"`
}

// SaleItemDTO is one marked-down variant from the catalog.
type SaleItemDTO struct {
	ProductID      int64  `json:"productId"`
	VariantID      int64  `json:"variantId"`
	ProductTitle   string `json:"productTitle"`
	VariantTitle   string `json:"variantTitle"`
	SKU            string `json:"sku"`
	Price          string `json:"price"`
	CompareAtPrice string `json:"compareAtPrice"`
	Percentage     int    `json:"percentage"`
	ProductURL     string `json:"productUrl"`
}

// CatalogDTO is the product listing with its sale subset.
type CatalogDTO struct {
	Products  []domain.Product `json:"products"`
	SaleItems []SaleItemDTO    `json:"saleItems"`
}
