package application

import (
	"context"
	"time"

	"github.com/backoffice-platform/returns-service/internal/domain"
	"github.com/backoffice-platform/returns-service/internal/infrastructure/invoicexpress"
	"github.com/backoffice-platform/returns-service/pkg/logging"
	"github.com/backoffice-platform/returns-service/pkg/middleware"
	"github.com/shopspring/decimal"
)

// OrderFetcher is the storefront slice the invoice batch needs.
type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID int64) (domain.Order, error)
}

// InvoicingGateway issues invoices and maintains client records.
type InvoicingGateway interface {
	CreateInvoice(ctx context.Context, inv invoicexpress.Invoice) (invoicexpress.CreatedInvoice, error)
	UpdateClient(ctx context.Context, clientID int64, update invoicexpress.ClientUpdate) error
}

// RateProvider resolves the conversion rate between two currencies.
type RateProvider interface {
	Rate(ctx context.Context, base, target string) (decimal.Decimal, error)
}

// ProcessInvoicesCommand names the orders to invoice in one batch.
type ProcessInvoicesCommand struct {
	OrderIDs []int64 `json:"orderIds" binding:"required,min=1,dive,shopify_id"`
}

// InvoiceService turns fulfilled orders into customs invoices. One
// batch resolves the exchange rate once and then works through the
// orders sequentially, pacing calls so the invoicing account is not
// rate limited.
type InvoiceService struct {
	orders   OrderFetcher
	invoices InvoicingGateway
	rates    RateProvider
	builder  *invoicexpress.Builder
	base     string
	target   string
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *logging.Logger
	metrics  *middleware.BusinessMetrics
}

// NewInvoiceService creates an InvoiceService converting from base to
// target currency on each invoice line.
func NewInvoiceService(
	orders OrderFetcher,
	invoices InvoicingGateway,
	rates RateProvider,
	builder *invoicexpress.Builder,
	base, target string,
	logger *logging.Logger,
	metrics *middleware.BusinessMetrics,
) *InvoiceService {
	if base == "" {
		base = "AUD"
	}
	if target == "" {
		target = "EUR"
	}
	return &InvoiceService{
		orders:   orders,
		invoices: invoices,
		rates:    rates,
		builder:  builder,
		base:     base,
		target:   target,
		delay:    time.Second,
		sleep:    sleepContext,
		logger:   logger.WithComponent("invoice_service"),
		metrics:  metrics,
	}
}

// ProcessOrders issues one invoice per order and pushes the shipping
// details back onto the invoicing client record. A failure on one order
// does not stop the batch; the result buckets each order by outcome.
func (s *InvoiceService) ProcessOrders(ctx context.Context, cmd ProcessInvoicesCommand) (*InvoiceBatchDTO, error) {
	rate, err := s.rates.Rate(ctx, s.base, s.target)
	if err != nil {
		return nil, err
	}

	result := &InvoiceBatchDTO{
		Rate:           rate.String(),
		Successful:     []int64{},
		FailedInvoices: []int64{},
		FailedClients:  []int64{},
	}

	for i, orderID := range cmd.OrderIDs {
		if i > 0 {
			if err := s.sleep(ctx, s.delay); err != nil {
				return nil, err
			}
		}

		outcome := s.processOrder(ctx, orderID, rate)
		switch outcome {
		case invoiceOutcomeOK:
			result.Successful = append(result.Successful, orderID)
		case invoiceOutcomeClientFailed:
			result.FailedClients = append(result.FailedClients, orderID)
		default:
			result.FailedInvoices = append(result.FailedInvoices, orderID)
		}
		s.metrics.RecordInvoiceProcessed(string(outcome))
	}

	s.logger.Info("Invoice batch finished",
		"rate", result.Rate,
		"successful", len(result.Successful),
		"failedInvoices", len(result.FailedInvoices),
		"failedClients", len(result.FailedClients))
	return result, nil
}

type invoiceOutcome string

const (
	invoiceOutcomeOK            invoiceOutcome = "success"
	invoiceOutcomeInvoiceFailed invoiceOutcome = "invoice_failed"
	invoiceOutcomeClientFailed  invoiceOutcome = "client_failed"
)

func (s *InvoiceService) processOrder(ctx context.Context, orderID int64, rate decimal.Decimal) invoiceOutcome {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		s.logger.WithError(err).Error("Order fetch failed", "orderId", orderID)
		return invoiceOutcomeInvoiceFailed
	}

	inv := s.builder.Build(order, rate)
	created, err := s.invoices.CreateInvoice(ctx, inv)
	if err != nil {
		s.logger.WithError(err).Error("Invoice creation failed", "orderId", orderID, "reference", inv.Reference)
		return invoiceOutcomeInvoiceFailed
	}

	update := invoicexpress.ClientUpdate{
		Name:       inv.Client.Name,
		Code:       inv.Client.Code,
		Address:    inv.Client.Address,
		City:       inv.Client.City,
		PostalCode: inv.Client.PostalCode,
	}
	if err := s.invoices.UpdateClient(ctx, created.Client.ID, update); err != nil {
		s.logger.WithError(err).Error("Client update failed",
			"orderId", orderID, "invoiceId", created.ID, "clientId", created.Client.ID)
		return invoiceOutcomeClientFailed
	}

	s.logger.Info("Invoice issued", "orderId", orderID, "invoiceId", created.ID, "reference", inv.Reference)
	return invoiceOutcomeOK
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
