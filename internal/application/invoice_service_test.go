package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice-platform/returns-service/internal/domain"
	"github.com/backoffice-platform/returns-service/internal/infrastructure/invoicexpress"
)

type stubInvoicing struct {
	create func(ctx context.Context, inv invoicexpress.Invoice) (invoicexpress.CreatedInvoice, error)
	update func(ctx context.Context, clientID int64, update invoicexpress.ClientUpdate) error
}

func (s *stubInvoicing) CreateInvoice(ctx context.Context, inv invoicexpress.Invoice) (invoicexpress.CreatedInvoice, error) {
	return s.create(ctx, inv)
}

func (s *stubInvoicing) UpdateClient(ctx context.Context, clientID int64, update invoicexpress.ClientUpdate) error {
	return s.update(ctx, clientID, update)
}

type stubOrders struct {
	getOrder func(ctx context.Context, orderID int64) (domain.Order, error)
}

func (s *stubOrders) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	return s.getOrder(ctx, orderID)
}

type stubRates struct {
	rate func(ctx context.Context, base, target string) (decimal.Decimal, error)
}

func (s *stubRates) Rate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	return s.rate(ctx, base, target)
}

func invoiceableOrder(id int64, name string) domain.Order {
	return domain.Order{
		ID:       id,
		Name:     name,
		Customer: domain.Customer{ID: 7001},
		ShippingAddress: domain.Address{
			Name:     "Jane Doe",
			Address1: "1 High St",
			City:     "London",
			Zip:      "N1 9GU",
			Country:  "United Kingdom",
		},
		LineItems: []domain.LineItem{
			{
				ID:              11,
				Name:            "Silk Midi Dress",
				Quantity:        1,
				CurrentQuantity: 1,
				ShopUnitPrice:   decimal.RequireFromString("100.00"),
				UnitPrice:       domain.Money{Amount: decimal.RequireFromString("100.00"), Currency: "AUD"},
			},
		},
	}
}

func newInvoiceService(t *testing.T, orders *stubOrders, invoicing *stubInvoicing, rates *stubRates) *InvoiceService {
	t.Helper()
	builder := invoicexpress.NewBuilder(invoicexpress.DefaultBuilderConfig(), func() time.Time {
		return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	})
	svc := NewInvoiceService(orders, invoicing, rates, builder, "AUD", "EUR", newTestLogger(), newTestMetrics())
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return svc
}

func fixedRate(t *testing.T) *stubRates {
	t.Helper()
	return &stubRates{rate: func(ctx context.Context, base, target string) (decimal.Decimal, error) {
		assert.Equal(t, "AUD", base)
		assert.Equal(t, "EUR", target)
		return decimal.RequireFromString("0.6"), nil
	}}
}

func TestProcessOrders_BucketsByOutcome(t *testing.T) {
	orders := &stubOrders{getOrder: func(ctx context.Context, orderID int64) (domain.Order, error) {
		if orderID == 3 {
			return domain.Order{}, errors.New("order fetch failed")
		}
		return invoiceableOrder(orderID, "#5001"), nil
	}}
	invoicing := &stubInvoicing{
		create: func(ctx context.Context, inv invoicexpress.Invoice) (invoicexpress.CreatedInvoice, error) {
			created := invoicexpress.CreatedInvoice{ID: 400, Status: "draft"}
			created.Client.ID = 800
			return created, nil
		},
		update: func(ctx context.Context, clientID int64, update invoicexpress.ClientUpdate) error {
			assert.Equal(t, int64(800), clientID)
			if update.Name == "Flaky Client" {
				return errors.New("client update failed")
			}
			return nil
		},
	}
	svc := newInvoiceService(t, orders, invoicing, fixedRate(t))

	result, err := svc.ProcessOrders(context.Background(), ProcessInvoicesCommand{OrderIDs: []int64{1, 2, 3}})
	require.NoError(t, err)

	assert.Equal(t, "0.6", result.Rate)
	assert.Equal(t, []int64{1, 2}, result.Successful)
	assert.Equal(t, []int64{3}, result.FailedInvoices)
	assert.Empty(t, result.FailedClients)
}

func TestProcessOrders_ClientSyncFailureIsItsOwnBucket(t *testing.T) {
	orders := &stubOrders{getOrder: func(ctx context.Context, orderID int64) (domain.Order, error) {
		return invoiceableOrder(orderID, "#5001"), nil
	}}
	invoicing := &stubInvoicing{
		create: func(ctx context.Context, inv invoicexpress.Invoice) (invoicexpress.CreatedInvoice, error) {
			created := invoicexpress.CreatedInvoice{ID: 400}
			created.Client.ID = 800
			return created, nil
		},
		update: func(ctx context.Context, clientID int64, update invoicexpress.ClientUpdate) error {
			return errors.New("client update failed")
		},
	}
	svc := newInvoiceService(t, orders, invoicing, fixedRate(t))

	result, err := svc.ProcessOrders(context.Background(), ProcessInvoicesCommand{OrderIDs: []int64{1}})
	require.NoError(t, err)

	assert.Empty(t, result.Successful)
	assert.Empty(t, result.FailedInvoices)
	assert.Equal(t, []int64{1}, result.FailedClients)
}

func TestProcessOrders_RateFailureAbortsBatch(t *testing.T) {
	wantErr := errors.New("rates unavailable")
	rates := &stubRates{rate: func(ctx context.Context, base, target string) (decimal.Decimal, error) {
		return decimal.Zero, wantErr
	}}
	svc := newInvoiceService(t, &stubOrders{}, &stubInvoicing{}, rates)

	_, err := svc.ProcessOrders(context.Background(), ProcessInvoicesCommand{OrderIDs: []int64{1}})
	require.ErrorIs(t, err, wantErr)
}

func TestProcessOrders_PacesBetweenOrders(t *testing.T) {
	orders := &stubOrders{getOrder: func(ctx context.Context, orderID int64) (domain.Order, error) {
		return invoiceableOrder(orderID, "#5001"), nil
	}}
	invoicing := &stubInvoicing{
		create: func(ctx context.Context, inv invoicexpress.Invoice) (invoicexpress.CreatedInvoice, error) {
			created := invoicexpress.CreatedInvoice{ID: 400}
			created.Client.ID = 800
			return created, nil
		},
		update: func(ctx context.Context, clientID int64, update invoicexpress.ClientUpdate) error { return nil },
	}
	svc := newInvoiceService(t, orders, invoicing, fixedRate(t))

	var sleeps int
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		assert.Equal(t, time.Second, d)
		return nil
	}

	result, err := svc.ProcessOrders(context.Background(), ProcessInvoicesCommand{OrderIDs: []int64{1, 2, 3}})
	require.NoError(t, err)
	assert.Len(t, result.Successful, 3)
	assert.Equal(t, 2, sleeps)
}

func TestProcessOrders_CancellationStopsBatch(t *testing.T) {
	orders := &stubOrders{getOrder: func(ctx context.Context, orderID int64) (domain.Order, error) {
		return invoiceableOrder(orderID, "#5001"), nil
	}}
	invoicing := &stubInvoicing{
		create: func(ctx context.Context, inv invoicexpress.Invoice) (invoicexpress.CreatedInvoice, error) {
			created := invoicexpress.CreatedInvoice{ID: 400}
			created.Client.ID = 800
			return created, nil
		},
		update: func(ctx context.Context, clientID int64, update invoicexpress.ClientUpdate) error { return nil },
	}
	svc := newInvoiceService(t, orders, invoicing, fixedRate(t))

	ctx, cancel := context.WithCancel(context.Background())
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := svc.ProcessOrders(ctx, ProcessInvoicesCommand{OrderIDs: []int64{1, 2}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcessOrders_InvoiceCarriesConvertedPrices(t *testing.T) {
	orders := &stubOrders{getOrder: func(ctx context.Context, orderID int64) (domain.Order, error) {
		return invoiceableOrder(orderID, "#5001"), nil
	}}
	var built invoicexpress.Invoice
	invoicing := &stubInvoicing{
		create: func(ctx context.Context, inv invoicexpress.Invoice) (invoicexpress.CreatedInvoice, error) {
			built = inv
			created := invoicexpress.CreatedInvoice{ID: 400}
			created.Client.ID = 800
			return created, nil
		},
		update: func(ctx context.Context, clientID int64, update invoicexpress.ClientUpdate) error {
			assert.Equal(t, built.Client.Name, update.Name)
			assert.Equal(t, built.Client.City, update.City)
			return nil
		},
	}
	svc := newInvoiceService(t, orders, invoicing, fixedRate(t))

	_, err := svc.ProcessOrders(context.Background(), ProcessInvoicesCommand{OrderIDs: []int64{1}})
	require.NoError(t, err)

	assert.Equal(t, "5001", built.Reference)
	require.Len(t, built.Items, 1)
	// 100.00 AUD at rate 0.6 and declared-value factor 0.3
	assert.InDelta(t, 18.0, built.Items[0].UnitPrice, 0.001)
	assert.Equal(t, "UK", built.Client.Country)
}
