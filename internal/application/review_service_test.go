package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice-platform/returns-service/internal/domain"
	apperrors "github.com/backoffice-platform/returns-service/pkg/errors"
)

type stubStorefront struct {
	getOrder         func(ctx context.Context, orderID int64) (domain.Order, error)
	fulfillmentInfo  func(ctx context.Context, orderID int64) (map[int64]domain.LineItemFulfillment, error)
	orderCount       func(ctx context.Context, customerID int64) (int, error)
	variantPrices    func(ctx context.Context, variantID int64) (domain.VariantPrices, error)
	searchOrders     func(ctx context.Context, field, query string) ([]domain.OrderSummary, error)
}

func (s *stubStorefront) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	return s.getOrder(ctx, orderID)
}

func (s *stubStorefront) GetFulfillmentInfo(ctx context.Context, orderID int64) (map[int64]domain.LineItemFulfillment, error) {
	if s.fulfillmentInfo == nil {
		return map[int64]domain.LineItemFulfillment{}, nil
	}
	return s.fulfillmentInfo(ctx, orderID)
}

func (s *stubStorefront) GetCustomerOrderCount(ctx context.Context, customerID int64) (int, error) {
	return s.orderCount(ctx, customerID)
}

func (s *stubStorefront) GetVariantPrices(ctx context.Context, variantID int64) (domain.VariantPrices, error) {
	if s.variantPrices == nil {
		return domain.VariantPrices{}, domain.ErrVariantNotFound
	}
	return s.variantPrices(ctx, variantID)
}

func (s *stubStorefront) SearchOrders(ctx context.Context, field, query string) ([]domain.OrderSummary, error) {
	return s.searchOrders(ctx, field, query)
}

func money(amount string) domain.Money {
	return domain.Money{Amount: decimal.RequireFromString(amount), Currency: "USD"}
}

var reviewNow = time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)

func reviewableOrder() domain.Order {
	return domain.Order{
		ID:        900100,
		Name:      "#4821",
		Email:     "jane@example.com",
		CreatedAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		Customer:  domain.Customer{ID: 7001, Email: "jane@example.com"},
		BillingAddress: domain.Address{Name: "Jane Doe"},
		TotalPrice:     money("250.00"),
		LineItems: []domain.LineItem{
			{
				ID:              1001,
				VariantID:       501,
				Name:            "Silk Midi Dress",
				SKU:             "SMD-8",
				Quantity:        1,
				CurrentQuantity: 1,
				ShopUnitPrice:   decimal.RequireFromString("180.00"),
				UnitPrice:       money("120.00"),
			},
			{
				ID:              1002,
				VariantID:       502,
				Name:            "Sample Sale Blazer",
				SKU:             "SSB-10",
				Quantity:        1,
				CurrentQuantity: 1,
				ShopUnitPrice:   decimal.RequireFromString("200.00"),
				UnitPrice:       money("130.00"),
				Properties:      []domain.Property{{Name: "_policy", Value: "Final Sale"}},
			},
		},
		Fulfillments: []domain.Fulfillment{
			{
				ID:             31,
				ShipmentStatus: domain.ShipmentStatusDelivered,
				UpdatedAt:      time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
				LineItemIDs:    []int64{1001},
			},
		},
	}
}

func newReviewService(t *testing.T, gateway *stubStorefront) *ReviewService {
	t.Helper()
	svc := NewReviewService(gateway, domain.NewPolicySet(), NewComposer("Maison Nord"), newTestLogger(), newTestMetrics())
	svc.now = func() time.Time { return reviewNow }
	return svc
}

func TestReview_ClassifiesEachLineItem(t *testing.T) {
	gateway := &stubStorefront{
		getOrder: func(ctx context.Context, orderID int64) (domain.Order, error) {
			assert.Equal(t, int64(900100), orderID)
			return reviewableOrder(), nil
		},
		fulfillmentInfo: func(ctx context.Context, orderID int64) (map[int64]domain.LineItemFulfillment, error) {
			return map[int64]domain.LineItemFulfillment{
				1001: {Status: domain.HoldStatusClosed},
			}, nil
		},
		orderCount: func(ctx context.Context, customerID int64) (int, error) {
			assert.Equal(t, int64(7001), customerID)
			return 1, nil
		},
	}
	svc := newReviewService(t, gateway)

	review, err := svc.Review(context.Background(), ReviewOrderQuery{OrderID: 900100, Profile: "standard"})
	require.NoError(t, err)

	assert.Equal(t, "#4821", review.OrderName)
	assert.Equal(t, "Jane Doe", review.CustomerName)
	assert.Equal(t, "250.00 USD", review.TotalPrice)
	assert.True(t, review.FirstTimeCustomer)
	assert.Equal(t, "standard", review.Profile)
	require.Len(t, review.Items, 2)

	dress := review.Items[0]
	assert.Equal(t, domain.StatusEligible, dress.EligibilityStatus)
	assert.Equal(t, string(domain.ReturnCodeOK), dress.ReturnCode)
	assert.Equal(t, "120.00 USD", dress.ActualPaid)
	assert.Equal(t, string(domain.HoldStatusClosed), dress.FulfillmentStatus)
	require.NotNil(t, dress.DaysHeld)
	assert.Equal(t, 10, *dress.DaysHeld)
	assert.Contains(t, dress.Options, domain.OptionBonusStoreCredit)

	blazer := review.Items[1]
	assert.Equal(t, domain.StatusFinalSale, blazer.EligibilityStatus)
	assert.Equal(t, string(domain.ReturnCodeFinalSale), blazer.ReturnCode)
	assert.Equal(t, string(domain.HoldStatusUnknown), blazer.FulfillmentStatus)
	assert.Nil(t, blazer.DaysHeld)
	assert.Equal(t, []string{domain.OptionCannotReturn}, blazer.Options)
}

func TestReview_UnknownProfileRejected(t *testing.T) {
	svc := newReviewService(t, &stubStorefront{})

	_, err := svc.Review(context.Background(), ReviewOrderQuery{OrderID: 900100, Profile: "festive"})

	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestReview_MissingCustomerRejected(t *testing.T) {
	gateway := &stubStorefront{
		getOrder: func(ctx context.Context, orderID int64) (domain.Order, error) {
			order := reviewableOrder()
			order.Customer = domain.Customer{}
			return order, nil
		},
	}
	svc := newReviewService(t, gateway)

	_, err := svc.Review(context.Background(), ReviewOrderQuery{OrderID: 900100})

	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestReview_FulfillmentLookupFailureDegradesToUnknown(t *testing.T) {
	gateway := &stubStorefront{
		getOrder: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return reviewableOrder(), nil
		},
		fulfillmentInfo: func(ctx context.Context, orderID int64) (map[int64]domain.LineItemFulfillment, error) {
			return nil, errors.New("upstream down")
		},
		orderCount: func(ctx context.Context, customerID int64) (int, error) { return 3, nil },
	}
	svc := newReviewService(t, gateway)

	review, err := svc.Review(context.Background(), ReviewOrderQuery{OrderID: 900100})
	require.NoError(t, err)

	for _, item := range review.Items {
		assert.Equal(t, string(domain.HoldStatusUnknown), item.FulfillmentStatus)
	}
}

func TestReview_OrderCountFailureIsFatal(t *testing.T) {
	wantErr := errors.New("customers unavailable")
	gateway := &stubStorefront{
		getOrder: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return reviewableOrder(), nil
		},
		orderCount: func(ctx context.Context, customerID int64) (int, error) { return 0, wantErr },
	}
	svc := newReviewService(t, gateway)

	_, err := svc.Review(context.Background(), ReviewOrderQuery{OrderID: 900100})

	require.ErrorIs(t, err, wantErr)
}

func TestSearch_DelegatesToGateway(t *testing.T) {
	gateway := &stubStorefront{
		searchOrders: func(ctx context.Context, field, query string) ([]domain.OrderSummary, error) {
			assert.Equal(t, "email", field)
			assert.Equal(t, "jane@example.com", query)
			return []domain.OrderSummary{{ID: 900100, Name: "#4821"}}, nil
		},
	}
	svc := newReviewService(t, gateway)

	summaries, err := svc.Search(context.Background(), SearchOrdersQuery{Field: "email", Query: "jane@example.com"})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "#4821", summaries[0].Name)
}

func TestComposeResponse_SelectsItems(t *testing.T) {
	gateway := &stubStorefront{
		getOrder: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return reviewableOrder(), nil
		},
		orderCount: func(ctx context.Context, customerID int64) (int, error) { return 1, nil },
	}
	svc := newReviewService(t, gateway)

	resp, err := svc.ComposeResponse(context.Background(), ComposeResponseCommand{
		OrderID:     900100,
		LineItemIDs: []int64{1001},
	})
	require.NoError(t, err)

	assert.Equal(t, SegmentFirstTime, resp.Segment)
	assert.Contains(t, resp.Body, "Silk Midi Dress")
	assert.NotContains(t, resp.Body, "Sample Sale Blazer")
}

func TestComposeResponse_AcceptsConfiguredProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	content := []byte(`profiles:
  - name: festive
    discount_threshold: 50
    return_window_days: 60
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	policies, err := domain.LoadPolicySet(path)
	require.NoError(t, err)

	gateway := &stubStorefront{
		getOrder: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return reviewableOrder(), nil
		},
		orderCount: func(ctx context.Context, customerID int64) (int, error) { return 1, nil },
	}
	svc := NewReviewService(gateway, policies, NewComposer("Maison Nord"), newTestLogger(), newTestMetrics())
	svc.now = func() time.Time { return reviewNow }

	resp, err := svc.ComposeResponse(context.Background(), ComposeResponseCommand{
		OrderID:     900100,
		Profile:     "festive",
		LineItemIDs: []int64{1001},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Body, "Silk Midi Dress")
}

func TestComposeResponse_EmptySelection(t *testing.T) {
	gateway := &stubStorefront{
		getOrder: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return reviewableOrder(), nil
		},
		orderCount: func(ctx context.Context, customerID int64) (int, error) { return 1, nil },
	}
	svc := newReviewService(t, gateway)

	resp, err := svc.ComposeResponse(context.Background(), ComposeResponseCommand{OrderID: 900100})
	require.NoError(t, err)

	assert.Equal(t, SegmentEmpty, resp.Segment)
	assert.Equal(t, "No items selected for return processing.", resp.Body)
}

func TestComposeResponse_UnknownLineItemRejected(t *testing.T) {
	gateway := &stubStorefront{
		getOrder: func(ctx context.Context, orderID int64) (domain.Order, error) {
			return reviewableOrder(), nil
		},
		orderCount: func(ctx context.Context, customerID int64) (int, error) { return 1, nil },
	}
	svc := newReviewService(t, gateway)

	_, err := svc.ComposeResponse(context.Background(), ComposeResponseCommand{
		OrderID:     900100,
		LineItemIDs: []int64{1001, 9999},
	})

	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
	assert.Contains(t, appErr.Message, "line items not on the order")
}
