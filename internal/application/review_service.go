package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backoffice-platform/returns-service/internal/domain"
	apperrors "github.com/backoffice-platform/returns-service/pkg/errors"
	"github.com/backoffice-platform/returns-service/pkg/logging"
	"github.com/backoffice-platform/returns-service/pkg/middleware"
)

// StorefrontGateway is the slice of the storefront API the review flow
// consumes.
type StorefrontGateway interface {
	GetOrder(ctx context.Context, orderID int64) (domain.Order, error)
	GetFulfillmentInfo(ctx context.Context, orderID int64) (map[int64]domain.LineItemFulfillment, error)
	GetCustomerOrderCount(ctx context.Context, customerID int64) (int, error)
	GetVariantPrices(ctx context.Context, variantID int64) (domain.VariantPrices, error)
	SearchOrders(ctx context.Context, field, query string) ([]domain.OrderSummary, error)
}

// ReviewOrderQuery selects the order and policy profile to review under.
type ReviewOrderQuery struct {
	OrderID int64
	Profile string
}

// SearchOrdersQuery looks up candidate orders for the review picker.
type SearchOrdersQuery struct {
	Field string `json:"field" binding:"required,oneof=email name"`
	Query string `json:"query" binding:"required,safe_string,max=256"`
}

// ComposeResponseCommand picks the items a reply should cover. An empty
// selection is legal and yields the nothing-selected message.
type ComposeResponseCommand struct {
	OrderID int64 `json:"orderId" binding:"required,shopify_id"`
	// Profile is checked against the loaded policy set, not at binding
	// time, so profiles added through configuration are accepted.
	Profile     string  `json:"profile"`
	LineItemIDs []int64 `json:"lineItemIds" binding:"dive,shopify_id"`
}

// ReviewService runs the returns-eligibility review: fetch, normalize,
// classify, and compose replies.
type ReviewService struct {
	gateway  StorefrontGateway
	policies *domain.PolicySet
	composer *Composer
	logger   *logging.Logger
	metrics  *middleware.BusinessMetrics
	now      func() time.Time
}

// NewReviewService creates a ReviewService.
func NewReviewService(
	gateway StorefrontGateway,
	policies *domain.PolicySet,
	composer *Composer,
	logger *logging.Logger,
	metrics *middleware.BusinessMetrics,
) *ReviewService {
	return &ReviewService{
		gateway:  gateway,
		policies: policies,
		composer: composer,
		logger:   logger.WithComponent("review_service"),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Profiles lists the available policy profile names.
func (s *ReviewService) Profiles() []string {
	return s.policies.Names()
}

// Search finds orders by customer email or order name.
func (s *ReviewService) Search(ctx context.Context, query SearchOrdersQuery) ([]domain.OrderSummary, error) {
	summaries, err := s.gateway.SearchOrders(ctx, query.Field, query.Query)
	if err != nil {
		s.logger.WithError(err).Error("Order search failed", "field", query.Field)
		return nil, err
	}
	return summaries, nil
}

// Review fetches everything the eligibility decision needs and
// classifies every reviewable line item under the chosen profile.
func (s *ReviewService) Review(ctx context.Context, query ReviewOrderQuery) (*OrderReviewDTO, error) {
	profile, err := s.policies.Get(query.Profile)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}

	order, err := s.gateway.GetOrder(ctx, query.OrderID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch order", "orderId", query.OrderID)
		return nil, err
	}
	if order.Customer.ID == 0 {
		return nil, apperrors.ErrValidation(domain.ErrMissingCustomer.Error())
	}

	// A failed status lookup degrades every row to Unknown instead of
	// blocking the review.
	statuses := map[int64]domain.FulfillmentHoldStatus{}
	info, err := s.gateway.GetFulfillmentInfo(ctx, query.OrderID)
	if err != nil {
		s.logger.WithError(err).Warn("Fulfillment status lookup degraded", "orderId", query.OrderID)
	} else {
		for id, f := range info {
			statuses[id] = f.Status
		}
	}

	orderCount, err := s.gateway.GetCustomerOrderCount(ctx, order.Customer.ID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch customer order count", "customerId", order.Customer.ID)
		return nil, err
	}

	normalizer := domain.NewNormalizer(s.gateway, s.now)
	rows, err := normalizer.NormalizeOrder(ctx, order, statuses)
	if err != nil {
		if errors.Is(err, domain.ErrNoLineItems) {
			return nil, apperrors.ErrValidation(err.Error())
		}
		return nil, fmt.Errorf("normalize order %d: %w", query.OrderID, err)
	}

	review := &OrderReviewDTO{
		OrderID:           order.ID,
		OrderName:         order.Name,
		CustomerName:      order.BillingAddress.Name,
		Email:             order.Email,
		CreatedAt:         order.CreatedAt,
		Tags:              order.Tags,
		TotalPrice:        order.TotalPrice.String(),
		DiscountCode:      order.FirstDiscountCode(),
		OrderCount:        orderCount,
		FirstTimeCustomer: orderCount == 1,
		Profile:           profile.Name,
		Items:             make([]ReviewedItemDTO, 0, len(rows)),
	}

	for _, row := range rows {
		decision := profile.Classify(domain.ClassificationInput{
			FinalSale:       row.FinalSale,
			DaysHeld:        row.DaysHeld,
			DiscountPct:     row.DiscountPercentage,
			HasDiscountCode: order.HasDiscountCode(),
			OrderCount:      orderCount,
			WasReturned:     row.WasReturned,
		})
		review.Items = append(review.Items, toReviewedItemDTO(row, decision))
		s.metrics.RecordItemClassified(profile.Name, decision.Status)
	}

	s.metrics.RecordOrderReviewed(profile.Name)
	s.logger.Info("Order reviewed",
		"orderId", order.ID,
		"profile", profile.Name,
		"items", len(review.Items),
		"orderCount", orderCount,
	)
	return review, nil
}

// ComposeResponse reviews the order and generates the customer reply
// covering the selected line items.
func (s *ReviewService) ComposeResponse(ctx context.Context, cmd ComposeResponseCommand) (*ComposedResponseDTO, error) {
	review, err := s.Review(ctx, ReviewOrderQuery{OrderID: cmd.OrderID, Profile: cmd.Profile})
	if err != nil {
		return nil, err
	}

	profile, err := s.policies.Get(cmd.Profile)
	if err != nil {
		return nil, apperrors.ErrValidation(err.Error())
	}

	selected := make(map[int64]bool, len(cmd.LineItemIDs))
	for _, id := range cmd.LineItemIDs {
		selected[id] = true
	}

	items := make([]ComposeItem, 0, len(cmd.LineItemIDs))
	for _, item := range review.Items {
		if !selected[item.LineItemID] {
			continue
		}
		items = append(items, ComposeItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Status:   item.EligibilityStatus,
		})
		delete(selected, item.LineItemID)
	}
	if len(selected) > 0 {
		return nil, apperrors.ErrValidation("selection references line items not on the order")
	}

	body, segment := s.composer.Compose(ComposeInput{
		CustomerName: review.CustomerName,
		OrderCount:   review.OrderCount,
		DiscountCode: review.DiscountCode,
		Profile:      profile,
		Items:        items,
	})

	s.metrics.RecordResponseComposed(segment)
	return &ComposedResponseDTO{Segment: segment, Body: body}, nil
}

func toReviewedItemDTO(row domain.NormalizedLineItem, decision domain.Classification) ReviewedItemDTO {
	return ReviewedItemDTO{
		LineItemID:         row.LineItemID,
		Name:               row.Name,
		SKU:                row.SKU,
		Quantity:           row.Quantity,
		PaidPrice:          row.PaidPrice.StringFixed(2),
		ActualPaid:         row.ActualPaid,
		LineNet:            row.LineNet,
		DiscountAmount:     row.DiscountAmount.StringFixed(2),
		DiscountPercentage: row.DiscountPercentage.StringFixed(2),
		DiscountSources:    row.DiscountSources,
		FulfillmentStatus:  string(row.Status),
		EligibilityStatus:  decision.Status,
		Label:              decision.Label,
		ReturnCode:         string(decision.Code),
		Options:            decision.Options,
		WasReturned:        row.WasReturned,
		FinalSale:          row.FinalSale,
		DaysHeld:           row.DaysHeld,
	}
}
