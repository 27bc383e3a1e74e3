package shopify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/backoffice-platform/returns-service/internal/domain"
	apperrors "github.com/backoffice-platform/returns-service/pkg/errors"
)

// Search fields accepted by SearchOrders.
const (
	SearchFieldEmail = "email"
	SearchFieldName  = "name"
)

const pageLimit = 250

type orderEnvelope struct {
	Order wireOrder `json:"order"`
}

type ordersEnvelope struct {
	Orders []wireOrder `json:"orders"`
}

// GetOrder fetches a single order with its line items, fulfillments,
// refunds and discount codes.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	if orderID <= 0 {
		return domain.Order{}, apperrors.ErrValidation("order id must be positive").Wrap(domain.ErrInvalidOrderID)
	}

	u := c.url(ordersAPIVersion, fmt.Sprintf("orders/%d.json", orderID))
	res, err := c.getWithRetry(ctx, "get_order", u)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return domain.Order{}, apperrors.ErrNotFoundWithID("order", fmt.Sprintf("%d", orderID)).Wrap(domain.ErrOrderNotFound)
		}
		return domain.Order{}, err
	}

	var env orderEnvelope
	if err := decode("order", res.body, &env); err != nil {
		return domain.Order{}, err
	}
	return mapOrder(env.Order)
}

// SearchOrders looks up orders by customer email or by order name,
// across all order statuses. Results are compact summaries for
// presenting a picker.
func (c *Client) SearchOrders(ctx context.Context, field, query string) ([]domain.OrderSummary, error) {
	if query == "" {
		return nil, apperrors.ErrValidation("search query must not be empty")
	}

	params := url.Values{}
	params.Set("status", "any")
	params.Set("limit", fmt.Sprintf("%d", pageLimit))
	switch field {
	case SearchFieldEmail:
		params.Set("email", query)
	case SearchFieldName:
		params.Set("name", query)
	default:
		return nil, apperrors.ErrValidation("search field must be email or name").
			WithDetail("field", field)
	}

	u := c.url(ordersAPIVersion, "orders.json") + "?" + params.Encode()
	res, err := c.getWithRetry(ctx, "search_orders", u)
	if err != nil {
		return nil, err
	}

	var env ordersEnvelope
	if err := decode("orders", res.body, &env); err != nil {
		return nil, err
	}

	summaries := make([]domain.OrderSummary, 0, len(env.Orders))
	for _, wo := range env.Orders {
		summaries = append(summaries, domain.OrderSummary{
			ID:        wo.ID,
			Name:      wo.Name,
			Email:     wo.Email,
			CreatedAt: wo.CreatedAt,
		})
	}
	return summaries, nil
}

// ListUnfulfilledOrders pages through every open order that still has
// unfulfilled items, using since_id cursors until a short page signals
// the end.
func (c *Client) ListUnfulfilledOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	sinceID := int64(0)

	for {
		params := url.Values{}
		params.Set("limit", fmt.Sprintf("%d", pageLimit))
		params.Set("fulfillment_status", "unfulfilled")
		params.Set("since_id", fmt.Sprintf("%d", sinceID))

		u := c.url(ordersAPIVersion, "orders.json") + "?" + params.Encode()
		res, err := c.getWithRetry(ctx, "list_unfulfilled_orders", u)
		if err != nil {
			return nil, err
		}

		var env ordersEnvelope
		if err := decode("orders", res.body, &env); err != nil {
			return nil, err
		}

		for _, wo := range env.Orders {
			order, err := mapOrder(wo)
			if err != nil {
				return nil, err
			}
			orders = append(orders, order)
			if wo.ID > sinceID {
				sinceID = wo.ID
			}
		}

		if len(env.Orders) < pageLimit {
			return orders, nil
		}
	}
}

type fulfillmentOrdersEnvelope struct {
	FulfillmentOrders []struct {
		ID               int64  `json:"id"`
		Status           string `json:"status"`
		AssignedLocation struct {
			CountryCode string `json:"country_code"`
		} `json:"assigned_location"`
		LineItems []struct {
			ID         int64 `json:"id"`
			LineItemID int64 `json:"line_item_id"`
			Quantity   int   `json:"quantity"`
		} `json:"line_items"`
	} `json:"fulfillment_orders"`
}

// GetFulfillmentInfo fetches the order's fulfillment orders and indexes
// hold status and assigned location country by line item id. Line items
// absent from every fulfillment order are simply missing from the map.
func (c *Client) GetFulfillmentInfo(ctx context.Context, orderID int64) (map[int64]domain.LineItemFulfillment, error) {
	if orderID <= 0 {
		return nil, apperrors.ErrValidation("order id must be positive").Wrap(domain.ErrInvalidOrderID)
	}

	u := c.url(resourceAPIVersion, fmt.Sprintf("orders/%d/fulfillment_orders.json", orderID))
	res, err := c.getWithRetry(ctx, "get_fulfillment_orders", u)
	if err != nil {
		return nil, err
	}

	var env fulfillmentOrdersEnvelope
	if err := decode("fulfillment_orders", res.body, &env); err != nil {
		return nil, err
	}

	info := make(map[int64]domain.LineItemFulfillment)
	for _, fo := range env.FulfillmentOrders {
		for _, li := range fo.LineItems {
			info[li.LineItemID] = domain.LineItemFulfillment{
				Status:          domain.FulfillmentHoldStatus(fo.Status),
				AssignedCountry: fo.AssignedLocation.CountryCode,
			}
		}
	}
	return info, nil
}
