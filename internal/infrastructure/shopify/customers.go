package shopify

import (
	"context"
	"fmt"

	"github.com/backoffice-platform/returns-service/internal/domain"
	apperrors "github.com/backoffice-platform/returns-service/pkg/errors"
)

type customerEnvelope struct {
	Customer struct {
		ID          int64 `json:"id"`
		OrdersCount int   `json:"orders_count"`
	} `json:"customer"`
}

// GetCustomerOrderCount returns the customer's lifetime order count,
// which drives the first-time versus returning split.
func (c *Client) GetCustomerOrderCount(ctx context.Context, customerID int64) (int, error) {
	if customerID <= 0 {
		return 0, apperrors.ErrValidation("customer id must be positive")
	}

	u := c.url(resourceAPIVersion, fmt.Sprintf("customers/%d.json", customerID)) + "?fields=id,orders_count"
	res, err := c.getWithRetry(ctx, "get_customer", u)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return 0, apperrors.ErrNotFoundWithID("customer", fmt.Sprintf("%d", customerID)).Wrap(domain.ErrCustomerNotFound)
		}
		return 0, err
	}

	var env customerEnvelope
	if err := decode("customer", res.body, &env); err != nil {
		return 0, err
	}
	return env.Customer.OrdersCount, nil
}
