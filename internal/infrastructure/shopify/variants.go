package shopify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/backoffice-platform/returns-service/internal/domain"
	apperrors "github.com/backoffice-platform/returns-service/pkg/errors"
)

type variantEnvelope struct {
	Variant struct {
		ID             int64   `json:"id"`
		Price          string  `json:"price"`
		CompareAtPrice *string `json:"compare_at_price"`
	} `json:"variant"`
}

// GetVariantPrices fetches a variant's current and compare-at prices.
// CompareAt comes back zero when the storefront has no compare-at price
// set for the variant.
func (c *Client) GetVariantPrices(ctx context.Context, variantID int64) (domain.VariantPrices, error) {
	if variantID <= 0 {
		return domain.VariantPrices{}, apperrors.ErrValidation("variant id must be positive")
	}

	u := c.url(resourceAPIVersion, fmt.Sprintf("variants/%d.json", variantID)) + "?fields=id,price,compare_at_price"
	res, err := c.getWithRetry(ctx, "get_variant", u)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return domain.VariantPrices{}, apperrors.ErrNotFoundWithID("variant", fmt.Sprintf("%d", variantID)).Wrap(domain.ErrVariantNotFound)
		}
		return domain.VariantPrices{}, err
	}

	var env variantEnvelope
	if err := decode("variant", res.body, &env); err != nil {
		return domain.VariantPrices{}, err
	}

	price, err := decimal.NewFromString(env.Variant.Price)
	if err != nil {
		return domain.VariantPrices{}, apperrors.ErrDecode("variant", err)
	}

	compareAt := decimal.Zero
	if env.Variant.CompareAtPrice != nil && *env.Variant.CompareAtPrice != "" {
		compareAt, err = decimal.NewFromString(*env.Variant.CompareAtPrice)
		if err != nil {
			return domain.VariantPrices{}, apperrors.ErrDecode("variant", err)
		}
	}

	return domain.VariantPrices{Price: price, CompareAt: compareAt}, nil
}
