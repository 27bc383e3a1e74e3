package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/backoffice-platform/returns-service/internal/domain"
	apperrors "github.com/backoffice-platform/returns-service/pkg/errors"
)

type productsEnvelope struct {
	Products []struct {
		ID       int64  `json:"id"`
		Title    string `json:"title"`
		Handle   string `json:"handle"`
		Variants []struct {
			ID             int64   `json:"id"`
			SKU            string  `json:"sku"`
			Title          string  `json:"title"`
			Price          string  `json:"price"`
			CompareAtPrice *string `json:"compare_at_price"`
		} `json:"variants"`
	} `json:"products"`
}

// ListProducts pages through the full product catalog following the
// cursor in the Link response header until no next page remains.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	u := c.url(resourceAPIVersion, "products.json") + fmt.Sprintf("?limit=%d", pageLimit)

	for u != "" {
		res, err := c.getWithRetry(ctx, "list_products", u)
		if err != nil {
			return nil, err
		}

		var env productsEnvelope
		if err := decode("products", res.body, &env); err != nil {
			return nil, err
		}

		for _, wp := range env.Products {
			p := domain.Product{ID: wp.ID, Title: wp.Title, Handle: wp.Handle}
			for _, wv := range wp.Variants {
				price, err := decimal.NewFromString(wv.Price)
				if err != nil {
					return nil, apperrors.ErrDecode("products", err)
				}
				compareAt := decimal.Zero
				if wv.CompareAtPrice != nil && *wv.CompareAtPrice != "" {
					compareAt, err = decimal.NewFromString(*wv.CompareAtPrice)
					if err != nil {
						return nil, apperrors.ErrDecode("products", err)
					}
				}
				p.Variants = append(p.Variants, domain.ProductVariant{
					ID:             wv.ID,
					SKU:            wv.SKU,
					Title:          wv.Title,
					Price:          price,
					CompareAtPrice: compareAt,
				})
			}
			products = append(products, p)
		}

		u = nextPageURL(res.header)
	}
	return products, nil
}

// nextPageURL extracts the rel="next" cursor URL from a Link header,
// or returns "" when the final page has been reached.
func nextPageURL(header http.Header) string {
	link := header.Get("Link")
	if link == "" {
		return ""
	}
	for _, part := range strings.Split(link, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if strings.TrimSpace(section[1]) != `rel="next"` {
			continue
		}
		u := strings.TrimSpace(section[0])
		u = strings.TrimPrefix(u, "<")
		u = strings.TrimSuffix(u, ">")
		return u
	}
	return ""
}
