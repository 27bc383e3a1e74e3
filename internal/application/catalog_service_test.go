package application

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice-platform/returns-service/internal/domain"
)

type stubCatalog struct {
	products func(ctx context.Context) ([]domain.Product, error)
}

func (s *stubCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products(ctx)
}

func TestCatalogList_FlagsDiscountedVariants(t *testing.T) {
	gateway := &stubCatalog{products: func(ctx context.Context) ([]domain.Product, error) {
		return []domain.Product{
			{
				ID:     1,
				Title:  "Silk Midi Dress",
				Handle: "silk-midi-dress",
				Variants: []domain.ProductVariant{
					{
						ID:             501,
						SKU:            "SMD-8",
						Title:          "Size 8",
						Price:          decimal.RequireFromString("120.00"),
						CompareAtPrice: decimal.RequireFromString("180.00"),
					},
					{
						ID:    502,
						SKU:   "SMD-10",
						Title: "Size 10",
						Price: decimal.RequireFromString("180.00"),
					},
				},
			},
			{
				ID:     2,
				Title:  "Wool Coat",
				Handle: "wool-coat",
				Variants: []domain.ProductVariant{
					{
						ID:             601,
						SKU:            "WC-8",
						Title:          "Size 8",
						Price:          decimal.RequireFromString("300.00"),
						CompareAtPrice: decimal.RequireFromString("300.00"),
					},
				},
			},
		}, nil
	}}
	svc := NewCatalogService(gateway, "maison-nord.com", newTestLogger())

	catalog, err := svc.List(context.Background())
	require.NoError(t, err)

	assert.Len(t, catalog.Products, 2)
	require.Len(t, catalog.SaleItems, 1)

	sale := catalog.SaleItems[0]
	assert.Equal(t, int64(501), sale.VariantID)
	assert.Equal(t, "120.00", sale.Price)
	assert.Equal(t, "180.00", sale.CompareAtPrice)
	assert.Equal(t, 33, sale.Percentage)
	assert.Equal(t, "https://maison-nord.com/products/silk-midi-dress", sale.ProductURL)
}

func TestCatalogList_PropagatesGatewayError(t *testing.T) {
	wantErr := errors.New("catalog unavailable")
	gateway := &stubCatalog{products: func(ctx context.Context) ([]domain.Product, error) {
		return nil, wantErr
	}}
	svc := NewCatalogService(gateway, "maison-nord.com", newTestLogger())

	_, err := svc.List(context.Background())
	require.ErrorIs(t, err, wantErr)
}
