package application

import (
	"context"
	"fmt"
	"math"

	"github.com/backoffice-platform/returns-service/internal/domain"
	"github.com/backoffice-platform/returns-service/pkg/logging"
)

// CatalogGateway is the storefront slice the catalog surface needs.
type CatalogGateway interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// CatalogService lists the catalog and highlights the variants that are
// currently discounted against their compare-at price.
type CatalogService struct {
	gateway     CatalogGateway
	storeDomain string
	logger      *logging.Logger
}

// NewCatalogService creates a CatalogService. storeDomain is the public
// storefront host used to build product links.
func NewCatalogService(gateway CatalogGateway, storeDomain string, logger *logging.Logger) *CatalogService {
	return &CatalogService{
		gateway:     gateway,
		storeDomain: storeDomain,
		logger:      logger.WithComponent("catalog_service"),
	}
}

// List returns the full catalog plus the on-sale subset.
func (s *CatalogService) List(ctx context.Context) (*CatalogDTO, error) {
	products, err := s.gateway.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	sale := make([]SaleItemDTO, 0)
	for _, p := range products {
		for _, v := range p.Variants {
			if v.CompareAtPrice.IsZero() || !v.CompareAtPrice.GreaterThan(v.Price) {
				continue
			}
			fraction, _ := v.Price.Div(v.CompareAtPrice).Float64()
			sale = append(sale, SaleItemDTO{
				ProductID:      p.ID,
				VariantID:      v.ID,
				ProductTitle:   p.Title,
				VariantTitle:   v.Title,
				SKU:            v.SKU,
				Price:          v.Price.StringFixed(2),
				CompareAtPrice: v.CompareAtPrice.StringFixed(2),
				Percentage:     int(math.Round((1 - fraction) * 100)),
				ProductURL:     fmt.Sprintf("https://%s/products/%s", s.storeDomain, p.Handle),
			})
		}
	}

	s.logger.Info("Catalog listed", "products", len(products), "saleItems", len(sale))
	return &CatalogDTO{Products: products, SaleItems: sale}, nil
}
