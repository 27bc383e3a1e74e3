package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/backoffice-platform/returns-service/internal/domain"
	"github.com/backoffice-platform/returns-service/internal/infrastructure/picklist"
	"github.com/backoffice-platform/returns-service/pkg/logging"
	"github.com/backoffice-platform/returns-service/pkg/middleware"
)

// FulfillmentGateway is the storefront slice the pick list refresh needs.
type FulfillmentGateway interface {
	ListUnfulfilledOrders(ctx context.Context) ([]domain.Order, error)
	GetFulfillmentInfo(ctx context.Context, orderID int64) (map[int64]domain.LineItemFulfillment, error)
}

// PicklistStore persists the two pick list tabs.
type PicklistStore interface {
	LoadItems() ([]picklist.ItemRow, error)
	SaveItems([]picklist.ItemRow) error
	LoadProducts() ([]picklist.ProductRow, error)
	SaveProducts([]picklist.ProductRow) error
}

// SaveAnnotationsCommand carries operator edits to both tabs.
type SaveAnnotationsCommand struct {
	Items    []picklist.ItemRow    `json:"items" binding:"dive"`
	Products []picklist.ProductRow `json:"products" binding:"dive"`
}

// PicklistService builds and persists the atelier pick lists from
// outstanding orders.
type PicklistService struct {
	gateway     FulfillmentGateway
	store       PicklistStore
	homeCountry string
	logger      *logging.Logger
	metrics     *middleware.BusinessMetrics
}

// NewPicklistService creates a PicklistService. Items assigned to a
// fulfillment location in homeCountry are excluded; they are picked
// locally, not by the atelier.
func NewPicklistService(
	gateway FulfillmentGateway,
	store PicklistStore,
	homeCountry string,
	logger *logging.Logger,
	metrics *middleware.BusinessMetrics,
) *PicklistService {
	if homeCountry == "" {
		homeCountry = "AU"
	}
	return &PicklistService{
		gateway:     gateway,
		store:       store,
		homeCountry: homeCountry,
		logger:      logger.WithComponent("picklist_service"),
		metrics:     metrics,
	}
}

// Get returns both persisted tabs.
func (s *PicklistService) Get(ctx context.Context) (*PicklistDTO, error) {
	items, err := s.store.LoadItems()
	if err != nil {
		return nil, fmt.Errorf("load picklist items: %w", err)
	}
	products, err := s.store.LoadProducts()
	if err != nil {
		return nil, fmt.Errorf("load picklist products: %w", err)
	}
	return &PicklistDTO{Items: items, Products: products}, nil
}

// SaveAnnotations overwrites both tabs with the operator's edits.
func (s *PicklistService) SaveAnnotations(ctx context.Context, cmd SaveAnnotationsCommand) error {
	if err := s.store.SaveItems(cmd.Items); err != nil {
		return fmt.Errorf("save picklist items: %w", err)
	}
	if err := s.store.SaveProducts(cmd.Products); err != nil {
		return fmt.Errorf("save picklist products: %w", err)
	}
	s.logger.Info("Picklist annotations saved", "items", len(cmd.Items), "products", len(cmd.Products))
	return nil
}

// Refresh rebuilds both tabs from the storefront. Items already covered
// by a fulfillment and items assigned to the home region are dropped.
// Check and notes annotations on surviving rows are carried over from
// the previous version of each tab.
func (s *PicklistService) Refresh(ctx context.Context) (*PicklistRefreshDTO, error) {
	orders, err := s.gateway.ListUnfulfilledOrders(ctx)
	if err != nil {
		s.metrics.RecordPicklistRefresh(false, 0)
		return nil, err
	}

	items := make([]picklist.ItemRow, 0, len(orders))
	for _, order := range orders {
		fulfilled := fulfilledLineItems(order)

		// A failed location lookup keeps the order's items in the list
		// rather than silently dropping work.
		var info map[int64]domain.LineItemFulfillment
		info, err = s.gateway.GetFulfillmentInfo(ctx, order.ID)
		if err != nil {
			s.logger.WithError(err).Warn("Location lookup degraded", "orderId", order.ID)
			info = nil
		}

		for _, li := range order.LineItems {
			if fulfilled[li.ID] {
				continue
			}
			if f, ok := info[li.ID]; ok && f.AssignedCountry == s.homeCountry {
				continue
			}
			items = append(items, picklist.ItemRow{
				Order:       order.Name,
				ProductName: li.Name,
				Quantity:    li.Quantity,
				CreatedAt:   order.CreatedAt,
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	products := aggregateProducts(items)

	if err := s.mergeAnnotations(items, products); err != nil {
		s.metrics.RecordPicklistRefresh(false, 0)
		return nil, err
	}

	if err := s.store.SaveItems(items); err != nil {
		s.metrics.RecordPicklistRefresh(false, 0)
		return nil, fmt.Errorf("save picklist items: %w", err)
	}
	if err := s.store.SaveProducts(products); err != nil {
		s.metrics.RecordPicklistRefresh(false, 0)
		return nil, fmt.Errorf("save picklist products: %w", err)
	}

	s.metrics.RecordPicklistRefresh(true, len(items))
	s.logger.Info("Picklist refreshed", "orders", len(orders), "items", len(items), "products", len(products))
	return &PicklistRefreshDTO{Orders: len(orders), Items: len(items), Products: len(products)}, nil
}

func (s *PicklistService) mergeAnnotations(items []picklist.ItemRow, products []picklist.ProductRow) error {
	oldItems, err := s.store.LoadItems()
	if err != nil {
		return fmt.Errorf("load previous picklist items: %w", err)
	}
	oldProducts, err := s.store.LoadProducts()
	if err != nil {
		return fmt.Errorf("load previous picklist products: %w", err)
	}

	type itemKey struct{ order, product string }
	itemNotes := make(map[itemKey]picklist.ItemRow, len(oldItems))
	for _, row := range oldItems {
		itemNotes[itemKey{row.Order, row.ProductName}] = row
	}
	for i := range items {
		if old, ok := itemNotes[itemKey{items[i].Order, items[i].ProductName}]; ok {
			items[i].Check = old.Check
			items[i].Notes = old.Notes
		}
	}

	productNotes := make(map[string]picklist.ProductRow, len(oldProducts))
	for _, row := range oldProducts {
		productNotes[row.ProductName] = row
	}
	for i := range products {
		if old, ok := productNotes[products[i].ProductName]; ok {
			products[i].Check = old.Check
			products[i].Notes = old.Notes
		}
	}
	return nil
}

func fulfilledLineItems(order domain.Order) map[int64]bool {
	fulfilled := make(map[int64]bool)
	for _, f := range order.Fulfillments {
		for _, id := range f.LineItemIDs {
			fulfilled[id] = true
		}
	}
	return fulfilled
}

func aggregateProducts(items []picklist.ItemRow) []picklist.ProductRow {
	index := make(map[string]int)
	products := make([]picklist.ProductRow, 0)

	for _, item := range items {
		i, ok := index[item.ProductName]
		if !ok {
			index[item.ProductName] = len(products)
			products = append(products, picklist.ProductRow{ProductName: item.ProductName})
			i = len(products) - 1
		}
		products[i].Quantity += item.Quantity
		if products[i].OrderNumbers != "" {
			products[i].OrderNumbers += ", "
		}
		products[i].OrderNumbers += item.Order
	}

	sort.SliceStable(products, func(i, j int) bool {
		return strings.ToLower(products[i].ProductName) < strings.ToLower(products[j].ProductName)
	})
	return products
}
