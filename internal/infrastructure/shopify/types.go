package shopify

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/backoffice-platform/returns-service/internal/domain"
	apperrors "github.com/backoffice-platform/returns-service/pkg/errors"
)

// Admin REST API wire types. Pointers mark fields whose absence is a
// payload defect rather than an empty value.

type wireMoney struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

type wireMoneySet struct {
	ShopMoney        *wireMoney `json:"shop_money"`
	PresentmentMoney *wireMoney `json:"presentment_money"`
}

type wireProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type wireAllocation struct {
	Amount                   string        `json:"amount"`
	AmountSet                *wireMoneySet `json:"amount_set"`
	DiscountApplicationIndex int           `json:"discount_application_index"`
}

type wireLineItem struct {
	ID                  int64            `json:"id"`
	ProductID           int64            `json:"product_id"`
	VariantID           int64            `json:"variant_id"`
	Name                string           `json:"name"`
	Title               string           `json:"title"`
	SKU                 string           `json:"sku"`
	Quantity            int              `json:"quantity"`
	CurrentQuantity     int              `json:"current_quantity"`
	FulfillableQuantity int              `json:"fulfillable_quantity"`
	FulfillmentStatus   string           `json:"fulfillment_status"`
	Price               string           `json:"price"`
	PriceSet            *wireMoneySet    `json:"price_set"`
	DiscountAllocations []wireAllocation `json:"discount_allocations"`
	Properties          []wireProperty   `json:"properties"`
}

type wireFulfillment struct {
	ID             int64     `json:"id"`
	ShipmentStatus string    `json:"shipment_status"`
	UpdatedAt      time.Time `json:"updated_at"`
	LineItems      []struct {
		ID int64 `json:"id"`
	} `json:"line_items"`
}

type wireRefund struct {
	ID              int64 `json:"id"`
	RefundLineItems []struct {
		LineItemID int64 `json:"line_item_id"`
	} `json:"refund_line_items"`
}

type wireDiscountCode struct {
	Code string `json:"code"`
}

type wireAddress struct {
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	Zip         string `json:"zip"`
	Province    string `json:"province"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
}

type wireCustomer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type wireOrder struct {
	ID              int64              `json:"id"`
	Name            string             `json:"name"`
	Email           string             `json:"email"`
	CreatedAt       time.Time          `json:"created_at"`
	Tags            string             `json:"tags"`
	Customer        *wireCustomer      `json:"customer"`
	BillingAddress  *wireAddress       `json:"billing_address"`
	ShippingAddress *wireAddress       `json:"shipping_address"`
	TotalPriceSet   *wireMoneySet      `json:"total_price_set"`
	DiscountCodes   []wireDiscountCode `json:"discount_codes"`
	LineItems       []wireLineItem     `json:"line_items"`
	Fulfillments    []wireFulfillment  `json:"fulfillments"`
	Refunds         []wireRefund       `json:"refunds"`
}

// mapOrder validates presence of the fields the review pipeline depends
// on and converts the wire order to the domain model.
func mapOrder(wo wireOrder) (domain.Order, error) {
	if wo.ID == 0 {
		return domain.Order{}, apperrors.ErrMissingField("order", "id")
	}
	if wo.Customer == nil {
		return domain.Order{}, apperrors.ErrMissingField("order", "customer")
	}
	if wo.TotalPriceSet == nil || wo.TotalPriceSet.PresentmentMoney == nil {
		return domain.Order{}, apperrors.ErrMissingField("order", "total_price_set.presentment_money")
	}

	total, err := domain.NewMoney(wo.TotalPriceSet.PresentmentMoney.Amount, wo.TotalPriceSet.PresentmentMoney.CurrencyCode)
	if err != nil {
		return domain.Order{}, apperrors.ErrDecode("order", err)
	}

	order := domain.Order{
		ID:        wo.ID,
		Name:      wo.Name,
		Email:     wo.Email,
		CreatedAt: wo.CreatedAt,
		Tags:      wo.Tags,
		Customer: domain.Customer{
			ID:        wo.Customer.ID,
			Email:     wo.Customer.Email,
			FirstName: wo.Customer.FirstName,
			LastName:  wo.Customer.LastName,
		},
		TotalPrice: total,
	}

	if wo.BillingAddress != nil {
		order.BillingAddress = mapAddress(*wo.BillingAddress)
	}
	if wo.ShippingAddress != nil {
		order.ShippingAddress = mapAddress(*wo.ShippingAddress)
	}

	for _, dc := range wo.DiscountCodes {
		order.DiscountCodes = append(order.DiscountCodes, dc.Code)
	}

	order.LineItems = make([]domain.LineItem, 0, len(wo.LineItems))
	for _, wli := range wo.LineItems {
		li, err := mapLineItem(wli)
		if err != nil {
			return domain.Order{}, err
		}
		order.LineItems = append(order.LineItems, li)
	}

	for _, wf := range wo.Fulfillments {
		f := domain.Fulfillment{
			ID:             wf.ID,
			ShipmentStatus: domain.ShipmentStatus(wf.ShipmentStatus),
			UpdatedAt:      wf.UpdatedAt,
		}
		for _, fli := range wf.LineItems {
			f.LineItemIDs = append(f.LineItemIDs, fli.ID)
		}
		order.Fulfillments = append(order.Fulfillments, f)
	}

	for _, wr := range wo.Refunds {
		r := domain.Refund{ID: wr.ID}
		for _, rli := range wr.RefundLineItems {
			r.LineItemIDs = append(r.LineItemIDs, rli.LineItemID)
		}
		order.Refunds = append(order.Refunds, r)
	}

	return order, nil
}

func mapLineItem(wli wireLineItem) (domain.LineItem, error) {
	if wli.ID == 0 {
		return domain.LineItem{}, apperrors.ErrMissingField("line_item", "id")
	}
	if wli.PriceSet == nil || wli.PriceSet.PresentmentMoney == nil {
		return domain.LineItem{}, apperrors.ErrMissingField("line_item", "price_set.presentment_money")
	}

	unit, err := domain.NewMoney(wli.PriceSet.PresentmentMoney.Amount, wli.PriceSet.PresentmentMoney.CurrencyCode)
	if err != nil {
		return domain.LineItem{}, apperrors.ErrDecode("line_item", err)
	}

	shopUnit := decimal.Zero
	if wli.Price != "" {
		shopUnit, err = decimal.NewFromString(wli.Price)
		if err != nil {
			return domain.LineItem{}, apperrors.ErrDecode("line_item", err)
		}
	}

	li := domain.LineItem{
		ID:                  wli.ID,
		ProductID:           wli.ProductID,
		VariantID:           wli.VariantID,
		Name:                wli.Name,
		Title:               wli.Title,
		SKU:                 wli.SKU,
		Quantity:            wli.Quantity,
		CurrentQuantity:     wli.CurrentQuantity,
		FulfillableQuantity: wli.FulfillableQuantity,
		FulfillmentStatus:   wli.FulfillmentStatus,
		ShopUnitPrice:       shopUnit,
		UnitPrice:           unit,
	}

	for _, wa := range wli.DiscountAllocations {
		if wa.AmountSet == nil || wa.AmountSet.PresentmentMoney == nil {
			return domain.LineItem{}, apperrors.ErrMissingField("discount_allocation", "amount_set.presentment_money")
		}
		presentment, err := domain.NewMoney(wa.AmountSet.PresentmentMoney.Amount, wa.AmountSet.PresentmentMoney.CurrencyCode)
		if err != nil {
			return domain.LineItem{}, apperrors.ErrDecode("discount_allocation", err)
		}
		shopAmount := decimal.Zero
		if wa.Amount != "" {
			shopAmount, err = decimal.NewFromString(wa.Amount)
			if err != nil {
				return domain.LineItem{}, apperrors.ErrDecode("discount_allocation", err)
			}
		}
		li.Allocations = append(li.Allocations, domain.DiscountAllocation{
			ShopAmount:       shopAmount,
			Amount:           presentment,
			ApplicationIndex: wa.DiscountApplicationIndex,
		})
	}

	for _, wp := range wli.Properties {
		li.Properties = append(li.Properties, domain.Property{Name: wp.Name, Value: wp.Value})
	}

	return li, nil
}

func mapAddress(wa wireAddress) domain.Address {
	return domain.Address{
		Name:        wa.Name,
		Address1:    wa.Address1,
		Address2:    wa.Address2,
		City:        wa.City,
		Zip:         wa.Zip,
		Province:    wa.Province,
		Country:     wa.Country,
		CountryCode: wa.CountryCode,
		Phone:       wa.Phone,
	}
}
