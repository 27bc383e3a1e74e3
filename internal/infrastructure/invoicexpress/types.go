package invoicexpress

// Invoice is the create-invoice request body.
type Invoice struct {
	Date                 string        `json:"date"`
	DueDate              string        `json:"due_date"`
	Reference            string        `json:"reference"`
	Observations         string        `json:"observations"`
	TaxExemptionReason   string        `json:"tax_exemption_reason"`
	Retention            *string       `json:"retention"`
	TaxExemption         string        `json:"tax_exemption"`
	SequenceID           string        `json:"sequence_id"`
	ManualSequenceNumber *string       `json:"manual_sequence_number"`
	Client               InvoiceClient `json:"client"`
	Items                []InvoiceItem `json:"items"`
}

// InvoiceClient is the billing recipient as submitted with the invoice.
type InvoiceClient struct {
	Name       string  `json:"name"`
	Code       string  `json:"code"`
	Email      *string `json:"email"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	FiscalID   *string `json:"fiscal_id"`
	Website    *string `json:"website"`
	Phone      *string `json:"phone"`
	Fax        *string `json:"fax"`
	Language   *string `json:"language"`
}

// InvoiceItem is one invoice line. Discount fields stay nil when the
// order line carried no discount allocations.
type InvoiceItem struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	UnitPrice      float64  `json:"unit_price"`
	Quantity       int      `json:"quantity"`
	Unit           *string  `json:"unit"`
	Discount       *float64 `json:"discount"`
	DiscountAmount *float64 `json:"discount_amount"`
}

type invoiceEnvelope struct {
	Invoice Invoice `json:"invoice"`
}

// CreatedInvoice is the create-invoice response, carrying the ids the
// account assigned.
type CreatedInvoice struct {
	ID              int64  `json:"id"`
	SequenceNumber  string `json:"sequence_number"`
	InvoiceSequence string `json:"inverted_sequence_number"`
	Status          string `json:"status"`
	Client          struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		Code       string `json:"code"`
		Address    string `json:"address"`
		City       string `json:"city"`
		PostalCode string `json:"postal_code"`
	} `json:"client"`
}

type createdEnvelope struct {
	Invoice CreatedInvoice `json:"invoice"`
}

// ClientUpdate is the subset of client fields synced back after an
// invoice is created.
type ClientUpdate struct {
	Name       string `json:"name"`
	Code       string `json:"code"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type clientUpdateEnvelope struct {
	Client ClientUpdate `json:"client"`
}
