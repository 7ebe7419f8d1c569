package domain

import (
	"time"
)

// LineItem represents one product row of a transaction export.
// Line items are immutable once ingested; invalid rows are dropped
// during cleaning, never repaired.
type LineItem struct {
	CustomerID       string    `json:"customer_id" validate:"required"`
	OrderID          string    `json:"order_id" validate:"required"`
	OrderDate        time.Time `json:"order_date"`
	SKU              string    `json:"sku,omitempty"`
	UnitPrice        float64   `json:"unit_price" validate:"min=0"`
	Quantity         int64     `json:"quantity" validate:"min=1"`
	DiscountAmount   float64   `json:"discount_amount"`
	AcceptsMarketing bool      `json:"accepts_marketing"`

	// SourceFile records which export the row came from, for diagnostics.
	SourceFile string `json:"source_file,omitempty"`
}

// RawLineItem is a line item as read from an export file, before date
// parsing and validation. Numeric fields keep their source formatting
// (currency symbols, thousands separators) until cleaning.
type RawLineItem struct {
	CustomerID       string `json:"customer_id"`
	OrderID          string `json:"order_id"`
	OrderDate        string `json:"order_date"`
	SKU              string `json:"sku,omitempty"`
	UnitPrice        string `json:"unit_price"`
	Quantity         string `json:"quantity"`
	DiscountAmount   string `json:"discount_amount"`
	AcceptsMarketing string `json:"accepts_marketing"`
	SourceFile       string `json:"source_file,omitempty"`
}

// LineTotal returns the extended value of the line: price x quantity - discount.
func (li LineItem) LineTotal() float64 {
	return li.UnitPrice*float64(li.Quantity) - li.DiscountAmount
}

// Canonical column names of the line-item schema. Export headers are
// mapped onto these at the ingestion boundary.
const (
	ColumnCustomerID       = "customer_id"
	ColumnOrderID          = "order_id"
	ColumnOrderDate        = "order_date"
	ColumnSKU              = "sku"
	ColumnUnitPrice        = "unit_price"
	ColumnQuantity         = "quantity"
	ColumnDiscountAmount   = "discount_amount"
	ColumnAcceptsMarketing = "accepts_marketing"
)

// RequiredColumns are the canonical columns that must be present in every
// export file. A file missing any of these fails ingestion.
func RequiredColumns() []string {
	return []string{
		ColumnCustomerID,
		ColumnOrderID,
		ColumnOrderDate,
		ColumnUnitPrice,
		ColumnQuantity,
	}
}
