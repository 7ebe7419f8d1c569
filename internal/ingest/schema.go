// Package ingest loads heterogeneous order-line exports into one
// canonical line-item sequence. Export files name their columns
// inconsistently; a fixed alias table maps source headers onto the
// canonical schema at this boundary so nothing downstream ever sees a
// source column name.
package ingest

import (
	"fmt"
	"strings"

	"churncli/pkg/contracts/domain"
)

// SchemaError reports a required canonical column that no alias matched
// in an export file. It aborts ingestion.
type SchemaError struct {
	File   string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in %s: required column %q not found under any known alias", e.File, e.Column)
}

// columnAliases maps each canonical column to the source headers it may
// appear under, after header normalization. The table is fixed: exports
// with new headers get a new alias entry here, never ad-hoc handling
// downstream.
var columnAliases = map[string][]string{
	domain.ColumnCustomerID: {
		"customer_id", "email", "customer_email", "customer", "client_id", "buyer_email",
	},
	domain.ColumnOrderID: {
		"order_id", "id", "name", "order_number", "order_no", "order",
	},
	domain.ColumnOrderDate: {
		"order_date", "created_at", "processed_at", "paid_at", "date", "purchase_date",
	},
	domain.ColumnSKU: {
		"sku", "lineitem_sku", "product_sku", "variant_sku", "lineitem_name", "product",
	},
	domain.ColumnUnitPrice: {
		"unit_price", "lineitem_price", "price", "item_price",
	},
	domain.ColumnQuantity: {
		"quantity", "lineitem_quantity", "qty", "item_quantity",
	},
	domain.ColumnDiscountAmount: {
		"discount_amount", "total_discount", "discount", "lineitem_discount",
	},
	domain.ColumnAcceptsMarketing: {
		"accepts_marketing", "marketing_optin", "buyer_accepts_marketing", "marketing_consent",
	},
}

// NormalizeHeader converts a source header into the comparison form used
// by the alias table: trimmed, lowercased, with '.', ' ' and '-'
// replaced by underscores.
func NormalizeHeader(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.ReplaceAll(h, ".", "_")
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

// columnIndex maps canonical column names to positions in a header row.
type columnIndex map[string]int

// mapHeader resolves a header row against the alias table. Columns with
// no alias match are dropped. Returns a SchemaError naming the first
// required column that could not be resolved.
func mapHeader(file string, header []string) (columnIndex, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeHeader(h)
	}

	idx := make(columnIndex)
	for canonical, aliases := range columnAliases {
		for _, alias := range aliases {
			pos := -1
			for i, h := range normalized {
				if h == alias {
					pos = i
					break
				}
			}
			if pos >= 0 {
				idx[canonical] = pos
				break
			}
		}
	}

	for _, required := range domain.RequiredColumns() {
		if _, ok := idx[required]; !ok {
			return nil, &SchemaError{File: file, Column: required}
		}
	}
	return idx, nil
}

// get returns the cell for a canonical column, or "" when the column was
// not mapped or the row is short.
func (idx columnIndex) get(row []string, canonical string) string {
	pos, ok := idx[canonical]
	if !ok || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}
