package features

import (
	"sort"

	"churncli/pkg/contracts/domain"
)

// ProductTotal is one row of the top-products report.
type ProductTotal struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

// TopProducts returns the top n SKUs by total quantity sold. Ties break
// on SKU so the report is stable across runs. Line items without a SKU
// are excluded.
func TopProducts(items []domain.LineItem, n int) []ProductTotal {
	totals := make(map[string]int64)
	for _, li := range items {
		if li.SKU == "" {
			continue
		}
		totals[li.SKU] += li.Quantity
	}

	products := make([]ProductTotal, 0, len(totals))
	for sku, qty := range totals {
		products = append(products, ProductTotal{SKU: sku, Quantity: qty})
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Quantity != products[j].Quantity {
			return products[i].Quantity > products[j].Quantity
		}
		return products[i].SKU < products[j].SKU
	})

	if n > 0 && len(products) > n {
		products = products[:n]
	}
	return products
}
