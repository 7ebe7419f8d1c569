// Package features derives per-customer aggregate features from cleaned
// line items. Feature rows are recomputed in full on every run from the
// current line-item snapshot; there is no incremental update path.
package features

import (
	"log/slog"
	"sort"
	"time"

	"churncli/pkg/contracts/domain"
)

// Config holds the aggregation parameters. The cutoff date and
// inactivity threshold come from configuration, not data.
type Config struct {
	// CutoffDate is the analysis cutoff. The zero time means "use the
	// latest order date observed across the input".
	CutoffDate time.Time
	// InactivityThresholdDays is the churn threshold: a customer whose
	// last order precedes the cutoff by strictly more than this many
	// days is labeled churned.
	InactivityThresholdDays int
}

// order is one customer order: the line items sharing an order ID.
type order struct {
	id       string
	date     time.Time
	total    float64
	items    int64
	discount float64
	optin    bool
}

// Aggregator computes customer feature vectors.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an aggregator. A nil logger falls back to
// slog.Default.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger.With(slog.String("component", "features"))}
}

// Aggregate produces one CustomerFeatures row per distinct customer in
// the input, sorted by customer ID. Output is deterministic: the same
// input always yields the same rows in the same order.
func (a *Aggregator) Aggregate(items []domain.LineItem, cfg Config) []domain.CustomerFeatures {
	byCustomer := groupOrders(items)

	cutoff := cfg.CutoffDate
	if cutoff.IsZero() {
		cutoff = latestOrderDate(items)
	}

	customers := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		customers = append(customers, id)
	}
	sort.Strings(customers)

	rows := make([]domain.CustomerFeatures, 0, len(customers))
	for _, id := range customers {
		orders := byCustomer[id]
		if len(orders) == 0 {
			continue
		}
		rows = append(rows, a.customerRow(id, orders, cutoff, cfg.InactivityThresholdDays))
	}

	a.logger.Info("aggregation complete",
		slog.Int("line_items", len(items)),
		slog.Int("customers", len(rows)),
		slog.Time("cutoff", cutoff),
		slog.Int("inactivity_threshold_days", cfg.InactivityThresholdDays))

	return rows
}

func (a *Aggregator) customerRow(customerID string, orders []order, cutoff time.Time, thresholdDays int) domain.CustomerFeatures {
	// Orders sorted by date ascending; order ID breaks ties so the
	// last-order-wins opt-in policy is deterministic.
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].date.Equal(orders[j].date) {
			return orders[i].date.Before(orders[j].date)
		}
		return orders[i].id < orders[j].id
	})

	var totalSpend, totalItems, discountSum float64
	var nDiscounts int
	for _, o := range orders {
		totalSpend += o.total
		totalItems += float64(o.items)
		if o.discount > 0 {
			nDiscounts++
			discountSum += o.discount
		}
	}

	frequency := len(orders)
	avgSpend := totalSpend / float64(frequency)
	avgItems := totalItems / float64(frequency)

	avgDiscount := 0.0
	if nDiscounts > 0 {
		avgDiscount = discountSum / float64(nDiscounts)
	}

	// Mean of consecutive order-date gaps; zero is the sentinel for
	// customers with fewer than two orders.
	avgGap := 0.0
	if frequency >= 2 {
		var gapSum float64
		for i := 1; i < frequency; i++ {
			gapSum += orders[i].date.Sub(orders[i-1].date).Hours() / 24
		}
		avgGap = gapSum / float64(frequency-1)
	}

	first := orders[0].date
	last := orders[frequency-1].date
	recency := cutoff.Sub(last).Hours() / 24

	return domain.CustomerFeatures{
		CustomerID:    customerID,
		FirstPurchase: first,
		LastPurchase:  last,
		AvgSpend:      avgSpend,
		TotalSpend:    totalSpend,
		AvgItems:      avgItems,
		// Conflicting opt-in flags across orders resolve to the most
		// recent order's value.
		MarketingOptin: orders[frequency-1].optin,
		NDiscounts:     nDiscounts,
		AvgDiscount:    avgDiscount,
		Frequency:      frequency,
		AvgGapDays:     avgGap,
		RecencyDays:    int(recency),
		Churn:          recency > float64(thresholdDays),
	}
}

// groupOrders groups line items by customer and, within each customer,
// rolls line items up into per-order totals.
func groupOrders(items []domain.LineItem) map[string][]order {
	type orderKey struct {
		customer string
		order    string
	}

	acc := make(map[orderKey]*order)
	var keys []orderKey
	for _, li := range items {
		key := orderKey{customer: li.CustomerID, order: li.OrderID}
		o, ok := acc[key]
		if !ok {
			o = &order{id: li.OrderID, date: li.OrderDate}
			acc[key] = o
			keys = append(keys, key)
		}
		o.total += li.LineTotal()
		o.items += li.Quantity
		o.discount += li.DiscountAmount
		o.optin = o.optin || li.AcceptsMarketing
		// An order's date is the earliest date any of its lines carries.
		if li.OrderDate.Before(o.date) {
			o.date = li.OrderDate
		}
	}

	byCustomer := make(map[string][]order)
	for _, key := range keys {
		byCustomer[key.customer] = append(byCustomer[key.customer], *acc[key])
	}
	return byCustomer
}

func latestOrderDate(items []domain.LineItem) time.Time {
	var latest time.Time
	for _, li := range items {
		if li.OrderDate.After(latest) {
			latest = li.OrderDate
		}
	}
	return latest
}
