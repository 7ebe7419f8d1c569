package domain

import (
	"time"
)

// Feature names of the customer feature vector, in canonical order. This
// order is the wire order of the persisted feature table and the input
// order expected by scoring artifacts.
const (
	FeatureAvgSpend       = "avg_spend"
	FeatureTotalSpend     = "total_spend"
	FeatureAvgItems       = "avg_items"
	FeatureMarketingOptin = "marketing_optin"
	FeatureNDiscounts     = "n_discounts"
	FeatureAvgDiscount    = "avg_discount"
	FeatureFrequency      = "frequency"
	FeatureAvgGapDays     = "avg_gap_days"
)

// FeatureColumns returns the eight feature names in canonical order.
func FeatureColumns() []string {
	return []string{
		FeatureAvgSpend,
		FeatureTotalSpend,
		FeatureAvgItems,
		FeatureMarketingOptin,
		FeatureNDiscounts,
		FeatureAvgDiscount,
		FeatureFrequency,
		FeatureAvgGapDays,
	}
}

// CustomerFeatures is the per-customer aggregate row produced by feature
// aggregation: the eight model features plus the churn label and the
// recency bookkeeping the label is derived from. Recomputed in full on
// every aggregation run.
type CustomerFeatures struct {
	CustomerID     string    `json:"customer_id"`
	FirstPurchase  time.Time `json:"first_purchase"`
	LastPurchase   time.Time `json:"last_purchase"`
	AvgSpend       float64   `json:"avg_spend"`
	TotalSpend     float64   `json:"total_spend"`
	AvgItems       float64   `json:"avg_items"`
	MarketingOptin bool      `json:"marketing_optin"`
	NDiscounts     int       `json:"n_discounts"`
	AvgDiscount    float64   `json:"avg_discount"`
	Frequency      int       `json:"frequency"`
	// AvgGapDays is the mean of consecutive order-date gaps. Zero is the
	// sentinel for customers with fewer than two orders.
	AvgGapDays  float64 `json:"avg_gap_days"`
	RecencyDays int     `json:"recency_days"`
	Churn       bool    `json:"churn"`
}

// Vector returns the row's eight features keyed by canonical name,
// in the shape the scoring interface accepts.
func (cf CustomerFeatures) Vector() FeatureVector {
	optin := 0.0
	if cf.MarketingOptin {
		optin = 1
	}
	return FeatureVector{
		FeatureAvgSpend:       cf.AvgSpend,
		FeatureTotalSpend:     cf.TotalSpend,
		FeatureAvgItems:       cf.AvgItems,
		FeatureMarketingOptin: optin,
		FeatureNDiscounts:     float64(cf.NDiscounts),
		FeatureAvgDiscount:    cf.AvgDiscount,
		FeatureFrequency:      float64(cf.Frequency),
		FeatureAvgGapDays:     cf.AvgGapDays,
	}
}

// FeatureVector maps canonical feature names to values. Vectors come
// either from an aggregation run or from interactive dashboard input;
// scoring treats both identically.
type FeatureVector map[string]float64

// Missing returns the canonical feature names absent from the vector,
// in canonical order.
func (v FeatureVector) Missing() []string {
	var missing []string
	for _, name := range FeatureColumns() {
		if _, ok := v[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Values returns the vector's values in canonical feature order. The
// second return is false when any feature is missing.
func (v FeatureVector) Values() ([]float64, bool) {
	cols := FeatureColumns()
	out := make([]float64, len(cols))
	for i, name := range cols {
		val, ok := v[name]
		if !ok {
			return nil, false
		}
		out[i] = val
	}
	return out, true
}
