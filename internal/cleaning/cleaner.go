// Package cleaning validates and normalizes raw line items. Invalid rows
// are dropped and counted per reason, never repaired; the counts are
// informational and do not fail the pipeline.
package cleaning

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"churncli/pkg/contracts/domain"
)

// Drop reasons reported by Clean.
const (
	ReasonMissingCustomer     = "missing_customer"
	ReasonBadDate             = "bad_date"
	ReasonNonPositiveQuantity = "non_positive_quantity"
	ReasonNegativePrice       = "negative_price"
)

// dateLayouts are tried in order when parsing order dates. Exports from
// different systems disagree on formats; anything not matching one of
// these is dropped as bad_date.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"2-Jan-2006",
}

// DropReport holds per-reason counts of rows removed during cleaning.
type DropReport struct {
	MissingCustomer     int `json:"missing_customer"`
	BadDate             int `json:"bad_date"`
	NonPositiveQuantity int `json:"non_positive_quantity"`
	NegativePrice       int `json:"negative_price"`
}

// Total returns the total number of dropped rows.
func (r DropReport) Total() int {
	return r.MissingCustomer + r.BadDate + r.NonPositiveQuantity + r.NegativePrice
}

// Rows returns the report as (reason, count) CSV rows in a fixed order.
func (r DropReport) Rows() [][]string {
	return [][]string{
		{ReasonMissingCustomer, strconv.Itoa(r.MissingCustomer)},
		{ReasonBadDate, strconv.Itoa(r.BadDate)},
		{ReasonNonPositiveQuantity, strconv.Itoa(r.NonPositiveQuantity)},
		{ReasonNegativePrice, strconv.Itoa(r.NegativePrice)},
	}
}

// Cleaner validates raw line items into the canonical sequence.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a cleaner. A nil logger falls back to slog.Default.
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger.With(slog.String("component", "cleaning"))}
}

// Clean transforms the raw sequence into the validated sequence,
// preserving input order. Each dropped row counts against exactly one
// reason: the first failed check in the order missing customer, bad
// date, non-positive quantity, negative price.
func (c *Cleaner) Clean(raw []domain.RawLineItem) ([]domain.LineItem, DropReport) {
	items := make([]domain.LineItem, 0, len(raw))
	var report DropReport

	for _, r := range raw {
		customerID := NormalizeCustomerID(r.CustomerID)
		if customerID == "" {
			report.MissingCustomer++
			continue
		}

		date, ok := ParseDate(r.OrderDate)
		if !ok {
			report.BadDate++
			continue
		}

		quantity, ok := parseQuantity(r.Quantity)
		if !ok || quantity <= 0 {
			report.NonPositiveQuantity++
			continue
		}

		price, ok := ParseNumeric(r.UnitPrice)
		if !ok || price < 0 {
			report.NegativePrice++
			continue
		}

		// Missing or malformed discounts read as zero; a discount never
		// invalidates the row.
		discount, ok := ParseNumeric(r.DiscountAmount)
		if !ok || discount < 0 {
			discount = 0
		}

		items = append(items, domain.LineItem{
			CustomerID:       customerID,
			OrderID:          strings.TrimSpace(r.OrderID),
			OrderDate:        date,
			SKU:              strings.TrimSpace(r.SKU),
			UnitPrice:        price,
			Quantity:         quantity,
			DiscountAmount:   discount,
			AcceptsMarketing: parseBool(r.AcceptsMarketing),
			SourceFile:       r.SourceFile,
		})
	}

	c.logger.Info("cleaning complete",
		slog.Int("rows_in", len(raw)),
		slog.Int("rows_out", len(items)),
		slog.Int("dropped", report.Total()),
		slog.Int("missing_customer", report.MissingCustomer),
		slog.Int("bad_date", report.BadDate),
		slog.Int("non_positive_quantity", report.NonPositiveQuantity),
		slog.Int("negative_price", report.NegativePrice))

	return items, report
}

// NormalizeCustomerID trims and case-folds a customer identifier so the
// same customer never splits into spurious duplicates.
func NormalizeCustomerID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// ParseDate parses an order date against the known layouts.
func ParseDate(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseNumeric parses a numeric export field, tolerating currency
// symbols, thousands separators, percent signs, and accounting-style
// parentheses negatives.
func ParseNumeric(value string) (float64, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, false
	}
	v = strings.ReplaceAll(v, "$", "")
	v = strings.ReplaceAll(v, ",", "")
	v = strings.ReplaceAll(v, "%", "")
	v = strings.ReplaceAll(v, "(", "-")
	v = strings.ReplaceAll(v, ")", "")
	v = strings.TrimSpace(v)

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseQuantity(value string) (int64, bool) {
	f, ok := ParseNumeric(value)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "t", "yes", "y", "1":
		return true
	}
	return false
}
