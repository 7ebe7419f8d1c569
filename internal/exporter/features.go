package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"churncli/internal/cleaning"
	"churncli/internal/features"
	"churncli/pkg/contracts/domain"
)

const dateLayout = "2006-01-02"

// FeatureTableHeaders is the column set of the persisted feature table.
// The order is fixed: the table is a versioned data contract consumed by
// model training and by the dashboard's default-value population.
var FeatureTableHeaders = []string{
	"customer_id",
	"first_purchase",
	"last_purchase",
	"avg_spend",
	"total_spend",
	"avg_items",
	"marketing_optin",
	"n_discounts",
	"avg_discount",
	"frequency",
	"avg_gap_days",
	"recency_days",
	"churn",
}

// WriteFeatures persists the customer feature table. Rows arrive sorted
// by customer ID from aggregation; the writer preserves that order so
// identical inputs produce byte-identical tables.
func (w *CSVWriter) WriteFeatures(filePath string, rows []domain.CustomerFeatures) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{
			r.CustomerID,
			r.FirstPurchase.Format(dateLayout),
			r.LastPurchase.Format(dateLayout),
			formatFloat(r.AvgSpend),
			formatFloat(r.TotalSpend),
			formatFloat(r.AvgItems),
			formatBool(r.MarketingOptin),
			strconv.Itoa(r.NDiscounts),
			formatFloat(r.AvgDiscount),
			strconv.Itoa(r.Frequency),
			formatFloat(r.AvgGapDays),
			strconv.Itoa(r.RecencyDays),
			formatBool(r.Churn),
		}
	}
	return w.WriteSimpleCSV(filePath, FeatureTableHeaders, records)
}

// WriteDropReport persists the cleaning drop counts.
func (w *CSVWriter) WriteDropReport(filePath string, report cleaning.DropReport) error {
	return w.WriteSimpleCSV(filePath, []string{"reason", "count"}, report.Rows())
}

// WriteRFMSegments persists the RFM segment table.
func (w *CSVWriter) WriteRFMSegments(filePath string, segments []features.RFMSegment) error {
	records := make([][]string, len(segments))
	for i, s := range segments {
		records[i] = []string{
			s.CustomerID,
			strconv.Itoa(s.RScore),
			strconv.Itoa(s.FScore),
			strconv.Itoa(s.MScore),
			s.Segment,
		}
	}
	return w.WriteSimpleCSV(filePath, []string{"customer_id", "r_score", "f_score", "m_score", "segment"}, records)
}

// WriteTopProducts persists the top-products report.
func (w *CSVWriter) WriteTopProducts(filePath string, products []features.ProductTotal) error {
	records := make([][]string, len(products))
	for i, p := range products {
		records[i] = []string{p.SKU, strconv.FormatInt(p.Quantity, 10)}
	}
	return w.WriteSimpleCSV(filePath, []string{"sku", "quantity_sum"}, records)
}

// ScoredRow pairs a customer with its churn probability.
type ScoredRow struct {
	CustomerID  string  `json:"customer_id"`
	Probability float64 `json:"probability"`
	Churner     bool    `json:"churner"`
}

// WriteScores persists batch scoring output.
func (w *CSVWriter) WriteScores(filePath string, rows []ScoredRow) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{
			r.CustomerID,
			strconv.FormatFloat(r.Probability, 'f', 6, 64),
			formatBool(r.Churner),
		}
	}
	return w.WriteSimpleCSV(filePath, []string{"customer_id", "churn_probability", "churner"}, records)
}

// ReadFeatures loads a persisted feature table back into memory. Used by
// the scoring server for slider defaults and by batch scoring.
func ReadFeatures(filePath string) ([]domain.CustomerFeatures, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open feature table: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(FeatureTableHeaders)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read feature table header: %w", err)
	}
	if len(header) != len(FeatureTableHeaders) {
		return nil, fmt.Errorf("feature table has %d columns, want %d", len(header), len(FeatureTableHeaders))
	}

	var rows []domain.CustomerFeatures
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read feature table: %w", err)
		}
		row, err := parseFeatureRecord(record)
		if err != nil {
			return nil, fmt.Errorf("feature table line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseFeatureRecord(record []string) (domain.CustomerFeatures, error) {
	var row domain.CustomerFeatures
	var err error

	row.CustomerID = record[0]
	if row.FirstPurchase, err = time.Parse(dateLayout, record[1]); err != nil {
		return row, fmt.Errorf("first_purchase: %w", err)
	}
	if row.LastPurchase, err = time.Parse(dateLayout, record[2]); err != nil {
		return row, fmt.Errorf("last_purchase: %w", err)
	}
	if row.AvgSpend, err = strconv.ParseFloat(record[3], 64); err != nil {
		return row, fmt.Errorf("avg_spend: %w", err)
	}
	if row.TotalSpend, err = strconv.ParseFloat(record[4], 64); err != nil {
		return row, fmt.Errorf("total_spend: %w", err)
	}
	if row.AvgItems, err = strconv.ParseFloat(record[5], 64); err != nil {
		return row, fmt.Errorf("avg_items: %w", err)
	}
	row.MarketingOptin = record[6] == "1"
	if row.NDiscounts, err = strconv.Atoi(record[7]); err != nil {
		return row, fmt.Errorf("n_discounts: %w", err)
	}
	if row.AvgDiscount, err = strconv.ParseFloat(record[8], 64); err != nil {
		return row, fmt.Errorf("avg_discount: %w", err)
	}
	if row.Frequency, err = strconv.Atoi(record[9]); err != nil {
		return row, fmt.Errorf("frequency: %w", err)
	}
	if row.AvgGapDays, err = strconv.ParseFloat(record[10], 64); err != nil {
		return row, fmt.Errorf("avg_gap_days: %w", err)
	}
	if row.RecencyDays, err = strconv.Atoi(record[11]); err != nil {
		return row, fmt.Errorf("recency_days: %w", err)
	}
	row.Churn = record[12] == "1"
	return row, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
