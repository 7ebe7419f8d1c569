package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"churncli/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFilesCanonicalHeaders(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "orders.csv",
		"customer_id,order_id,order_date,sku,unit_price,quantity,discount_amount,accepts_marketing\n"+
			"a@example.com,O1,2024-01-15,tea,25.00,2,0,true\n")

	loader := NewLoader(testLogger())
	items, err := loader.LoadFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "a@example.com", items[0].CustomerID)
	assert.Equal(t, "O1", items[0].OrderID)
	assert.Equal(t, "2024-01-15", items[0].OrderDate)
	assert.Equal(t, "tea", items[0].SKU)
	assert.Equal(t, "25.00", items[0].UnitPrice)
	assert.Equal(t, "2", items[0].Quantity)
	assert.Equal(t, "true", items[0].AcceptsMarketing)
	assert.Equal(t, path, items[0].SourceFile)
}

func TestLoadFilesAliasedHeaders(t *testing.T) {
	// Shopify-style export: different header names, same canonical schema.
	dir := t.TempDir()
	path := writeFile(t, dir, "shopify.csv",
		"Email,Name,Created At,Lineitem Sku,Lineitem Price,Lineitem Quantity,Total Discount,Buyer Accepts Marketing\n"+
			"b@example.com,#1001,2024-02-01,mug,12.50,1,2.00,yes\n")

	loader := NewLoader(testLogger())
	items, err := loader.LoadFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "b@example.com", items[0].CustomerID)
	assert.Equal(t, "#1001", items[0].OrderID)
	assert.Equal(t, "2024-02-01", items[0].OrderDate)
	assert.Equal(t, "mug", items[0].SKU)
	assert.Equal(t, "2.00", items[0].DiscountAmount)
	assert.Equal(t, "yes", items[0].AcceptsMarketing)
}

func TestLoadFilesSchemaError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.csv",
		"customer_id,order_date,unit_price,quantity\n"+
			"a@example.com,2024-01-15,25.00,2\n")

	loader := NewLoader(testLogger())
	_, err := loader.LoadFiles(context.Background(), []string{path})
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, path, schemaErr.File)
	assert.Equal(t, domain.ColumnOrderID, schemaErr.Column)
}

func TestLoadFilesSchemaErrorAbortsWholeLoad(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "a_good.csv",
		"customer_id,order_id,order_date,unit_price,quantity\nx@example.com,O1,2024-01-01,5,1\n")
	bad := writeFile(t, dir, "b_bad.csv",
		"not_a_column\nvalue\n")

	loader := NewLoader(testLogger())
	items, err := loader.LoadFiles(context.Background(), []string{good, bad})
	require.Error(t, err)
	assert.Nil(t, items)
}

func TestLoadFilesLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	header := "customer_id,order_id,order_date,unit_price,quantity\n"
	// Passed out of order on purpose.
	b := writeFile(t, dir, "b.csv", header+"second@example.com,O2,2024-01-02,5,1\n")
	a := writeFile(t, dir, "a.csv", header+"first@example.com,O1,2024-01-01,5,1\n")

	loader := NewLoader(testLogger())
	items, err := loader.LoadFiles(context.Background(), []string{b, a})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "first@example.com", items[0].CustomerID)
	assert.Equal(t, "second@example.com", items[1].CustomerID)
}

func TestLoadFilesStripsBOM(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bom.csv",
		"\xEF\xBB\xBFcustomer_id,order_id,order_date,unit_price,quantity\n"+
			"a@example.com,O1,2024-01-01,5,1\n")

	loader := NewLoader(testLogger())
	items, err := loader.LoadFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a@example.com", items[0].CustomerID)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	header := "customer_id,order_id,order_date,unit_price,quantity\n"
	writeFile(t, dir, "jan.csv", header+"a@example.com,O1,2024-01-01,5,1\n")
	writeFile(t, dir, "feb.txt", header+"b@example.com,O2,2024-02-01,5,1\n")
	writeFile(t, dir, "notes.md", "ignored\n")

	loader := NewLoader(testLogger())
	items, err := loader.LoadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// feb.txt sorts before jan.csv lexically.
	assert.Equal(t, "b@example.com", items[0].CustomerID)
	assert.Equal(t, "a@example.com", items[1].CustomerID)
}

func TestLoadDirEmpty(t *testing.T) {
	loader := NewLoader(testLogger())
	_, err := loader.LoadDir(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestLoadDirCancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.csv",
		"customer_id,order_id,order_date,unit_price,quantity\na@example.com,O1,2024-01-01,5,1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewLoader(testLogger())
	_, err := loader.LoadDir(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadExcel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Customer Email", "Order Number", "Purchase Date", "SKU", "Item Price", "Qty"},
		{"x@example.com", "O7", "2024-03-01", "pot", "40.00", "1"},
		{"", "", "", "", "", ""},
		{"y@example.com", "O8", "2024-03-02", "pan", "15.00", "2"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))

	loader := NewLoader(testLogger())
	items, err := loader.LoadFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, items, 2, "empty rows are skipped")
	assert.Equal(t, "x@example.com", items[0].CustomerID)
	assert.Equal(t, "O8", items[1].OrderID)
}
