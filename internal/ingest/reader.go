package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"churncli/pkg/contracts/domain"
)

// Loader reads export files into raw line items.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "ingest"))}
}

// LoadDir loads every supported export file (*.csv, *.txt, *.xlsx) in
// the directory, in lexical path order.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]domain.RawLineItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read exports directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".csv", ".txt", ".xlsx":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no export files found in %s", dir)
	}
	return l.LoadFiles(ctx, paths)
}

// LoadFiles loads the given export files and concatenates their rows
// into one sequence. Files are processed in lexical path order so
// re-running on the same inputs is reproducible. A SchemaError in any
// file aborts the whole load; nothing is partially written.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) ([]domain.RawLineItem, error) {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	var items []domain.RawLineItem
	for _, path := range sorted {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		fileItems, err := l.loadFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Info("loaded export file",
			slog.String("file", path),
			slog.Int("rows", len(fileItems)))
		items = append(items, fileItems...)
	}

	l.logger.Info("ingestion complete",
		slog.Int("files", len(sorted)),
		slog.Int("total_rows", len(items)))
	return items, nil
}

func (l *Loader) loadFile(path string) ([]domain.RawLineItem, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return l.loadExcel(path)
	default:
		return l.loadCSV(path)
	}
}

// loadCSV reads a delimited text export. The first row is the header.
func (l *Loader) loadCSV(path string) ([]domain.RawLineItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	if len(header) > 0 {
		// Strip a UTF-8 BOM some exports carry on the first header cell.
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	idx, err := mapHeader(path, header)
	if err != nil {
		return nil, err
	}

	var items []domain.RawLineItem
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		items = append(items, rowToRawItem(idx, row, path))
	}
	return items, nil
}

// loadExcel reads an Excel workbook export. The first sheet whose header
// row resolves against the alias table is used; a workbook where no
// sheet resolves fails with the SchemaError of the first sheet.
func (l *Loader) loadExcel(path string) ([]domain.RawLineItem, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var firstErr error
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		idx, err := mapHeader(path, rows[0])
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		l.logger.Debug("found line-item sheet",
			slog.String("file", path),
			slog.String("sheet", sheet))

		var items []domain.RawLineItem
		for _, row := range rows[1:] {
			if isEmptyRow(row) {
				continue
			}
			items = append(items, rowToRawItem(idx, row, path))
		}
		return items, nil
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return nil, fmt.Errorf("workbook %s has no readable sheets", path)
}

func rowToRawItem(idx columnIndex, row []string, path string) domain.RawLineItem {
	return domain.RawLineItem{
		CustomerID:       idx.get(row, domain.ColumnCustomerID),
		OrderID:          idx.get(row, domain.ColumnOrderID),
		OrderDate:        idx.get(row, domain.ColumnOrderDate),
		SKU:              idx.get(row, domain.ColumnSKU),
		UnitPrice:        idx.get(row, domain.ColumnUnitPrice),
		Quantity:         idx.get(row, domain.ColumnQuantity),
		DiscountAmount:   idx.get(row, domain.ColumnDiscountAmount),
		AcceptsMarketing: idx.get(row, domain.ColumnAcceptsMarketing),
		SourceFile:       path,
	}
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
