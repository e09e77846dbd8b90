// internal/output/excel.go
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// productHeaders is the column order of the products sheet.
var productHeaders = []string{
	"Site", "Name", "Price", "Price Text", "Stock", "Quantity",
	"SKU", "Brand", "URL", "Scraped At", "Error",
}

// ExcelWriter produces one workbook per run with a products sheet and a
// per-site summary sheet. Scrape logs arriving before the records are held
// until the workbook is written.
type ExcelWriter struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	logs []types.ScrapeLog
}

// NewExcelWriter builds a writer rooted at dir.
func NewExcelWriter(dir string, logger *zap.Logger) *ExcelWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExcelWriter{dir: dir, logger: logger.Named("excel"), now: time.Now}
}

// SaveLog buffers the domain summary for the workbook's summary sheet.
func (w *ExcelWriter) SaveLog(_ context.Context, log types.ScrapeLog) error {
	w.mu.Lock()
	w.logs = append(w.logs, log)
	w.mu.Unlock()
	return nil
}

// SaveRecords writes the run workbook. It consumes the logs buffered so far,
// so workbooks of later runs carry only their own statuses.
func (w *ExcelWriter) SaveRecords(_ context.Context, records []types.ProductRecord) error {
	w.mu.Lock()
	logs := w.logs
	w.logs = nil
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", w.dir, err)
	}

	file := excelize.NewFile()
	defer file.Close()

	const productsSheet = "Products"
	file.SetSheetName(file.GetSheetName(0), productsSheet)

	for col, header := range productHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := file.SetCellValue(productsSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, record := range records {
		row := i + 2
		values := []interface{}{
			record.SiteID, record.Name, cellPrice(record.Price), record.PriceText,
			string(record.Stock), cellQuantity(record.Quantity),
			record.SKU, record.Brand, record.URL,
			record.ScrapedAt.Format(time.RFC3339), record.Error,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("failed to address cell: %w", err)
			}
			if err := file.SetCellValue(productsSheet, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	if err := w.writeSummarySheet(file, records, logs); err != nil {
		return err
	}

	path := filepath.Join(w.dir, fmt.Sprintf("report-%s.xlsx", w.now().UTC().Format(timestampLayout)))
	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	w.logger.Info("wrote excel report",
		zap.String("file", path),
		zap.Int("records", len(records)),
	)
	return nil
}

func (w *ExcelWriter) writeSummarySheet(file *excelize.File, records []types.ProductRecord, logs []types.ScrapeLog) error {
	const sheet = "Summary"
	if _, err := file.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	type siteSummary struct {
		products int
		errors   int
		status   string
	}
	summaries := make(map[string]*siteSummary)
	for _, record := range records {
		s := summaries[record.SiteID]
		if s == nil {
			s = &siteSummary{}
			summaries[record.SiteID] = s
		}
		if record.IsProduct() {
			s.products++
		} else {
			s.errors++
		}
	}

	for _, log := range logs {
		if s := summaries[log.SiteID]; s != nil {
			s.status = string(log.Status)
		}
	}

	headers := []string{"Site", "Products", "Errors", "Status"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write summary header: %w", err)
		}
	}

	sites := make([]string, 0, len(summaries))
	for site := range summaries {
		sites = append(sites, site)
	}
	sort.Strings(sites)

	for i, site := range sites {
		s := summaries[site]
		values := []interface{}{site, s.products, s.errors, s.status}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write summary row: %w", err)
			}
		}
	}
	return nil
}

func cellPrice(price *float64) interface{} {
	if price == nil {
		return ""
	}
	return *price
}

func cellQuantity(quantity *int) interface{} {
	if quantity == nil {
		return ""
	}
	return *quantity
}
