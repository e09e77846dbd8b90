// internal/store/recorder_test.go
package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pricewatch-la/pricewatch/internal/taxonomy"
	"github.com/pricewatch-la/pricewatch/pkg/types"
)

type fakeStore struct {
	products   map[string]*StoredProduct
	history    []float64
	categories map[string][]types.CategoryAssignment
	logs       []types.ScrapeLog
	upsertErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:   make(map[string]*StoredProduct),
		categories: make(map[string][]types.CategoryAssignment),
	}
}

func key(siteID, url string) string { return siteID + "|" + url }

func (f *fakeStore) FindByKey(_ context.Context, siteID, url string) (*StoredProduct, error) {
	return f.products[key(siteID, url)], nil
}

func (f *fakeStore) Upsert(_ context.Context, record types.ProductRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.products[key(record.SiteID, record.URL)] = &StoredProduct{
		SiteID:       record.SiteID,
		URL:          record.URL,
		Name:         record.Name,
		PriceText:    record.PriceText,
		CurrentPrice: record.Price,
		Stock:        record.Stock,
		Quantity:     record.Quantity,
		ScrapedAt:    record.ScrapedAt,
	}
	return nil
}

func (f *fakeStore) AppendPriceHistory(_ context.Context, _, _ string, price float64, _ time.Time) error {
	f.history = append(f.history, price)
	return nil
}

func (f *fakeStore) AssignCategories(_ context.Context, siteID, url string, assignments []types.CategoryAssignment) error {
	f.categories[key(siteID, url)] = assignments
	return nil
}

func (f *fakeStore) AppendScrapeLog(_ context.Context, log types.ScrapeLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func productRecord(price float64) types.ProductRecord {
	return types.ProductRecord{
		Name:      "Taladro Percutor 750W",
		PriceText: "S/ 249.90",
		Price:     &price,
		Stock:     types.StockInStock,
		URL:       "https://ferreteria.pe/products/taladro",
		SiteID:    "ferreteria",
		Platform:  types.PlatformShopify,
		ScrapedAt: time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC),
	}
}

func TestRecorderPriceHistoryIdempotent(t *testing.T) {
	fake := newFakeStore()
	recorder := NewRecorder(fake, nil, nil)
	ctx := context.Background()

	// First observation starts the history.
	if err := recorder.SaveRecords(ctx, []types.ProductRecord{productRecord(249.90)}); err != nil {
		t.Fatalf("SaveRecords: %v", err)
	}
	if len(fake.history) != 1 {
		t.Fatalf("history rows = %d, want 1", len(fake.history))
	}

	// Same price again: no new row.
	if err := recorder.SaveRecords(ctx, []types.ProductRecord{productRecord(249.90)}); err != nil {
		t.Fatalf("SaveRecords: %v", err)
	}
	if len(fake.history) != 1 {
		t.Errorf("history rows = %d after unchanged price, want 1", len(fake.history))
	}

	// Changed price: one more row.
	if err := recorder.SaveRecords(ctx, []types.ProductRecord{productRecord(229.00)}); err != nil {
		t.Fatalf("SaveRecords: %v", err)
	}
	if len(fake.history) != 2 {
		t.Errorf("history rows = %d after price change, want 2", len(fake.history))
	}
	if fake.history[1] != 229.00 {
		t.Errorf("appended price = %v, want 229.00", fake.history[1])
	}
}

func TestRecorderSkipsNonProductRecords(t *testing.T) {
	fake := newFakeStore()
	recorder := NewRecorder(fake, nil, nil)

	records := []types.ProductRecord{
		{URL: "https://ferreteria.pe/pages/contacto", SiteID: "ferreteria", Error: "not a product page"},
		{URL: "https://ferreteria.pe/products/x", SiteID: "ferreteria", Error: "navigation failed"},
	}
	if err := recorder.SaveRecords(context.Background(), records); err != nil {
		t.Fatalf("SaveRecords: %v", err)
	}
	if len(fake.products) != 0 {
		t.Errorf("stored %d products from verdict records, want 0", len(fake.products))
	}
	if len(fake.history) != 0 {
		t.Errorf("history rows = %d, want 0", len(fake.history))
	}
}

func TestRecorderAssignsCategories(t *testing.T) {
	fake := newFakeStore()
	recorder := NewRecorder(fake, taxonomy.New(), nil)

	if err := recorder.SaveRecords(context.Background(), []types.ProductRecord{productRecord(249.90)}); err != nil {
		t.Fatalf("SaveRecords: %v", err)
	}
	assignments := fake.categories[key("ferreteria", "https://ferreteria.pe/products/taladro")]
	if len(assignments) == 0 {
		t.Fatal("no categories assigned")
	}
	found := false
	for _, a := range assignments {
		if a.Slug == "herramientas" {
			found = true
		}
	}
	if !found {
		t.Errorf("herramientas not assigned: %v", assignments)
	}
}

func TestRecorderReportsPersistFailures(t *testing.T) {
	fake := newFakeStore()
	fake.upsertErr = errors.New("disk full")
	recorder := NewRecorder(fake, nil, nil)

	err := recorder.SaveRecords(context.Background(), []types.ProductRecord{productRecord(249.90)})
	if err == nil {
		t.Fatal("expected error from failing upsert")
	}
}

func TestRecorderSaveLog(t *testing.T) {
	fake := newFakeStore()
	recorder := NewRecorder(fake, nil, nil)

	log := types.ScrapeLog{SiteID: "ferreteria", Status: types.ScrapeCompleted, Processed: 3}
	if err := recorder.SaveLog(context.Background(), log); err != nil {
		t.Fatalf("SaveLog: %v", err)
	}
	if len(fake.logs) != 1 || fake.logs[0].SiteID != "ferreteria" {
		t.Errorf("logs = %+v", fake.logs)
	}
}
