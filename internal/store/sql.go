// internal/store/sql.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	"go.uber.org/zap"

	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// SQLStore implements Store over database/sql. Statements are written with
// ? placeholders and rebound per dialect; upserts use the dialect's native
// conflict clause.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

// Open connects using the named driver ("postgres", "sqlite3" or "mysql"),
// verifies the connection and creates missing tables.
func Open(driver, dsn string, logger *zap.Logger) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s store: %w", driver, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLStore{db: db, dialect: d, logger: logger.Named("store")}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTables() error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// FindByKey returns the stored product or nil when absent.
func (s *SQLStore) FindByKey(ctx context.Context, siteID, url string) (*StoredProduct, error) {
	query := s.dialect.rebind(`
		SELECT site_id, url, name, price_text, current_price, stock, quantity, scraped_at
		FROM products WHERE site_id = ? AND url = ?`)

	var (
		p        StoredProduct
		price    sql.NullFloat64
		quantity sql.NullInt64
		stock    string
	)
	err := s.db.QueryRowContext(ctx, query, siteID, url).Scan(
		&p.SiteID, &p.URL, &p.Name, &p.PriceText, &price, &stock, &quantity, &p.ScrapedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product %s: %w", url, err)
	}

	if price.Valid {
		v := price.Float64
		p.CurrentPrice = &v
	}
	if quantity.Valid {
		v := int(quantity.Int64)
		p.Quantity = &v
	}
	p.Stock = types.StockStatus(stock)
	return &p, nil
}

// Upsert inserts or updates the product keyed by (site_id, url).
func (s *SQLStore) Upsert(ctx context.Context, record types.ProductRecord) error {
	specs := ""
	if len(record.Specs) > 0 {
		encoded, err := json.Marshal(record.Specs)
		if err != nil {
			return fmt.Errorf("failed to encode specs for %s: %w", record.URL, err)
		}
		specs = string(encoded)
	}

	var price interface{}
	if record.Price != nil {
		price = *record.Price
	}
	var quantity interface{}
	if record.Quantity != nil {
		quantity = *record.Quantity
	}

	query := s.dialect.rebind(s.dialect.upsertProduct())
	_, err := s.db.ExecContext(ctx, query,
		record.SiteID, record.URL, record.Name, record.PriceText, price,
		string(record.Stock), quantity, record.ImageURL, string(record.Platform),
		record.SKU, record.Brand, record.Presentation, record.Description,
		specs, record.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", record.URL, err)
	}
	return nil
}

// AppendPriceHistory adds one price observation.
func (s *SQLStore) AppendPriceHistory(ctx context.Context, siteID, url string, price float64, at time.Time) error {
	query := s.dialect.rebind(`
		INSERT INTO price_history (site_id, url, price, recorded_at)
		VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, siteID, url, price, at); err != nil {
		return fmt.Errorf("failed to append price history for %s: %w", url, err)
	}
	return nil
}

// AssignCategories replaces the product's assignments. Category slugs are
// registered on first use.
func (s *SQLStore) AssignCategories(ctx context.Context, siteID, url string, assignments []types.CategoryAssignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin category transaction: %w", err)
	}
	defer tx.Rollback()

	del := s.dialect.rebind(`DELETE FROM product_categories WHERE site_id = ? AND url = ?`)
	if _, err := tx.ExecContext(ctx, del, siteID, url); err != nil {
		return fmt.Errorf("failed to clear categories for %s: %w", url, err)
	}

	insCategory := s.dialect.rebind(s.dialect.insertCategoryIgnore())
	insAssignment := s.dialect.rebind(`
		INSERT INTO product_categories (site_id, url, slug, score)
		VALUES (?, ?, ?, ?)`)
	for _, a := range assignments {
		if _, err := tx.ExecContext(ctx, insCategory, a.Slug); err != nil {
			return fmt.Errorf("failed to register category %s: %w", a.Slug, err)
		}
		if _, err := tx.ExecContext(ctx, insAssignment, siteID, url, a.Slug, a.Score); err != nil {
			return fmt.Errorf("failed to assign category %s to %s: %w", a.Slug, url, err)
		}
	}

	return tx.Commit()
}

// AppendScrapeLog records one domain batch summary.
func (s *SQLStore) AppendScrapeLog(ctx context.Context, log types.ScrapeLog) error {
	query := s.dialect.rebind(`
		INSERT INTO scraping_logs (site_id, status, processed, error_count, error_details, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		log.SiteID, string(log.Status), log.Processed, log.ErrorCount,
		log.ErrorDetails, log.StartedAt, log.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append scrape log for %s: %w", log.SiteID, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// dialect captures the SQL differences between the supported engines.
type dialect interface {
	name() string
	// rebind rewrites ? placeholders into the engine's notation.
	rebind(query string) string
	schema() []string
	upsertProduct() string
	insertCategoryIgnore() string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "postgres":
		return postgresDialect{}, nil
	case "sqlite3":
		return sqliteDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

const productColumns = `site_id, url, name, price_text, current_price, stock, quantity,
		image_url, platform, sku, brand, presentation, description, specs, scraped_at`

const productPlaceholders = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

// productUpdateColumns lists the columns refreshed on conflict; the key pair
// (site_id, url) is never rewritten.
var productUpdateColumns = []string{
	"name", "price_text", "current_price", "stock", "quantity", "image_url",
	"platform", "sku", "brand", "presentation", "description", "specs", "scraped_at",
}

type postgresDialect struct{}

func (postgresDialect) name() string { return "postgres" }

func (postgresDialect) rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (postgresDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS products (
			id SERIAL PRIMARY KEY,
			site_id TEXT NOT NULL,
			url TEXT NOT NULL,
			name TEXT NOT NULL,
			price_text TEXT NOT NULL DEFAULT '',
			current_price DOUBLE PRECISION,
			stock TEXT NOT NULL DEFAULT 'unknown',
			quantity INTEGER,
			image_url TEXT NOT NULL DEFAULT '',
			platform TEXT NOT NULL DEFAULT '',
			sku TEXT NOT NULL DEFAULT '',
			brand TEXT NOT NULL DEFAULT '',
			presentation TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			specs TEXT NOT NULL DEFAULT '',
			scraped_at TIMESTAMP NOT NULL,
			UNIQUE (site_id, url)
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id SERIAL PRIMARY KEY,
			site_id TEXT NOT NULL,
			url TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			slug TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS product_categories (
			site_id TEXT NOT NULL,
			url TEXT NOT NULL,
			slug TEXT NOT NULL,
			score INTEGER NOT NULL,
			PRIMARY KEY (site_id, url, slug)
		)`,
		`CREATE TABLE IF NOT EXISTS scraping_logs (
			id SERIAL PRIMARY KEY,
			site_id TEXT NOT NULL,
			status TEXT NOT NULL,
			processed INTEGER NOT NULL,
			error_count INTEGER NOT NULL,
			error_details TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,
	}
}

func (postgresDialect) upsertProduct() string {
	return onConflictUpsert()
}

func (postgresDialect) insertCategoryIgnore() string {
	return `INSERT INTO categories (slug) VALUES (?) ON CONFLICT (slug) DO NOTHING`
}

type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite3" }

func (sqliteDialect) rebind(query string) string { return query }

func (sqliteDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			site_id TEXT NOT NULL,
			url TEXT NOT NULL,
			name TEXT NOT NULL,
			price_text TEXT NOT NULL DEFAULT '',
			current_price REAL,
			stock TEXT NOT NULL DEFAULT 'unknown',
			quantity INTEGER,
			image_url TEXT NOT NULL DEFAULT '',
			platform TEXT NOT NULL DEFAULT '',
			sku TEXT NOT NULL DEFAULT '',
			brand TEXT NOT NULL DEFAULT '',
			presentation TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			specs TEXT NOT NULL DEFAULT '',
			scraped_at TIMESTAMP NOT NULL,
			UNIQUE (site_id, url)
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			site_id TEXT NOT NULL,
			url TEXT NOT NULL,
			price REAL NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			slug TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS product_categories (
			site_id TEXT NOT NULL,
			url TEXT NOT NULL,
			slug TEXT NOT NULL,
			score INTEGER NOT NULL,
			PRIMARY KEY (site_id, url, slug)
		)`,
		`CREATE TABLE IF NOT EXISTS scraping_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			site_id TEXT NOT NULL,
			status TEXT NOT NULL,
			processed INTEGER NOT NULL,
			error_count INTEGER NOT NULL,
			error_details TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,
	}
}

func (sqliteDialect) upsertProduct() string {
	return onConflictUpsert()
}

func (sqliteDialect) insertCategoryIgnore() string {
	return `INSERT INTO categories (slug) VALUES (?) ON CONFLICT (slug) DO NOTHING`
}

type mysqlDialect struct{}

func (mysqlDialect) name() string { return "mysql" }

func (mysqlDialect) rebind(query string) string { return query }

func (mysqlDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			site_id VARCHAR(128) NOT NULL,
			url VARCHAR(768) NOT NULL,
			name TEXT NOT NULL,
			price_text TEXT NOT NULL,
			current_price DOUBLE,
			stock VARCHAR(32) NOT NULL DEFAULT 'unknown',
			quantity INT,
			image_url TEXT NOT NULL,
			platform VARCHAR(32) NOT NULL DEFAULT '',
			sku VARCHAR(128) NOT NULL DEFAULT '',
			brand VARCHAR(128) NOT NULL DEFAULT '',
			presentation TEXT NOT NULL,
			description TEXT NOT NULL,
			specs TEXT NOT NULL,
			scraped_at DATETIME NOT NULL,
			UNIQUE KEY uniq_site_url (site_id, url)
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			site_id VARCHAR(128) NOT NULL,
			url VARCHAR(768) NOT NULL,
			price DOUBLE NOT NULL,
			recorded_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			slug VARCHAR(128) PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS product_categories (
			site_id VARCHAR(128) NOT NULL,
			url VARCHAR(768) NOT NULL,
			slug VARCHAR(128) NOT NULL,
			score INT NOT NULL,
			PRIMARY KEY (site_id, url, slug)
		)`,
		`CREATE TABLE IF NOT EXISTS scraping_logs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			site_id VARCHAR(128) NOT NULL,
			status VARCHAR(32) NOT NULL,
			processed INT NOT NULL,
			error_count INT NOT NULL,
			error_details TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		)`,
	}
}

func (mysqlDialect) upsertProduct() string {
	updates := make([]string, len(productUpdateColumns))
	for i, col := range productUpdateColumns {
		updates[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
	}
	return fmt.Sprintf(`INSERT INTO products (%s)
		VALUES (%s)
		ON DUPLICATE KEY UPDATE %s`,
		productColumns, productPlaceholders, strings.Join(updates, ", "))
}

func (mysqlDialect) insertCategoryIgnore() string {
	return `INSERT IGNORE INTO categories (slug) VALUES (?)`
}

// onConflictUpsert builds the upsert shared by postgres and sqlite; both
// support the standard ON CONFLICT ... DO UPDATE form with excluded.
func onConflictUpsert() string {
	updates := make([]string, len(productUpdateColumns))
	for i, col := range productUpdateColumns {
		updates[i] = fmt.Sprintf("%s = excluded.%s", col, col)
	}
	return fmt.Sprintf(`INSERT INTO products (%s)
		VALUES (%s)
		ON CONFLICT (site_id, url) DO UPDATE SET %s`,
		productColumns, productPlaceholders, strings.Join(updates, ", "))
}
