// internal/extract/extractor_test.go
package extract

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pricewatch-la/pricewatch/internal/browser"
	"github.com/pricewatch-la/pricewatch/pkg/types"
)

const shopifyProductHTML = `<!DOCTYPE html>
<html>
<head><title>Taladro Percutor 750W | Ferremax</title></head>
<body>
  <h1 class="product__title">Taladro Percutor Bosch 750W</h1>
  <div class="product__media"><img src="https://cdn.example/taladro.jpg"></div>
  <div class="price__regular"><span class="price-item">Precio: S/ 249.90</span></div>
  <div class="product__inventory">En stock: 12 unidades</div>
  <div class="product__description">
    Taladro percutor profesional para concreto y madera.
    <table>
      <tr><th>Potencia</th><td>750W</td></tr>
      <tr><th>Voltaje</th><td>220V</td></tr>
    </table>
    <ul>
      <li>Garantía: 2 años</li>
      <li>Incluye maletín</li>
    </ul>
  </div>
  <span class="variant-sku">SKU: TAL-750-BSH</span>
  <div class="product__vendor">Bosch</div>
</body>
</html>`

const wooOutOfStockHTML = `<!DOCTYPE html>
<html>
<head><title>Martillo Stanley 16oz - La Ferretera</title></head>
<body>
  <h1 class="product_title">Martillo Stanley 16oz</h1>
  <div class="woocommerce-product-gallery__image"><img src="/img/martillo.jpg"></div>
  <p class="price"><span class="woocommerce-Price-amount">S/ 45.00</span></p>
  <p class="stock">Agotado (quedaban 3)</p>
  <div class="woocommerce-product-details__short-description">Martillo de carpintero mango de fibra.</div>
  <div class="product_meta"><span class="sku">MAR-16-STL</span></div>
</body>
</html>`

func testTask(platform types.Platform, rawURL string) types.ExtractionTask {
	return types.ExtractionTask{
		URL:      rawURL,
		SiteID:   "ferremax",
		Platform: platform,
	}
}

func mustPage(t *testing.T, html, url string) browser.Page {
	t.Helper()
	page, err := browser.NewDOM(html, url)
	if err != nil {
		t.Fatalf("NewDOM failed: %v", err)
	}
	return page
}

func TestExtract_ShopifyProduct(t *testing.T) {
	extractor := New(NewRegistry(), zap.NewNop())
	page := mustPage(t, shopifyProductHTML, "https://ferremax.example/products/taladro-percutor-750w")

	record := extractor.Extract(page, testTask(types.PlatformShopify, page.URL()))

	if record.Name != "Taladro Percutor Bosch 750W" {
		t.Errorf("Name = %q", record.Name)
	}
	if record.PriceText != "S/ 249.90" {
		t.Errorf("PriceText = %q", record.PriceText)
	}
	if record.Price == nil || *record.Price != 249.90 {
		t.Errorf("Price = %v", record.Price)
	}
	if record.Stock != types.StockInStock {
		t.Errorf("Stock = %q, want in_stock", record.Stock)
	}
	if record.Quantity == nil || *record.Quantity != 12 {
		t.Errorf("Quantity = %v, want 12", record.Quantity)
	}
	if record.ImageURL != "https://cdn.example/taladro.jpg" {
		t.Errorf("ImageURL = %q", record.ImageURL)
	}
	if record.SKU != "TAL-750-BSH" {
		t.Errorf("SKU = %q, want TAL-750-BSH", record.SKU)
	}
	if record.Brand != "Bosch" {
		t.Errorf("Brand = %q", record.Brand)
	}
	if record.Specs["Potencia"] != "750W" || record.Specs["Voltaje"] != "220V" {
		t.Errorf("Specs missing table pairs: %v", record.Specs)
	}
	if record.Specs["Garantía"] != "2 años" {
		t.Errorf("Specs missing list pair: %v", record.Specs)
	}
	if _, ok := record.Specs["Incluye maletín"]; ok {
		t.Errorf("non-colon list item should be skipped")
	}
	if !record.IsProduct() {
		t.Error("record should report as product")
	}
}

func TestExtract_OutOfStockDiscardsQuantity(t *testing.T) {
	extractor := New(NewRegistry(), zap.NewNop())
	page := mustPage(t, wooOutOfStockHTML, "https://laferretera.example/producto/martillo-stanley-16oz")

	record := extractor.Extract(page, types.ExtractionTask{
		URL:      page.URL(),
		SiteID:   "laferretera",
		Platform: types.PlatformWooCommerce,
	})

	// "Agotado" wins regardless of the numeric substring.
	if record.Stock != types.StockOutOfStock {
		t.Fatalf("Stock = %q, want out_of_stock", record.Stock)
	}
	if record.Quantity != nil {
		t.Errorf("Quantity = %v, want nil (discarded on sold-out)", *record.Quantity)
	}
	// A price present on the page is kept even when out of stock.
	if record.PriceText != "S/ 45.00" {
		t.Errorf("PriceText = %q", record.PriceText)
	}
}

func TestInterpretStockText_ZeroCount(t *testing.T) {
	tests := []struct {
		text    string
		want    types.StockStatus
		wantQty int // -1 means no quantity expected
	}{
		{"0 unidades", types.StockOutOfStock, 0},
		{"Quedan 0 disponibles", types.StockOutOfStock, 0},
		{"3 unidades", types.StockInStock, 3},
		{"En stock", types.StockInStock, -1},
	}
	for _, tt := range tests {
		status, qty := interpretStockText(tt.text)
		if status != tt.want {
			t.Errorf("interpretStockText(%q) status = %q, want %q", tt.text, status, tt.want)
		}
		if tt.wantQty < 0 {
			if qty != nil {
				t.Errorf("interpretStockText(%q) quantity = %v, want nil", tt.text, *qty)
			}
		} else if qty == nil || *qty != tt.wantQty {
			t.Errorf("interpretStockText(%q) quantity = %v, want %d", tt.text, qty, tt.wantQty)
		}
	}
}

func TestExtract_NoPriceSentinels(t *testing.T) {
	extractor := New(NewRegistry(), zap.NewNop())

	t.Run("unknown stock yields zero sentinel", func(t *testing.T) {
		page := mustPage(t, `<html><body><h1>Cosa Rara</h1></body></html>`,
			"https://ferremax.example/products/cosa-rara")
		record := extractor.Extract(page, testTask(types.PlatformShopify, page.URL()))
		if record.PriceText != PriceZero {
			t.Errorf("PriceText = %q, want %q", record.PriceText, PriceZero)
		}
		if record.Price != nil {
			t.Errorf("Price = %v, want nil", *record.Price)
		}
	})

	t.Run("out of stock yields unavailable", func(t *testing.T) {
		page := mustPage(t, `<html><body><h1>Sin Precio</h1><p class="stock">Agotado</p></body></html>`,
			"https://ferremax.example/products/sin-precio")
		record := extractor.Extract(page, testTask(types.PlatformShopify, page.URL()))
		if record.PriceText != PriceUnavailable {
			t.Errorf("PriceText = %q, want %q", record.PriceText, PriceUnavailable)
		}
		if record.Price != nil {
			t.Errorf("Price = %v, want nil", *record.Price)
		}
	})
}

func TestExtract_PageWidePriceHeuristic(t *testing.T) {
	extractor := New(NewRegistry(), zap.NewNop())
	page := mustPage(t, `<html><body>
  <h1>Lijadora Orbital</h1>
  <div>Aprovecha esta oferta única por solo S/ 189.90 hasta agotar stock</div>
  <div><b>S/ 189.90</b></div>
</body></html>`, "https://ferremax.example/products/lijadora-orbital")

	record := extractor.Extract(page, testTask(types.PlatformShopify, page.URL()))
	if record.PriceText != "S/ 189.90" {
		t.Errorf("PriceText = %q, want shortest currency match", record.PriceText)
	}
	if record.Price == nil || *record.Price != 189.90 {
		t.Errorf("Price = %v", record.Price)
	}
}

func TestExtractName_FallbackChain(t *testing.T) {
	extractor := New(NewRegistry(), zap.NewNop())

	tests := []struct {
		name string
		html string
		url  string
		want string
	}{
		{
			name: "h1 fallback",
			html: `<html><body><h1>Desde El H1</h1></body></html>`,
			url:  "https://x.example/products/algo",
			want: "Desde El H1",
		},
		{
			name: "document title fallback strips branding",
			html: `<html><head><title>Taladro 750W | Ferremax</title></head><body></body></html>`,
			url:  "https://x.example/products/algo",
			want: "Taladro 750W",
		},
		{
			name: "url slug fallback",
			html: `<html><body></body></html>`,
			url:  "https://x.example/products/sierra-circular-profesional",
			want: "Sierra Circular Profesional",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := mustPage(t, tt.html, tt.url)
			record := extractor.Extract(page, testTask(types.PlatformShopify, tt.url))
			if record.Name != tt.want {
				t.Errorf("Name = %q, want %q", record.Name, tt.want)
			}
		})
	}
}

func TestExtract_DisabledBuyControlForcesOutOfStock(t *testing.T) {
	extractor := New(NewRegistry(), zap.NewNop())
	page := mustPage(t, `<html><body>
  <h1>Atornillador</h1>
  <button name="add" disabled>Comprar</button>
</body></html>`, "https://ferremax.example/products/atornillador")

	record := extractor.Extract(page, testTask(types.PlatformShopify, page.URL()))
	if record.Stock != types.StockOutOfStock {
		t.Errorf("Stock = %q, want out_of_stock", record.Stock)
	}
}

func TestExtract_SiteOverrideSelectors(t *testing.T) {
	registry := NewRegistry()
	registry.Register(types.PlatformShopify, "ferremax", SelectorSet{
		Title: ".custom-name",
	})
	extractor := New(registry, zap.NewNop())

	page := mustPage(t, `<html><body>
  <div class="custom-name">Nombre Personalizado</div>
  <h1>No Este</h1>
</body></html>`, "https://ferremax.example/products/x")

	record := extractor.Extract(page, testTask(types.PlatformShopify, page.URL()))
	if record.Name != "Nombre Personalizado" {
		t.Errorf("Name = %q, want site override to win", record.Name)
	}
}

func TestNewNonProductRecord(t *testing.T) {
	task := testTask(types.PlatformShopify, "https://ferremax.example/cart")
	now := time.Now()
	record := NewNonProductRecord(task, "deny-listed path", now)

	if record.IsProduct() {
		t.Error("non-product record must not report as product")
	}
	if !strings.Contains(record.Error, "deny-listed path") {
		t.Errorf("Error = %q", record.Error)
	}
	if record.URL != task.URL || record.SiteID != task.SiteID {
		t.Error("record must carry task identity")
	}
}

func TestNewRecordFromError(t *testing.T) {
	task := testTask(types.PlatformShopify, "https://ferremax.example/products/x")
	record := NewRecordFromError(task, errors.New("navigation failed: timeout"), time.Now())

	if record.Error != "navigation failed: timeout" {
		t.Errorf("Error = %q", record.Error)
	}
	if record.Stock != types.StockUnknown {
		t.Errorf("Stock = %q, want unknown", record.Stock)
	}
}
