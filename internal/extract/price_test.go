// internal/extract/price_test.go
package extract

import (
	"testing"
)

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"already clean", "S/ 249.90", "S/ 249.90"},
		{"label prefix", "Precio: S/ 249.90", "S/ 249.90"},
		{"web label prefix", "Precio web: $ 99.00", "$ 99.00"},
		{"symbol glued", "S/249.90", "S/ 249.90"},
		{"extra symbol spacing", "$    1,299.00", "$ 1,299.00"},
		{"multiline keeps first line", "S/ 120.00\nAntes: S/ 150.00", "S/ 120.00"},
		{"no symbol gets local currency", "249.90", "S/ 249.90"},
		{"empty", "", ""},
		{"whitespace only", "   \n  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanPrice(tt.raw); got != tt.want {
				t.Errorf("CleanPrice(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCleanPrice_Idempotent(t *testing.T) {
	inputs := []string{
		"Precio: S/ 249.90",
		"Precio web: $1.234",
		"120,50",
		"S/. 89.00",
		"$ 1,299.00",
	}
	for _, raw := range inputs {
		once := CleanPrice(raw)
		twice := CleanPrice(once)
		if once != twice {
			t.Errorf("CleanPrice not idempotent on %q: %q -> %q", raw, once, twice)
		}
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		text string
		want float64
		nil_ bool
	}{
		{"S/ 249.90", 249.90, false},
		{"$ 1.234", 1234, false}, // dot as thousands separator
		{"$ 1,234", 1234, false}, // comma as thousands separator
		{"S/ 1.234,56", 1234.56, false},
		{"$ 1,234.56", 1234.56, false},
		{"S/ 120,50", 120.50, false},
		{"S/ 0.00", 0, false},
		{"S/ 12.345.678", 12345678, false},
		{PriceUnavailable, 0, true},
		{"", 0, true},
		{"texto sin numero", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := NormalizePrice(tt.text)
			if tt.nil_ {
				if got != nil {
					t.Fatalf("NormalizePrice(%q) = %v, want nil", tt.text, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("NormalizePrice(%q) = nil, want %v", tt.text, tt.want)
			}
			if *got != tt.want {
				t.Errorf("NormalizePrice(%q) = %v, want %v", tt.text, *got, tt.want)
			}
		})
	}
}

func TestFindShortestCurrencyMatch(t *testing.T) {
	texts := []string{
		"Llévalo hoy por solo S/ 1.299.00 con envío gratis",
		"S/ 249.90",
		"Antes $ 1,500.00 ahora con descuento",
		"sin precios aquí",
	}
	if got := findShortestCurrencyMatch(texts); got != "S/ 249.90" {
		t.Errorf("findShortestCurrencyMatch = %q, want %q", got, "S/ 249.90")
	}

	if got := findShortestCurrencyMatch([]string{"nada", "tampoco"}); got != "" {
		t.Errorf("expected empty match, got %q", got)
	}
}
