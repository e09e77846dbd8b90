// internal/monitoring/metrics_test.go
package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pricewatch-la/pricewatch/pkg/types"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.TaskProcessed("ferreteria", true, false)
	m.TaskProcessed("ferreteria", false, false)
	m.TaskProcessed("ferreteria", false, true)
	m.DomainFinished("ferreteria", types.ScrapeCompleted, 42*time.Second)
	m.SetBound(5)

	handler := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`pricewatch_tasks_total{outcome="product",site="ferreteria"} 1`,
		`pricewatch_tasks_total{outcome="non_product",site="ferreteria"} 1`,
		`pricewatch_tasks_total{outcome="error",site="ferreteria"} 1`,
		`pricewatch_products_total{site="ferreteria"} 1`,
		`pricewatch_domain_batches_total{site="ferreteria",status="completed"} 1`,
		`pricewatch_concurrency_bound 5`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.TaskProcessed("x", true, false)
	m.DomainFinished("x", types.ScrapeFailed, time.Second)
	m.SetBound(3)
}

func TestHealthEndpoint(t *testing.T) {
	s := NewServer(":0", NewMetrics(), nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("health body = %s", rec.Body.String())
	}
}
