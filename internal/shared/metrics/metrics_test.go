package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHandlerRendersRelayMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ObserveCompletion("gpt-4o-mini", OutcomeDone, 1.2)
	AddTokens(100, 40, 255)
	AddCost(0.0012)
	ObserveHTTP("/ai/stream", http.StatusOK)

	r := gin.New()
	r.GET("/metrics", Handler())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	for _, want := range []string{
		`relay_completions_total{model="gpt-4o-mini",outcome="done"}`,
		`relay_estimated_tokens_total{direction="image"}`,
		"relay_estimated_cost_dollars_total",
		`relay_http_requests_total{route="/ai/stream",status="200"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics output to contain %q", want)
		}
	}
}

func TestRealtimeGaugeReturnsToZero(t *testing.T) {
	RealtimeOpened()
	RealtimeClosed()

	families, err := Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "relay_realtime_connections" {
			continue
		}
		if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 0 {
			t.Fatalf("expected gauge 0, got %v", got)
		}
		return
	}
	t.Fatalf("relay_realtime_connections not registered")
}
