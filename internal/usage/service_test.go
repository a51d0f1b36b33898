package usage

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"interview-relay/internal/models"
)

func TestRecordAccumulatesAndResets(t *testing.T) {
	svc := NewService(models.DefaultRegistry())
	ctx := context.Background()

	cost, snap, err := svc.Record(ctx, Record{Model: "gpt-3.5-turbo", InputTokens: 1000, OutputTokens: 500})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	want := (1000*0.5 + 500*1.5) / 1e6 * 1.10
	if math.Abs(cost-want) > 1e-12 {
		t.Fatalf("cost = %v, want %v", cost, want)
	}
	if snap.InputTokens != 1000 || snap.OutputTokens != 500 || snap.RequestCount != 1 || !snap.Estimated {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	_, snap, _ = svc.Record(ctx, Record{Model: "gpt-4o", InputTokens: 10, OutputTokens: 10, ImageTokens: 255})
	if snap.InputTokens != 1265 || snap.ImageTokens != 255 || snap.RequestCount != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	snap, err = svc.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if snap.RequestCount != 0 || snap.TotalCost != 0 || !snap.Estimated {
		t.Fatalf("reset did not zero counter: %+v", snap)
	}
}

func TestUnknownModelCostsNothing(t *testing.T) {
	svc := NewService(models.DefaultRegistry())
	if got := svc.Price(Record{Model: "mystery", InputTokens: 100}); got != 0 {
		t.Fatalf("expected zero, got %v", got)
	}
}

func TestRecordConcurrent(t *testing.T) {
	svc := NewService(models.DefaultRegistry())
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = svc.Record(context.Background(), Record{Model: "gpt-4o-mini", InputTokens: 1, OutputTokens: 2})
		}()
	}
	wg.Wait()
	snap, _ := svc.Get(context.Background())
	if snap.RequestCount != 100 || snap.InputTokens != 100 || snap.OutputTokens != 200 {
		t.Fatalf("lost updates: %+v", snap)
	}
}

func TestRecordCanceledContext(t *testing.T) {
	svc := NewService(models.DefaultRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := svc.Record(ctx, Record{Model: "gpt-4o"}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestUsageRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(models.DefaultRegistry())
	_, _, _ = svc.Record(context.Background(), Record{Model: "gpt-4o", InputTokens: 40, OutputTokens: 2})

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/usage", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.InputTokens != 40 || got.RequestCount != 1 || !got.Estimated {
		t.Fatalf("unexpected usage %+v", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/usage/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var reset struct {
		Status string   `json:"status"`
		Usage  Snapshot `json:"usage"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &reset); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reset.Status != "ok" || reset.Usage.RequestCount != 0 {
		t.Fatalf("unexpected reset body %s", w.Body.String())
	}
}
