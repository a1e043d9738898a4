package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bowerhall/graphcol/internal/graphcol"
)

func TestObserveChunk(t *testing.T) {
	c := NewCollector("graphcol")

	c.ObserveChunk(graphcol.ChunkResult{Dataset: "humans", Triples: 10, Bytes: 400, Duration: time.Second})
	c.ObserveChunk(graphcol.ChunkResult{Dataset: "humans", Triples: 5, Bytes: 100, Duration: time.Second})
	c.ObserveChunk(graphcol.ChunkResult{Dataset: "humans", Triples: 7, Bytes: 300, Err: errors.New("503")})

	if got := testutil.ToFloat64(c.ChunksUploaded.WithLabelValues("humans")); got != 2 {
		t.Errorf("expected 2 chunks, got %v", got)
	}
	if got := testutil.ToFloat64(c.TriplesWritten.WithLabelValues("humans")); got != 15 {
		t.Errorf("expected 15 triples, got %v", got)
	}
	if got := testutil.ToFloat64(c.BytesWritten.WithLabelValues("humans")); got != 500 {
		t.Errorf("expected 500 bytes, got %v", got)
	}
	if got := testutil.ToFloat64(c.ChunkFailures.WithLabelValues("humans")); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
}

func TestObserveRunAndHandler(t *testing.T) {
	c := NewCollector("graphcol")
	c.ObserveRun("films", "committed", 1700000000)
	c.ObserveRun("films", "failed", 0)

	if got := testutil.ToFloat64(c.LastSuccess.WithLabelValues("films")); got != 1700000000 {
		t.Errorf("unexpected last success %v", got)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `graphcol_runs_total{dataset="films",status="failed"} 1`) {
		t.Errorf("metrics output missing runs counter:\n%s", body)
	}
}
