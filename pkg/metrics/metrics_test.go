package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveJob(t *testing.T) {
	c := NewCollector("curator")
	c.ObserveJob("xref_merge", time.Now(), nil)
	c.ObserveJob("xref_merge", time.Now(), errors.New("boom"))
	c.ObserveJob("xref_merge", time.Now(), nil)

	if got := testutil.ToFloat64(c.Jobs.WithLabelValues("xref_merge", "done")); got != 2 {
		t.Fatalf("done jobs = %v", got)
	}
	if got := testutil.ToFloat64(c.Jobs.WithLabelValues("xref_merge", "failed")); got != 1 {
		t.Fatalf("failed jobs = %v", got)
	}
	if got := testutil.CollectAndCount(c.JobDuration); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestObserveCounters(t *testing.T) {
	c := NewCollector("curator")
	c.ObserveMerge("context_merge", 3)
	c.ObserveLink(4)
	c.ObservePath(true, nil)
	c.ObservePath(false, nil)
	c.ObservePath(false, errors.New("boom"))

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"merged", testutil.ToFloat64(c.NodesMerged.WithLabelValues("context_merge")), 3},
		{"linked", testutil.ToFloat64(c.EdgesLinked), 4},
		{"found", testutil.ToFloat64(c.Paths.WithLabelValues("found")), 1},
		{"none", testutil.ToFloat64(c.Paths.WithLabelValues("none")), 1},
		{"error", testutil.ToFloat64(c.Paths.WithLabelValues("error")), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestHandler(t *testing.T) {
	c := NewCollector("curator")
	c.ObserveHTTP("GET", "/health", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `curator_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Fatalf("metric missing from output:\n%s", rec.Body.String())
	}
}
