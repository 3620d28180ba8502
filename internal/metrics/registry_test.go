package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

// histogramCount returns the sample count of the request histogram series
// matching the given labels, or 0 when the series does not exist.
func histogramCount(t *testing.T, r *Registry, method, route, status string) uint64 {
	t.Helper()
	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != "loadlab_http_request_duration_seconds" {
			continue
		}
		for _, m := range fam.GetMetric() {
			if labelsMatch(m, map[string]string{"method": method, "route": route, "status": status}) {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestRegistryFamiliesRegistered(t *testing.T) {
	r := NewRegistry()
	r.Record("GET", "/health", 200, 0.01)
	r.RecordJob("bounded", "completed", time.Second)
	r.RecordBatchItems(1)

	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	expected := []string{
		"loadlab_http_requests_total",
		"loadlab_http_request_duration_seconds",
		"loadlab_jobs_total",
		"loadlab_job_duration_seconds",
		"loadlab_batch_items_processed_total",
		"go_goroutines",
	}

	found := make(map[string]bool)
	for _, fam := range families {
		found[fam.GetName()] = true
	}
	for _, name := range expected {
		if !found[name] {
			t.Errorf("metric %q not registered", name)
		}
	}
}

func TestRecordKeysByMethodRouteStatus(t *testing.T) {
	r := NewRegistry()

	r.Record("GET", "/api/heavy-process-unstable", 200, 0.2)
	r.Record("GET", "/api/heavy-process-unstable", 500, 0.2)
	r.Record("GET", "/api/heavy-process-unstable", 500, 0.3)

	if got := histogramCount(t, r, "GET", "/api/heavy-process-unstable", "200"); got != 1 {
		t.Errorf("200 count = %d, want 1", got)
	}
	if got := histogramCount(t, r, "GET", "/api/heavy-process-unstable", "500"); got != 2 {
		t.Errorf("500 count = %d, want 2", got)
	}
	if got := testutil.ToFloat64(r.httpRequestsTotal.WithLabelValues("GET", "/api/heavy-process-unstable", "500")); got != 2 {
		t.Errorf("requests_total{500} = %v, want 2", got)
	}
}

func TestRecordConcurrentNoLostUpdates(t *testing.T) {
	r := NewRegistry()
	const n = 500

	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			r.Record("POST", "/api/batch-process", 200, 0.001)
		})
	}
	wg.Wait()

	if got := histogramCount(t, r, "POST", "/api/batch-process", "200"); got != n {
		t.Errorf("histogram count = %d, want %d", got, n)
	}
}

func TestRecordJob(t *testing.T) {
	r := NewRegistry()
	r.RecordJob("unstable", "failed", 2*time.Second)
	r.RecordJob("unstable", "completed", time.Second)
	r.RecordJob("unstable", "failed", time.Second)

	if got := testutil.ToFloat64(r.jobsTotal.WithLabelValues("unstable", "failed")); got != 2 {
		t.Errorf("jobs_total{unstable,failed} = %v, want 2", got)
	}
}

func TestRecordBatchItemsIgnoresNonPositive(t *testing.T) {
	r := NewRegistry()
	r.RecordBatchItems(3)
	r.RecordBatchItems(0)
	r.RecordBatchItems(-2)

	if got := testutil.ToFloat64(r.batchItemsTotal); got != 3 {
		t.Errorf("batch_items_processed_total = %v, want 3", got)
	}
}

func TestExportTextFormat(t *testing.T) {
	r := NewRegistry()
	r.Record("GET", "/health", 200, 0.002)

	var buf bytes.Buffer
	if err := r.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# TYPE loadlab_http_request_duration_seconds histogram",
		`loadlab_http_request_duration_seconds_count{method="GET",route="/health",status="200"} 1`,
		`loadlab_http_request_duration_seconds_bucket{method="GET",route="/health",status="200",le="+Inf"} 1`,
		`loadlab_http_requests_total{method="GET",route="/health",status="200"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q", want)
		}
	}
}

func TestHandlerServesExposition(t *testing.T) {
	r := NewRegistry()
	r.Record("GET", "/api/hello", 200, 0.001)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain exposition", ct)
	}
	if !strings.Contains(rec.Body.String(), "loadlab_http_requests_total") {
		t.Error("handler output missing loadlab_http_requests_total")
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	a.Record("GET", "/health", 200, 0.001)

	if got := histogramCount(t, b, "GET", "/health", "200"); got != 0 {
		t.Errorf("second registry count = %d, want 0", got)
	}
}
