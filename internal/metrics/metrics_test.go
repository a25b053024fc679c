package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/documents/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/documents/{id}", "404"))
	for _, id := range []string{"doc-a", "doc-b"} {
		req := httptest.NewRequest(http.MethodGet, "/documents/"+id, http.NoBody)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/documents/{id}", "404"))
	if after-before != 2 {
		t.Errorf("requests_total delta = %v, want 2", after-before)
	}
}

func TestMiddleware_DefaultStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/search", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/search", http.NoBody))
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/search", "200")) - before; got != 1 {
		t.Errorf("delta = %v, want 1", got)
	}
}

func TestRouteOf_NoChiContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	if got := routeOf(req); got != "unknown" {
		t.Errorf("routeOf = %q, want unknown", got)
	}
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Second call is a no-op.
	if err := Register(reg); err != nil {
		t.Fatalf("second Register: %v", err)
	}

	RetrievalSubqueriesTotal.WithLabelValues("annual_goals", "ok").Inc()
	IngestChunksTotal.Add(3)

	n, err := testutil.GatherAndCount(reg, "evidex_retrieval_subqueries_total", "evidex_ingest_chunks_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("gathered %d series, want 2", n)
	}
}
