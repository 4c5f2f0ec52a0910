package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newMiddlewareHarness wires recording metric and trace backends and returns
// a middleware-wrapped copy of handler.
func newMiddlewareHarness(t *testing.T, handler http.HandlerFunc) (http.Handler, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	exp := withRecordingTracer(t)

	return Middleware(m)(handler), reader, exp
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareCorrelationHeader(t *testing.T) {
	var seenCID string
	h, _, _ := newMiddlewareHarness(t, func(w http.ResponseWriter, r *http.Request) {
		seenCID = CorrelationID(r.Context())
	})

	rec := serve(h, httptest.NewRequest("GET", "/stats", nil))

	if len(seenCID) != 32 {
		t.Errorf("handler saw correlation ID %q, want 32 hex chars", seenCID)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != seenCID {
		t.Errorf("X-Correlation-ID = %q, handler saw %q", got, seenCID)
	}
}

func TestMiddlewareSpanPerRequest(t *testing.T) {
	h, _, exp := newMiddlewareHarness(t, func(http.ResponseWriter, *http.Request) {})

	serve(h, httptest.NewRequest("GET", "/health", nil))

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "HTTP GET /health" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "HTTP GET /health")
	}
}

func TestMiddlewareRecordsRequestDuration(t *testing.T) {
	h, reader, _ := newMiddlewareHarness(t, func(http.ResponseWriter, *http.Request) {})

	serve(h, httptest.NewRequest("GET", "/metrics-probe", nil))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	met := findMetric(rm, "plotwright.http.request.duration")
	if met == nil {
		t.Fatal("plotwright.http.request.duration was not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatalf("unexpected metric data: %#v", met.Data)
	}

	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d, want 1", dp.Count)
	}
	want := map[string]string{"method": "GET", "path": "/metrics-probe"}
	for _, kv := range dp.Attributes.ToSlice() {
		if v, ok := want[string(kv.Key)]; ok && kv.Value.AsString() == v {
			delete(want, string(kv.Key))
		}
	}
	if len(want) != 0 {
		t.Errorf("missing attributes: %v", want)
	}
}

func TestMiddlewareTagsSpanWithStatus(t *testing.T) {
	h, _, exp := newMiddlewareHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := serve(h, httptest.NewRequest("GET", "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("response status = %d, want 404", rec.Code)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	var status int64
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "http.response.status_code" {
			status = a.Value.AsInt64()
		}
	}
	if status != 404 {
		t.Errorf("span status attribute = %d, want 404", status)
	}
}

func TestMiddlewareHonoursIncomingTraceparent(t *testing.T) {
	const upstreamTrace = "4bf92f3577b34da6a3ce929d0e0e4736"

	var seenCID string
	h, _, _ := newMiddlewareHarness(t, func(w http.ResponseWriter, r *http.Request) {
		seenCID = CorrelationID(r.Context())
	})

	req := httptest.NewRequest("GET", "/joined", nil)
	req.Header.Set("traceparent", "00-"+upstreamTrace+"-00f067aa0ba902b7-01")
	rec := serve(h, req)

	if seenCID != upstreamTrace {
		t.Errorf("handler correlation ID = %q, want the upstream trace %q", seenCID, upstreamTrace)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != upstreamTrace {
		t.Errorf("X-Correlation-ID = %q, want %q", got, upstreamTrace)
	}
}
