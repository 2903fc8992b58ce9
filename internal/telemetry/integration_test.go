package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTraceContextPropagation checks that router spans continue an inbound
// trace and that spans from Tracer nest under them.
func TestTraceContextPropagation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := mux.NewRouter()
	r.Use(otelmux.Middleware(ServiceName))
	r.HandleFunc("/oauth/userinfo", func(w http.ResponseWriter, r *http.Request) {
		_, span := Tracer().Start(r.Context(), "userinfo.lookup")
		span.End()
		w.WriteHeader(http.StatusOK)
	})

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	tests := []struct {
		name        string
		traceParent string
	}{
		{"without existing trace ID", ""},
		{"with existing trace ID", "00-" + traceID + "-00f067aa0ba902b7-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			req := httptest.NewRequest("GET", "/oauth/userinfo", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("Expected status OK, got %d", rr.Code)
			}

			spans := exporter.GetSpans()
			if len(spans) != 2 {
				t.Fatalf("Expected 2 spans, got %d", len(spans))
			}

			inner, outer := spans[0], spans[1]
			if inner.Name != "userinfo.lookup" {
				t.Errorf("Expected inner span 'userinfo.lookup', got '%s'", inner.Name)
			}
			if inner.Parent.SpanID() != outer.SpanContext.SpanID() {
				t.Error("Expected the lookup span to be a child of the router span")
			}
			if tt.traceParent != "" && outer.SpanContext.TraceID().String() != traceID {
				t.Errorf("Expected trace ID %s, got %s", traceID, outer.SpanContext.TraceID())
			}
		})
	}
}
