package tracing_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onnwee/telesis/internal/contrast"
	"github.com/onnwee/telesis/internal/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestEndToEndTracing verifies that an evaluation started inside a traced
// HTTP handler produces a child span of the request span.
func TestEndToEndTracing(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	}()

	engine := contrast.NewEngine(contrast.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := engine.EvaluateSet(r.Context(), []contrast.Pair{
			{Label: "body", Foreground: "rgb(44, 49, 58)", Background: "rgb(255, 255, 255)"},
		}, contrast.AA)
		if !report.Passed() {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	tracedHandler := middleware.Tracing("telesis-test")(handler)

	req := httptest.NewRequest(http.MethodPost, "/v1/contrast/report", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rr := httptest.NewRecorder()
	tracedHandler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	spans := spanRecorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans (request and evaluation), got %d", len(spans))
	}

	var requestSpan, evalSpan sdktrace.ReadOnlySpan
	for _, s := range spans {
		switch s.Name() {
		case "POST /v1/contrast/report":
			requestSpan = s
		case "contrast.evaluate_set":
			evalSpan = s
		}
	}
	if requestSpan == nil || evalSpan == nil {
		t.Fatalf("missing spans: %v", spans)
	}

	if evalSpan.Parent().SpanID() != requestSpan.SpanContext().SpanID() {
		t.Error("evaluation span should be a child of the request span")
	}
	if requestSpan.SpanContext().TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("incoming trace id not propagated: %s", requestSpan.SpanContext().TraceID())
	}

	found := false
	for _, kv := range evalSpan.Attributes() {
		if kv.Key == "contrast.total" && kv.Value.AsInt64() == 1 {
			found = true
		}
	}
	if !found {
		t.Error("evaluation span missing contrast.total attribute")
	}
}
