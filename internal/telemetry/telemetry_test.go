package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dukerupert/marinda/internal/apperr"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupCreatesProviderWhenEndpointSet(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	// Non-routable address so nothing is exported.
	shutdown, err := Setup(context.Background(), "http://192.0.2.1:4318", "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestEndRecordsErrorKind(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := Start(context.Background(), "chore.approve", attribute.Int64("chore_id", 7))
	End(span, apperr.New(apperr.KindStaleState, "changed"))

	_, ok := Start(context.Background(), "chore.submit")
	End(ok, nil)

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	failed := spans[0]
	if failed.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", failed.Status().Code)
	}
	var kind string
	for _, a := range failed.Attributes() {
		if a.Key == "marinda.error_kind" {
			kind = a.Value.AsString()
		}
	}
	if kind != "StaleState" {
		t.Errorf("error kind = %q, want StaleState", kind)
	}
	if spans[1].Status().Code == codes.Error {
		t.Error("successful span should not be marked as error")
	}
}
