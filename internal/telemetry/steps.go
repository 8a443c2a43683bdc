// Package telemetry restores the original service's log_grpc_step /
// IndexerGrpcStep instrumentation (dropped by the spec distillation, see
// SPEC_FULL.md §9) as OpenTelemetry span events, one per pipeline step, each
// carrying the same attribute set the Rust implementation logged.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Step names, mirroring aptos_indexer_grpc_utils::counters::IndexerGrpcStep.
const (
	StepNewRequestReceived   = "new_request_received"
	StepDataFetchedCache     = "data_fetched_cache"
	StepDataFetchedColdStore = "data_fetched_cold_store"
	StepTxnsDecoded          = "txns_decoded"
	StepChunkSent            = "chunk_sent"
	StepAllChunksSent        = "all_chunks_sent"
)

var tracer = otel.Tracer("indexer-grpc-data-service")

// Event is one structured step-event observation.
type Event struct {
	ServiceType    string
	Step           string
	StartVersion   *int64
	EndVersion     *int64
	Duration       *time.Duration
	SizeBytes      *int
	Count          *int64
	ConnectionID   string
	ProcessorName  string
}

// LogStep records an Event as a span event on the span found in ctx (if
// any), matching the contract of the "observability sink" collaborator in
// SPEC_FULL.md §2: a structured step event with optional
// start/end/duration/size/count plus request metadata.
func LogStep(ctx context.Context, ev Event) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("service_type", ev.ServiceType),
		attribute.String("step", ev.Step),
	}
	if ev.StartVersion != nil {
		attrs = append(attrs, attribute.Int64("start_version", *ev.StartVersion))
	}
	if ev.EndVersion != nil {
		attrs = append(attrs, attribute.Int64("end_version", *ev.EndVersion))
	}
	if ev.Duration != nil {
		attrs = append(attrs, attribute.Float64("duration_secs", ev.Duration.Seconds()))
	}
	if ev.SizeBytes != nil {
		attrs = append(attrs, attribute.Int("size_bytes", *ev.SizeBytes))
	}
	if ev.Count != nil {
		attrs = append(attrs, attribute.Int64("count", *ev.Count))
	}
	if ev.ConnectionID != "" {
		attrs = append(attrs, attribute.String("connection_id", ev.ConnectionID))
	}
	if ev.ProcessorName != "" {
		attrs = append(attrs, attribute.String("processor_name", ev.ProcessorName))
	}

	span.AddEvent(ev.Step, trace.WithAttributes(attrs...))
}

// StartSubscriptionSpan opens the root span for one subscription's lifetime,
// named after the RPC it serves.
func StartSubscriptionSpan(ctx context.Context, connectionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "GetTransactions", trace.WithAttributes(
		attribute.String("connection_id", connectionID),
	))
}
