package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by creating OpenTelemetry spans.
//
// Each event becomes a span with:
//   - Span name: event.Msg ("node finished", "session paused", ...)
//   - Attributes: session id, seq, node, and all event.Meta fields
//   - Status: set to error if event.Meta["error"] exists
//
// Events represent points in time, so each span is ended immediately;
// the batch span processor takes care of efficient export.
//
// Usage:
//
//	tracer := otel.Tracer("mailgraph")
//	emitter := emit.NewOTelEmitter(tracer)
//	engine, _ := graph.New(g, reduce, st, graph.WithEmitter[MyState](emitter))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates a new OTelEmitter.
//
// tracer typically comes from otel.Tracer("service-name") after the
// application configures its trace provider.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit creates an OpenTelemetry span for the event.
func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("mailgraph.session_id", event.SessionID),
		attribute.Int("mailgraph.seq", event.Seq),
		attribute.String("mailgraph.node", event.Node),
	)
	o.addMetaAttributes(span, event.Meta)

	if errMsg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}

// Flush forces export of all pending spans.
//
// Should be called before application shutdown so buffered spans reach the
// backend. A no-op when the global provider doesn't support flushing.
func (o *OTelEmitter) Flush(ctx context.Context) error {
	type flusher interface {
		ForceFlush(context.Context) error
	}

	if f, ok := otel.GetTracerProvider().(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

// addMetaAttributes converts event metadata to span attributes.
func (o *OTelEmitter) addMetaAttributes(span trace.Span, meta map[string]any) {
	for key, value := range meta {
		attrKey := "mailgraph." + key
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(attrKey, v))
		case int:
			span.SetAttributes(attribute.Int(attrKey, v))
		case int64:
			span.SetAttributes(attribute.Int64(attrKey, v))
		case float64:
			span.SetAttributes(attribute.Float64(attrKey, v))
		case bool:
			span.SetAttributes(attribute.Bool(attrKey, v))
		case time.Duration:
			span.SetAttributes(attribute.Int64(attrKey, int64(v/time.Millisecond)))
		default:
			span.SetAttributes(attribute.String(attrKey, fmt.Sprintf("%v", v)))
		}
	}
}
