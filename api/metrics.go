package api

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"board-sync/domain"
)

const (
	tracerName          = "board-sync/api"
	mutationSpanName    = "board.mutation"
	mutationEventName   = "board.mutation.completed"
	mutationEventDomain = "board-sync"
)

// mutationMetrics captures one pass through the mutation pipeline as an
// OpenTelemetry span plus a structured observability log record.
type mutationMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	op              string
	taskID          int64
	clientsNotified int
	errorStage      string
}

func newMutationMetrics(ctx context.Context, logger *log.Logger, op string) (*mutationMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, mutationSpanName)
	return &mutationMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
		op:     op,
	}, spanCtx
}

func (m *mutationMetrics) SetTaskID(id int64) {
	if id <= 0 {
		return
	}
	m.taskID = id
}

func (m *mutationMetrics) SetClientsNotified(count int) {
	if count < 0 {
		count = 0
	}
	m.clientsNotified = count
}

func (m *mutationMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finishes the span and emits the observability event. It must be called
// exactly once per mutation, after the pipeline step completed or failed.
func (m *mutationMetrics) Log(err error) {
	if m == nil || m.logger == nil {
		return
	}

	totalMs := durationToMillis(time.Since(m.start))
	severityText, severityNumber := severityForError(err)

	attrs := []attribute.KeyValue{
		attribute.String("board.op", m.op),
		attribute.Float64("board.total_ms", totalMs),
		attribute.Int("board.clients_notified", m.clientsNotified),
	}
	if m.taskID > 0 {
		attrs = append(attrs, attribute.Int64("board.task_id", m.taskID))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("board.error_stage", m.errorStage))
	}

	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", mutationEventName),
		attribute.String("event.domain", mutationEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	}, attrs...)
	if err != nil {
		eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
	}

	m.span.SetAttributes(attrs...)
	m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
	if err != nil {
		m.span.SetStatus(codes.Error, err.Error())
	} else {
		m.span.SetStatus(codes.Ok, "")
	}
	m.span.End()

	attrMap := map[string]any{
		"board.op":               m.op,
		"board.total_ms":         totalMs,
		"board.clients_notified": m.clientsNotified,
	}
	if m.taskID > 0 {
		attrMap["board.task_id"] = m.taskID
	}
	if m.errorStage != "" {
		attrMap["board.error_stage"] = m.errorStage
	}

	fields := log.Fields{
		"event.name":      mutationEventName,
		"event.domain":    mutationEventDomain,
		"attributes":      attrMap,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if sc := m.span.SpanContext(); sc.HasTraceID() {
		fields["trace_id"] = sc.TraceID().String()
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error("observability.event")
	case "WARN":
		entry.Warn("observability.event")
	default:
		entry.Info("observability.event")
	}
}

// severityForError maps a mutation outcome to OTLP severity. Protocol-level
// failures (missing records, rejected values) are warnings; anything else
// that errors is unexpected.
func severityForError(err error) (string, int) {
	if err == nil {
		return "INFO", 9
	}
	var nf domain.NotFoundError
	var ve domain.ValidationError
	if errors.As(err, &nf) || errors.As(err, &ve) {
		return "WARN", 13
	}
	return "ERROR", 17
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
