package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RenderMetrics records document render activity.
// A nil *RenderMetrics is valid and records nothing.
type RenderMetrics struct {
	renders   *Counter
	failures  *Counter
	bytes     *Counter
	duration  *Histogram
	pageCount *Histogram
}

// NewRenderMetrics creates the render instruments on meter
func NewRenderMetrics(meter metric.Meter) (*RenderMetrics, error) {
	renders, err := NewCounter(meter, "pdf_renders_total", "Documents rendered", "{document}")
	if err != nil {
		return nil, err
	}
	failures, err := NewCounter(meter, "pdf_render_failures_total", "Document renders that failed", "{document}")
	if err != nil {
		return nil, err
	}
	bytes, err := NewCounter(meter, "pdf_output_bytes_total", "Bytes of PDF output produced", "By")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "pdf_render_duration_seconds",
		Description: "Time spent rendering a document",
		Unit:        "s",
		Boundaries:  RenderDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	pageCount, err := NewHistogram(meter, HistogramOpts{
		Name:        "pdf_page_count",
		Description: "Pages per rendered document",
		Unit:        "{page}",
		Boundaries:  PageCountBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &RenderMetrics{
		renders:   renders,
		failures:  failures,
		bytes:     bytes,
		duration:  duration,
		pageCount: pageCount,
	}, nil
}

// RecordRender records one successful render
func (m *RenderMetrics) RecordRender(ctx context.Context, kind, action string, pages int, size int64, d time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrDocumentKind.String(kind), AttrAction.String(action)}
	m.renders.Inc(ctx, attrs...)
	m.bytes.Add(ctx, size, attrs...)
	m.duration.RecordDuration(ctx, d, attrs...)
	m.pageCount.Record(ctx, float64(pages), attrs...)
}

// RecordFailure records one failed render
func (m *RenderMetrics) RecordFailure(ctx context.Context, kind, action string) {
	if m == nil {
		return
	}
	m.failures.Inc(ctx, AttrDocumentKind.String(kind), AttrAction.String(action))
}
