package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/lectern-app/lectern"
)

// ObservedFetcher wraps a lectern.Fetcher with OTEL instrumentation.
type ObservedFetcher struct {
	inner lectern.Fetcher
	inst  *Instruments
}

var _ lectern.Fetcher = (*ObservedFetcher)(nil)

// WrapFetcher returns an instrumented fetcher that emits traces and metrics.
func WrapFetcher(inner lectern.Fetcher, inst *Instruments) *ObservedFetcher {
	return &ObservedFetcher{inner: inner, inst: inst}
}

func (o *ObservedFetcher) FetchChapter(ctx context.Context, ref lectern.ChapterRef) ([]lectern.Verse, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "scripture.fetch", trace.WithAttributes(
		AttrTranslation.String(string(ref.Translation)),
		AttrBook.String(ref.Book),
		AttrChapter.Int(ref.Chapter),
	))
	defer span.End()
	start := time.Now()

	verses, err := o.inner.FetchChapter(ctx, ref)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	o.inst.ChapterFetches.Add(ctx, 1, metric.WithAttributes(
		AttrTranslation.String(string(ref.Translation)),
		attribute.String("status", status),
	))
	o.inst.ChapterDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrTranslation.String(string(ref.Translation)),
	))

	// Structured log
	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("chapter fetch completed"))
	rec.AddAttributes(
		otellog.String("scripture.translation", string(ref.Translation)),
		otellog.String("scripture.book", ref.Book),
		otellog.Int("scripture.chapter", ref.Chapter),
		otellog.Float64("fetch.duration_ms", durationMs),
		otellog.String("status", status),
	)
	o.inst.Logger.Emit(ctx, rec)

	return verses, err
}
