// Package telemetry is the observability collaborator of the source roots:
// it receives parser fault reports and wraps root construction in spans.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jward/grove/internal/source"
)

var (
	tracer = otel.Tracer("grove.roots")
	meter  = otel.Meter("grove.roots")
)

var parserFaults = promauto.NewCounter(prometheus.CounterOpts{
	Name: "grove_parser_faults_total",
	Help: "Parser panics captured at the source root boundary",
})

var (
	buildDuration metric.Float64Histogram
	buildFiles    metric.Int64Histogram
	metricsOnce   sync.Once
)

func initMetrics() {
	metricsOnce.Do(func() {
		var err error
		buildDuration, err = meter.Float64Histogram(
			"grove_readonly_root_build_seconds",
			metric.WithDescription("Duration of read-only source root construction"),
			metric.WithUnit("s"),
		)
		if err != nil {
			otel.Handle(err)
		}
		buildFiles, err = meter.Int64Histogram(
			"grove_readonly_root_files",
			metric.WithDescription("Number of files per read-only source root"),
		)
		if err != nil {
			otel.Handle(err)
		}
	})
}

// FaultReporter receives unrecoverable parser failures together with the
// text that triggered them. Implementations must not panic.
type FaultReporter interface {
	ParserFault(file source.FileID, text string, cause any)
}

// Observer is the default FaultReporter. It logs the offending text, records
// a span event and counts the fault.
type Observer struct {
	logger *slog.Logger
}

// NewObserver returns an Observer logging to logger. A nil logger uses
// slog.Default.
func NewObserver(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{logger: logger}
}

// ParserFault implements FaultReporter.
func (o *Observer) ParserFault(file source.FileID, text string, cause any) {
	parserFaults.Inc()

	o.logger.Error("parser panicked",
		slog.Any("file_id", uint32(file)),
		slog.String("cause", fmt.Sprint(cause)),
		slog.String("text", "\n------\n"+text+"\n------\n"),
	)

	_, span := tracer.Start(context.Background(), "parser.fault")
	defer span.End()
	span.AddEvent("parser panicked", trace.WithAttributes(
		attribute.Int64("file_id", int64(file)),
		attribute.Int("text_bytes", len(text)),
		attribute.String("text", text),
	))
	span.SetStatus(codes.Error, fmt.Sprint(cause))
}

// StartBuild opens a span covering read-only root construction. The returned
// func ends the span and records the build metrics.
func StartBuild(ctx context.Context, files int) (context.Context, func()) {
	initMetrics()
	start := time.Now()
	ctx, span := tracer.Start(ctx, "readonly_root.build",
		trace.WithAttributes(attribute.Int("files", files)))
	return ctx, func() {
		elapsed := time.Since(start)
		if buildDuration != nil {
			buildDuration.Record(ctx, elapsed.Seconds())
		}
		if buildFiles != nil {
			buildFiles.Record(ctx, int64(files))
		}
		span.End()
	}
}

// StartPhase opens a child span for one phase of a build.
func StartPhase(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}
