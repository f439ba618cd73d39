package bootstrap

import (
	"context"
	"io"
	"track-downloader/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const serviceName = "track-downloader"

// newTraceProvider prints spans to stdout in debug mode. Outside debug the
// spans are still produced but discarded.
func newTraceProvider(lc fx.Lifecycle, config *config.Config, logger *zap.Logger) (*sdktrace.TracerProvider, error) {
	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if !config.AppConfig.Debug {
		opts = []stdouttrace.Option{stdouttrace.WithWriter(io.Discard)}
	}

	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		logger.Error("Failed to create trace exporter", zap.Error(err))

		return nil, err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		logger.Error("Failed to create resource", zap.Error(err))

		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})

	return tp, nil
}
