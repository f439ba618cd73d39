package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Span pairs an OpenTelemetry span with the operation logger so that span
// events also show up in debug logs.
type Span struct {
	span   trace.Span
	logger *zap.Logger
	name   string
}

func StartSpan(ctx context.Context, tracer trace.Tracer, logger *zap.Logger, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	return ctx, &Span{
		span:   span,
		logger: logger,
		name:   name,
	}
}

func (s *Span) End(err error) {
	if err != nil {
		s.span.SetStatus(codes.Error, err.Error())
		s.span.RecordError(err)
		s.logger.Debug("span failed", zap.String("span", s.name), zap.Error(err))
	} else {
		s.span.SetStatus(codes.Ok, "")
	}

	s.span.End()
}

func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))

	if ce := s.logger.Check(zap.DebugLevel, name); ce != nil {
		fields := make([]zap.Field, 0, len(attrs)+1)
		fields = append(fields, zap.String("span", s.name))
		for _, attr := range attrs {
			fields = append(fields, zap.String(string(attr.Key), attr.Value.Emit()))
		}
		ce.Write(fields...)
	}
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}
