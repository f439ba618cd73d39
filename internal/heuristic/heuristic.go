// Package heuristic holds the fallback strategies tried after the selector
// registry comes back empty. A strategy only finds an element; the caller
// clicks it and reports the locator back to the registry.
package heuristic

import (
	"context"
	"errors"
	"track-downloader/internal/ports"
	"track-downloader/pkg/logg"
	"track-downloader/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const heuristicTracer = "heuristic"

// Hit is a located element plus the locator that re-finds it. Locator is
// empty when the element was found by inspection and no stable selector
// could be derived.
type Hit struct {
	Element ports.Element
	Locator string
}

func (h Hit) Found() bool {
	return h.Element != nil
}

type Strategy interface {
	Name() string
	Find(ctx context.Context, scope ports.Scope) (Hit, error)
}

// Chain tries strategies in order and returns the first hit. Strategy
// errors are logged and skipped; only context errors stop the chain.
type Chain struct {
	name       string
	logger     *zap.Logger
	tracer     trace.Tracer
	strategies []Strategy
}

func NewChain(logger *zap.Logger, name string, strategies ...Strategy) *Chain {
	return &Chain{
		name:       name,
		logger:     logger.With(zap.String(logg.Layer, "Heuristic"), zap.String(logg.Strategy, name)),
		tracer:     otel.Tracer(heuristicTracer),
		strategies: strategies,
	}
}

func (c *Chain) Name() string {
	return c.name
}

func (c *Chain) Find(ctx context.Context, scope ports.Scope) (hit Hit, err error) {
	const op = "Find"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, "heuristic."+c.name)
	defer func() {
		step.SetAttributes(attribute.Bool("heuristic.found", hit.Found()))
		step.End(err)
	}()

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return Hit{}, err
		}

		hit, err := s.Find(ctx, scope)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Hit{}, err
			}

			logger.Debug("Strategy failed", zap.String("step", s.Name()), zap.Error(err))

			continue
		}

		if hit.Found() {
			logger.Info("Fallback strategy found element", zap.String("step", s.Name()), zap.String(logg.Locator, hit.Locator))
			step.AddEvent("hit", attribute.String("step", s.Name()), attribute.String("locator", hit.Locator))

			return hit, nil
		}
	}

	return Hit{}, nil
}
