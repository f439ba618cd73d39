package selector

import (
	"context"
	"time"
	"track-downloader/internal/ports"
	"track-downloader/pkg/logg"

	"go.uber.org/zap"
)

// HealthCheck resolves each name against scope and reports which still
// find something. With no names it checks CriticalNames.
func (r *Registry) HealthCheck(ctx context.Context, scope ports.Scope, wait time.Duration, names ...string) (map[string]bool, error) {
	const op = "HealthCheck"
	logger := r.logger.With(zap.String(logg.Operation, op))

	if len(names) == 0 {
		names = CriticalNames
	}

	logger.Info("Running selector health check", zap.Strings("names", names))

	result := make(map[string]bool, len(names))
	broken := make([]string, 0)

	for _, name := range names {
		match, err := r.Resolve(ctx, name, scope, All().WithWait(wait))
		if err != nil {
			return result, err
		}

		result[name] = match.Found()
		if !match.Found() {
			broken = append(broken, name)
		}
	}

	if len(broken) > 0 {
		logger.Warn("Some selectors appear to be broken and need updating", zap.Strings("broken", broken))
	} else {
		logger.Info("All selectors appear to be healthy")
	}

	return result, nil
}
