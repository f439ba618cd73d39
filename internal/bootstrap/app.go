package bootstrap

import (
	"time"
	"track-downloader/internal/browser"
	"track-downloader/internal/config"
	"track-downloader/internal/console"
	"track-downloader/internal/heuristic"
	"track-downloader/internal/ports"
	"track-downloader/internal/selector"
	"track-downloader/internal/storage"
	"track-downloader/internal/usecase"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

func NewApp() *fx.App {
	return fx.New(
		Options(),
		fx.StartTimeout(2*time.Minute),
	)
}

// Options is the dependency graph without start settings, so it can be
// validated on its own.
func Options() fx.Option {
	return fx.Options(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,

			fx.Annotate(browser.NewManager, fx.As(new(ports.BrowserManager))),
			fx.Annotate(storage.NewSelectorFile, fx.As(new(ports.SelectorStore))),

			selector.NewRegistry,
			heuristic.NewSet,

			usecase.NewUsecase,

			console.NewInterface,
		),

		fx.Invoke(
			func(*sdktrace.TracerProvider) {},
			runConsole,
		),
	)
}
