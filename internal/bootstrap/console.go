package bootstrap

import (
	"context"
	"track-downloader/internal/console"
	"track-downloader/internal/ports"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func runConsole(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	consoleInterface *console.Interface,
	browser ports.BrowserManager,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting track downloader console...")

			logger.Info("Launching browser...")

			if err := browser.Launch(ctx); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))

				return err
			}

			logger.Info("Browser launched successfully")

			go func() {
				if err := consoleInterface.Start(); err != nil {
					logger.Error("Console interface error", zap.Error(err))
				}

				if err := shutdowner.Shutdown(); err != nil {
					logger.Error("Failed to request shutdown", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down track downloader...")

			if err := consoleInterface.Stop(ctx); err != nil {
				logger.Error("Failed to stop console", zap.Error(err))
			}

			if err := browser.Close(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))
			}

			return nil
		},
	})
}
