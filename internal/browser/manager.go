package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
	"track-downloader/internal/config"
	"track-downloader/internal/ports"
	"track-downloader/pkg/apperr"
	"track-downloader/pkg/logg"
	"track-downloader/pkg/tracing"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	userAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	settleDelay        = 500 * time.Millisecond
)

type Manager struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext

	mu    sync.Mutex
	page  playwright.Page
	ready bool

	downloads atomic.Int64
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer: otel.Tracer(browserTracer),
	}
}

func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")

	if err := os.MkdirAll(m.config.BrowserConfig.DownloadDir, 0o755); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "mkdir_failed",
			apperr.MetaStage:  apperr.StagePreparation,
			apperr.MetaPath:   m.config.BrowserConfig.DownloadDir,
		})
	}

	step.AddEvent("installing playwright")

	if err = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_install_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.playwright = pw

	if m.config.BrowserConfig.UserDataDir != "" {
		return m.launchPersistent(ctx)
	}

	return m.launchNew(ctx)
}

func (m *Manager) viewport() *playwright.Size {
	return &playwright.Size{
		Width:  m.config.BrowserConfig.ViewportWidth,
		Height: m.config.BrowserConfig.ViewportHeight,
	}
}

func (m *Manager) launchPersistent(ctx context.Context) (err error) {
	const op = "launchPersistent"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	userDataDir := m.config.BrowserConfig.UserDataDir
	logger.Info("Launching persistent browser context", zap.String(logg.Path, userDataDir))

	if err := os.MkdirAll(userDataDir, 0o755); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "mkdir_failed",
			apperr.MetaStage:  apperr.StageBrowser,
			apperr.MetaPath:   userDataDir,
		})
	}

	browserContext, err := m.playwright.Chromium.LaunchPersistentContext(userDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:        playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:          playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
		Viewport:        m.viewport(),
		UserAgent:       playwright.String(userAgent),
		AcceptDownloads: playwright.Bool(true),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
		},
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "launch_persistent_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.browserContext = browserContext

	var page playwright.Page
	if pages := browserContext.Pages(); len(pages) > 0 {
		page = pages[0]
		logger.Info("Using existing page")
	} else {
		page, err = browserContext.NewPage()
		if err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "new_page_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
	}

	m.attach(page)
	logger.Info("Browser launched successfully")

	return nil
}

func (m *Manager) launchNew(ctx context.Context) (err error) {
	const op = "launchNew"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching new browser")

	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:   playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
		Args:     []string{"--disable-blink-features=AutomationControlled"},
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browser = browser

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:        m.viewport(),
		UserAgent:       playwright.String(userAgent),
		AcceptDownloads: playwright.Bool(true),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browserContext = browserContext

	page, err := browserContext.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.attach(page)
	logger.Info("Browser launched successfully")

	return nil
}

// attach makes page current and saves its downloads into DOWNLOAD_DIR.
func (m *Manager) attach(page playwright.Page) {
	page.SetDefaultTimeout(float64(m.config.BrowserConfig.Timeout))

	page.OnDownload(func(download playwright.Download) {
		name := filepath.Base(download.SuggestedFilename())
		path := filepath.Join(m.config.BrowserConfig.DownloadDir, name)

		if err := download.SaveAs(path); err != nil {
			m.logger.Warn("Failed to save download", zap.String(logg.Path, path), zap.Error(err))

			return
		}

		m.downloads.Add(1)
		m.logger.Info("Saved download", zap.String(logg.Path, path))
	})

	m.mu.Lock()
	m.page = page
	m.ready = true
	m.mu.Unlock()
}

func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Closing browser...")

	m.mu.Lock()
	m.ready = false
	m.mu.Unlock()

	if m.browserContext != nil {
		if err := m.browserContext.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}
	}

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	if m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_stop_failed",
			})
		}
	}

	logger.Info("Browser closed", zap.Int64("downloads_saved", m.downloads.Load()))

	return nil
}

// activePage returns the current page, switching to another open page or
// opening a new one if the user closed it.
func (m *Manager) activePage(op string) (playwright.Page, error) {
	m.mu.Lock()
	ready, page := m.ready, m.page
	m.mu.Unlock()

	if !ready {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if page != nil && !page.IsClosed() {
		return page, nil
	}

	m.logger.Info("Page closed, reconnecting to active page...")

	for _, p := range m.browserContext.Pages() {
		if !p.IsClosed() {
			m.attach(p)

			return p, nil
		}
	}

	page, err := m.browserContext.NewPage()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.attach(page)

	return page, nil
}

func (m *Manager) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	page, err := m.activePage(op)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	_, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(m.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	step.AddEvent("navigation completed")

	return sleep(ctx, settleDelay)
}

func (m *Manager) Reload(ctx context.Context) (err error) {
	const op = "Reload"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	page, err := m.activePage(op)
	if err != nil {
		return err
	}

	_, err = page.Reload(playwright.PageReloadOptions{
		Timeout:   playwright.Float(float64(m.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "reload_failed",
			apperr.MetaStage:  apperr.StageNavigation,
		})
	}

	return sleep(ctx, settleDelay)
}

func (m *Manager) CurrentURL(ctx context.Context) (string, error) {
	page, err := m.activePage("CurrentURL")
	if err != nil {
		return "", err
	}

	return page.URL(), nil
}

func (m *Manager) Screenshot(ctx context.Context, path string) (err error) {
	const op = "Screenshot"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Path, path))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	page, err := m.activePage(op)
	if err != nil {
		return err
	}

	_, err = page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
			apperr.MetaPath:   path,
		})
	}

	logger.Info("Saved screenshot")

	return nil
}

// Document returns the current page as a locator scope.
func (m *Manager) Document(ctx context.Context) (ports.Scope, error) {
	page, err := m.activePage("Document")
	if err != nil {
		return nil, err
	}

	return &pageScope{page: page}, nil
}

func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ready
}

// Downloads returns how many files were saved since launch.
func (m *Manager) Downloads() int64 {
	return m.downloads.Load()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("interrupted: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
