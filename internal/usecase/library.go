package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"track-downloader/internal/config"
	"track-downloader/internal/entity"
	"track-downloader/internal/heuristic"
	"track-downloader/internal/ports"
	"track-downloader/internal/selector"
	"track-downloader/pkg/apperr"
	"track-downloader/pkg/logg"
	"track-downloader/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	libraryServiceName = "LibraryService"
	libraryTracer      = "usecase.library"
	downloadsPerPage   = 100
)

// delays are the pauses the site needs between steps.
type delays struct {
	poll       time.Duration
	click      time.Duration
	popup      time.Duration
	pageLoad   time.Duration
	navigation time.Duration
}

func defaultDelays() delays {
	return delays{
		poll:       time.Second,
		click:      500 * time.Millisecond,
		popup:      time.Second,
		pageLoad:   5 * time.Second,
		navigation: 15 * time.Second,
	}
}

type LibraryService struct {
	config     *config.Config
	logger     *zap.Logger
	tracer     trace.Tracer
	browser    ports.BrowserManager
	registry   *selector.Registry
	heuristics *heuristic.Set
	delays     delays

	mu     sync.Mutex
	cancel context.CancelFunc
}

type LibraryServiceParams struct {
	fx.In

	Config     *config.Config
	Logger     *zap.Logger
	Browser    ports.BrowserManager
	Registry   *selector.Registry
	Heuristics *heuristic.Set
}

func NewLibraryService(params LibraryServiceParams) *LibraryService {
	return &LibraryService{
		config:     params.Config,
		logger:     params.Logger.With(zap.String(logg.Layer, libraryServiceName)),
		tracer:     otel.Tracer(libraryTracer),
		browser:    params.Browser,
		registry:   params.Registry,
		heuristics: params.Heuristics,
		delays:     defaultDelays(),
	}
}

// Run logs in, walks the requested library pages and optionally the
// downloads page. The returned run is non-nil whenever the options were
// valid, including on failure and cancellation.
func (s *LibraryService) Run(ctx context.Context, opts entity.RunOptions) (run *entity.Run, err error) {
	const op = "Run"
	logger := s.logger.With(zap.String(logg.Operation, op))

	if opts.EndPage == 0 {
		opts.EndPage = opts.StartPage
	}

	if opts.StartPage < 1 {
		return nil, apperr.InvalidReqError(op, "start_page", fmt.Errorf("start page must be >= 1, got %d", opts.StartPage))
	}

	if !opts.DownloadsOnly && opts.EndPage < opts.StartPage {
		return nil, apperr.InvalidReqError(op, "end_page",
			fmt.Errorf("end page %d is before start page %d", opts.EndPage, opts.StartPage))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()

		return nil, apperr.WrapErrorWithReason(op, apperr.CodeAlreadyRunning, "run_in_progress")
	}
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	run = entity.NewRun(opts)
	run.Status = entity.RunStatusInProgress
	logger = logger.With(zap.String(logg.RunID, run.ID.String()), zap.String("mode", string(run.Mode)))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("run_id", run.ID.String()),
		attribute.Int("start_page", opts.StartPage),
		attribute.Int("end_page", opts.EndPage),
		attribute.Bool("downloads_only", opts.DownloadsOnly))
	defer func() {
		step.SetAttributes(
			attribute.Int("successful", run.Successful),
			attribute.Int("skipped", run.Skipped),
			attribute.Int("failed", len(run.Failed)))
		step.End(err)
	}()

	defer func() {
		switch {
		case err == nil:
			run.Finish(entity.RunStatusCompleted, nil)
		case errors.Is(err, context.Canceled) || apperr.HasCode(err, apperr.CodeCancelledByUser):
			run.Finish(entity.RunStatusCancelled, err)
		default:
			run.Finish(entity.RunStatusFailed, err)
		}

		logger.Info("Processing summary",
			zap.String("status", string(run.Status)),
			zap.Int("pages", run.PagesProcessed),
			zap.Int("successful", run.Successful),
			zap.Int("skipped", run.Skipped),
			zap.Int("failed", len(run.Failed)))
	}()

	if !s.browser.IsReady() {
		return run, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err = s.login(ctx); err != nil {
		return run, err
	}

	if opts.DownloadsOnly {
		return run, s.processDownloadsPage(ctx, run)
	}

	if err = s.processLibrary(ctx, run); err != nil {
		return run, err
	}

	if opts.CheckDownloads {
		logger.Info("Checking downloads page...")

		if err = s.processDownloadsPage(ctx, run); err != nil {
			return run, err
		}
	}

	return run, nil
}

// Stop cancels the run in progress, if any.
func (s *LibraryService) Stop() {
	const op = "Stop"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}

	s.logger.Info("Stopping run...", zap.String(logg.Operation, op))
	s.cancel()
}

// Health checks the critical selectors against whatever page is open. It
// is refused while a run is driving the page.
func (s *LibraryService) Health(ctx context.Context) (result map[string]bool, err error) {
	const op = "Health"
	logger := s.logger.With(zap.String(logg.Operation, op))

	s.mu.Lock()
	running := s.cancel != nil
	s.mu.Unlock()

	if running {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeAlreadyRunning, "run_in_progress")
	}

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	doc, err := s.browser.Document(ctx)
	if err != nil {
		return nil, err
	}

	return s.registry.HealthCheck(ctx, doc, s.config.SelectorConfig.Wait)
}

// login opens the login page and waits until the browser leaves it.
func (s *LibraryService) login(ctx context.Context) (err error) {
	const op = "login"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	lib := s.config.LibraryConfig
	loginURL := lib.BaseURL + lib.LoginPath

	if err := s.browser.Navigate(ctx, loginURL); err != nil {
		return err
	}

	logger.Info("Please log in in the browser window", zap.Duration("timeout", lib.LoginTimeout))

	waitCtx, cancel := context.WithTimeout(ctx, lib.LoginTimeout)
	defer cancel()

	ticker := time.NewTicker(s.delays.poll)
	defer ticker.Stop()

	for {
		url, err := s.browser.CurrentURL(waitCtx)
		if err == nil && url != "" && !strings.Contains(url, lib.LoginPath) {
			logger.Info("Login detected", zap.String(logg.URL, url))
			step.AddEvent("logged in")

			return nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return apperr.Wrap(op, apperr.CodeTimeout, waitCtx.Err(), map[string]any{
				apperr.MetaReason: "login_timeout",
				apperr.MetaStage:  apperr.StageLogin,
			})
		case <-ticker.C:
		}
	}
}

func (s *LibraryService) processLibrary(ctx context.Context, run *entity.Run) (err error) {
	const op = "processLibrary"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.RunID, run.ID.String()))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	lib := s.config.LibraryConfig
	page := run.Options.StartPage

	if err := s.browser.Navigate(ctx, fmt.Sprintf("%s%s?page=%d", lib.BaseURL, lib.LibraryPath, page)); err != nil {
		return err
	}

	for {
		run.CurrentPage = page
		step.AddEvent("page", attribute.Int("page", page))

		found, err := s.processPage(ctx, run, page)
		if err != nil {
			return err
		}

		if !found {
			logger.Warn("No tracks found on page", zap.Int(logg.Page, page))

			return nil
		}

		run.PagesProcessed++

		if page >= run.Options.EndPage {
			logger.Info("Reached end page", zap.Int(logg.Page, page))

			return nil
		}

		next, ok, err := s.nextPage(ctx, page)
		if err != nil {
			return err
		}

		if !ok {
			return nil
		}

		page = next
	}
}

// processDownloadsPage re-runs the current downloads page until an attempt
// dispatches nothing new. On failure it leaves a screenshot in the download
// directory.
func (s *LibraryService) processDownloadsPage(ctx context.Context, run *entity.Run) (err error) {
	const op = "processDownloadsPage"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.RunID, run.ID.String()))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	defer func() {
		if err == nil || ctx.Err() != nil {
			return
		}

		path := filepath.Join(s.config.BrowserConfig.DownloadDir,
			fmt.Sprintf("error_screenshot_%s.png", time.Now().Format("20060102_150405")))

		if shotErr := s.browser.Screenshot(context.WithoutCancel(ctx), path); shotErr != nil {
			logger.Warn("Failed to capture error screenshot", zap.Error(shotErr))
		} else {
			logger.Info("Error screenshot saved", zap.String(logg.Path, path))
		}
	}()

	lib := s.config.LibraryConfig
	url := fmt.Sprintf("%s%s?page=1&per_page=%d", lib.BaseURL, lib.DownloadsPath, downloadsPerPage)

	if err := s.browser.Navigate(ctx, url); err != nil {
		return err
	}

	if err := sleep(ctx, s.delays.pageLoad); err != nil {
		return err
	}

	attempts := lib.DownloadAttempts
	if attempts < 1 {
		attempts = 1
	}

	previous := run.Successful

	for attempt := 1; attempt <= attempts; attempt++ {
		logger.Info("Download attempt", zap.Int("attempt", attempt), zap.Int("max", attempts))
		run.CurrentPage = 1

		found, err := s.processPage(ctx, run, 1)
		if err != nil {
			return err
		}

		if !found {
			logger.Info("No more tracks found to download")

			return nil
		}

		if run.Successful == previous {
			logger.Info("No new tracks were downloaded in this attempt, stopping")

			return nil
		}

		previous = run.Successful

		if attempt == attempts {
			break
		}

		logger.Info("Refreshing downloads page...")

		if err := s.browser.Reload(ctx); err != nil {
			return err
		}

		if err := sleep(ctx, s.delays.pageLoad); err != nil {
			return err
		}
	}

	logger.Info("Download page processing complete")

	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
