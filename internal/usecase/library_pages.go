package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"track-downloader/internal/entity"
	"track-downloader/internal/heuristic"
	"track-downloader/internal/ports"
	"track-downloader/internal/selector"
	"track-downloader/pkg/apperr"
	"track-downloader/pkg/logg"

	"go.uber.org/zap"
)

var pageParam = regexp.MustCompile(`[?&]page=(\d+)`)

// nextPage clicks the pager's next link and returns the page it landed
// on. ok is false on the last page or when no pager is found.
func (s *LibraryService) nextPage(ctx context.Context, current int) (next int, ok bool, err error) {
	const op = "nextPage"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.Int(logg.Page, current))

	doc, err := s.browser.Document(ctx)
	if err != nil {
		return 0, false, err
	}

	var (
		button  ports.Element
		learned string
	)

	scope, err := s.pagerScope(ctx, doc)
	if err != nil {
		return 0, false, err
	}

	match, err := s.registry.Resolve(ctx, selector.NameNextButton, scope, selector.One().WithWait(s.config.SelectorConfig.Wait))
	if err != nil {
		return 0, false, err
	}

	if !match.Found() && scope != doc {
		match, err = s.registry.Resolve(ctx, selector.NameNextButton, doc, selector.One())
		if err != nil {
			return 0, false, err
		}
	}

	if match.Found() {
		button = match.First()
	} else {
		logger.Warn("No next button found using selector registry, trying fallback methods")

		hit, err := s.heuristics.NextPage.Find(ctx, doc)
		if err != nil {
			return 0, false, err
		}

		button, learned = hit.Element, hit.Locator
	}

	if button == nil {
		logger.Info("No next button found, either the last page or a layout change")

		return 0, false, nil
	}

	if heuristic.Disabled(ctx, button) {
		logger.Info("Next button is disabled, on the last page")

		return 0, false, nil
	}

	before, _ := s.browser.CurrentURL(ctx)

	if err := s.click(ctx, button); err != nil {
		if ctx.Err() != nil {
			return 0, false, ctx.Err()
		}

		return 0, false, apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "next_click_failed",
			apperr.MetaStage:  apperr.StagePagination,
			apperr.MetaPage:   current,
		})
	}

	if learned != "" {
		s.registry.RecordSuccess(ctx, selector.NameNextButton, learned)
	}

	after, err := s.waitForURLChange(ctx, before)
	if err != nil {
		return 0, false, err
	}

	if n, found := pageFromURL(after); found && n != current {
		logger.Info("Navigated to page", zap.Int("next", n))

		return n, true, nil
	}

	logger.Info("Navigated to next page (assumed)", zap.Int("next", current+1))

	return current + 1, true, nil
}

// pagerScope narrows the next button lookup to the pagination container
// when one is configured and present on the page.
func (s *LibraryService) pagerScope(ctx context.Context, doc ports.Scope) (ports.Scope, error) {
	if !s.registry.Has(selector.NamePagination) {
		return doc, nil
	}

	pager, err := s.registry.Resolve(ctx, selector.NamePagination, doc, selector.One())
	if err != nil {
		return nil, err
	}

	if !pager.Found() {
		return doc, nil
	}

	return pager.First(), nil
}

// waitForURLChange polls until the URL differs from before. Running out of
// time is not an error: client-side pagination may keep the URL.
func (s *LibraryService) waitForURLChange(ctx context.Context, before string) (string, error) {
	deadline := time.Now().Add(s.delays.navigation)

	for {
		url, err := s.browser.CurrentURL(ctx)
		if err == nil && url != before {
			return url, sleep(ctx, s.delays.click)
		}

		if time.Now().After(deadline) {
			return url, nil
		}

		if err := sleep(ctx, s.delays.poll); err != nil {
			return "", err
		}
	}
}

func pageFromURL(url string) (int, bool) {
	m := pageParam.FindStringSubmatch(url)
	if m == nil {
		return 0, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}

	return n, true
}

// Report writes the failed downloads of run to a timestamped text file in
// dir and returns its path.
func (s *LibraryService) Report(run *entity.Run, dir string) (path string, err error) {
	const op = "Report"
	logger := s.logger.With(zap.String(logg.Operation, op))

	if run == nil || len(run.Failed) == 0 {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeNotFound, "no_failed_downloads")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "mkdir_failed",
			apperr.MetaStage:  apperr.StageReport,
			apperr.MetaPath:   dir,
		})
	}

	path = filepath.Join(dir, fmt.Sprintf("failed_downloads_%s.txt", time.Now().Format("20060102_150405")))

	if err := os.WriteFile(path, []byte(formatReport(run)), 0o644); err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "write_failed",
			apperr.MetaStage:  apperr.StageReport,
			apperr.MetaPath:   path,
		})
	}

	logger.Info("Failed downloads report saved", zap.String(logg.Path, path), zap.Int("failed", len(run.Failed)))

	return path, nil
}

func formatReport(run *entity.Run) string {
	rule := strings.Repeat("=", 50)
	sep := strings.Repeat("-", 50)

	var b strings.Builder
	b.WriteString("Failed Downloads Report\n")
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "Run: %s\n", run.ID)
	fmt.Fprintf(&b, "Total Failed Downloads: %d\n\n", len(run.Failed))

	for _, f := range run.Failed {
		fmt.Fprintf(&b, "Track: %s\n", f.Title)
		fmt.Fprintf(&b, "Artist: %s\n", f.Artist)
		fmt.Fprintf(&b, "Reason: %s\n", f.Reason)
		fmt.Fprintf(&b, "Page: %d\n", f.Page)
		b.WriteString(sep + "\n")
	}

	return b.String()
}
