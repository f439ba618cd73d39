package usecase

import (
	"context"
	"strings"
	"track-downloader/internal/entity"
	"track-downloader/internal/ports"
	"track-downloader/internal/selector"
	"track-downloader/pkg/apperr"
	"track-downloader/pkg/logg"

	"go.uber.org/zap"
)

const (
	reasonNoButton    = "No download button found"
	unknownTitle      = "Track name not found"
	unknownArtist     = "Artist name not found"
	clickStaleRetries = 1
)

var (
	ancestorButton = entity.Structural("./ancestor::button[1]")
	trackTitleLink = entity.CSS("a[title]:not([title=''])")
)

// processPage handles every track container on the current page. It
// reports false when the page has no tracks.
func (s *LibraryService) processPage(ctx context.Context, run *entity.Run, page int) (bool, error) {
	const op = "processPage"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.Int(logg.Page, page))

	doc, err := s.browser.Document(ctx)
	if err != nil {
		return false, err
	}

	match, err := s.registry.Resolve(ctx, selector.NameTrackContainers, doc, selector.All().WithWait(s.config.SelectorConfig.Wait))
	if err != nil {
		return false, err
	}

	if !match.Found() {
		return false, nil
	}

	layout := detectLayout(ctx, match.First())
	logger.Info("Processing page", zap.Int("tracks", len(match.Elements)), zap.String(logg.Layout, string(layout)))

	for i, container := range match.Elements {
		if err := ctx.Err(); err != nil {
			return true, err
		}

		track := entity.Track{Index: i + 1, Page: page, Layout: layout}
		if err := s.processTrack(ctx, run, container, track); err != nil {
			return true, err
		}
	}

	return true, nil
}

// detectLayout tells the table layout from the card list by the first
// container's markup.
func detectLayout(ctx context.Context, container ports.Element) entity.Layout {
	testID, _ := container.Attribute(ctx, "data-testid")
	class, _ := container.Attribute(ctx, "class")

	if strings.Contains(testID, "library-tracks-table-row") || strings.Contains(strings.ToLower(class), "table") {
		return entity.LayoutWide
	}

	return entity.LayoutNarrow
}

func (s *LibraryService) processTrack(ctx context.Context, run *entity.Run, container ports.Element, track entity.Track) error {
	const op = "processTrack"

	track.Title = s.trackTitle(ctx, container)
	track.Artist = s.trackArtist(ctx, container)
	track.Status = s.trackStatus(ctx, container)

	logger := s.logger.With(zap.String(logg.Operation, op),
		zap.Int(logg.Page, track.Page),
		zap.Int(logg.Track, track.Index),
		zap.String("title", track.Title),
		zap.String("artist", track.Artist),
		zap.String("status", string(track.Status)))

	if err := ctx.Err(); err != nil {
		return err
	}

	if track.Status == entity.TrackStatusDownloaded {
		run.Skipped++
		logger.Info("Already downloaded, skipping")

		return nil
	}

	ok, reason, err := s.triggerDownload(ctx, container, track.Layout)
	if ok {
		run.Successful++
	}

	if err != nil {
		return err
	}

	if !ok {
		run.Failed = append(run.Failed, entity.FailedDownload{
			Title:  track.Title,
			Artist: track.Artist,
			Reason: reason,
			Page:   track.Page,
		})
		logger.Warn("Could not add to downloads", zap.String("reason", reason))

		return nil
	}

	logger.Info("Added to downloads")

	return nil
}

func (s *LibraryService) trackTitle(ctx context.Context, container ports.Element) string {
	match, err := s.registry.Resolve(ctx, selector.NameTrackName, container, selector.One())
	if err == nil && match.Found() {
		if text, err := match.First().Text(ctx); err == nil && text != "" {
			return text
		}
	}

	links, err := container.FindAll(ctx, trackTitleLink, 0)
	if err != nil {
		return unknownTitle
	}

	for _, link := range links {
		href, _ := link.Attribute(ctx, "href")
		if !strings.Contains(href, "/track/") {
			continue
		}

		if title, err := link.Attribute(ctx, "title"); err == nil && title != "" {
			return title
		}
	}

	return unknownTitle
}

func (s *LibraryService) trackArtist(ctx context.Context, container ports.Element) string {
	match, err := s.registry.Resolve(ctx, selector.NameArtistName, container, selector.All())
	if err != nil || !match.Found() {
		return unknownArtist
	}

	names := make([]string, 0, len(match.Elements))
	for _, el := range match.Elements {
		if text, err := el.Text(ctx); err == nil && strings.TrimSpace(text) != "" {
			names = append(names, strings.TrimSpace(text))
		}
	}

	if len(names) == 0 {
		return unknownArtist
	}

	return strings.Join(names, ", ")
}

func (s *LibraryService) trackStatus(ctx context.Context, container ports.Element) entity.TrackStatus {
	match, err := s.registry.Resolve(ctx, selector.NameDownloadFinishedIcon, container, selector.One())
	if err != nil {
		return entity.TrackStatusUnknown
	}

	if match.Found() {
		return entity.TrackStatusDownloaded
	}

	return entity.TrackStatusAvailable
}

// triggerDownload clicks the track's download control and confirms the
// popup. A control that went stale between lookup and click is looked up
// once more. Only context errors are returned; anything else becomes a
// failure reason.
func (s *LibraryService) triggerDownload(ctx context.Context, container ports.Element, layout entity.Layout) (bool, string, error) {
	const op = "triggerDownload"
	logger := s.logger.With(zap.String(logg.Operation, op))

	for attempt := 0; ; attempt++ {
		target, learned, err := s.findDownloadTarget(ctx, container, layout)
		if err != nil {
			return false, "", err
		}

		if target == nil {
			return false, reasonNoButton, nil
		}

		err = s.click(ctx, target)
		if err == nil {
			if learned != "" {
				s.registry.RecordSuccess(ctx, selector.NameDownloadButton, learned)
			}

			if err := s.handlePopup(ctx); err != nil {
				return true, "", err
			}

			return true, "", nil
		}

		if ctx.Err() != nil {
			return false, "", ctx.Err()
		}

		if apperr.HasCode(err, apperr.CodeStaleElement) && attempt < clickStaleRetries {
			logger.Info("Download button went stale, locating it again")

			continue
		}

		return false, "Download button click failed: " + err.Error(), nil
	}
}

// findDownloadTarget returns the clickable download control for a track
// and, when a fallback strategy found it, the locator to learn.
func (s *LibraryService) findDownloadTarget(ctx context.Context, container ports.Element, layout entity.Layout) (ports.Element, string, error) {
	match, err := s.registry.Resolve(ctx, selector.NameDownloadButton, container, selector.One())
	if err != nil {
		return nil, "", err
	}

	if match.Found() {
		return s.clickable(ctx, match.First()), "", nil
	}

	strategy := s.heuristics.NarrowDownload
	if layout == entity.LayoutWide {
		strategy = s.heuristics.WideDownload
	}

	hit, err := strategy.Find(ctx, container)
	if err != nil {
		return nil, "", err
	}

	if !hit.Found() {
		return nil, "", nil
	}

	return s.clickable(ctx, hit.Element), hit.Locator, nil
}

// clickable climbs from an icon to the button that owns it.
func (s *LibraryService) clickable(ctx context.Context, el ports.Element) ports.Element {
	tag, err := el.TagName(ctx)
	if err != nil || (tag != "svg" && tag != "path") {
		return el
	}

	buttons, err := el.FindAll(ctx, ancestorButton, 0)
	if err != nil || len(buttons) == 0 {
		return el
	}

	return buttons[0]
}

func (s *LibraryService) click(ctx context.Context, el ports.Element) error {
	if err := el.ScrollIntoView(ctx); err != nil {
		return err
	}

	if err := sleep(ctx, s.delays.click); err != nil {
		return err
	}

	return el.Click(ctx)
}

// handlePopup confirms the download dialog some tracks open. No dialog is
// not an error.
func (s *LibraryService) handlePopup(ctx context.Context) error {
	const op = "handlePopup"
	logger := s.logger.With(zap.String(logg.Operation, op))

	if err := sleep(ctx, s.delays.popup); err != nil {
		return err
	}

	doc, err := s.browser.Document(ctx)
	if err != nil {
		logger.Debug("No document for popup lookup", zap.Error(err))

		return nil
	}

	match, err := s.registry.Resolve(ctx, selector.NamePopupDownloadButton, doc, selector.One())
	if err != nil {
		return err
	}

	if match.Found() {
		if err := match.First().Click(ctx); err != nil {
			logger.Warn("Failed to click popup download button", zap.Error(err))
		} else {
			logger.Info("Clicked download button in popup")
		}

		return ctx.Err()
	}

	hit, err := s.heuristics.Popup.Find(ctx, doc)
	if err != nil {
		return err
	}

	if !hit.Found() {
		return nil
	}

	if err := hit.Element.Click(ctx); err != nil {
		logger.Warn("Failed to click popup download button", zap.Error(err))

		return ctx.Err()
	}

	if hit.Locator != "" {
		s.registry.RecordSuccess(ctx, selector.NamePopupDownloadButton, hit.Locator)
	}

	logger.Info("Clicked download button in popup")

	return nil
}
