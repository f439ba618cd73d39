package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"track-downloader/internal/browser/browsertest"
	"track-downloader/internal/config"
	"track-downloader/internal/entity"
	"track-downloader/internal/heuristic"
	"track-downloader/internal/selector"
	"track-downloader/internal/storage"
	"track-downloader/pkg/apperr"

	"go.uber.org/zap/zaptest"
)

const testBaseURL = "https://shop.test"

var testSelectors = map[string][]string{
	selector.NameTrackContainers:      {"row"},
	selector.NameTrackName:            {"title"},
	selector.NameArtistName:           {"artist"},
	selector.NameDownloadButton:       {"svg.dl"},
	selector.NameDownloadFinishedIcon: {"svg.done"},
	selector.NameNextButton:           {"a.next"},
	selector.NamePopupDownloadButton:  {"button.confirm"},
}

type fixture struct {
	svc     *LibraryService
	browser *browsertest.Browser
	store   *storage.SelectorFile
	reg     *selector.Registry
	conf    *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zaptest.NewLogger(t)
	dir := t.TempDir()

	store := storage.OpenSelectorFile(filepath.Join(dir, "selectors.json"), logger)
	if err := store.Save(context.Background(), testSelectors); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	conf := &config.Config{
		AppConfig:      &config.AppConfig{LogLevel: "debug"},
		BrowserConfig:  &config.BrowserConfig{DownloadDir: filepath.Join(dir, "downloads")},
		SelectorConfig: &config.SelectorConfig{StorePath: store.Path()},
		LibraryConfig: &config.LibraryConfig{
			BaseURL:          testBaseURL,
			LoginPath:        "/account/login",
			LibraryPath:      "/library",
			DownloadsPath:    "/library/downloads",
			LoginTimeout:     time.Second,
			StartPage:        1,
			DownloadAttempts: 5,
		},
	}

	reg := selector.New(context.Background(), store, logger, nil)
	b := browsertest.NewBrowser()

	svc := NewLibraryService(LibraryServiceParams{
		Config:     conf,
		Logger:     logger,
		Browser:    b,
		Registry:   reg,
		Heuristics: heuristic.NewSet(logger),
	})
	svc.delays = delays{poll: time.Millisecond, navigation: 20 * time.Millisecond}

	return &fixture{svc: svc, browser: b, store: store, reg: reg, conf: conf}
}

// autoLogin leaves the login page as soon as it is opened and shows doc
// for every other URL.
func (f *fixture) autoLogin(pages map[string]*browsertest.Node) {
	f.browser.OnNavigate = func(url string) {
		if strings.Contains(url, "/account/login") {
			f.browser.SetURL(testBaseURL + "/my-beatport")

			return
		}

		for substr, doc := range pages {
			if strings.Contains(url, substr) {
				f.browser.SetDoc(doc)

				return
			}
		}
	}
}

type trackFixture struct {
	title    string
	artists  []string
	finished bool
	button   *browsertest.Element
	wide     bool
}

func newTrack(f trackFixture) *browsertest.Element {
	track := browsertest.NewElement("div")
	if f.wide {
		track.WithAttr("data-testid", "library-tracks-table-row")
	} else {
		track.WithAttr("data-testid", "tracks-list-item")
	}

	if f.title != "" {
		track.On("title", browsertest.NewElement("span").WithText(f.title))
	}

	for _, a := range f.artists {
		track.On("artist", browsertest.NewElement("a").WithText(a))
	}

	if f.finished {
		track.On("svg.done", browsertest.NewElement("svg"))
	}

	if f.button != nil {
		icon := browsertest.NewElement("svg")
		icon.On("./ancestor::button[1]", f.button)
		track.On("svg.dl", icon)
	}

	return track
}

func pageDoc(tracks ...*browsertest.Element) *browsertest.Node {
	doc := &browsertest.Node{}
	doc.On("row", tracks...)

	return doc
}

func TestRun_ProcessesSinglePage(t *testing.T) {
	f := newFixture(t)

	button := browsertest.NewElement("button")
	confirm := browsertest.NewElement("button")

	doc := pageDoc(
		newTrack(trackFixture{title: "Strobe", artists: []string{"deadmau5"}, button: button, wide: true}),
		newTrack(trackFixture{title: "Opus", artists: []string{"Eric Prydz"}, finished: true, wide: true}),
		newTrack(trackFixture{title: "Cola", artists: []string{"CamelPhat", "Elderbrook"}, wide: true}),
	)
	doc.On("button.confirm", confirm)
	f.autoLogin(map[string]*browsertest.Node{"/library?page=1": doc})

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1, EndPage: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if run.Status != entity.RunStatusCompleted || run.CompletedAt == nil {
		t.Errorf("status: got %q", run.Status)
	}
	if run.Successful != 1 || run.Skipped != 1 || len(run.Failed) != 1 {
		t.Fatalf("counts: successful=%d skipped=%d failed=%d", run.Successful, run.Skipped, len(run.Failed))
	}
	if run.PagesProcessed != 1 {
		t.Errorf("pages: got %d", run.PagesProcessed)
	}

	failed := run.Failed[0]
	want := entity.FailedDownload{Title: "Cola", Artist: "CamelPhat, Elderbrook", Reason: reasonNoButton, Page: 1}
	if failed != want {
		t.Errorf("failed entry: got %+v, want %+v", failed, want)
	}

	if button.Clicks() != 1 || button.Scrolls() != 1 {
		t.Errorf("button: clicks=%d scrolls=%d", button.Clicks(), button.Scrolls())
	}
	if confirm.Clicks() != 1 {
		t.Errorf("popup confirm clicks: got %d", confirm.Clicks())
	}

	history := f.browser.History()
	if len(history) != 2 || history[0] != testBaseURL+"/account/login" || history[1] != testBaseURL+"/library?page=1" {
		t.Errorf("history: %v", history)
	}
}

func TestRun_HeuristicFallbackIsLearned(t *testing.T) {
	f := newFixture(t)

	const learned = ".//button[.//path[@stroke='#39C0DE']]"

	button := browsertest.NewElement("button")
	track := newTrack(trackFixture{title: "Strobe", wide: true})
	track.On(learned, button)

	f.autoLogin(map[string]*browsertest.Node{"/library": pageDoc(track)})

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Successful != 1 || button.Clicks() != 1 {
		t.Fatalf("successful=%d clicks=%d", run.Successful, button.Clicks())
	}

	if got := f.reg.Locators(selector.NameDownloadButton); got[0].Raw != learned {
		t.Errorf("learned locator not promoted: %v", entity.RawLocators(got))
	}

	stored, err := f.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := stored[selector.NameDownloadButton]; len(got) != 2 || got[0] != learned || got[1] != "svg.dl" {
		t.Errorf("stored download_button: %v", got)
	}
}

func TestRun_NarrowLayoutScansButtons(t *testing.T) {
	f := newFixture(t)

	button := browsertest.NewElement("button").
		WithHTML(`<button aria-label="Download"><svg/></button>`).
		WithAttr("data-testid", "dl-btn")
	track := newTrack(trackFixture{title: "Cola"})
	track.On(".//button[.//svg]", button)

	f.autoLogin(map[string]*browsertest.Node{"/library": pageDoc(track)})

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Successful != 1 {
		t.Fatalf("successful: got %d", run.Successful)
	}
	if got := f.reg.Locators(selector.NameDownloadButton)[0].Raw; got != "button[data-testid='dl-btn']" {
		t.Errorf("learned locator: got %q", got)
	}
}

func TestRun_StaleButtonIsLocatedAgain(t *testing.T) {
	f := newFixture(t)

	button := browsertest.NewElement("button")
	button.StaleFor = 1

	f.autoLogin(map[string]*browsertest.Node{
		"/library": pageDoc(newTrack(trackFixture{title: "Strobe", button: button, wide: true})),
	})

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Successful != 1 || len(run.Failed) != 0 {
		t.Fatalf("successful=%d failed=%v", run.Successful, run.Failed)
	}
	if button.Clicks() != 1 {
		t.Errorf("clicks: got %d", button.Clicks())
	}
}

func TestRun_PersistentlyStaleButtonFails(t *testing.T) {
	f := newFixture(t)

	button := browsertest.NewElement("button")
	button.StaleFor = 10

	f.autoLogin(map[string]*browsertest.Node{
		"/library": pageDoc(newTrack(trackFixture{title: "Strobe", button: button, wide: true})),
	})

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(run.Failed) != 1 || !strings.HasPrefix(run.Failed[0].Reason, "Download button click failed") {
		t.Fatalf("failed: %+v", run.Failed)
	}
}

func TestRun_PaginationFollowsURLAndStopsOnDisabledNext(t *testing.T) {
	f := newFixture(t)

	page2 := pageDoc(newTrack(trackFixture{title: "Two", finished: true}))
	page2.On("a.next", browsertest.NewElement("a").WithAttr("aria-disabled", "true"))

	page1 := pageDoc(newTrack(trackFixture{title: "One", finished: true}))
	next := browsertest.NewElement("a")
	next.OnClick = func() {
		f.browser.SetURL(testBaseURL + "/library?page=2")
		f.browser.SetDoc(page2)
	}
	page1.On("a.next", next)

	f.autoLogin(map[string]*browsertest.Node{"/library?page=1": page1})

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1, EndPage: 5})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.PagesProcessed != 2 || run.CurrentPage != 2 {
		t.Errorf("pages=%d current=%d", run.PagesProcessed, run.CurrentPage)
	}
	if run.Skipped != 2 {
		t.Errorf("skipped: got %d", run.Skipped)
	}
	if next.Clicks() != 1 {
		t.Errorf("next clicks: got %d", next.Clicks())
	}
}

func TestRun_PaginationAssumesNextPageWhenURLUnchanged(t *testing.T) {
	f := newFixture(t)

	page2 := pageDoc(newTrack(trackFixture{title: "Two", finished: true}))
	page1 := pageDoc(newTrack(trackFixture{title: "One", finished: true}))

	next := browsertest.NewElement("a")
	next.OnClick = func() { f.browser.SetDoc(page2) }
	page1.On("a.next", next)

	f.autoLogin(map[string]*browsertest.Node{"/library?page=1": page1})

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1, EndPage: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.PagesProcessed != 2 || run.CurrentPage != 2 {
		t.Errorf("pages=%d current=%d", run.PagesProcessed, run.CurrentPage)
	}
}

func TestRun_NextButtonLookedUpInsidePager(t *testing.T) {
	f := newFixture(t)
	f.reg.RecordSuccess(context.Background(), selector.NamePagination, "nav.pager")

	page2 := pageDoc(newTrack(trackFixture{title: "Two", finished: true}))
	page1 := pageDoc(newTrack(trackFixture{title: "One", finished: true}))

	decoy := browsertest.NewElement("a").WithAttr("aria-disabled", "true")
	page1.On("a.next", decoy)

	next := browsertest.NewElement("a")
	next.OnClick = func() {
		f.browser.SetURL(testBaseURL + "/library?page=2")
		f.browser.SetDoc(page2)
	}
	pager := browsertest.NewElement("nav")
	pager.On("a.next", next)
	page1.On("nav.pager", pager)

	f.autoLogin(map[string]*browsertest.Node{"/library?page=1": page1})

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1, EndPage: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.PagesProcessed != 2 {
		t.Errorf("pages: got %d, want 2", run.PagesProcessed)
	}
	if next.Clicks() != 1 || decoy.Clicks() != 0 {
		t.Errorf("clicks: pager next=%d decoy=%d", next.Clicks(), decoy.Clicks())
	}
}

func TestRun_NextPageFallbackIsLearned(t *testing.T) {
	f := newFixture(t)

	page2 := pageDoc(newTrack(trackFixture{title: "Two", finished: true}))
	page1 := pageDoc(newTrack(trackFixture{title: "One", finished: true}))

	next := browsertest.NewElement("a")
	next.OnClick = func() {
		f.browser.SetURL(testBaseURL + "/library?page=2")
		f.browser.SetDoc(page2)
	}
	page1.On("a[aria-label='Next page']", next)

	f.autoLogin(map[string]*browsertest.Node{"/library?page=1": page1})

	if _, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1, EndPage: 2}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := f.reg.Locators(selector.NameNextButton)[0].Raw; got != "a[aria-label='Next page']" {
		t.Errorf("next_button head: got %q", got)
	}
}

func TestRun_EmptyPageEndsRun(t *testing.T) {
	f := newFixture(t)
	f.autoLogin(map[string]*browsertest.Node{"/library": {}})

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1, EndPage: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.PagesProcessed != 0 || run.Status != entity.RunStatusCompleted {
		t.Errorf("pages=%d status=%q", run.PagesProcessed, run.Status)
	}
}

func TestRun_DownloadsPageStopsWhenNothingNew(t *testing.T) {
	f := newFixture(t)

	button := browsertest.NewElement("button")
	first := pageDoc(newTrack(trackFixture{title: "Strobe", button: button, wide: true}))
	refreshed := pageDoc(newTrack(trackFixture{title: "Strobe", finished: true, wide: true}))

	f.autoLogin(map[string]*browsertest.Node{"/library/downloads": first})
	f.browser.OnReload = func() { f.browser.SetDoc(refreshed) }

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1, DownloadsOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if run.Mode != entity.RunModeDownloads {
		t.Errorf("mode: got %q", run.Mode)
	}
	if run.Successful != 1 || run.Skipped != 1 {
		t.Errorf("successful=%d skipped=%d", run.Successful, run.Skipped)
	}
	if f.browser.Reloads() != 1 {
		t.Errorf("reloads: got %d", f.browser.Reloads())
	}

	history := f.browser.History()
	if got := history[len(history)-1]; got != testBaseURL+"/library/downloads?page=1&per_page=100" {
		t.Errorf("downloads URL: got %q", got)
	}
}

func TestRun_DownloadsPageCapsAttempts(t *testing.T) {
	f := newFixture(t)
	f.conf.LibraryConfig.DownloadAttempts = 3

	fresh := func() *browsertest.Node {
		return pageDoc(newTrack(trackFixture{title: "Strobe", button: browsertest.NewElement("button"), wide: true}))
	}

	f.autoLogin(map[string]*browsertest.Node{"/library/downloads": fresh()})
	f.browser.OnReload = func() { f.browser.SetDoc(fresh()) }

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1, DownloadsOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Successful != 3 || f.browser.Reloads() != 2 {
		t.Errorf("successful=%d reloads=%d", run.Successful, f.browser.Reloads())
	}
}

func TestRun_LibraryThenDownloadsPage(t *testing.T) {
	f := newFixture(t)

	f.autoLogin(map[string]*browsertest.Node{
		"/library?page=1":    pageDoc(newTrack(trackFixture{title: "One", finished: true})),
		"/library/downloads": {},
	})

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1, CheckDownloads: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Mode != entity.RunModeLibrary || run.Skipped != 1 {
		t.Errorf("mode=%q skipped=%d", run.Mode, run.Skipped)
	}

	history := f.browser.History()
	if !strings.Contains(history[len(history)-1], "/library/downloads") {
		t.Errorf("downloads page not visited: %v", history)
	}
}

func TestRun_DownloadsFailureTakesScreenshot(t *testing.T) {
	f := newFixture(t)
	f.autoLogin(nil)
	f.browser.FailNavigation("/library/downloads", errors.New("net::ERR_CONNECTION_RESET"))

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1, DownloadsOnly: true})
	if err == nil {
		t.Fatal("expected navigation error")
	}
	if run.Status != entity.RunStatusFailed {
		t.Errorf("status: got %q", run.Status)
	}

	shots := f.browser.Screenshots()
	if len(shots) != 1 {
		t.Fatalf("screenshots: %v", shots)
	}
	if filepath.Dir(shots[0]) != f.conf.BrowserConfig.DownloadDir || !strings.HasPrefix(filepath.Base(shots[0]), "error_screenshot_") {
		t.Errorf("screenshot path: %q", shots[0])
	}
}

func TestRun_LoginTimeout(t *testing.T) {
	f := newFixture(t)
	f.conf.LibraryConfig.LoginTimeout = 30 * time.Millisecond

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1})
	if !apperr.HasCode(err, apperr.CodeTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if run.Status != entity.RunStatusFailed {
		t.Errorf("status: got %q", run.Status)
	}
}

func TestRun_InvalidOptions(t *testing.T) {
	f := newFixture(t)

	for _, opts := range []entity.RunOptions{
		{StartPage: 0},
		{StartPage: 4, EndPage: 2},
	} {
		run, err := f.svc.Run(context.Background(), opts)
		if !apperr.HasCode(err, apperr.CodeInvalidArgument) {
			t.Errorf("%+v: expected invalid_argument, got %v", opts, err)
		}
		if run != nil {
			t.Errorf("%+v: run should be nil", opts)
		}
	}
}

func TestRun_BrowserNotReady(t *testing.T) {
	f := newFixture(t)
	_ = f.browser.Close(context.Background())

	_, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1})
	if !apperr.HasCode(err, apperr.CodeBrowserNotReady) {
		t.Fatalf("expected browser_not_ready, got %v", err)
	}
}

func TestStop_CancelsRunAndRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t)
	f.conf.LibraryConfig.LoginTimeout = time.Minute

	started := make(chan struct{})
	f.browser.OnNavigate = func(string) { close(started) }

	type result struct {
		run *entity.Run
		err error
	}
	done := make(chan result, 1)

	go func() {
		run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1})
		done <- result{run, err}
	}()

	<-started

	if _, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1}); !apperr.HasCode(err, apperr.CodeAlreadyRunning) {
		t.Errorf("expected already_running, got %v", err)
	}

	f.svc.Stop()

	select {
	case res := <-done:
		if !errors.Is(res.err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", res.err)
		}
		if res.run.Status != entity.RunStatusCancelled {
			t.Errorf("status: got %q", res.run.Status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}

	// Stop with nothing running is a no-op.
	f.svc.Stop()
}

func TestRun_ClickBeforeCancelStillCounts(t *testing.T) {
	f := newFixture(t)

	button := browsertest.NewElement("button")
	button.OnClick = f.svc.Stop

	doc := pageDoc(newTrack(trackFixture{title: "Strobe", button: button, wide: true}))
	f.autoLogin(map[string]*browsertest.Node{"/library?page=1": doc})

	run, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1, EndPage: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if button.Clicks() != 1 {
		t.Fatalf("button clicks: got %d", button.Clicks())
	}
	if run.Successful != 1 {
		t.Errorf("successful: got %d, want 1", run.Successful)
	}
	if run.Status != entity.RunStatusCancelled {
		t.Errorf("status: got %q", run.Status)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	doc := pageDoc(newTrack(trackFixture{title: "One"}))
	f.browser.SetDoc(doc)

	result, err := f.svc.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}

	if !result[selector.NameTrackContainers] {
		t.Error("track_containers should be healthy")
	}
	if result[selector.NameDownloadButton] {
		t.Error("download_button is not on the document and should be broken")
	}
}

func TestHealth_RefusedDuringRun(t *testing.T) {
	f := newFixture(t)
	f.conf.LibraryConfig.LoginTimeout = time.Minute

	started := make(chan struct{})
	f.browser.OnNavigate = func(string) { close(started) }

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Run(context.Background(), entity.RunOptions{StartPage: 1})
		done <- err
	}()

	<-started

	if _, err := f.svc.Health(context.Background()); !apperr.HasCode(err, apperr.CodeAlreadyRunning) {
		t.Errorf("expected already_running, got %v", err)
	}

	f.svc.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(t.TempDir(), "reports")

	run := entity.NewRun(entity.RunOptions{StartPage: 1})
	run.Failed = append(run.Failed, entity.FailedDownload{Title: "Cola", Artist: "CamelPhat", Reason: reasonNoButton, Page: 3})

	path, err := f.svc.Report(run, dir)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if filepath.Dir(path) != dir || !strings.HasPrefix(filepath.Base(path), "failed_downloads_") {
		t.Errorf("path: %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	for _, want := range []string{"Total Failed Downloads: 1", "Track: Cola", "Artist: CamelPhat", "Reason: " + reasonNoButton, "Page: 3"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestReport_NothingFailed(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Report(entity.NewRun(entity.RunOptions{StartPage: 1}), t.TempDir()); !apperr.HasCode(err, apperr.CodeNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
	if _, err := f.svc.Report(nil, t.TempDir()); !apperr.HasCode(err, apperr.CodeNotFound) {
		t.Errorf("nil run: expected not_found, got %v", err)
	}
}

func TestPageFromURL(t *testing.T) {
	tests := []struct {
		url  string
		page int
		ok   bool
	}{
		{url: "https://shop.test/library?page=7", page: 7, ok: true},
		{url: "https://shop.test/library/downloads?per_page=100&page=2", page: 2, ok: true},
		{url: "https://shop.test/library?per_page=100", ok: false},
		{url: "https://shop.test/library", ok: false},
	}

	for _, tt := range tests {
		page, ok := pageFromURL(tt.url)
		if page != tt.page || ok != tt.ok {
			t.Errorf("%s: got (%d, %v), want (%d, %v)", tt.url, page, ok, tt.page, tt.ok)
		}
	}
}

func TestDetectLayout(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		el   *browsertest.Element
		want entity.Layout
	}{
		{el: browsertest.NewElement("div").WithAttr("data-testid", "library-tracks-table-row"), want: entity.LayoutWide},
		{el: browsertest.NewElement("div").WithAttr("class", "Table-style__Row"), want: entity.LayoutWide},
		{el: browsertest.NewElement("div").WithAttr("data-testid", "tracks-list-item"), want: entity.LayoutNarrow},
	}

	for _, tt := range tests {
		if got := detectLayout(ctx, tt.el); got != tt.want {
			t.Errorf("%v: got %q, want %q", tt.el.Attrs, got, tt.want)
		}
	}
}
