package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"track-downloader/internal/config"
	"track-downloader/internal/entity"
	"track-downloader/internal/usecase"
	"track-downloader/pkg/apperr"
	"track-downloader/pkg/logg"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errExit = errors.New("exit")

type Interface struct {
	config  *config.Config
	logger  *zap.Logger
	usecase *usecase.Service
	in      io.Reader
	out     io.Writer
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	lastRun *entity.Run
	runs    sync.WaitGroup
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
}

func NewInterface(params Params) *Interface {
	return newInterface(params, os.Stdin, os.Stdout)
}

func newInterface(params Params, in io.Reader, out io.Writer) *Interface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Interface{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase: params.Usecase,
		in:      in,
		out:     out,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start reads commands until input ends or the user exits. Runs started
// from the prompt continue in the background.
func (i *Interface) Start() error {
	i.printBanner()
	i.printHelp()

	scanner := bufio.NewScanner(i.in)

	for {
		fmt.Fprint(i.out, "\n> ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if err := i.handleCommand(input); err != nil {
			if errors.Is(err, errExit) {
				break
			}

			i.logger.Error("Command error", zap.Error(err))
			fmt.Fprintf(i.out, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

// Stop cancels any run in progress and waits for it to wind down or for
// ctx to expire.
func (i *Interface) Stop(ctx context.Context) error {
	i.logger.Info("Stopping console interface...")

	i.cancel()
	i.usecase.Library.Stop()

	done := make(chan struct{})
	go func() {
		i.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *Interface) handleCommand(input string) error {
	fields := strings.Fields(input)

	switch strings.ToLower(fields[0]) {
	case "help", "h":
		i.printHelp()

		return nil
	case "run":
		opts, err := i.runOptions(fields[1:])
		if err != nil {
			return err
		}

		i.startRun(opts)

		return nil
	case "downloads":
		i.startRun(entity.RunOptions{StartPage: 1, DownloadsOnly: true})

		return nil
	case "stats":
		i.printStats()

		return nil
	case "health":
		return i.health()
	case "report":
		return i.report()
	case "stop":
		i.usecase.Library.Stop()

		return nil
	case "exit", "quit", "q":
		fmt.Fprintln(i.out, "Shutting down...")

		return errExit
	default:
		return fmt.Errorf("unknown command %q, type help", fields[0])
	}
}

func (i *Interface) runOptions(args []string) (entity.RunOptions, error) {
	lib := i.config.LibraryConfig
	opts := entity.RunOptions{
		StartPage:      lib.StartPage,
		EndPage:        lib.EndPage,
		CheckDownloads: lib.CheckDownloads,
		DownloadsOnly:  lib.DownloadsOnly,
	}

	if len(args) > 2 {
		return opts, apperr.InvalidReqError("run", "args", errors.New("usage: run [start] [end]"))
	}

	pages := []*int{&opts.StartPage, &opts.EndPage}
	for idx, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return opts, apperr.InvalidReqError("run", "page", fmt.Errorf("invalid page %q", arg))
		}
		*pages[idx] = n
	}

	if len(args) == 1 {
		opts.EndPage = opts.StartPage
	}

	return opts, nil
}

func (i *Interface) startRun(opts entity.RunOptions) {
	if opts.DownloadsOnly {
		fmt.Fprintln(i.out, "Starting downloads page pass...")
	} else {
		fmt.Fprintf(i.out, "Starting library run for pages %d-%d...\n", opts.StartPage, max(opts.EndPage, opts.StartPage))
	}

	i.runs.Add(1)

	go func() {
		defer i.runs.Done()

		run, err := i.usecase.Library.Run(i.ctx, opts)
		if run != nil {
			i.mu.Lock()
			i.lastRun = run
			i.mu.Unlock()

			i.printSummary(run)
		}

		if err != nil {
			fmt.Fprintf(i.out, "Run failed: %v\n", err)
		}
	}()
}

func (i *Interface) printSummary(run *entity.Run) {
	fmt.Fprintf(i.out, "\nRun %s %s\n", run.ID, run.Status)
	fmt.Fprintf(i.out, "  pages processed: %d\n", run.PagesProcessed)
	fmt.Fprintf(i.out, "  added to downloads: %d\n", run.Successful)
	fmt.Fprintf(i.out, "  already downloaded: %d\n", run.Skipped)
	fmt.Fprintf(i.out, "  failed: %d\n", len(run.Failed))
	fmt.Fprintf(i.out, "  files saved this session: %d\n", i.usecase.Browser.Downloads())

	if len(run.Failed) > 0 {
		fmt.Fprintln(i.out, "Type 'report' to save the failed downloads.")
	}
}

func (i *Interface) printStats() {
	stats := i.usecase.Selectors.Stats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		fmt.Fprintln(i.out, "No selector statistics yet.")

		return
	}

	for _, name := range names {
		fmt.Fprintf(i.out, "%s:\n", name)

		for _, locator := range i.usecase.Selectors.Locators(name) {
			stat := stats[name][locator.Raw]
			fmt.Fprintf(i.out, "  %-60s hits=%d misses=%d\n", locator.Raw, stat.Hits, stat.Misses)
		}
	}
}

func (i *Interface) health() error {
	result, err := i.usecase.Library.Health(i.ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(result))
	for name := range result {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		state := "ok"
		if !result[name] {
			state = "BROKEN"
		}
		fmt.Fprintf(i.out, "  %-24s %s\n", name, state)
	}

	return nil
}

func (i *Interface) report() error {
	i.mu.Lock()
	run := i.lastRun
	i.mu.Unlock()

	path, err := i.usecase.Library.Report(run, i.config.BrowserConfig.DownloadDir)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			fmt.Fprintln(i.out, "No failed downloads to report.")

			return nil
		}

		return err
	}

	fmt.Fprintf(i.out, "Report saved to: %s\n", path)

	return nil
}

func (i *Interface) printBanner() {
	banner := `
+-----------------------------------------------------------+
|                                                           |
|                   Library Track Downloader                |
|                                                           |
|  Queues your purchased tracks for download, page by page  |
|                                                           |
+-----------------------------------------------------------+
`
	fmt.Fprintln(i.out, banner)
}

func (i *Interface) printHelp() {
	help := `
Available commands:
  run [start] [end] - Process library pages (defaults from config)
  downloads         - Process the downloads page only
  stats             - Show selector hit/miss statistics
  health            - Check the critical selectors on the open page
  report            - Save failed downloads of the last run
  stop              - Stop the current run
  help, h           - Show this help message
  exit, quit, q     - Exit the application

Log in in the browser window when a run asks for it.
`
	fmt.Fprintln(i.out, help)
}
