package entity

import (
	"time"

	"github.com/google/uuid"
)

type RunMode string

const (
	RunModeLibrary   RunMode = "library"
	RunModeDownloads RunMode = "downloads"
)

type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCancelled  RunStatus = "cancelled"
)

type RunOptions struct {
	StartPage      int
	EndPage        int
	CheckDownloads bool
	DownloadsOnly  bool
}

// Run is the outcome of one pass over the library. Successful counts
// dispatched download clicks, not completed files.
type Run struct {
	ID             uuid.UUID
	Mode           RunMode
	Status         RunStatus
	Options        RunOptions
	StartedAt      time.Time
	CompletedAt    *time.Time
	CurrentPage    int
	PagesProcessed int
	Successful     int
	Skipped        int
	Failed         []FailedDownload
	Error          string
}

func NewRun(opts RunOptions) *Run {
	mode := RunModeLibrary
	if opts.DownloadsOnly {
		mode = RunModeDownloads
	}

	return &Run{
		ID:          uuid.New(),
		Mode:        mode,
		Status:      RunStatusPending,
		Options:     opts,
		StartedAt:   time.Now(),
		CurrentPage: opts.StartPage,
		Failed:      make([]FailedDownload, 0),
	}
}

func (r *Run) Finish(status RunStatus, err error) {
	now := time.Now()
	r.CompletedAt = &now
	r.Status = status

	if err != nil {
		r.Error = err.Error()
	}
}

type FailedDownload struct {
	Title  string
	Artist string
	Reason string
	Page   int
}

type Layout string

const (
	LayoutWide   Layout = "wide"
	LayoutNarrow Layout = "narrow"
)

type TrackStatus string

const (
	TrackStatusAvailable  TrackStatus = "available"
	TrackStatusDownloaded TrackStatus = "downloaded"
	TrackStatusUnknown    TrackStatus = "unknown"
)

type Track struct {
	Index  int
	Title  string
	Artist string
	Page   int
	Layout Layout
	Status TrackStatus
}

// SelectorStat counts outcomes of one locator for one logical name.
type SelectorStat struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}
