package adapters

import (
	"context"
	"track-downloader/internal/entity"
)

type BrowserService interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	IsReady() bool
	Downloads() int64
}

type SelectorService interface {
	Stats() map[string]map[string]entity.SelectorStat
	Names() []string
	Locators(name string) []entity.Locator
}

type LibraryService interface {
	Run(ctx context.Context, opts entity.RunOptions) (*entity.Run, error)
	Health(ctx context.Context) (map[string]bool, error)
	Report(run *entity.Run, dir string) (string, error)
	Stop()
}
