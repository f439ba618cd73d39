package ports

import (
	"context"
	"time"
	"track-downloader/internal/entity"
)

// Scope is anything locators can be evaluated against: the document or a
// previously located element. A positive wait blocks until at least one
// element is attached or the timeout elapses; FindAll then returns whatever
// matches, visible or not.
type Scope interface {
	FindAll(ctx context.Context, locator entity.Locator, wait time.Duration) ([]Element, error)
}

type Element interface {
	Scope

	IsVisible(ctx context.Context) (bool, error)
	TagName(ctx context.Context) (string, error)
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
	OuterHTML(ctx context.Context) (string, error)
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
	// SuggestSelector returns a CSS selector that re-locates this element
	// from its closest stable ancestor.
	SuggestSelector(ctx context.Context) (string, error)
}

type BrowserManager interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	CurrentURL(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, path string) error
	Document(ctx context.Context) (Scope, error)
	IsReady() bool
	Downloads() int64
}

type SelectorStore interface {
	Load(ctx context.Context) (map[string][]string, error)
	Save(ctx context.Context, selectors map[string][]string) error
}
