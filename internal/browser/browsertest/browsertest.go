// Package browsertest provides an in-memory page model implementing the
// ports browser interfaces, for tests that exercise locating and clicking
// without a real browser.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"track-downloader/internal/entity"
	"track-downloader/internal/ports"
	"track-downloader/pkg/apperr"
)

// Node is a scope in the fake page. Matches are registered per raw locator
// string with On; a locator nobody registered matches nothing.
type Node struct {
	mu      sync.Mutex
	matches map[string][]*Element
	invalid map[string]bool
	errs    map[string]error
	queries []Query
}

// Query records one FindAll call.
type Query struct {
	Raw  string
	Kind entity.LocatorKind
	Wait time.Duration
}

func (n *Node) init() {
	if n.matches == nil {
		n.matches = make(map[string][]*Element)
		n.invalid = make(map[string]bool)
		n.errs = make(map[string]error)
	}
}

// On registers the elements matched by raw inside this node.
func (n *Node) On(raw string, elements ...*Element) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.init()
	n.matches[raw] = append(n.matches[raw], elements...)
}

// Clear removes every registration for raw.
func (n *Node) Clear(raw string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.init()
	delete(n.matches, raw)
}

// Invalid makes raw fail as a malformed locator.
func (n *Node) Invalid(raw string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.init()
	n.invalid[raw] = true
}

// Fail makes FindAll for raw return err.
func (n *Node) Fail(raw string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.init()
	n.errs[raw] = err
}

func (n *Node) FindAll(ctx context.Context, locator entity.Locator, wait time.Duration) ([]ports.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.init()
	n.queries = append(n.queries, Query{Raw: locator.Raw, Kind: locator.Kind, Wait: wait})

	if n.invalid[locator.Raw] {
		return nil, apperr.Wrap("FindAll", apperr.CodeLocatorSyntax,
			fmt.Errorf("malformed selector %q", locator.Raw), map[string]any{
				apperr.MetaSelector: locator.Raw,
			})
	}

	if err, ok := n.errs[locator.Raw]; ok {
		return nil, err
	}

	found := n.matches[locator.Raw]
	out := make([]ports.Element, 0, len(found))
	for _, el := range found {
		if el.isDetached() {
			continue
		}
		out = append(out, el)
	}

	return out, nil
}

// Queries returns the FindAll calls made against this node, in order.
func (n *Node) Queries() []Query {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Query, len(n.queries))
	copy(out, n.queries)

	return out
}

// QueriedRaw returns only the raw locator strings of Queries.
func (n *Node) QueriedRaw() []string {
	queries := n.Queries()
	out := make([]string, len(queries))
	for i, q := range queries {
		out[i] = q.Raw
	}

	return out
}

// Element is a fake page element.
type Element struct {
	Node

	Tag      string
	Attrs    map[string]string
	Content  string
	HTML     string
	Hidden   bool
	Disabled bool
	Selector string
	// StaleFor makes the next n interactions report a stale element.
	StaleFor int
	// Detached elements disappear from every scope.
	Detached bool
	// OnClick runs after a successful click.
	OnClick func()

	clicks    int
	scrolls   int
	elementMu sync.Mutex
}

func NewElement(tag string) *Element {
	return &Element{Tag: tag, Attrs: make(map[string]string)}
}

func (e *Element) WithAttr(name, value string) *Element {
	e.Attrs[name] = value

	return e
}

func (e *Element) WithText(text string) *Element {
	e.Content = text

	return e
}

func (e *Element) WithHTML(html string) *Element {
	e.HTML = html

	return e
}

func (e *Element) Hide() *Element {
	e.Hidden = true

	return e
}

func (e *Element) Clicks() int {
	e.elementMu.Lock()
	defer e.elementMu.Unlock()

	return e.clicks
}

func (e *Element) Scrolls() int {
	e.elementMu.Lock()
	defer e.elementMu.Unlock()

	return e.scrolls
}

func (e *Element) isDetached() bool {
	e.elementMu.Lock()
	defer e.elementMu.Unlock()

	return e.Detached
}

func (e *Element) checkStale(op string) error {
	e.elementMu.Lock()
	defer e.elementMu.Unlock()

	if e.Detached {
		return apperr.Wrap(op, apperr.CodeStaleElement, errors.New("element is detached"), nil)
	}

	if e.StaleFor > 0 {
		e.StaleFor--

		return apperr.Wrap(op, apperr.CodeStaleElement, errors.New("element is not attached to the DOM"), nil)
	}

	return nil
}

func (e *Element) IsVisible(ctx context.Context) (bool, error) {
	if err := e.checkStale("IsVisible"); err != nil {
		return false, err
	}

	return !e.Hidden, nil
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	return strings.ToLower(e.Tag), nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.Content, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	if name == "disabled" && e.Disabled {
		return "true", nil
	}

	return e.Attrs[name], nil
}

func (e *Element) OuterHTML(ctx context.Context) (string, error) {
	if e.HTML != "" {
		return e.HTML, nil
	}

	var b strings.Builder
	b.WriteString("<" + e.Tag)
	for k, v := range e.Attrs {
		fmt.Fprintf(&b, " %s=%q", k, v)
	}
	if e.Disabled {
		b.WriteString(" disabled")
	}
	b.WriteString(">" + e.Content + "</" + e.Tag + ">")

	return b.String(), nil
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	if err := e.checkStale("ScrollIntoView"); err != nil {
		return err
	}

	e.elementMu.Lock()
	e.scrolls++
	e.elementMu.Unlock()

	return nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := e.checkStale("Click"); err != nil {
		return err
	}

	e.elementMu.Lock()
	e.clicks++
	onClick := e.OnClick
	e.elementMu.Unlock()

	if onClick != nil {
		onClick()
	}

	return nil
}

func (e *Element) SuggestSelector(ctx context.Context) (string, error) {
	if e.Selector != "" {
		return e.Selector, nil
	}

	if id := e.Attrs["data-testid"]; id != "" {
		return fmt.Sprintf("%s[data-testid='%s']", strings.ToLower(e.Tag), id), nil
	}

	return "", errors.New("no stable selector")
}

// Browser is a fake ports.BrowserManager over a swappable document.
type Browser struct {
	mu         sync.Mutex
	doc        *Node
	url        string
	history    []string
	reloads    int
	shots      []string
	ready      bool
	navErrs    map[string]error
	downloads  int64
	OnNavigate func(url string)
	OnReload   func()
}

func NewBrowser() *Browser {
	return &Browser{doc: &Node{}, ready: true}
}

// Doc returns the current document node.
func (b *Browser) Doc() *Node {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.doc
}

// SetDoc replaces the document, as a navigation or re-render would.
func (b *Browser) SetDoc(doc *Node) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.doc = doc
}

// SetURL changes the current URL without recording a navigation.
func (b *Browser) SetURL(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.url = url
}

// FailNavigation makes Navigate return err for any URL containing substr.
func (b *Browser) FailNavigation(substr string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.navErrs == nil {
		b.navErrs = make(map[string]error)
	}
	b.navErrs[substr] = err
}

func (b *Browser) History() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.history))
	copy(out, b.history)

	return out
}

func (b *Browser) Reloads() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.reloads
}

func (b *Browser) Screenshots() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, len(b.shots))
	copy(out, b.shots)

	return out
}

func (b *Browser) Launch(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ready = true

	return nil
}

func (b *Browser) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ready = false

	return nil
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	for substr, err := range b.navErrs {
		if strings.Contains(url, substr) {
			b.mu.Unlock()

			return err
		}
	}
	b.url = url
	b.history = append(b.history, url)
	hook := b.OnNavigate
	b.mu.Unlock()

	if hook != nil {
		hook(url)
	}

	return nil
}

func (b *Browser) Reload(ctx context.Context) error {
	b.mu.Lock()
	b.reloads++
	hook := b.OnReload
	b.mu.Unlock()

	if hook != nil {
		hook()
	}

	return nil
}

func (b *Browser) CurrentURL(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.url, nil
}

func (b *Browser) Screenshot(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.shots = append(b.shots, path)

	return nil
}

func (b *Browser) Document(ctx context.Context) (ports.Scope, error) {
	return b.Doc(), nil
}

func (b *Browser) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.ready
}

// AddDownload counts one saved file, as the page download event would.
func (b *Browser) AddDownload() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.downloads++
}

func (b *Browser) Downloads() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.downloads
}

var (
	_ ports.Element        = (*Element)(nil)
	_ ports.Scope          = (*Node)(nil)
	_ ports.BrowserManager = (*Browser)(nil)
)
