package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"track-downloader/internal/entity"
	"track-downloader/internal/ports"
	"track-downloader/pkg/apperr"

	"github.com/playwright-community/playwright-go"
)

// Element operations fail fast: a locator that stops matching within this
// window is treated as detached.
const elementTimeout = 3000

var syntaxMarkers = []string{
	"is not a valid selector",
	"unexpected token",
	"unknown engine",
	"failed to evaluate",
	"syntaxerror",
	"while parsing selector",
}

var staleMarkers = []string{
	"not attached",
	"detached",
	"element handle refers to",
}

// engineSelector prefixes the expression with the playwright engine for
// its kind.
func engineSelector(locator entity.Locator) string {
	if locator.IsStructural() {
		return "xpath=" + locator.Expression
	}

	return "css=" + locator.Expression
}

// classify maps a driver error onto an application code.
func classify(op string, locator string, err error) error {
	code := apperr.CodeActionFailed
	msg := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, playwright.ErrTimeout):
		code = apperr.CodeStaleElement
	case errors.Is(err, playwright.ErrTargetClosed):
		code = apperr.CodeBrowserNotReady
	case containsAny(msg, syntaxMarkers):
		code = apperr.CodeLocatorSyntax
	case containsAny(msg, staleMarkers):
		code = apperr.CodeStaleElement
	}

	return apperr.Wrap(op, code, err, map[string]any{
		apperr.MetaSelector: locator,
		apperr.MetaStage:    apperr.StageInteraction,
	})
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

type pageScope struct {
	page playwright.Page
}

func (s *pageScope) FindAll(ctx context.Context, locator entity.Locator, wait time.Duration) ([]ports.Element, error) {
	return findAll(ctx, s.page.Locator(engineSelector(locator)), locator, wait)
}

func findAll(ctx context.Context, loc playwright.Locator, locator entity.Locator, wait time.Duration) ([]ports.Element, error) {
	const op = "FindAll"

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if wait > 0 {
		err := loc.First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateAttached,
			Timeout: playwright.Float(float64(wait.Milliseconds())),
		})
		if err != nil {
			if errors.Is(err, playwright.ErrTimeout) {
				return nil, nil
			}

			return nil, classify(op, locator.Raw, err)
		}
	}

	all, err := loc.All()
	if err != nil {
		return nil, classify(op, locator.Raw, err)
	}

	out := make([]ports.Element, 0, len(all))
	for _, l := range all {
		out = append(out, &element{locator: l, raw: locator.Raw})
	}

	return out, nil
}

// element wraps a playwright locator pinned to one match.
type element struct {
	locator playwright.Locator
	raw     string
}

func (e *element) FindAll(ctx context.Context, locator entity.Locator, wait time.Duration) ([]ports.Element, error) {
	return findAll(ctx, e.locator.Locator(engineSelector(locator)), locator, wait)
}

func (e *element) IsVisible(ctx context.Context) (bool, error) {
	visible, err := e.locator.IsVisible()
	if err != nil {
		return false, classify("IsVisible", e.raw, err)
	}

	return visible, nil
}

func (e *element) TagName(ctx context.Context) (string, error) {
	tag, err := e.evaluate("el => el.tagName.toLowerCase()", nil)
	if err != nil {
		return "", classify("TagName", e.raw, err)
	}

	return fmt.Sprint(tag), nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	text, err := e.locator.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(elementTimeout)})
	if err != nil {
		return "", classify("Text", e.raw, err)
	}

	return strings.TrimSpace(text), nil
}

// Attribute returns the attribute value, or the attribute name for a
// present but empty boolean attribute such as disabled.
func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	value, err := e.evaluate("(el, name) => el.hasAttribute(name) ? (el.getAttribute(name) || name) : ''", name)
	if err != nil {
		return "", classify("Attribute", e.raw, err)
	}

	if value == nil {
		return "", nil
	}

	return fmt.Sprint(value), nil
}

func (e *element) OuterHTML(ctx context.Context) (string, error) {
	html, err := e.evaluate("el => el.outerHTML", nil)
	if err != nil {
		return "", classify("OuterHTML", e.raw, err)
	}

	return fmt.Sprint(html), nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	if _, err := e.evaluate("el => el.scrollIntoView({block: 'center'})", nil); err != nil {
		return classify("ScrollIntoView", e.raw, err)
	}

	return nil
}

// Click dispatches a DOM click, falling back to a forced pointer click.
func (e *element) Click(ctx context.Context) error {
	const op = "Click"

	if err := ctx.Err(); err != nil {
		return err
	}

	_, jsErr := e.evaluate("el => el.click()", nil)
	if jsErr == nil {
		return nil
	}

	err := e.locator.Click(playwright.LocatorClickOptions{
		Force:   playwright.Bool(true),
		Timeout: playwright.Float(elementTimeout),
	})
	if err != nil {
		return classify(op, e.raw, errors.Join(jsErr, err))
	}

	return nil
}

func (e *element) SuggestSelector(ctx context.Context) (string, error) {
	selector, err := e.evaluate(suggestSelectorScript, nil)
	if err != nil {
		return "", classify("SuggestSelector", e.raw, err)
	}

	s, ok := selector.(string)
	if !ok || s == "" {
		return "", apperr.WrapErrorWithReason("SuggestSelector", apperr.CodeNotFound, "no_stable_selector")
	}

	return s, nil
}

func (e *element) evaluate(script string, arg any) (any, error) {
	return e.locator.Evaluate(script, arg, playwright.LocatorEvaluateOptions{Timeout: playwright.Float(elementTimeout)})
}

var (
	_ ports.Scope   = (*pageScope)(nil)
	_ ports.Element = (*element)(nil)
)
