package browser

import (
	"errors"
	"fmt"
	"testing"
	"track-downloader/internal/entity"
	"track-downloader/pkg/apperr"

	"github.com/playwright-community/playwright-go"
)

func TestEngineSelector(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "svg path[stroke='#39C0DE']", want: "css=svg path[stroke='#39C0DE']"},
		{raw: ".//button[.//svg]", want: "xpath=.//button[.//svg]"},
		{raw: "xpath=button", want: "xpath=button"},
		{raw: "css=a.next", want: "css=a.next"},
		{raw: "span:contains('Next')", want: "xpath=//span[contains(normalize-space(.), 'Next')]"},
	}

	for _, tt := range tests {
		if got := engineSelector(entity.ParseLocator(tt.raw)); got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{name: "timeout", err: fmt.Errorf("locator.click: %w", playwright.ErrTimeout), code: apperr.CodeStaleElement},
		{name: "closed", err: fmt.Errorf("page: %w", playwright.ErrTargetClosed), code: apperr.CodeBrowserNotReady},
		{name: "syntax", err: errors.New("SyntaxError: 'a:has(span:contains(x))' is not a valid selector"), code: apperr.CodeLocatorSyntax},
		{name: "engine", err: errors.New("Unknown engine \"foo\" while parsing selector foo=bar"), code: apperr.CodeLocatorSyntax},
		{name: "detached", err: errors.New("Element is not attached to the DOM"), code: apperr.CodeStaleElement},
		{name: "other", err: errors.New("net::ERR_ABORTED"), code: apperr.CodeActionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("FindAll", "x", tt.err)

			if got := apperr.Code(err); got != tt.code {
				t.Errorf("code: got %q, want %q", got, tt.code)
			}
			if !errors.Is(err, tt.err) {
				t.Error("original error must stay in the chain")
			}
		})
	}
}
