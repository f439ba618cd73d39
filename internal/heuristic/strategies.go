package heuristic

import (
	"context"
	"strings"
	"track-downloader/internal/entity"
	"track-downloader/internal/ports"
)

// FixedLocators tries a hand-written list of locators, as-is, and returns
// the first visible element.
type FixedLocators struct {
	name     string
	locators []entity.Locator
}

func NewFixedLocators(name string, raws ...string) *FixedLocators {
	return &FixedLocators{name: name, locators: entity.ParseLocators(raws)}
}

func (f *FixedLocators) Name() string {
	return f.name
}

func (f *FixedLocators) Find(ctx context.Context, scope ports.Scope) (Hit, error) {
	for _, locator := range f.locators {
		elements, err := scope.FindAll(ctx, locator, 0)
		if err != nil {
			if ctx.Err() != nil {
				return Hit{}, ctx.Err()
			}

			continue
		}

		if el := firstVisible(ctx, elements); el != nil {
			return Hit{Element: el, Locator: locator.Raw}, nil
		}
	}

	return Hit{}, nil
}

// ButtonScan inspects every button in scope and picks the first enabled
// one whose markup mentions a marker.
type ButtonScan struct {
	buttons entity.Locator
	markers []string
}

func NewButtonScan(markers ...string) *ButtonScan {
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		lowered = append(lowered, strings.ToLower(m))
	}

	return &ButtonScan{
		buttons: entity.Structural(".//button[.//svg]"),
		markers: lowered,
	}
}

func (b *ButtonScan) Name() string {
	return "button_scan"
}

func (b *ButtonScan) Find(ctx context.Context, scope ports.Scope) (Hit, error) {
	buttons, err := scope.FindAll(ctx, b.buttons, 0)
	if err != nil {
		return Hit{}, err
	}

	for _, btn := range buttons {
		if Disabled(ctx, btn) {
			continue
		}

		html, err := btn.OuterHTML(ctx)
		if err != nil {
			continue
		}

		if !containsAny(strings.ToLower(html), b.markers) {
			continue
		}

		return Hit{Element: btn, Locator: suggest(ctx, btn)}, nil
	}

	return Hit{}, nil
}

// DialogButtons looks for a confirming download button inside an open
// modal.
type DialogButtons struct {
	dialogs entity.Locator
	button  entity.Locator
	want    string
	exclude []string
}

func NewDialogButtons() *DialogButtons {
	return &DialogButtons{
		dialogs: entity.CSS("[role='dialog'], .modal, .dialog, .popup"),
		button:  entity.CSS("button"),
		want:    "download",
		exclude: []string{"don't", "cancel"},
	}
}

func (d *DialogButtons) Name() string {
	return "dialog_buttons"
}

func (d *DialogButtons) Find(ctx context.Context, scope ports.Scope) (Hit, error) {
	dialogs, err := scope.FindAll(ctx, d.dialogs, 0)
	if err != nil {
		return Hit{}, err
	}

	for _, dialog := range dialogs {
		buttons, err := dialog.FindAll(ctx, d.button, 0)
		if err != nil {
			continue
		}

		for _, btn := range buttons {
			text, err := btn.Text(ctx)
			if err != nil {
				continue
			}

			text = strings.ToLower(text)
			if !strings.Contains(text, d.want) || containsAny(text, d.exclude) {
				continue
			}

			return Hit{Element: btn, Locator: suggest(ctx, btn)}, nil
		}
	}

	return Hit{}, nil
}

func firstVisible(ctx context.Context, elements []ports.Element) ports.Element {
	for _, el := range elements {
		if ok, err := el.IsVisible(ctx); err == nil && ok {
			return el
		}
	}

	return nil
}

// Disabled reports whether el carries a disabled or aria-disabled=true
// attribute.
func Disabled(ctx context.Context, el ports.Element) bool {
	if v, err := el.Attribute(ctx, "disabled"); err == nil && v != "" {
		return true
	}

	v, err := el.Attribute(ctx, "aria-disabled")

	return err == nil && v == "true"
}

func suggest(ctx context.Context, el ports.Element) string {
	selector, err := el.SuggestSelector(ctx)
	if err != nil {
		return ""
	}

	return selector
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}
