package entity

import (
	"fmt"
	"regexp"
	"strings"
)

type LocatorKind string

const (
	LocatorKindCSS        LocatorKind = "css"
	LocatorKindStructural LocatorKind = "structural"
)

const (
	cssPrefix   = "css="
	xpathPrefix = "xpath="
)

var (
	axisPattern     = regexp.MustCompile(`^[a-z-]+::`)
	containsPattern = regexp.MustCompile(`^\s*([a-zA-Z][a-zA-Z0-9_-]*)\s*:contains\((?:"([^"]*)"|'([^']*)')\)\s*$`)
)

// Locator is a tagged locator expression. Raw is the exact string kept in
// the selector store and used as the statistics key.
type Locator struct {
	Kind       LocatorKind
	Expression string
	Raw        string
}

func (l Locator) String() string {
	return l.Raw
}

func (l Locator) IsStructural() bool {
	return l.Kind == LocatorKindStructural
}

func CSS(expression string) Locator {
	return Locator{Kind: LocatorKindCSS, Expression: expression, Raw: expression}
}

func Structural(expression string) Locator {
	raw := expression
	if !looksStructural(expression) {
		raw = xpathPrefix + expression
	}

	return Locator{Kind: LocatorKindStructural, Expression: expression, Raw: raw}
}

// ParseLocator tags raw once, at load time:
//   - "xpath=" and "css=" prefixes are explicit and stripped
//   - path-style expressions ("/", "./", "(", axes) are structural
//   - tag:contains('text') is rewritten to a structural text match
//   - anything else is CSS
func ParseLocator(raw string) Locator {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)

	switch {
	case strings.HasPrefix(lower, xpathPrefix):
		return Locator{Kind: LocatorKindStructural, Expression: strings.TrimSpace(trimmed[len(xpathPrefix):]), Raw: raw}
	case strings.HasPrefix(lower, cssPrefix):
		return Locator{Kind: LocatorKindCSS, Expression: strings.TrimSpace(trimmed[len(cssPrefix):]), Raw: raw}
	case looksStructural(trimmed):
		return Locator{Kind: LocatorKindStructural, Expression: trimmed, Raw: raw}
	}

	if m := containsPattern.FindStringSubmatch(trimmed); m != nil {
		text := m[2]
		if text == "" {
			text = m[3]
		}

		return Locator{
			Kind:       LocatorKindStructural,
			Expression: fmt.Sprintf("//%s[contains(normalize-space(.), %s)]", m[1], xpathLiteral(text)),
			Raw:        raw,
		}
	}

	return Locator{Kind: LocatorKindCSS, Expression: trimmed, Raw: raw}
}

func ParseLocators(raws []string) []Locator {
	locators := make([]Locator, 0, len(raws))
	for _, raw := range raws {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		locators = append(locators, ParseLocator(raw))
	}

	return locators
}

func RawLocators(locators []Locator) []string {
	raws := make([]string, len(locators))
	for i, l := range locators {
		raws[i] = l.Raw
	}

	return raws
}

func looksStructural(s string) bool {
	if s == "" {
		return false
	}

	for _, prefix := range []string{"/", "./", "..", "("} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}

	return axisPattern.MatchString(s)
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}

	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = "'" + p + "'"
	}

	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}
