package entity

import "testing"

func TestParseLocator(t *testing.T) {
	tests := []struct {
		raw  string
		kind LocatorKind
		expr string
	}{
		{raw: "svg[data-testid='icon-re-download']", kind: LocatorKindCSS, expr: "svg[data-testid='icon-re-download']"},
		{raw: ".Tables-shared-style__ReleaseName-sc-792178d5-4", kind: LocatorKindCSS, expr: ".Tables-shared-style__ReleaseName-sc-792178d5-4"},
		{raw: "//button[contains(text(), 'Download')]", kind: LocatorKindStructural, expr: "//button[contains(text(), 'Download')]"},
		{raw: ".//button[.//path[@stroke='#39C0DE']]", kind: LocatorKindStructural, expr: ".//button[.//path[@stroke='#39C0DE']]"},
		{raw: "./ancestor::button", kind: LocatorKindStructural, expr: "./ancestor::button"},
		{raw: "ancestor::button[1]", kind: LocatorKindStructural, expr: "ancestor::button[1]"},
		{raw: "(//a)[1]", kind: LocatorKindStructural, expr: "(//a)[1]"},
		{raw: "xpath=button", kind: LocatorKindStructural, expr: "button"},
		{raw: "css=div > a", kind: LocatorKindCSS, expr: "div > a"},
		{raw: "button:contains('download')", kind: LocatorKindStructural, expr: "//button[contains(normalize-space(.), 'download')]"},
		{raw: `span:contains("It's")`, kind: LocatorKindStructural, expr: `//span[contains(normalize-space(.), "It's")]`},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseLocator(tt.raw)

			if got.Kind != tt.kind {
				t.Errorf("Kind: got %q, want %q", got.Kind, tt.kind)
			}
			if got.Expression != tt.expr {
				t.Errorf("Expression: got %q, want %q", got.Expression, tt.expr)
			}
			if got.Raw != tt.raw {
				t.Errorf("Raw: got %q, want %q", got.Raw, tt.raw)
			}
		})
	}
}

func TestParseLocator_NestedContainsStaysCSS(t *testing.T) {
	// Only the bare tag:contains form is rewritten; anything richer is left
	// to the driver, which reports it as a syntax error.
	got := ParseLocator("a:has(span:contains('Next'))")

	if got.Kind != LocatorKindCSS {
		t.Errorf("Kind: got %q, want css", got.Kind)
	}
}

func TestStructural_RawRoundTrips(t *testing.T) {
	for _, expr := range []string{"//a[@rel='next']", "button[@type='submit']"} {
		loc := Structural(expr)
		parsed := ParseLocator(loc.Raw)

		if parsed.Kind != LocatorKindStructural || parsed.Expression != expr {
			t.Errorf("round trip of %q: got %+v", expr, parsed)
		}
	}
}

func TestParseLocators_SkipsBlank(t *testing.T) {
	got := ParseLocators([]string{"a", "  ", "", "//b"})

	if len(got) != 2 {
		t.Fatalf("len: got %d, want 2", len(got))
	}
	if raws := RawLocators(got); raws[0] != "a" || raws[1] != "//b" {
		t.Errorf("raws: got %v", raws)
	}
}

func TestXPathLiteral_BothQuotes(t *testing.T) {
	got := xpathLiteral(`a'b"c`)
	want := `concat('a', "'", 'b"c')`

	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
