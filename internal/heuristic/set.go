package heuristic

import "go.uber.org/zap"

// Set groups the fallback chains used by the library workflow.
type Set struct {
	// NextPage runs against the document.
	NextPage Strategy
	// Popup runs against the document after a download click.
	Popup Strategy
	// WideDownload and NarrowDownload run inside a track container.
	WideDownload   Strategy
	NarrowDownload Strategy
}

func NewSet(logger *zap.Logger) *Set {
	blueStroke := NewFixedLocators("blue_stroke",
		".//button[./svg[contains(@viewBox, '0 0 16 16') and .//path[contains(@stroke, '#39C0DE')]]]",
		".//button[.//path[@stroke='#39C0DE']]",
		".//button[.//svg[@data-testid='icon-re-download']]",
		".//div[contains(@class, 'download-actions')]/button",
	)
	scan := NewButtonScan("download", "39c0de")

	return &Set{
		NextPage: NewChain(logger, "next_page",
			NewFixedLocators("pager",
				"//a[contains(@class, 'Pager') and .//span[text()='Next']]",
				"a[aria-label='Next page']",
				"//a[.//svg[contains(@class, 'icon-arrow-right') or contains(@class, 'icon-next')]]",
			),
		),
		Popup: NewChain(logger, "popup_download",
			NewFixedLocators("popup_text",
				"//button[contains(text(), 'Download') or .//span[contains(text(), 'Download')]]",
			),
			NewDialogButtons(),
		),
		WideDownload:   NewChain(logger, "wide_download", blueStroke, scan),
		NarrowDownload: NewChain(logger, "narrow_download", scan, blueStroke),
	}
}
