package logg

// Field keys shared by every component logger.
const (
	Layer        = "layer"
	Operation    = "op"
	URL          = "url"
	Selector     = "selector"
	SelectorName = "selector_name"
	Locator      = "locator"
	RunID        = "run_id"
	Page         = "page"
	Track        = "track"
	Layout       = "layout"
	Strategy     = "strategy"
	Path         = "path"
	Code         = "code"
)
