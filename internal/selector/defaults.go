package selector

// Logical element names used by the library workflow.
const (
	NameTrackContainers      = "track_containers"
	NameTrackName            = "track_name"
	NameArtistName           = "artist_name"
	NameDownloadButton       = "download_button"
	NameDownloadFinishedIcon = "download_finished_icon"
	NamePagination           = "pagination"
	NameNextButton           = "next_button"
	NamePopupDownloadButton  = "popup_download_button"
)

// CriticalNames are checked by HealthCheck when no names are given.
var CriticalNames = []string{
	NameTrackContainers,
	NameTrackName,
	NameArtistName,
	NameDownloadButton,
}

// DefaultLocators returns a fresh copy of the shipped candidate lists. They
// are a starting point; the learned order in the store takes precedence.
func DefaultLocators() map[string][]string {
	return map[string][]string{
		NameTrackContainers: {
			"[data-testid='library-tracks-table-row']",
			"[data-testid='tracks-list-item']",
		},
		NameTrackName: {
			"[data-testid='track-title']",
			".Tables-shared-style__ReleaseName-sc-792178d5-4",
			".TracksList-style__TrackName-sc-921ce1b-0",
		},
		NameArtistName: {
			"[data-testid='artist-name']",
			"a[href*='/artist/']",
		},
		NameDownloadButton: {
			"svg[data-testid='icon-re-download']",
			"svg path[stroke='#39C0DE']",
		},
		NameDownloadFinishedIcon: {
			"svg[data-testid='icon-download-finished']",
		},
		NamePagination: {
			"[data-testid='pagination-container']",
			"[class*='Pager-style__Wrapper']",
		},
		NameNextButton: {
			"a[data-testid='pagination-next']",
			"a:has(span:text-is('Next'))",
		},
		NamePopupDownloadButton: {
			"//button[contains(text(), 'Download') or .//span[contains(text(), 'Download')]]",
		},
	}
}
