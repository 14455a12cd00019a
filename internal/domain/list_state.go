package domain

// Mode is the state of the search/filter state machine.
type Mode string

const (
	// ModeIdle shows the preview rotation; no search and no category.
	ModeIdle Mode = "idle"
	// ModeSearching means a list request is in flight.
	ModeSearching Mode = "searching"
	// ModeResults shows the last successful fetch.
	ModeResults Mode = "results"
	// ModeBookmarksOnly shows the reconciled bookmark set, filtered locally.
	ModeBookmarksOnly Mode = "bookmarks_only"
)

// Filter is the user-controlled part of the list state.
type Filter struct {
	Text          string
	Category      string
	BookmarksOnly bool
}

// IsSearch reports whether the filter asks the remote listing for something
// other than the idle preview.
func (f Filter) IsSearch() bool {
	return f.Text != "" || f.Category != ""
}

// ListState is what the controller currently displays.
//
// Items reflects the last successfully completed fetch or filter.
// Superseded operations never write to it; a failed one only turns a
// missing list into an empty one.
type ListState struct {
	Items          []Attraction
	Page           int
	HasMore        bool
	IsSearchActive bool
	FilterCategory string
	FilterText     string
	BookmarksOnly  bool
}

// Filter returns the filter part of the state.
func (s ListState) Filter() Filter {
	return Filter{
		Text:          s.FilterText,
		Category:      s.FilterCategory,
		BookmarksOnly: s.BookmarksOnly,
	}
}
