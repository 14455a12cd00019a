package controller

import (
	"strings"

	"github.com/MrSnakeDoc/wander/internal/domain"
)

// Action is what a filter change requires.
type Action int

const (
	// ActionNone: nothing visible changes.
	ActionNone Action = iota
	// ActionIdle: no search is left, go back to the preview rotation.
	ActionIdle
	// ActionFetch: the remote listing must be queried again (a search, or
	// materializing the bookmarks when entering bookmarks-only mode).
	ActionFetch
	// ActionLocalFilter: re-filter the materialized bookmarks, no
	// transliteration needed.
	ActionLocalFilter
	// ActionNormalizedScan: re-filter the materialized bookmarks with
	// transliteration of the query and the candidates.
	ActionNormalizedScan
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionIdle:
		return "idle"
	case ActionFetch:
		return "fetch"
	case ActionLocalFilter:
		return "local_filter"
	case ActionNormalizedScan:
		return "normalized_scan"
	default:
		return "unknown"
	}
}

// Decide returns the action that moves the list from prev to next.
func Decide(prev, next domain.Filter) Action {
	prev, next = clean(prev), clean(next)

	if next.BookmarksOnly {
		switch {
		case !prev.BookmarksOnly:
			return ActionFetch
		case prev == next:
			return ActionNone
		case next.Text != "":
			return ActionNormalizedScan
		default:
			return ActionLocalFilter
		}
	}

	if !next.IsSearch() {
		if prev.BookmarksOnly || prev.IsSearch() {
			return ActionIdle
		}
		return ActionNone
	}
	if prev == next {
		return ActionNone
	}
	return ActionFetch
}

func clean(f domain.Filter) domain.Filter {
	f.Text = strings.TrimSpace(f.Text)
	f.Category = strings.TrimSpace(f.Category)
	return f
}
