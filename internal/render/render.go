// Package render turns the visible attractions into a paintable view.
// It does no I/O: the same inputs always give the same View.
package render

import (
	"strconv"

	"github.com/MrSnakeDoc/wander/internal/domain"
)

// ActionKind names what a card control does when clicked.
type ActionKind string

const (
	ActionToggleBookmark ActionKind = "toggle-bookmark"
	ActionOpenVideo      ActionKind = "open-video"
	ActionFilterCategory ActionKind = "filter-category"
)

// Action is an interaction bound to a card. Every render returns a fresh
// set, so the UI rebinds its handlers from scratch.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Label  string     `json:"label"`
	Target string     `json:"target"` // attraction id, video url or category
}

// Card is one rendered attraction.
type Card struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Category     string   `json:"category,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
	OpeningHours string   `json:"opening_hours,omitempty"`
	Location     string   `json:"location,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Facilities   []string `json:"facilities,omitempty"`
	Bookmarked   bool     `json:"bookmarked"`
	Actions      []Action `json:"actions"`
}

// EmptyReason tells why nothing is listed. Each reason has its own message.
type EmptyReason string

const (
	EmptyNoBookmarks       EmptyReason = "no-bookmarks"
	EmptyNoSearchResults   EmptyReason = "no-search-results"
	EmptyNoBookmarkMatches EmptyReason = "no-bookmark-matches"
	EmptyNoAttractions     EmptyReason = "no-attractions"
)

var emptyMessages = map[EmptyReason]string{
	EmptyNoBookmarks:       "You have not bookmarked any attraction yet.",
	EmptyNoSearchResults:   "No attraction matches your search.",
	EmptyNoBookmarkMatches: "None of your bookmarks match this filter.",
	EmptyNoAttractions:     "No attractions to show right now.",
}

// Empty is the empty state of a view.
type Empty struct {
	Reason  EmptyReason `json:"reason"`
	Message string      `json:"message"`
}

// Context is the filter state the list is rendered under.
type Context struct {
	Bookmarked     map[int]struct{}
	BookmarkCount  int
	BookmarksOnly  bool
	FilterText     string
	FilterCategory string
	HasMore        bool
	Loading        bool
}

// View is the rendered list.
type View struct {
	Cards        []Card `json:"cards"`
	Empty        *Empty `json:"empty,omitempty"`
	ShowLoadMore bool   `json:"show_load_more"`
	Loading      bool   `json:"loading"`
}

// Render builds the view of items under ctx.
func Render(items []domain.Attraction, ctx Context) View {
	v := View{
		Cards:   make([]Card, 0, len(items)),
		Loading: ctx.Loading,
	}
	for _, a := range items {
		_, marked := ctx.Bookmarked[a.ID]
		v.Cards = append(v.Cards, card(a, marked))
	}

	if len(v.Cards) == 0 {
		if !ctx.Loading {
			reason := emptyReason(ctx)
			v.Empty = &Empty{Reason: reason, Message: emptyMessages[reason]}
		}
		return v
	}

	v.ShowLoadMore = ctx.HasMore && !ctx.BookmarksOnly && !ctx.Loading
	return v
}

func emptyReason(ctx Context) EmptyReason {
	filtered := ctx.FilterText != "" || ctx.FilterCategory != ""
	switch {
	case ctx.BookmarksOnly && ctx.BookmarkCount == 0:
		return EmptyNoBookmarks
	case ctx.BookmarksOnly && filtered:
		return EmptyNoBookmarkMatches
	case ctx.BookmarksOnly:
		// bookmarked records that the listing no longer returns
		return EmptyNoBookmarks
	case filtered:
		return EmptyNoSearchResults
	default:
		return EmptyNoAttractions
	}
}

func card(a domain.Attraction, bookmarked bool) Card {
	c := Card{
		ID:           a.ID,
		Title:        a.Title,
		Description:  a.Description,
		Category:     a.Category,
		ImageURL:     a.ImageURL,
		OpeningHours: a.OpeningHours,
		Location:     location(a),
		Tags:         a.Tags,
		Facilities:   a.Facilities,
		Bookmarked:   bookmarked,
	}

	label := "Bookmark"
	if bookmarked {
		label = "Remove bookmark"
	}
	c.Actions = append(c.Actions, Action{Kind: ActionToggleBookmark, Label: label, Target: strconv.Itoa(a.ID)})

	if a.HasVideo() {
		c.Actions = append(c.Actions, Action{Kind: ActionOpenVideo, Label: "Watch video", Target: a.VideoURL})
	}
	if a.Category != "" {
		c.Actions = append(c.Actions, Action{Kind: ActionFilterCategory, Label: a.Category, Target: a.Category})
	}
	return c
}

func location(a domain.Attraction) string {
	out := ""
	for _, part := range []string{a.Address, a.City, a.Country} {
		if part == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += part
	}
	return out
}
