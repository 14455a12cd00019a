package gateway

import (
	"sort"

	"github.com/MrSnakeDoc/wander/internal/domain"
)

// mapAttraction converts a wire record to the canonical domain record.
// This is the only place remote field names and their alternates are known.
func mapAttraction(r remoteAttraction) domain.Attraction {
	return domain.Attraction{
		ID:           r.ID,
		Title:        firstNonEmpty(r.Title, r.Name),
		Description:  r.Description,
		Category:     r.Category,
		ImageURL:     firstNonEmpty(r.ImageURL, r.Image),
		VideoURL:     r.VideoURL,
		OpeningHours: r.OpeningHours,
		Address:      r.Address,
		City:         r.City,
		Country:      r.Country,
		Tags:         []string(r.Tags),
		Facilities:   []string(r.Facilities),
	}
}

// mapPage converts a listing response. Records without an ID are dropped.
func mapPage(resp listResponse, q domain.AttractionQuery) *domain.Page {
	items := make([]domain.Attraction, 0, len(resp.Data))
	for _, r := range resp.Data {
		if r.ID == 0 {
			continue
		}
		items = append(items, mapAttraction(r))
	}

	p := domain.Pagination{
		Page:       resp.Pagination.Page,
		Limit:      resp.Pagination.Limit,
		Total:      resp.Pagination.Total,
		TotalPages: resp.Pagination.TotalPages,
	}
	if p.Page == 0 {
		p.Page = q.Page
	}
	if p.Limit == 0 {
		p.Limit = q.Limit
	}

	return &domain.Page{Items: items, Pagination: p}
}

// mapBookmarkIDs merges both accepted shapes and returns sorted unique IDs.
func mapBookmarkIDs(resp bookmarksResponse) []int {
	seen := make(map[int]struct{}, len(resp.IDs)+len(resp.Bookmarks))
	for _, id := range resp.IDs {
		if id != 0 {
			seen[id] = struct{}{}
		}
	}
	for _, b := range resp.Bookmarks {
		if b.AttractionID != 0 {
			seen[b.AttractionID] = struct{}{}
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func mapAuth(resp authResponse, username string) *AuthResult {
	return &AuthResult{
		UserID:   resp.UserID,
		Token:    resp.Token,
		Username: firstNonEmpty(resp.Username, username),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
