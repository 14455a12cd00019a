package domain

// Attraction is the canonical client-side record of a point of interest.
//
// It is NOT tied to the remote API wire format: the gateway mapper is the
// only place that knows remote field names. Attractions are read-only for
// the client; nothing downstream of the gateway mutates them.
type Attraction struct {
	// ─────────────────────────────
	// Identity (immutable, remote-assigned)
	// ─────────────────────────────

	// ID is the stable integer identifier assigned by the remote system.
	ID int

	// ─────────────────────────────
	// Description
	// ─────────────────────────────

	Title       string
	Description string
	Category    string

	// ─────────────────────────────
	// Media
	// ─────────────────────────────

	ImageURL string
	VideoURL string

	// ─────────────────────────────
	// Visit information
	// ─────────────────────────────

	OpeningHours string
	Address      string
	City         string
	Country      string

	Tags       []string
	Facilities []string
}

// HasVideo reports whether the attraction links to a video.
func (a Attraction) HasVideo() bool {
	return a.VideoURL != ""
}

// Pagination describes where a page sits in the remote listing.
type Pagination struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// IsLast reports whether no page follows this one.
// A page is the last one when the remote says so, or when it came back
// shorter than requested.
func (p Pagination) IsLast(received int) bool {
	if p.TotalPages > 0 && p.Page >= p.TotalPages {
		return true
	}
	return p.Limit > 0 && received < p.Limit
}

// Page is one page of the remote attraction listing.
type Page struct {
	Items      []Attraction
	Pagination Pagination
}

// Sort keys and orders understood by the listing endpoint.
const (
	SortByID    = "id"
	SortByTitle = "title"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// AttractionQuery holds the listing parameters.
// Zero values are omitted from the outgoing request.
type AttractionQuery struct {
	Page     int
	Limit    int
	Search   string
	Category string
	Sort     string
	Order    string
}
