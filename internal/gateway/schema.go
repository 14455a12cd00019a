package gateway

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Wire types of the remote API. They never leave this package.

type remoteAttraction struct {
	ID           int          `json:"id"`
	Title        string       `json:"title"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Category     string       `json:"category"`
	ImageURL     string       `json:"image_url"`
	Image        string       `json:"image"`
	VideoURL     string       `json:"video_url"`
	OpeningHours string       `json:"opening_hours"`
	Address      string       `json:"address"`
	City         string       `json:"city"`
	Country      string       `json:"country"`
	Tags         flexibleList `json:"tags"`
	Facilities   flexibleList `json:"facilities"`
}

type remotePagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type listResponse struct {
	Data       []remoteAttraction `json:"data"`
	Pagination remotePagination   `json:"pagination"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID   int    `json:"user_id"`
	Token    string `json:"token"`
	Username string `json:"username"`
}

type checkResponse struct {
	UserID *int `json:"user_id"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type remoteBookmark struct {
	AttractionID int `json:"attraction_id"`
}

type bookmarksResponse struct {
	IDs       []int            `json:"ids"`
	Bookmarks []remoteBookmark `json:"bookmarks"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// flexibleList accepts either a JSON array of strings or a comma separated string.
type flexibleList []string

func (l *flexibleList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = cleanList(items)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = cleanList(strings.Split(s, ","))
	return nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
