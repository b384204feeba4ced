package handlers

import (
	"github.com/handsomefox/cinebrowse/internal/catalog"
	"github.com/handsomefox/cinebrowse/internal/imageurl"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type configResponse struct {
	Language   string   `json:"language"`
	ImageBase  string   `json:"image_base"`
	SortKeys   []string `json:"sort_keys"`
	MaxPages   int      `json:"max_pages"`
	DebounceMS int64    `json:"debounce_ms"`

	ImageSizes map[imageurl.Kind][]string `json:"image_sizes"`
}

type movieCard struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Overview    string          `json:"overview"`
	PosterURL   string          `json:"poster_url"`
	BackdropURL string          `json:"backdrop_url,omitempty"`
	ReleaseDate string          `json:"release_date"`
	Year        string          `json:"year"`
	Rating      float64         `json:"rating"`
	VoteCount   int             `json:"vote_count"`
	GenreIDs    []int           `json:"genre_ids"`
	Genres      []catalog.Genre `json:"genres,omitempty"`
	Runtime     string          `json:"runtime,omitempty"`
}

type castCard struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Character  string `json:"character"`
	ProfileURL string `json:"profile_url"`
}

type homeResponse struct {
	Featured   *movieCard      `json:"featured"`
	Popular    []movieCard     `json:"popular"`
	NowPlaying []movieCard     `json:"now_playing"`
	Upcoming   []movieCard     `json:"upcoming"`
	Genres     []catalog.Genre `json:"genres"`
}

type stateView struct {
	Search    string   `json:"search"`
	Genre     *int     `json:"genre"`
	Sort      string   `json:"sort"`
	MinRating *float64 `json:"rating"`
	Page      int      `json:"page"`
}

// listResponse carries one refined page plus the canonical query string for
// the state that produced it.
type listResponse struct {
	Query       string      `json:"query"`
	State       stateView   `json:"state"`
	Items       []movieCard `json:"items"`
	CurrentPage int         `json:"current_page"`
	TotalPages  int         `json:"total_pages"`
	HasPrev     bool        `json:"has_prev"`
	HasNext     bool        `json:"has_next"`
	Filtered    int         `json:"filtered"`
	Warnings    []string    `json:"warnings,omitempty"`
}

type categoryResponse struct {
	Genre catalog.Genre `json:"genre"`
	listResponse
}

type movieResponse struct {
	Movie movieCard  `json:"movie"`
	Cast  []castCard `json:"cast"`
}

type actorResponse struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	ProfileURL   string      `json:"profile_url"`
	Biography    string      `json:"biography"`
	Birthday     string      `json:"birthday"`
	PlaceOfBirth string      `json:"place_of_birth"`
	Department   string      `json:"department"`
	Filmography  []movieCard `json:"filmography"`
}
