package query

import (
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		state State
		mode  Mode
		want  url.Values
	}{
		{
			name:  "defaults encode to nothing",
			state: Default(),
			mode:  ModeListing,
			want:  url.Values{},
		},
		{
			name:  "search mode uses q",
			state: State{SearchText: "Bat", Sort: DefaultSort, Page: 1},
			mode:  ModeSearch,
			want:  url.Values{"q": {"Bat"}},
		},
		{
			name:  "listing mode uses search",
			state: State{SearchText: "Bat", Sort: DefaultSort, Page: 1},
			mode:  ModeListing,
			want:  url.Values{"search": {"Bat"}},
		},
		{
			name: "every key",
			state: State{
				SearchText: "alien",
				GenreID:    ptr(878),
				Sort:       SortRatingDesc,
				MinRating:  ptr(7.5),
				Page:       3,
			},
			mode: ModeSearch,
			want: url.Values{
				"q":      {"alien"},
				"genre":  {"878"},
				"sort":   {"rating.desc"},
				"rating": {"7.5"},
				"page":   {"3"},
			},
		},
		{
			name:  "whole rating has no decimals",
			state: State{MinRating: ptr(7.0), Sort: DefaultSort, Page: 1},
			mode:  ModeListing,
			want:  url.Values{"rating": {"7"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.state, tt.mode)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		mode    Mode
		want    State
		badKeys []string
	}{
		{
			name: "empty",
			raw:  "",
			mode: ModeSearch,
			want: Default(),
		},
		{
			name: "full search query",
			raw:  "q=alien&genre=878&sort=release.asc&rating=6.5&page=2",
			mode: ModeSearch,
			want: State{
				SearchText: "alien",
				GenreID:    ptr(878),
				Sort:       SortReleaseAsc,
				MinRating:  ptr(6.5),
				Page:       2,
			},
		},
		{
			name: "listing falls back to q",
			raw:  "q=Bat",
			mode: ModeListing,
			want: State{SearchText: "Bat", Sort: DefaultSort, Page: 1},
		},
		{
			name: "mode key wins",
			raw:  "q=one&search=two",
			mode: ModeListing,
			want: State{SearchText: "two", Sort: DefaultSort, Page: 1},
		},
		{
			name: "page beyond ceiling is clamped silently",
			raw:  "page=9000",
			mode: ModeListing,
			want: State{Sort: DefaultSort, Page: 500},
		},
		{
			name:    "unknown sort falls back",
			raw:     "sort=vote_average.desc",
			mode:    ModeListing,
			want:    Default(),
			badKeys: []string{"sort"},
		},
		{
			name:    "non numeric values are dropped",
			raw:     "genre=action&rating=high&page=two",
			mode:    ModeSearch,
			want:    Default(),
			badKeys: []string{"genre", "rating", "page"},
		},
		{
			name:    "out of range values are dropped",
			raw:     "genre=-3&rating=11&page=0",
			mode:    ModeSearch,
			want:    Default(),
			badKeys: []string{"genre", "rating", "page"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.raw)
			require.NoError(t, err)

			got, err := Parse(values, tt.mode)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}

			if len(tt.badKeys) == 0 {
				assert.NoError(t, err)
				return
			}
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "want *ParseError, got %v", err)
			keys := make([]string, 0, len(perr.Fields))
			for _, f := range perr.Fields {
				keys = append(keys, f.Key)
			}
			assert.ElementsMatch(t, tt.badKeys, keys)
		})
	}
}

func TestParseEncodeRoundTrip(t *testing.T) {
	st := State{SearchText: "amélie", GenreID: ptr(35), Sort: SortTitleAsc, MinRating: ptr(8.0), Page: 7}
	got, err := Parse(Encode(st, ModeSearch), ModeSearch)
	require.NoError(t, err)
	assert.True(t, st.Equal(got))
}

func TestParseErrorMessage(t *testing.T) {
	_, err := Parse(url.Values{"sort": {"nope"}}, ModeListing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sort must be one of popularity.desc")
}
