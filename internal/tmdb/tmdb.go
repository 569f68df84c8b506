package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/naoTimesdev/showtimes-sub000/internal/models"
	"github.com/naoTimesdev/showtimes-sub000/internal/showerrors"
)

const apiBase = "https://api.themoviedb.org/3"

// Client talks to the TMDB v3 API, backing projects tracked against
// movies or live-action series instead of Anilist media.
type Client struct {
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second/4), 4),
	}
}

// SearchResult is one hit from a multi search.
type SearchResult struct {
	ID           int     `json:"id"`
	MediaType    string  `json:"media_type"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
}

// DisplayTitle collapses the movie/TV title split.
func (r SearchResult) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// PosterURL returns the full-size poster address, empty when unset.
func (r SearchResult) PosterURL() string {
	if r.PosterPath == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/w500" + r.PosterPath
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c.apiKey == "" {
		return showerrors.New(showerrors.CodeMetadataUpstream, "TMDB API key not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("api_key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return showerrors.Wrap(showerrors.CodeMetadataUpstream, "tmdb unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return showerrors.New(showerrors.CodeMetadataNotFound, "tmdb entry not found")
	}
	if resp.StatusCode != http.StatusOK {
		return showerrors.Newf(showerrors.CodeMetadataUpstream, "tmdb returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Search runs a multi search across movies and TV, dropping people and
// other non-media hits.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var result struct {
		Results []SearchResult `json:"results"`
	}
	params := url.Values{"query": {query}}
	if err := c.get(ctx, "/search/multi", params, &result); err != nil {
		return nil, err
	}

	var media []SearchResult
	for _, r := range result.Results {
		if r.MediaType == "movie" || r.MediaType == "tv" {
			media = append(media, r)
		}
	}
	return media, nil
}

// Details is the subset of movie/TV detail fields consumed here.
type Details struct {
	ID              int     `json:"id"`
	Title           string  `json:"title"`
	Name            string  `json:"name"`
	Overview        string  `json:"overview"`
	PosterPath      string  `json:"poster_path"`
	ReleaseDate     string  `json:"release_date"`
	FirstAirDate    string  `json:"first_air_date"`
	VoteAverage     float64 `json:"vote_average"`
	NumberOfSeasons int     `json:"number_of_seasons"`
}

func (d Details) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

func (d Details) PosterURL() string {
	if d.PosterPath == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/w500" + d.PosterPath
}

// GetMovie fetches movie details by ID.
func (c *Client) GetMovie(ctx context.Context, id string) (*Details, error) {
	var details Details
	if err := c.get(ctx, "/movie/"+url.PathEscape(id), url.Values{}, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// GetTV fetches series details by ID.
func (c *Client) GetTV(ctx context.Context, id string) (*Details, error) {
	var details Details
	if err := c.get(ctx, "/tv/"+url.PathEscape(id), url.Values{}, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

type seasonEpisode struct {
	EpisodeNumber int    `json:"episode_number"`
	SeasonNumber  int    `json:"season_number"`
	AirDate       string `json:"air_date"`
}

// FetchExternal assembles provider metadata for a TMDB-backed project.
// Movies become a single-episode record; series expand every season.
func (c *Client) FetchExternal(ctx context.Context, id string, isMovie bool) (*models.ExternalData, *Details, error) {
	external := &models.ExternalData{Kind: models.ExternalTMDB, TMDBID: id}

	if isMovie {
		details, err := c.GetMovie(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		episode := models.ExternalEpisode{Episode: 1, Season: 1}
		if ts := parseAirDate(details.ReleaseDate); ts != nil {
			episode.Airtime = ts
			external.StartTime = ts
		}
		external.Episodes = []models.ExternalEpisode{episode}
		return external, details, nil
	}

	details, err := c.GetTV(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	for season := 1; season <= details.NumberOfSeasons; season++ {
		var result struct {
			Episodes []seasonEpisode `json:"episodes"`
		}
		path := "/tv/" + url.PathEscape(id) + "/season/" + strconv.Itoa(season)
		if err := c.get(ctx, path, url.Values{}, &result); err != nil {
			return nil, nil, err
		}
		for _, ep := range result.Episodes {
			entry := models.ExternalEpisode{Episode: ep.EpisodeNumber, Season: season}
			if ts := parseAirDate(ep.AirDate); ts != nil {
				entry.Airtime = ts
				if external.StartTime == nil {
					external.StartTime = ts
				}
			}
			external.Episodes = append(external.Episodes, entry)
		}
	}
	return external, details, nil
}

func parseAirDate(raw string) *float64 {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	ts := float64(parsed.Unix())
	return &ts
}
