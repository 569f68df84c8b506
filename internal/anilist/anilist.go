package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/naoTimesdev/showtimes-sub000/internal/models"
	"github.com/naoTimesdev/showtimes-sub000/internal/showerrors"
)

const endpoint = "https://graphql.anilist.co"

// Client talks to the Anilist GraphQL API with a client-side rate
// limit matching the published per-minute quota.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client capped at requestsPerMinute.
func NewClient(requestsPerMinute int) *Client {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 90
	}
	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
	}
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Media is the subset of Anilist media fields the tracker consumes.
type Media struct {
	ID    int `json:"id"`
	IDMal int `json:"idMal"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	CoverImage struct {
		ExtraLarge string `json:"extraLarge"`
		Large      string `json:"large"`
		Color      string `json:"color"`
	} `json:"coverImage"`
	StartDate struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		Day   int `json:"day"`
	} `json:"startDate"`
	Episodes *int   `json:"episodes"`
	Format   string `json:"format"`
	Status   string `json:"status"`
}

// AiringSchedule is one scheduled episode airing.
type AiringSchedule struct {
	Episode  int   `json:"episode"`
	AiringAt int64 `json:"airingAt"`
}

const mediaQuery = `
query ($id: Int!) {
  Media(id: $id, type: ANIME) {
    id
    idMal
    title { romaji english native }
    coverImage { extraLarge large color }
    startDate { year month day }
    episodes
    format
    status
  }
}
`

const airingQuery = `
query ($id: Int!, $page: Int!) {
  Media(id: $id, type: ANIME) {
    airingSchedule(page: $page, perPage: 50) {
      pageInfo { hasNextPage }
      nodes { episode airingAt }
    }
  }
}
`

func (c *Client) do(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encode query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return showerrors.Wrap(showerrors.CodeMetadataUpstream, "anilist unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return showerrors.New(showerrors.CodeMetadataNotFound, "anilist media not found")
	}
	if resp.StatusCode != http.StatusOK {
		return showerrors.Newf(showerrors.CodeMetadataUpstream, "anilist returned %d", resp.StatusCode)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if len(envelope.Errors) > 0 {
		if envelope.Errors[0].Status == http.StatusNotFound {
			return showerrors.New(showerrors.CodeMetadataNotFound, "anilist media not found")
		}
		return showerrors.Newf(showerrors.CodeMetadataUpstream, "anilist error: %s", envelope.Errors[0].Message)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// GetMedia fetches one anime by Anilist ID.
func (c *Client) GetMedia(ctx context.Context, id int) (*Media, error) {
	var data struct {
		Media *Media `json:"Media"`
	}
	if err := c.do(ctx, mediaQuery, map[string]interface{}{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.Media == nil {
		return nil, showerrors.New(showerrors.CodeMetadataNotFound, "anilist media not found")
	}
	return data.Media, nil
}

// GetAiringSchedule walks the paginated airing schedule for an anime.
func (c *Client) GetAiringSchedule(ctx context.Context, id int) ([]AiringSchedule, error) {
	var all []AiringSchedule
	for page := 1; ; page++ {
		var data struct {
			Media *struct {
				AiringSchedule struct {
					PageInfo struct {
						HasNextPage bool `json:"hasNextPage"`
					} `json:"pageInfo"`
					Nodes []AiringSchedule `json:"nodes"`
				} `json:"airingSchedule"`
			} `json:"Media"`
		}
		if err := c.do(ctx, airingQuery, map[string]interface{}{"id": id, "page": page}, &data); err != nil {
			return nil, err
		}
		if data.Media == nil {
			return nil, showerrors.New(showerrors.CodeMetadataNotFound, "anilist media not found")
		}
		all = append(all, data.Media.AiringSchedule.Nodes...)
		if !data.Media.AiringSchedule.PageInfo.HasNextPage {
			break
		}
	}
	return all, nil
}

// FetchExternal assembles provider metadata for a project: media info
// plus the known airing schedule, padded out to the declared episode
// count when the schedule is incomplete.
func (c *Client) FetchExternal(ctx context.Context, id int) (*models.ExternalData, *Media, error) {
	media, err := c.GetMedia(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	schedule, err := c.GetAiringSchedule(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	external := &models.ExternalData{
		Kind:  models.ExternalAnilist,
		AniID: strconv.Itoa(media.ID),
	}
	if media.IDMal != 0 {
		external.MalID = strconv.Itoa(media.IDMal)
	}

	seen := make(map[int]bool, len(schedule))
	for _, airing := range schedule {
		at := float64(airing.AiringAt)
		external.Episodes = append(external.Episodes, models.ExternalEpisode{
			Episode: airing.Episode,
			Season:  1,
			Airtime: &at,
		})
		seen[airing.Episode] = true
	}
	if media.Episodes != nil {
		for ep := 1; ep <= *media.Episodes; ep++ {
			if !seen[ep] {
				external.Episodes = append(external.Episodes, models.ExternalEpisode{Episode: ep, Season: 1})
			}
		}
	}
	sort.Slice(external.Episodes, func(i, j int) bool {
		return external.Episodes[i].Episode < external.Episodes[j].Episode
	})
	if len(external.Episodes) > 0 && external.Episodes[0].Airtime != nil {
		external.StartTime = external.Episodes[0].Airtime
	}
	return external, media, nil
}
