package search

import (
	"context"
	"net/http"
	"net/url"

	"github.com/medicore/medicore-api/internal/domain"
)

const (
	YouTubeAPIURL   = "https://www.googleapis.com/youtube/v3/search"
	youTubeWatchURL = "https://www.youtube.com/watch?v="
	youTubeMax      = "3"
)

// YouTube searches videos through the YouTube Data API.
type YouTube struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewYouTube(client *http.Client, baseURL, apiKey string) *YouTube {
	if baseURL == "" {
		baseURL = YouTubeAPIURL
	}
	return &YouTube{client: client, baseURL: baseURL, apiKey: apiKey}
}

func (y *YouTube) Name() string { return "youtube" }

type youTubeResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"snippet"`
	} `json:"items"`
}

func (y *YouTube) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	params := url.Values{
		"part":       {"snippet"},
		"q":          {query},
		"maxResults": {youTubeMax},
		"key":        {y.apiKey},
		"type":       {"video"},
	}

	var resp youTubeResponse
	if err := getJSON(ctx, y.client, y.baseURL, params, &resp); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, domain.SearchResult{
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			Link:        youTubeWatchURL + item.ID.VideoID,
			Source:      y.Name(),
		})
	}
	return results, nil
}
