package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/medicore/medicore-api/internal/domain"
)

const (
	WikipediaAPIURL  = "https://en.wikipedia.org/w/api.php"
	wikipediaPageURL = "https://en.wikipedia.org/wiki/"
)

// Wikipedia searches English Wikipedia articles.
type Wikipedia struct {
	client  *http.Client
	baseURL string
}

func NewWikipedia(client *http.Client, baseURL string) *Wikipedia {
	if baseURL == "" {
		baseURL = WikipediaAPIURL
	}
	return &Wikipedia{client: client, baseURL: baseURL}
}

func (w *Wikipedia) Name() string { return "wikipedia" }

type wikipediaResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

func (w *Wikipedia) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"format":   {"json"},
		"origin":   {"*"},
	}

	var resp wikipediaResponse
	if err := getJSON(ctx, w.client, w.baseURL, params, &resp); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(resp.Query.Search))
	for _, item := range resp.Query.Search {
		results = append(results, domain.SearchResult{
			Title:       item.Title,
			Description: stripTags(item.Snippet),
			Link:        wikipediaPageURL + url.PathEscape(item.Title),
			Source:      w.Name(),
		})
	}
	return results, nil
}

// stripTags returns the text content of an HTML fragment.
func stripTags(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
