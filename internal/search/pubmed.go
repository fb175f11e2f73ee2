package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/medicore/medicore-api/internal/domain"
)

const (
	PubMedEUtilsURL   = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	pubMedArticleURL  = "https://pubmed.ncbi.nlm.nih.gov/"
	pubMedMaxArticles = "3"
)

// PubMed searches biomedical literature through NCBI E-utilities: esearch
// finds article ids, esummary resolves their titles.
type PubMed struct {
	client  *http.Client
	baseURL string
}

func NewPubMed(client *http.Client, baseURL string) *PubMed {
	if baseURL == "" {
		baseURL = PubMedEUtilsURL
	}
	return &PubMed{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *PubMed) Name() string { return "ncbi" }

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// esummaryResponse keys each article by its uid next to a "uids" list, so
// entries are decoded lazily.
type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type esummaryArticle struct {
	UID   string `json:"uid"`
	Title string `json:"title"`
}

func (p *PubMed) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	var search esearchResponse
	err := getJSON(ctx, p.client, p.baseURL+"/esearch.fcgi", url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmode": {"json"},
		"retmax":  {pubMedMaxArticles},
	}, &search)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}

	ids := search.Result.IDList
	if len(ids) == 0 {
		return []domain.SearchResult{}, nil
	}

	var summary esummaryResponse
	err = getJSON(ctx, p.client, p.baseURL+"/esummary.fcgi", url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"json"},
	}, &summary)
	if err != nil {
		return nil, fmt.Errorf("esummary: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(ids))
	for _, id := range ids {
		raw, ok := summary.Result[id]
		if !ok {
			continue
		}
		var article esummaryArticle
		if err := json.Unmarshal(raw, &article); err != nil || article.UID == "" {
			continue
		}
		results = append(results, domain.SearchResult{
			Title:       article.Title,
			Description: "PubMed Abstract",
			Link:        pubMedArticleURL + article.UID + "/",
			Source:      p.Name(),
		})
	}
	return results, nil
}
