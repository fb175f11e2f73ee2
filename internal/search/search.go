// Package search queries third-party reference sources and merges their hits.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medicore/medicore-api/internal/domain"
	"github.com/medicore/medicore-api/internal/metrics"
)

// Provider is a single search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// DefaultConcurrency bounds how many providers are queried at once.
const DefaultConcurrency = 4

// Aggregator fans a query out to every provider concurrently.
type Aggregator struct {
	providers []Provider
	timeout   time.Duration
	limit     int
}

// NewAggregator creates an Aggregator. Results are returned in provider order.
func NewAggregator(timeout time.Duration, providers ...Provider) *Aggregator {
	return &Aggregator{providers: providers, timeout: timeout, limit: DefaultConcurrency}
}

// WithConcurrency sets how many providers may be queried at once.
func (a *Aggregator) WithConcurrency(n int) *Aggregator {
	if n > 0 {
		a.limit = n
	}
	return a
}

// Providers returns the configured providers.
func (a *Aggregator) Providers() []Provider {
	return a.providers
}

// Lookup returns the provider registered under name.
func (a *Aggregator) Lookup(name string) (Provider, bool) {
	for _, p := range a.providers {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Search queries all providers. A failing provider contributes no results.
// Search fails only when ctx ends before every provider has answered.
func (a *Aggregator) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	perProvider := make([][]domain.SearchResult, len(a.providers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for i, p := range a.providers {
		g.Go(func() error {
			// Providers still queued when the caller gives up are skipped.
			if err := gctx.Err(); err != nil {
				return err
			}
			perProvider[i] = a.SearchOne(gctx, p, query)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	results := []domain.SearchResult{}
	for _, r := range perProvider {
		results = append(results, r...)
	}
	return results, nil
}

// SearchOne queries a single provider under the aggregator's timeout. Errors
// are logged and yield an empty result.
func (a *Aggregator) SearchOne(ctx context.Context, p Provider, query string) []domain.SearchResult {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	results, err := p.Search(ctx, query)
	if err != nil {
		slog.Error("search provider", "provider", p.Name(), "error", err)
		metrics.SearchProviderErrorsTotal.WithLabelValues(p.Name()).Inc()
		return []domain.SearchResult{}
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	return results
}

// getJSON issues a GET to base with params and decodes the JSON response into v.
func getJSON(ctx context.Context, client *http.Client, base string, params url.Values, v any) error {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
