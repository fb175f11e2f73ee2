package domain

// SearchResult is a single hit returned by an external search provider.
type SearchResult struct {
	Title       string
	Description string
	Link        string
	Source      string
}
