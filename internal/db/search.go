package db

import "github.com/kailas-cloud/evidex/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// ListQuery selects indexed hashes by metadata only. Prefix is the key
// prefix the index covers; it drives the SCAN fallback on engines that
// cannot run a search without a vector clause.
type ListQuery struct {
	IndexName    string
	Prefix       string
	Filters      filter.Expression
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hash hit. Score is cosine similarity for KNN
// results and zero for listings.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
