package evidex

import (
	"context"
	"fmt"
	"time"
)

// Search ranks chunks for a free-text query. With sc.Section set, the query
// expands with that section's search terms.
func (c *Client) Search(ctx context.Context, query string, sc SearchContext) (resp SearchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	rc, err := toInternalContext(sc, c.defaultQuality)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search: %w", err)
	}
	r, err := c.retrievalSvc.Search(ctx, query, rc)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search: %w", err)
	}
	c.obs.degraded("search", r.FailedQueries)
	return SearchResponse{
		Results:       fromInternalResults(r.Results),
		FailedQueries: r.FailedQueries,
		Degraded:      r.Degraded,
	}, nil
}

// RetrieveEvidence gathers ranked evidence for each section.
func (c *Client) RetrieveEvidence(ctx context.Context, sections []Section, sc SearchContext) (set EvidenceSet, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retrieve_evidence", start, err) }()

	names, err := toInternalSections(sections)
	if err != nil {
		return EvidenceSet{}, fmt.Errorf("retrieve evidence: %w", err)
	}
	rc, err := toInternalContext(sc, c.defaultQuality)
	if err != nil {
		return EvidenceSet{}, fmt.Errorf("retrieve evidence: %w", err)
	}
	s, err := c.retrievalSvc.RetrieveEvidence(ctx, names, rc)
	if err != nil {
		return EvidenceSet{}, fmt.Errorf("retrieve evidence: %w", err)
	}
	c.obs.degraded("retrieve_evidence", s.FailedQueries)
	return fromInternalEvidence(s), nil
}
