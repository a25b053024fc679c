package evidex

import (
	"context"
	"fmt"
	"time"
)

// Stats summarizes the corpus.
func (c *Client) Stats(ctx context.Context) (st Stats, err error) {
	start := time.Now()
	defer func() { c.obs.observe("stats", start, err) }()

	s, err := c.statsSvc.Compute(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return fromInternalStats(s), nil
}

// ValidateIntegrity checks stored chunk metadata against the schema. sample
// limits the check to the first n chunks; 0 checks all of them.
func (c *Client) ValidateIntegrity(ctx context.Context, sample int) (rep IntegrityReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("validate_integrity", start, err) }()

	r, err := c.integritySvc.Validate(ctx, sample)
	if err != nil {
		return IntegrityReport{}, fmt.Errorf("validate integrity: %w", err)
	}
	return fromInternalIntegrity(r), nil
}
