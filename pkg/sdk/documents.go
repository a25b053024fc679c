package evidex

import (
	"context"
	"fmt"
	"time"

	ingestuc "github.com/kailas-cloud/evidex/internal/usecase/ingest"
)

// Ingest classifies, chunks, scores and indexes one document. Identical text
// already in the corpus returns the stored record with Duplicate set.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (doc Document, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err) }()

	res, err := c.ingestSvc.Ingest(ctx, ingestuc.Request{
		IDHint:     req.IDHint,
		SourcePath: req.SourcePath,
		Text:       req.Text,
		CapturedAt: req.CapturedAt,
		SubjectID:  req.SubjectID,
	})
	if err != nil {
		return Document{}, fmt.Errorf("ingest: %w", err)
	}
	doc = fromInternalDocument(res.Document)
	doc.Duplicate = res.Duplicate
	return doc, nil
}

// Get returns a stored document record.
func (c *Client) Get(ctx context.Context, id string) (doc Document, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get", start, err) }()

	d, err := c.ingestSvc.Get(ctx, id)
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return fromInternalDocument(d), nil
}

// Delete removes a document and every chunk of it, returning the number of
// chunks removed.
func (c *Client) Delete(ctx context.Context, id string) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete", start, err) }()

	n, err = c.ingestSvc.Delete(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete document: %w", err)
	}
	return n, nil
}
