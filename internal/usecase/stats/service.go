// Package stats summarizes the stored corpus.
package stats

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/evidex/internal/domain/metadata"
	"github.com/kailas-cloud/evidex/internal/domain/report"
	"github.com/kailas-cloud/evidex/internal/domain/search/filter"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

// DefaultPageSize is the listing page used while scanning.
const DefaultPageSize = 500

// Service computes corpus statistics.
type Service struct {
	chunks   ChunkLister
	docs     DocumentLister
	pageSize int
}

// New creates a stats service. Without a document lister the document count
// is the number of distinct document ids among the chunks.
func New(chunks ChunkLister, docs DocumentLister) *Service {
	return &Service{chunks: chunks, docs: docs, pageSize: DefaultPageSize}
}

// Compute scans every chunk once.
func (s *Service) Compute(ctx context.Context) (report.Stats, error) {
	st := report.Stats{
		TypeHistogram:   make(map[string]int),
		StatusHistogram: make(map[string]int),
		SectionCoverage: make(map[string]int, len(section.All())),
	}
	for _, n := range section.All() {
		st.SectionCoverage[string(n)] = 0
	}

	docIDs := make(map[string]struct{})
	var qualitySum float64
	for offset := 0; ; offset += s.pageSize {
		page, err := s.chunks.ListChunks(ctx, filter.Expression{}, offset, s.pageSize)
		if err != nil {
			return report.Stats{}, fmt.Errorf("list chunks: %w", err)
		}
		for _, r := range page.Records {
			st.TotalChunks++
			st.TypeHistogram[r[metadata.FieldDocumentType]]++
			st.StatusHistogram[r[metadata.FieldStatus]]++
			qualitySum += r.Float(metadata.FieldQuality)
			docIDs[r[metadata.FieldDocumentID]] = struct{}{}
			for _, n := range section.All() {
				if r.Float(n.Field()) > 0 {
					st.SectionCoverage[string(n)]++
				}
			}
		}
		if len(page.Records) < s.pageSize || offset+len(page.Records) >= page.Total {
			break
		}
	}

	if st.TotalChunks > 0 {
		st.AverageQuality = qualitySum / float64(st.TotalChunks)
	}

	st.DocumentCount = len(docIDs)
	if s.docs != nil {
		docs, err := s.docs.List(ctx)
		if err != nil {
			return report.Stats{}, fmt.Errorf("list documents: %w", err)
		}
		st.DocumentCount = len(docs)
	}
	return st, nil
}
