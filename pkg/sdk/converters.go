package evidex

import (
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
	"github.com/kailas-cloud/evidex/internal/domain/report"
	"github.com/kailas-cloud/evidex/internal/domain/search/request"
	"github.com/kailas-cloud/evidex/internal/domain/search/result"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

func fromInternalDocument(d document.Metadata) Document {
	return Document{
		ID:                       d.ID,
		ExternalID:               d.ExternalID,
		ContentHash:              d.ContentHash,
		SourcePath:               d.SourcePath,
		Filename:                 d.Filename,
		SubjectID:                d.SubjectID,
		DocumentType:             string(d.Classification.Type),
		InstrumentSubtype:        string(d.Classification.Instrument),
		ClassificationConfidence: d.Classification.Confidence,
		Quality: Quality{
			Extraction:   d.Quality.Extraction(),
			Density:      d.Quality.Density(),
			Readability:  d.Quality.Readability(),
			Completeness: d.Quality.Completeness(),
			Overall:      d.Quality.Overall(),
			Status:       string(d.Quality.Status()),
		},
		AuthoredAt:  d.Temporal.AuthoredAt,
		ProcessedAt: d.Temporal.ProcessedAt,
		SchoolYear:  d.Temporal.SchoolYear,
		TotalChunks: d.TotalChunks,
	}
}

func toInternalContext(sc SearchContext, defaultQuality float64) (request.Context, error) {
	q := sc.QualityThreshold
	if q == nil {
		q = &defaultQuality
	}
	return request.New(request.Params{
		Section:          string(sc.Section),
		DocumentTypes:    sc.DocumentTypes,
		Instruments:      sc.Instruments,
		QualityThreshold: q,
		DateFrom:         sc.DateFrom,
		DateTo:           sc.DateTo,
		SubjectID:        sc.SubjectID,
		MaxResults:       sc.MaxResults,
		BoostRecent:      sc.BoostRecent,
	})
}

func toInternalSections(in []Section) ([]section.Name, error) {
	names := make([]string, len(in))
	for i, s := range in {
		names[i] = string(s)
	}
	return section.ParseAll(names)
}

func fromInternalResults(rs []result.Result) []Result {
	out := make([]Result, len(rs))
	for i := range rs {
		r := &rs[i]
		a := r.Attribution()
		out[i] = Result{
			ChunkID:         r.ChunkID(),
			ChunkIndex:      r.ChunkIndex(),
			Content:         r.Content(),
			SimilarityScore: r.SimilarityScore(),
			RelevanceScore:  r.RelevanceScore(),
			QualityScore:    r.QualityScore(),
			FinalScore:      r.FinalScore(),
			Highlights:      r.Highlights(),
			Explanation:     r.Explanation(),
			Source: Attribution{
				DocumentID:   a.DocumentID,
				Filename:     a.Filename,
				SourcePath:   a.SourcePath,
				DocumentType: a.DocumentType,
				AuthoredAt:   a.AuthoredAt,
			},
		}
	}
	return out
}

func fromInternalEvidence(s evidence.Set) EvidenceSet {
	sections := make(map[Section][]Result, len(s.Sections))
	for n, rs := range s.Sections {
		sections[Section(n)] = fromInternalResults(rs)
	}
	return EvidenceSet{
		Sections: sections,
		QualityDistribution: QualityDistribution{
			High:   s.Distribution.High,
			Medium: s.Distribution.Medium,
			Low:    s.Distribution.Low,
		},
		CoveragePercentage: s.Coverage,
		TotalChunks:        s.TotalChunks,
		FailedQueries:      s.FailedQueries,
		Degraded:           s.Degraded,
	}
}

func fromInternalStats(s report.Stats) Stats {
	return Stats{
		TotalChunks:               s.TotalChunks,
		DocumentCount:             s.DocumentCount,
		DocumentTypeHistogram:     s.TypeHistogram,
		ValidationStatusHistogram: s.StatusHistogram,
		SectionCoverage:           s.SectionCoverage,
		AverageQuality:            s.AverageQuality,
	}
}

func fromInternalIntegrity(r report.Integrity) IntegrityReport {
	return IntegrityReport{
		IsValid:          r.IsValid,
		Errors:           r.Errors,
		Warnings:         r.Warnings,
		FieldsChecked:    r.FieldsChecked,
		FieldsPassed:     r.FieldsPassed,
		ChunksScanned:    r.ChunksScanned,
		DocumentsScanned: r.DocsScanned,
	}
}
