// Package integrity scans the stored corpus and reports schema violations.
// Nothing is repaired; callers decide what to do with the findings.
package integrity

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/evidex/internal/domain/chunk"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/metadata"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/domain/report"
	"github.com/kailas-cloud/evidex/internal/domain/search/filter"
	"github.com/kailas-cloud/evidex/internal/logger"
)

// overallTolerance bounds the drift between stored and recomputed overall quality.
const overallTolerance = 1e-6

// Service validates stored chunks against the flat schema.
type Service struct {
	chunks  ChunkLister
	docs    DocumentLister
	weights quality.Weights
	tracer  trace.Tracer
}

// New creates an integrity validator. docs may be nil, which skips the
// per-document checks.
func New(chunks ChunkLister, docs DocumentLister, w quality.Weights) *Service {
	return &Service{chunks: chunks, docs: docs, weights: w, tracer: otel.Tracer("evidex/integrity")}
}

// WithTracer replaces the tracer, for tests.
func (s *Service) WithTracer(t trace.Tracer) *Service {
	s.tracer = t
	return s
}

// Validate checks up to sample chunks, every chunk when sample is 0.
// Per-document chunk counts are compared only on a full scan.
func (s *Service) Validate(ctx context.Context, sample int) (report.Integrity, error) {
	ctx, span := s.tracer.Start(ctx, "integrity.validate", trace.WithAttributes(attribute.Int("integrity.sample", sample)))
	defer span.End()

	page, err := s.chunks.ListChunks(ctx, filter.Expression{}, 0, max(sample, 0))
	if err != nil {
		span.RecordError(err)
		return report.Integrity{}, fmt.Errorf("list chunks: %w", err)
	}

	var rep report.Integrity
	perDoc := make(map[string]int)
	for _, r := range page.Records {
		s.checkRecord(&rep, r)
		perDoc[r[metadata.FieldDocumentID]]++
	}
	rep.ChunksScanned = len(page.Records)

	full := sample <= 0 || page.Total <= len(page.Records)
	if full {
		if err := s.checkDocuments(ctx, &rep, page.Records, perDoc); err != nil {
			span.RecordError(err)
			return report.Integrity{}, err
		}
	}
	rep.Finish()

	span.SetAttributes(
		attribute.Bool("integrity.valid", rep.IsValid),
		attribute.Int("integrity.errors", len(rep.Errors)),
		attribute.Int("integrity.warnings", len(rep.Warnings)),
	)
	logger.FromContext(ctx).Info("Integrity scan finished",
		zap.Bool("valid", rep.IsValid),
		zap.Int("chunks", rep.ChunksScanned),
		zap.Int("errors", len(rep.Errors)),
		zap.Int("warnings", len(rep.Warnings)),
	)
	return rep, nil
}

// checkRecord runs one check per schema field plus the cross-field rules.
func (s *Service) checkRecord(rep *report.Integrity, r metadata.Record) {
	id := r[metadata.FieldChunkID]
	if id == "" {
		id = "<unknown chunk>"
	}

	numeric := make(map[string]float64)
	for _, f := range metadata.Fields() {
		v, ok := r[f.Name]
		if !ok || v == "" {
			rep.Check(!f.Required, "%s: missing required field %s", id, f.Name)
			continue
		}
		if f.Kind != metadata.KindNumeric {
			rep.FieldsChecked++
			rep.FieldsPassed++
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			rep.Check(false, "%s: %s is not a number: %q", id, f.Name, v)
			continue
		}
		numeric[f.Name] = n
		rep.Check(!f.Unit || (n >= 0 && n <= 1), "%s: %s = %v outside [0,1]", id, f.Name, n)
	}

	rep.Check(document.Type(r[metadata.FieldDocumentType]).IsValid(),
		"%s: unknown document type %q", id, r[metadata.FieldDocumentType])
	_, instErr := document.ParseInstrument(r[metadata.FieldInstrument])
	rep.Check(instErr == nil, "%s: unknown instrument %q", id, r[metadata.FieldInstrument])
	rep.Check(quality.Status(r[metadata.FieldStatus]).IsValid(),
		"%s: unknown validation status %q", id, r[metadata.FieldStatus])
	rep.Check(chunk.ContentType(r[metadata.FieldContentType]).IsValid(),
		"%s: unknown content type %q", id, r[metadata.FieldContentType])

	idx, okIdx := numeric[metadata.FieldChunkIndex]
	total, okTotal := numeric[metadata.FieldTotalChunks]
	if okIdx && okTotal {
		rep.Check(idx >= 0 && idx < total, "%s: chunk_index %v not below total_chunks %v", id, idx, total)
	}

	e, okE := numeric[metadata.FieldExtraction]
	d, okD := numeric[metadata.FieldDensity]
	rd, okR := numeric[metadata.FieldReadability]
	c, okC := numeric[metadata.FieldCompleteness]
	stored, okO := numeric[metadata.FieldQuality]
	if okE && okD && okR && okC && okO {
		want := s.weights.Extraction*e + s.weights.Density*d + s.weights.Readability*rd + s.weights.Completeness*c
		rep.Check(math.Abs(want-stored) <= overallTolerance,
			"%s: quality_overall %v differs from weighted sub-scores %v", id, stored, want)
	}
}

// checkDocuments compares chunk counts against each record's total and the
// document catalog. Disagreements are warnings.
func (s *Service) checkDocuments(ctx context.Context, rep *report.Integrity, records []metadata.Record, perDoc map[string]int) error {
	totals := make(map[string]int)
	for _, r := range records {
		if n, err := strconv.Atoi(r[metadata.FieldTotalChunks]); err == nil {
			totals[r[metadata.FieldDocumentID]] = n
		}
	}
	for _, id := range sortedKeys(perDoc) {
		if want, ok := totals[id]; ok && want != perDoc[id] {
			rep.Warnf("%s: %d chunks stored, records claim %d", id, perDoc[id], want)
		}
	}

	if s.docs == nil {
		return nil
	}
	docs, err := s.docs.List(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	rep.DocsScanned = len(docs)

	known := make(map[string]bool, len(docs))
	for _, d := range docs {
		known[d.ID] = true
		if got := perDoc[d.ID]; got != d.TotalChunks {
			rep.Warnf("%s: catalog lists %d chunks, index holds %d", d.ID, d.TotalChunks, got)
		}
	}
	for _, id := range sortedKeys(perDoc) {
		if !known[id] {
			rep.Warnf("%s: %d chunks have no document record", id, perDoc[id])
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
