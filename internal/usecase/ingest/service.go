// Package ingest turns extracted document text into indexed, metadata-rich
// chunks. Ingestion is serialized per document id and deduplicated by
// content hash.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/evidex/internal/analysis/assessor"
	"github.com/kailas-cloud/evidex/internal/analysis/chunker"
	"github.com/kailas-cloud/evidex/internal/analysis/chunkmeta"
	"github.com/kailas-cloud/evidex/internal/analysis/classify"
	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/corpus"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/metadata"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/logger"
	"github.com/kailas-cloud/evidex/internal/metrics"
)

// SubjectHintPrefix marks an id hint that scopes the document to a subject,
// e.g. "subject:student-42".
const SubjectHintPrefix = "subject:"

// Request is one document handed over by the text extraction step.
type Request struct {
	IDHint     string
	SourcePath string
	Text       string
	CapturedAt time.Time
	SubjectID  string
}

// Result is the stored document. Duplicate is set when identical text was
// already ingested and nothing was written.
type Result struct {
	Document  document.Metadata
	Duplicate bool
}

// Options tune chunking.
type Options struct {
	SentencesPerChunk int
	Overlap           int
	QualityWeights    quality.Weights
	Now               func() time.Time
}

// Service runs the ingestion pipeline.
type Service struct {
	chunks     ChunkWriter
	docs       DocumentStore
	embed      domain.Embedder
	classifier *classify.Classifier
	assessor   *assessor.Assessor
	builder    *chunkmeta.Builder
	chunker    *chunker.SentenceChunker
	now        func() time.Time

	flights singleflight.Group
	locks   *keyedMutex
	tracer  trace.Tracer
}

// New creates an ingestion service over a pattern library.
func New(chunks ChunkWriter, docs DocumentStore, embed domain.Embedder, lib *patterns.Library, opts Options) *Service {
	w := opts.QualityWeights
	if w == (quality.Weights{}) {
		w = quality.DefaultWeights()
	}
	a := assessor.New(lib, w)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		chunks:     chunks,
		docs:       docs,
		embed:      embed,
		classifier: classify.New(lib),
		assessor:   a,
		builder:    chunkmeta.New(lib, a),
		chunker:    chunker.New(opts.SentencesPerChunk, opts.Overlap),
		now:        now,
		locks:      newKeyedMutex(),
		tracer:     otel.Tracer("evidex/ingest"),
	}
}

// WithTracer replaces the tracer, for tests.
func (s *Service) WithTracer(t trace.Tracer) *Service {
	s.tracer = t
	return s
}

// Ingest classifies, assesses, chunks, embeds and indexes a document.
// Concurrent calls for identical text share one run.
func (s *Service) Ingest(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		metrics.IngestDocumentsTotal.WithLabelValues("error").Inc()
		return Result{}, domain.ErrEmptyDocument
	}
	if strings.TrimSpace(req.SourcePath) == "" {
		metrics.IngestDocumentsTotal.WithLabelValues("error").Inc()
		return Result{}, domain.NewFieldError(metadata.FieldSourcePath, "is required")
	}

	hash := document.ContentHash(req.Text)
	id := document.IDFromHash(hash)

	v, err, _ := s.flights.Do(id, func() (any, error) {
		unlock := s.locks.Lock(id)
		defer unlock()
		return s.ingest(ctx, id, hash, req)
	})
	if err != nil {
		metrics.IngestDocumentsTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}
	return v.(Result), nil
}

func (s *Service) ingest(ctx context.Context, id, hash string, req Request) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "ingest.document", trace.WithAttributes(
		attribute.String("document.id", id),
		attribute.String("document.source_path", req.SourcePath),
	))
	defer span.End()
	log := logger.FromContext(ctx).With(zap.String("document_id", id))

	existing, err := s.docs.FindByContentHash(ctx, hash)
	switch {
	case err == nil:
		span.SetAttributes(attribute.Bool("document.duplicate", true))
		metrics.IngestDocumentsTotal.WithLabelValues("duplicate").Inc()
		log.Info("Document already ingested")
		return Result{Document: existing, Duplicate: true}, nil
	case !errors.Is(err, domain.ErrDocumentNotFound):
		return Result{}, s.fail(span, fmt.Errorf("dedup lookup: %w", err))
	}

	doc := s.describe(id, hash, req)
	texts := s.chunker.Split(req.Text)
	if len(texts) == 0 {
		return Result{}, s.fail(span, domain.ErrEmptyDocument)
	}
	chunks := s.builder.BuildAll(doc, texts)

	contents := make([]string, len(chunks))
	for i := range chunks {
		contents[i] = chunks[i].Content
	}
	emb, err := domain.EmbedAll(ctx, s.embed, contents)
	if err != nil {
		return Result{}, s.fail(span, fmt.Errorf("embed chunks: %w", err))
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	entries := make([]corpus.Entry, len(chunks))
	for i := range chunks {
		entries[i] = corpus.Entry{Record: metadata.Flatten(chunks[i]), Vector: emb.Embeddings[i]}
	}

	if err := s.chunks.Add(ctx, entries); err != nil {
		return Result{}, s.fail(span, s.rollback(ctx, id, fmt.Errorf("add chunks: %w", err)))
	}

	doc.TotalChunks = len(entries)
	if err := s.docs.Put(ctx, doc); err != nil {
		return Result{}, s.fail(span, s.rollback(ctx, id, fmt.Errorf("save document: %w", err)))
	}

	span.SetAttributes(
		attribute.Int("document.chunks", doc.TotalChunks),
		attribute.String("document.type", string(doc.Classification.Type)),
	)
	metrics.IngestDocumentsTotal.WithLabelValues("created").Inc()
	metrics.IngestChunksTotal.Add(float64(doc.TotalChunks))
	log.Info("Document ingested",
		zap.String("document_type", string(doc.Classification.Type)),
		zap.Int("chunks", doc.TotalChunks),
		zap.Float64("quality", doc.Quality.Overall()),
	)

	return Result{Document: doc}, nil
}

// describe builds the document-level metadata.
func (s *Service) describe(id, hash string, req Request) document.Metadata {
	now := s.now().UTC()
	authored, ok := chunkmeta.ExtractDate(req.Text)
	if !ok {
		authored = req.CapturedAt
	}
	if authored.IsZero() {
		authored = now
	}

	subject := strings.TrimSpace(req.SubjectID)
	external := strings.TrimSpace(req.IDHint)
	if rest, found := strings.CutPrefix(external, SubjectHintPrefix); found {
		if subject == "" {
			subject = strings.TrimSpace(rest)
		}
		external = ""
	}

	return document.Metadata{
		ID:             id,
		ExternalID:     external,
		ContentHash:    hash,
		SourcePath:     req.SourcePath,
		Filename:       document.FilenameOf(req.SourcePath),
		SubjectID:      subject,
		Classification: s.classifier.Classify(req.Text),
		Quality:        s.assessor.Assess(req.Text),
		Temporal:       document.NewTemporal(authored, now),
	}
}

// rollback removes whatever chunks were written and joins any cleanup
// failure with cause.
func (s *Service) rollback(ctx context.Context, id string, cause error) error {
	if _, err := s.chunks.DeleteDocument(context.WithoutCancel(ctx), id); err != nil {
		return errors.Join(cause, fmt.Errorf("rollback chunks of %s: %w", id, err))
	}
	return cause
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Get returns a stored document.
func (s *Service) Get(ctx context.Context, id string) (document.Metadata, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return document.Metadata{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Delete removes a document and all of its chunks. Orphaned chunks without a
// document record are still removed; ErrDocumentNotFound is returned only
// when neither existed.
func (s *Service) Delete(ctx context.Context, id string) (int, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	n, err := s.chunks.DeleteDocument(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) && n > 0 {
			return n, nil
		}
		return n, fmt.Errorf("delete document: %w", err)
	}
	logger.FromContext(ctx).Info("Document deleted", zap.String("document_id", id), zap.Int("chunks", n))
	return n, nil
}
