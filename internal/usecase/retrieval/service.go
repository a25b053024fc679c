// Package retrieval ranks corpus chunks as evidence for target sections.
//
// Every request fans out one index sub-query per search-term variant under a
// shared concurrency limit. A failed or timed-out sub-query is dropped from
// the pool and marks the response degraded; only when every sub-query fails
// does the request fail with domain.ErrIndexUnavailable.
package retrieval

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
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/corpus"
	"github.com/kailas-cloud/evidex/internal/domain/evidence"
	"github.com/kailas-cloud/evidex/internal/domain/search/request"
	"github.com/kailas-cloud/evidex/internal/domain/search/result"
	"github.com/kailas-cloud/evidex/internal/domain/section"
	"github.com/kailas-cloud/evidex/internal/logger"
	"github.com/kailas-cloud/evidex/internal/metrics"
)

// Options tune fan-out and scoring. Zero values take the defaults.
// MaxConcurrency bounds the embedding calls and index sub-queries in flight
// for one request.
type Options struct {
	MaxConcurrency     int
	QueryTimeout       time.Duration
	CandidatesPerQuery int
	SectionEpsilon     float64
	RecencyWindow      time.Duration
	Weights            result.Weights
	Boosts             Boosts
	Now                func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 8
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 5 * time.Second
	}
	if o.CandidatesPerQuery <= 0 {
		o.CandidatesPerQuery = 30
	}
	if o.SectionEpsilon <= 0 {
		o.SectionEpsilon = 0.01
	}
	if o.RecencyWindow <= 0 {
		o.RecencyWindow = 365 * 24 * time.Hour
	}
	if o.Weights == (result.Weights{}) {
		o.Weights = result.DefaultWeights()
	}
	if o.Boosts == (Boosts{}) {
		o.Boosts = DefaultBoosts()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Response is a ranked single-query answer.
type Response struct {
	Results       []result.Result
	FailedQueries int
	Degraded      bool
}

// Service runs searches against the corpus index.
type Service struct {
	index  Index
	embed  domain.Embedder
	lib    *patterns.Library
	opts   Options
	tracer trace.Tracer
}

// New creates a retrieval service. embed should carry the query instruction.
func New(index Index, embed domain.Embedder, lib *patterns.Library, opts Options) *Service {
	return &Service{
		index:  index,
		embed:  embed,
		lib:    lib,
		opts:   opts.withDefaults(),
		tracer: otel.Tracer("evidex/retrieval"),
	}
}

// WithTracer replaces the tracer, for tests.
func (s *Service) WithTracer(t trace.Tracer) *Service {
	s.tracer = t
	return s
}

// Search answers a free-text query. When rc names a section the query also
// fans out over that section's search terms and is scored against it.
func (s *Service) Search(ctx context.Context, query string, rc request.Context) (Response, error) {
	if err := request.ValidateQuery(query); err != nil {
		return Response{}, err
	}
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "retrieval.search", trace.WithAttributes(
		attribute.String("retrieval.section", string(rc.Section())),
		attribute.Int("retrieval.max_results", rc.MaxResults()),
	))
	defer span.End()

	variants := []string{strings.TrimSpace(query)}
	if target := rc.Section(); target != "" {
		strategy, ok := s.lib.Strategy(target)
		if !ok {
			return Response{}, fmt.Errorf("%w: %s", domain.ErrUnknownSection, target)
		}
		variants = appendVariants(variants, strategy.SearchTerms...)
	}

	sem := semaphore.NewWeighted(int64(s.opts.MaxConcurrency))
	pool, err := s.runSection(ctx, sem, rc.Section(), variants, rc)
	if err != nil {
		return Response{}, s.fail(span, err)
	}
	if pool.failed == len(variants) {
		return Response{}, s.fail(span, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, pool.lastErr))
	}

	resp := Response{
		Results:       result.Rank(pool.results, rc.MaxResults()),
		FailedQueries: pool.failed,
		Degraded:      pool.failed > 0,
	}
	span.SetAttributes(
		attribute.Int("retrieval.results", len(resp.Results)),
		attribute.Int("retrieval.failed_queries", resp.FailedQueries),
	)
	metrics.RetrievalDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	metrics.RetrievalResults.WithLabelValues("search").Observe(float64(len(resp.Results)))
	return resp, nil
}

// RetrieveEvidence runs each section's strategy independently and aggregates
// coverage. The same chunk may support several sections.
func (s *Service) RetrieveEvidence(ctx context.Context, sections []section.Name, rc request.Context) (evidence.Set, error) {
	if len(sections) == 0 {
		return evidence.Set{}, fmt.Errorf("%w: at least one section is required", domain.ErrInvalidContext)
	}
	requested := make([]section.Name, 0, len(sections))
	strategies := make(map[section.Name]patterns.Strategy, len(sections))
	for _, n := range sections {
		if _, dup := strategies[n]; dup {
			continue
		}
		st, ok := s.lib.Strategy(n)
		if !ok {
			return evidence.Set{}, fmt.Errorf("%w: %s", domain.ErrUnknownSection, n)
		}
		strategies[n] = st
		requested = append(requested, n)
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "retrieval.evidence", trace.WithAttributes(
		attribute.Int("retrieval.sections", len(requested)),
	))
	defer span.End()

	sem := semaphore.NewWeighted(int64(s.opts.MaxConcurrency))
	pools := make([]sectionPool, len(requested))

	var g errgroup.Group
	for i, n := range requested {
		g.Go(func() error {
			variants := appendVariants(nil, strategies[n].SearchTerms...)
			if len(variants) == 0 {
				variants = []string{strings.ReplaceAll(string(n), "_", " ")}
			}
			p, err := s.runSection(ctx, sem, n, variants, rc.WithSection(n))
			if err != nil {
				return err
			}
			p.results = result.Rank(p.results, strategies[n].MaxChunks)
			pools[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return evidence.Set{}, s.fail(span, err)
	}

	bySection := make(map[section.Name][]result.Result, len(requested))
	failed, total := 0, 0
	var lastErr error
	for i, n := range requested {
		bySection[n] = pools[i].results
		failed += pools[i].failed
		total += pools[i].queries
		if pools[i].lastErr != nil {
			lastErr = pools[i].lastErr
		}
	}
	if total > 0 && failed == total {
		return evidence.Set{}, s.fail(span, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, lastErr))
	}

	set := evidence.Aggregate(requested, bySection, failed)
	span.SetAttributes(
		attribute.Float64("retrieval.coverage", set.Coverage),
		attribute.Int("retrieval.total_chunks", set.TotalChunks),
		attribute.Int("retrieval.failed_queries", failed),
	)
	metrics.RetrievalDuration.WithLabelValues("evidence").Observe(time.Since(start).Seconds())
	metrics.RetrievalResults.WithLabelValues("evidence").Observe(float64(set.TotalChunks))
	metrics.EvidenceCoverage.Observe(set.Coverage)
	return set, nil
}

// embedVariants embeds one section's variants while holding a fan-out slot,
// so embedding calls share the limit with index sub-queries.
func (s *Service) embedVariants(
	ctx context.Context, sem *semaphore.Weighted, variants []string,
) (domain.BatchEmbeddingResult, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	defer sem.Release(1)
	emb, err := domain.EmbedAll(ctx, s.embed, variants)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed query: %w", err)
	}
	return emb, nil
}

// sectionPool is the scored, unranked pool of one section's sub-queries.
type sectionPool struct {
	results []result.Result
	queries int
	failed  int
	lastErr error
}

// runSection embeds every variant, fans the sub-queries out and scores the
// surviving hits. It errors only on invalid input, embedding failure or
// cancellation of ctx; sub-query failures are counted in the pool.
func (s *Service) runSection(
	ctx context.Context, sem *semaphore.Weighted, target section.Name, variants []string, rc request.Context,
) (sectionPool, error) {
	ctx, span := s.tracer.Start(ctx, "retrieval.section", trace.WithAttributes(
		attribute.String("retrieval.section", string(target)),
		attribute.Int("retrieval.variants", len(variants)),
	))
	defer span.End()

	f, err := rc.Filter(target, s.opts.SectionEpsilon)
	if err != nil {
		return sectionPool{}, fmt.Errorf("%w: %w", domain.ErrInvalidContext, err)
	}

	emb, err := s.embedVariants(ctx, sem, variants)
	if err != nil {
		return sectionPool{}, err
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	hits := make([][]corpus.Hit, len(variants))
	errs := make([]error, len(variants))

	var g errgroup.Group
	for i := range variants {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				errs[i] = err
				return nil
			}
			defer sem.Release(1)
			hits[i], errs[i] = s.subquery(ctx, target, variants[i], corpus.Query{
				Vector: emb.Embeddings[i],
				Filter: f,
				K:      s.opts.CandidatesPerQuery,
			})
			return nil
		})
	}
	_ = g.Wait()

	// Partial results are discarded once the caller is gone.
	if err := ctx.Err(); err != nil {
		return sectionPool{}, err
	}

	sc := s.scorer(target, rc, variants)
	pool := sectionPool{queries: len(variants)}
	for i := range variants {
		if errs[i] != nil {
			pool.failed++
			pool.lastErr = errs[i]
			continue
		}
		for _, h := range hits[i] {
			if r, ok := sc.result(h); ok {
				pool.results = append(pool.results, r)
			}
		}
	}
	span.SetAttributes(
		attribute.Int("retrieval.candidates", len(pool.results)),
		attribute.Int("retrieval.failed_queries", pool.failed),
	)
	return pool, nil
}

// subquery runs one index query under its own deadline.
func (s *Service) subquery(ctx context.Context, target section.Name, variant string, q corpus.Query) ([]corpus.Hit, error) {
	label := string(target)
	if label == "" {
		label = "none"
	}
	qctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()
	qctx, span := s.tracer.Start(qctx, "retrieval.subquery", trace.WithAttributes(
		attribute.String("retrieval.section", label),
		attribute.String("retrieval.variant", variant),
	))
	defer span.End()

	hits, err := s.index.Query(qctx, q)
	if err != nil {
		status := "error"
		if ctx.Err() == nil && (errors.Is(err, context.DeadlineExceeded) || qctx.Err() != nil) {
			status = "timeout"
		}
		metrics.RetrievalSubqueriesTotal.WithLabelValues(label, status).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() == nil {
			logger.FromContext(ctx).Warn("Sub-query failed",
				zap.String("section", label),
				zap.String("variant", variant),
				zap.String("status", status),
				zap.Error(err),
			)
		}
		return nil, err
	}
	metrics.RetrievalSubqueriesTotal.WithLabelValues(label, "ok").Inc()
	span.SetAttributes(attribute.Int("retrieval.hits", len(hits)))
	return hits, nil
}

func (s *Service) scorer(target section.Name, rc request.Context, variants []string) *scorer {
	st, _ := s.lib.Strategy(target)
	return &scorer{
		boosts:   s.opts.Boosts,
		weights:  s.opts.Weights,
		window:   s.opts.RecencyWindow,
		now:      s.opts.Now(),
		rc:       rc,
		target:   target,
		strategy: st,
		terms:    queryTerms(variants),
		lib:      s.lib,
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// appendVariants appends non-blank terms not already present.
func appendVariants(dst []string, terms ...string) []string {
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		dup := false
		for _, v := range dst {
			if strings.EqualFold(v, t) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, t)
		}
	}
	return dst
}
