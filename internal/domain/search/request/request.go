package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/metadata"
	"github.com/kailas-cloud/evidex/internal/domain/search/filter"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength          = 4096
	DefaultQualityThreshold = 0.5
	DefaultMaxResults       = 10
	MaxResults              = 100
)

// DateRange bounds the authored date. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Params are the raw search context fields as callers supply them.
type Params struct {
	Section          string
	DocumentTypes    []string
	Instruments      []string
	QualityThreshold *float64 // nil means DefaultQualityThreshold
	DateFrom         time.Time
	DateTo           time.Time
	SubjectID        string
	MaxResults       int
	BoostRecent      bool
}

// Context is a validated search context.
type Context struct {
	section          section.Name
	documentTypes    []document.Type
	instruments      []document.Instrument
	qualityThreshold float64
	dateRange        *DateRange
	subjectID        string
	maxResults       int
	boostRecent      bool
}

// New validates and normalizes a search context.
// Defaults: quality threshold 0.5, max results 10 (clamped to 100).
func New(p Params) (Context, error) {
	c := Context{
		qualityThreshold: DefaultQualityThreshold,
		subjectID:        strings.TrimSpace(p.SubjectID),
		maxResults:       p.MaxResults,
		boostRecent:      p.BoostRecent,
	}

	if p.Section != "" {
		n, err := section.Parse(p.Section)
		if err != nil {
			return Context{}, fmt.Errorf("%w: %w", domain.ErrInvalidContext, err)
		}
		c.section = n
	}

	for _, s := range p.DocumentTypes {
		t, err := document.ParseType(s)
		if err != nil {
			return Context{}, fmt.Errorf("%w: %w", domain.ErrInvalidContext, err)
		}
		c.documentTypes = appendUnique(c.documentTypes, t)
	}
	for _, s := range p.Instruments {
		i, err := document.ParseInstrument(s)
		if err != nil {
			return Context{}, fmt.Errorf("%w: %w", domain.ErrInvalidContext, err)
		}
		if i == document.InstrumentNone {
			continue
		}
		c.instruments = appendUnique(c.instruments, i)
	}

	if p.QualityThreshold != nil {
		q := *p.QualityThreshold
		if q < 0 || q > 1 {
			return Context{}, fmt.Errorf("%w: quality_threshold must be between 0 and 1, got %v",
				domain.ErrInvalidContext, q)
		}
		c.qualityThreshold = q
	}

	if !p.DateFrom.IsZero() || !p.DateTo.IsZero() {
		if !p.DateFrom.IsZero() && !p.DateTo.IsZero() && p.DateTo.Before(p.DateFrom) {
			return Context{}, fmt.Errorf("%w: date range end precedes start", domain.ErrInvalidContext)
		}
		c.dateRange = &DateRange{From: p.DateFrom.UTC(), To: p.DateTo.UTC()}
	}

	if c.maxResults < 0 {
		return Context{}, fmt.Errorf("%w: max_results must be non-negative", domain.ErrInvalidContext)
	}
	if c.maxResults == 0 {
		c.maxResults = DefaultMaxResults
	}
	if c.maxResults > MaxResults {
		c.maxResults = MaxResults
	}

	return c, nil
}

// ValidateQuery checks free-text query input.
func ValidateQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("%w: query is required", domain.ErrInvalidContext)
	}
	if len(q) > MaxQueryLength {
		return fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidContext, MaxQueryLength)
	}
	return nil
}

// Section returns the target section, empty when none.
func (c Context) Section() section.Name { return c.section }

// DocumentTypes returns the allowed document types. Empty means any.
func (c Context) DocumentTypes() []document.Type { return c.documentTypes }

// Instruments returns the allowed instrument subtypes. Empty means any.
func (c Context) Instruments() []document.Instrument { return c.instruments }

// QualityThreshold returns the minimum overall chunk quality.
func (c Context) QualityThreshold() float64 { return c.qualityThreshold }

// DateRange returns the authored date bounds, nil when unbounded.
func (c Context) DateRange() *DateRange { return c.dateRange }

// SubjectID returns the subject scope, empty when unscoped.
func (c Context) SubjectID() string { return c.subjectID }

// MaxResults returns the result cap.
func (c Context) MaxResults() int { return c.maxResults }

// BoostRecent reports whether recent documents get a time-decay boost.
func (c Context) BoostRecent() bool { return c.boostRecent }

// WithSection returns a copy targeting n.
func (c Context) WithSection(n section.Name) Context {
	c.section = n
	return c
}

// WithMaxResults returns a copy with a different result cap.
func (c Context) WithMaxResults(n int) Context {
	if n > 0 {
		c.maxResults = n
	}
	return c
}

// AllowsType reports whether t passes the document type restriction.
func (c Context) AllowsType(t document.Type) bool {
	if len(c.documentTypes) == 0 {
		return true
	}
	for _, v := range c.documentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Filter builds the conjunctive index filter for this context. When target is
// set, chunks must also carry relevance of at least epsilon for it.
func (c Context) Filter(target section.Name, epsilon float64) (filter.Expression, error) {
	var conds []filter.Condition

	if len(c.documentTypes) > 0 {
		vals := make([]string, len(c.documentTypes))
		for i, t := range c.documentTypes {
			vals[i] = string(t)
		}
		cond, err := filter.NewAnyOf(metadata.FieldDocumentType, vals)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("document type filter: %w", err)
		}
		conds = append(conds, cond)
	}
	if len(c.instruments) > 0 {
		vals := make([]string, len(c.instruments))
		for i, t := range c.instruments {
			vals[i] = string(t)
		}
		cond, err := filter.NewAnyOf(metadata.FieldInstrument, vals)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("instrument filter: %w", err)
		}
		conds = append(conds, cond)
	}
	if c.qualityThreshold > 0 {
		cond, err := filter.NewRange(metadata.FieldQuality, filter.AtLeast(c.qualityThreshold))
		if err != nil {
			return filter.Expression{}, fmt.Errorf("quality filter: %w", err)
		}
		conds = append(conds, cond)
	}
	if c.dateRange != nil {
		var from, to *float64
		if !c.dateRange.From.IsZero() {
			v := float64(c.dateRange.From.Unix())
			from = &v
		}
		if !c.dateRange.To.IsZero() {
			v := float64(c.dateRange.To.Unix())
			to = &v
		}
		r, err := filter.NewRangeFilter(nil, from, nil, to)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("date filter: %w", err)
		}
		cond, err := filter.NewRange(metadata.FieldAuthoredAt, r)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("date filter: %w", err)
		}
		conds = append(conds, cond)
	}
	if c.subjectID != "" {
		cond, err := filter.NewMatch(metadata.FieldSubjectID, c.subjectID)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("subject filter: %w", err)
		}
		conds = append(conds, cond)
	}
	if target != "" {
		cond, err := filter.NewRange(target.Field(), filter.AtLeast(epsilon))
		if err != nil {
			return filter.Expression{}, fmt.Errorf("section filter: %w", err)
		}
		conds = append(conds, cond)
	}

	return filter.NewExpression(conds...)
}

func appendUnique[T comparable](s []T, v T) []T {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
