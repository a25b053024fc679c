// Package metadata defines the flat key/value schema chunks are stored under.
// Every backend persists and filters the same Record, so a filter that works
// against one index works against all of them.
package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/chunk"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

// Flat field names.
const (
	FieldChunkID      = "chunk_id"
	FieldDocumentID   = "document_id"
	FieldChunkIndex   = "chunk_index"
	FieldTotalChunks  = "total_chunks"
	FieldContent      = "__content"
	FieldDocumentType = "document_type"
	FieldInstrument   = "instrument_subtype"
	FieldConfidence   = "classification_confidence"
	FieldQuality      = "quality_overall"
	FieldExtraction   = "quality_extraction"
	FieldDensity      = "quality_density"
	FieldReadability  = "quality_readability"
	FieldCompleteness = "quality_completeness"
	FieldStatus       = "validation_status"
	FieldPrimaryTopic = "primary_topic"
	FieldContentType  = "content_type"
	FieldDomainTags   = "domain_tags"
	FieldAuthoredAt   = "authored_at"
	FieldProcessedAt  = "processed_at"
	FieldSchoolYear   = "school_year"
	FieldSubjectID    = "subject_id"
	FieldPrevChunkID  = "prev_chunk_id"
	FieldNextChunkID  = "next_chunk_id"
	FieldCrossRefs    = "cross_refs"
	FieldSourcePath   = "source_path"
	FieldFilename     = "filename"
	FieldContentHash  = "content_hash"
	FieldExternalID   = "external_id"
	FieldTotalCount   = "total_chunk_count"
)

// None marks an absent optional tag. Tag indexes cannot match empty values.
const None = "none"

// ListSeparator joins multi-valued tags.
const ListSeparator = ","

// Kind is how a backend indexes a field.
type Kind int

// Field kinds.
const (
	KindTag Kind = iota
	KindNumeric
	KindText
)

// Field describes one key of the flat schema.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Unit     bool // numeric value must lie in [0,1]
}

// Record is a chunk flattened to string key/value pairs.
type Record map[string]string

// Fields returns the chunk schema. Relevance components follow the fixed fields.
func Fields() []Field {
	fields := []Field{
		{Name: FieldChunkID, Kind: KindTag, Required: true},
		{Name: FieldDocumentID, Kind: KindTag, Required: true},
		{Name: FieldChunkIndex, Kind: KindNumeric, Required: true},
		{Name: FieldTotalChunks, Kind: KindNumeric, Required: true},
		{Name: FieldContent, Kind: KindText, Required: true},
		{Name: FieldDocumentType, Kind: KindTag, Required: true},
		{Name: FieldInstrument, Kind: KindTag, Required: true},
		{Name: FieldConfidence, Kind: KindNumeric, Required: true, Unit: true},
		{Name: FieldQuality, Kind: KindNumeric, Required: true, Unit: true},
		{Name: FieldExtraction, Kind: KindNumeric, Required: true, Unit: true},
		{Name: FieldDensity, Kind: KindNumeric, Required: true, Unit: true},
		{Name: FieldReadability, Kind: KindNumeric, Required: true, Unit: true},
		{Name: FieldCompleteness, Kind: KindNumeric, Required: true, Unit: true},
		{Name: FieldStatus, Kind: KindTag, Required: true},
		{Name: FieldPrimaryTopic, Kind: KindTag, Required: true},
		{Name: FieldContentType, Kind: KindTag, Required: true},
		{Name: FieldDomainTags, Kind: KindTag},
		{Name: FieldAuthoredAt, Kind: KindNumeric, Required: true},
		{Name: FieldProcessedAt, Kind: KindNumeric, Required: true},
		{Name: FieldSchoolYear, Kind: KindTag, Required: true},
		{Name: FieldSubjectID, Kind: KindTag, Required: true},
		{Name: FieldPrevChunkID, Kind: KindTag},
		{Name: FieldNextChunkID, Kind: KindTag},
		{Name: FieldCrossRefs, Kind: KindTag},
		{Name: FieldSourcePath, Kind: KindTag, Required: true},
		{Name: FieldFilename, Kind: KindTag, Required: true},
	}
	for _, n := range section.All() {
		fields = append(fields, Field{Name: n.Field(), Kind: KindNumeric, Required: true, Unit: true})
	}
	return fields
}

// Flatten converts a chunk to its storage record.
func Flatten(c chunk.Chunk) Record {
	r := Record{
		FieldChunkID:      c.ID,
		FieldDocumentID:   c.DocumentID,
		FieldChunkIndex:   strconv.Itoa(c.Index),
		FieldTotalChunks:  strconv.Itoa(c.Total),
		FieldContent:      c.Content,
		FieldDocumentType: string(c.DocumentType),
		FieldInstrument:   orNone(string(c.Instrument)),
		FieldConfidence:   formatFloat(c.ClassificationConfidence),
		FieldQuality:      formatFloat(c.Quality.Overall()),
		FieldExtraction:   formatFloat(c.Quality.Extraction()),
		FieldDensity:      formatFloat(c.Quality.Density()),
		FieldReadability:  formatFloat(c.Quality.Readability()),
		FieldCompleteness: formatFloat(c.Quality.Completeness()),
		FieldStatus:       string(c.Quality.Status()),
		FieldPrimaryTopic: c.Tags.PrimaryTopic,
		FieldContentType:  string(c.Tags.ContentType),
		FieldDomainTags:   strings.Join(c.Tags.DomainTags, ListSeparator),
		FieldAuthoredAt:   formatUnix(c.Temporal.AuthoredAt),
		FieldProcessedAt:  formatUnix(c.Temporal.ProcessedAt),
		FieldSchoolYear:   c.Temporal.SchoolYear,
		FieldSubjectID:    orNone(c.Relationships.SubjectID),
		FieldPrevChunkID:  c.Relationships.PrevChunkID,
		FieldNextChunkID:  c.Relationships.NextChunkID,
		FieldCrossRefs:    strings.Join(c.Relationships.CrossRefs, ListSeparator),
		FieldSourcePath:   c.SourcePath,
		FieldFilename:     c.Filename,
	}
	for _, n := range section.All() {
		r[n.Field()] = formatFloat(c.Relevance.Get(n))
	}
	return r
}

// Validate rejects a record with a missing required field, an unparsable
// number, an out-of-range score or an unknown enum value.
func Validate(r Record) error {
	for _, f := range Fields() {
		v, ok := r[f.Name]
		if !ok || (f.Required && v == "") {
			if f.Required {
				return domain.NewFieldError(f.Name, "is required")
			}
			continue
		}
		if f.Kind != KindNumeric {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.NewFieldError(f.Name, "is not a number")
		}
		if f.Unit && (n < 0 || n > 1) {
			return domain.NewFieldError(f.Name, "must be within [0,1]")
		}
	}

	idx, _ := strconv.Atoi(r[FieldChunkIndex])
	total, _ := strconv.Atoi(r[FieldTotalChunks])
	if idx < 0 {
		return domain.NewFieldError(FieldChunkIndex, "must be non-negative")
	}
	if total < 1 || idx >= total {
		return domain.NewFieldError(FieldTotalChunks, "must exceed chunk_index")
	}
	if !document.Type(r[FieldDocumentType]).IsValid() {
		return domain.NewFieldError(FieldDocumentType, "has unknown value "+strconv.Quote(r[FieldDocumentType]))
	}
	if _, err := document.ParseInstrument(r[FieldInstrument]); err != nil {
		return domain.NewFieldError(FieldInstrument, "has unknown value "+strconv.Quote(r[FieldInstrument]))
	}
	if !quality.Status(r[FieldStatus]).IsValid() {
		return domain.NewFieldError(FieldStatus, "has unknown value "+strconv.Quote(r[FieldStatus]))
	}
	if !chunk.ContentType(r[FieldContentType]).IsValid() {
		return domain.NewFieldError(FieldContentType, "has unknown value "+strconv.Quote(r[FieldContentType]))
	}
	return nil
}

// Unflatten rebuilds a chunk from a validated record.
func Unflatten(r Record, w quality.Weights) (chunk.Chunk, error) {
	if err := Validate(r); err != nil {
		return chunk.Chunk{}, err
	}
	instrument, _ := document.ParseInstrument(r[FieldInstrument])

	c := chunk.Chunk{
		ID:                       r[FieldChunkID],
		DocumentID:               r[FieldDocumentID],
		Index:                    r.Int(FieldChunkIndex),
		Total:                    r.Int(FieldTotalChunks),
		Content:                  r[FieldContent],
		DocumentType:             document.Type(r[FieldDocumentType]),
		Instrument:               instrument,
		ClassificationConfidence: r.Float(FieldConfidence),
		Quality:                  quality.Reconstruct(w,
			r.Float(FieldExtraction), r.Float(FieldDensity),
			r.Float(FieldReadability), r.Float(FieldCompleteness),
			quality.Status(r[FieldStatus]),
		),
		Tags: chunk.SemanticTags{
			PrimaryTopic: r[FieldPrimaryTopic],
			ContentType:  chunk.ContentType(r[FieldContentType]),
			DomainTags:   splitList(r[FieldDomainTags]),
		},
		Relevance: section.NewRelevance(),
		Temporal: document.Temporal{
			AuthoredAt:  r.Time(FieldAuthoredAt),
			ProcessedAt: r.Time(FieldProcessedAt),
			SchoolYear:  r[FieldSchoolYear],
		},
		Relationships: chunk.Relationships{
			PrevChunkID: r[FieldPrevChunkID],
			NextChunkID: r[FieldNextChunkID],
			SubjectID:   fromNone(r[FieldSubjectID]),
			CrossRefs:   splitList(r[FieldCrossRefs]),
		},
		SourcePath: r[FieldSourcePath],
		Filename:   r[FieldFilename],
	}
	for _, n := range section.All() {
		c.Relevance[n] = r.Float(n.Field())
	}
	return c, nil
}

// Float parses a numeric field, returning 0 when absent or malformed.
func (r Record) Float(key string) float64 {
	v, err := strconv.ParseFloat(r[key], 64)
	if err != nil {
		return 0
	}
	return v
}

// Int parses an integer field, returning 0 when absent or malformed.
func (r Record) Int(key string) int {
	v, err := strconv.Atoi(r[key])
	if err != nil {
		return int(r.Float(key))
	}
	return v
}

// Time parses a unix-seconds field.
func (r Record) Time(key string) time.Time {
	v, err := strconv.ParseInt(r[key], 10, 64)
	if err != nil || v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FlattenDocument converts document metadata to its storage record.
func FlattenDocument(d document.Metadata) Record {
	return Record{
		FieldDocumentID:   d.ID,
		FieldExternalID:   d.ExternalID,
		FieldContentHash:  d.ContentHash,
		FieldSourcePath:   d.SourcePath,
		FieldFilename:     d.Filename,
		FieldSubjectID:    orNone(d.SubjectID),
		FieldDocumentType: string(d.Classification.Type),
		FieldInstrument:   orNone(string(d.Classification.Instrument)),
		FieldConfidence:   formatFloat(d.Classification.Confidence),
		FieldQuality:      formatFloat(d.Quality.Overall()),
		FieldExtraction:   formatFloat(d.Quality.Extraction()),
		FieldDensity:      formatFloat(d.Quality.Density()),
		FieldReadability:  formatFloat(d.Quality.Readability()),
		FieldCompleteness: formatFloat(d.Quality.Completeness()),
		FieldStatus:       string(d.Quality.Status()),
		FieldAuthoredAt:   formatUnix(d.Temporal.AuthoredAt),
		FieldProcessedAt:  formatUnix(d.Temporal.ProcessedAt),
		FieldSchoolYear:   d.Temporal.SchoolYear,
		FieldTotalCount:   strconv.Itoa(d.TotalChunks),
	}
}

// UnflattenDocument rebuilds document metadata from its storage record.
func UnflattenDocument(r Record, w quality.Weights) (document.Metadata, error) {
	if r[FieldDocumentID] == "" {
		return document.Metadata{}, domain.NewFieldError(FieldDocumentID, "is required")
	}
	docType, err := document.ParseType(r[FieldDocumentType])
	if err != nil {
		return document.Metadata{}, domain.NewFieldError(FieldDocumentType, err.Error())
	}
	instrument, err := document.ParseInstrument(r[FieldInstrument])
	if err != nil {
		return document.Metadata{}, domain.NewFieldError(FieldInstrument, err.Error())
	}
	return document.Metadata{
		ID:          r[FieldDocumentID],
		ExternalID:  r[FieldExternalID],
		ContentHash: r[FieldContentHash],
		SourcePath:  r[FieldSourcePath],
		Filename:    r[FieldFilename],
		SubjectID:   fromNone(r[FieldSubjectID]),
		Classification: document.Classification{
			Type:       docType,
			Instrument: instrument,
			Confidence: r.Float(FieldConfidence),
		},
		Quality: quality.Reconstruct(w,
			r.Float(FieldExtraction), r.Float(FieldDensity),
			r.Float(FieldReadability), r.Float(FieldCompleteness),
			quality.Status(r[FieldStatus]),
		),
		Temporal: document.Temporal{
			AuthoredAt:  r.Time(FieldAuthoredAt),
			ProcessedAt: r.Time(FieldProcessedAt),
			SchoolYear:  r[FieldSchoolYear],
		},
		TotalChunks: r.Int(FieldTotalCount),
	}, nil
}

// FormatFloat renders a score the way records store it.
func FormatFloat(v float64) string { return formatFloat(v) }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatUnix(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.Unix(), 10)
}

func orNone(s string) string {
	if s == "" {
		return None
	}
	return s
}

func fromNone(s string) string {
	if s == None {
		return ""
	}
	return s
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ListSeparator)
}

// String renders the non-text fields in schema order.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString("{")
	first := true
	for _, f := range Fields() {
		v, ok := r[f.Name]
		if !ok || f.Kind == KindText {
			continue
		}
		if !first {
			b.WriteString(" ")
		}
		first = false
		fmt.Fprintf(&b, "%s=%s", f.Name, v)
	}
	b.WriteString("}")
	return b.String()
}
