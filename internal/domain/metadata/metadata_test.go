package metadata

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/domain/chunk"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

func sampleChunk() chunk.Chunk {
	rel := section.NewRelevance()
	rel[section.Accommodations] = 0.6
	authored := time.Date(2024, time.February, 14, 0, 0, 0, 0, time.UTC)
	return chunk.Chunk{
		ID:                       "doc-1-c0000",
		DocumentID:               "doc-1",
		Index:                    0,
		Total:                    2,
		Content:                  "Extended time on tests.",
		DocumentType:             document.TypePlan,
		ClassificationConfidence: 0.8,
		Quality:                  quality.New(quality.DefaultWeights(), 0.9, 0.8, 0.7, 0.6),
		Tags: chunk.SemanticTags{
			PrimaryTopic: "testing",
			ContentType:  chunk.ContentAccommodations,
			DomainTags:   []string{"accommodations", "assessment"},
		},
		Relevance:  rel,
		Temporal:   document.NewTemporal(authored, authored.Add(time.Hour)),
		SourcePath: "/in/plan.txt",
		Filename:   "plan.txt",
	}
}

func TestFlatten_CoversSchema(t *testing.T) {
	r := Flatten(sampleChunk())
	for _, f := range Fields() {
		if _, ok := r[f.Name]; !ok {
			t.Errorf("field %q missing from flattened record", f.Name)
		}
	}
	if r[FieldInstrument] != None || r[FieldSubjectID] != None {
		t.Errorf("absent tags should be %q: %s", None, r)
	}
	if r[section.Accommodations.Field()] != "0.6" {
		t.Errorf("relevance = %q", r[section.Accommodations.Field()])
	}
	if err := Validate(r); err != nil {
		t.Fatalf("flattened chunk fails validation: %v", err)
	}
}

func TestValidate_RejectsBrokenRecords(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(Record)
		field string
	}{
		{"missing document id", func(r Record) { delete(r, FieldDocumentID) }, FieldDocumentID},
		{"empty content", func(r Record) { r[FieldContent] = "" }, FieldContent},
		{"quality above one", func(r Record) { r[FieldQuality] = "1.2" }, FieldQuality},
		{"relevance not a number", func(r Record) { r[section.Services.Field()] = "high" }, section.Services.Field()},
		{"index beyond total", func(r Record) { r[FieldChunkIndex] = "2" }, FieldTotalChunks},
		{"unknown type", func(r Record) { r[FieldDocumentType] = "memo" }, FieldDocumentType},
		{"unknown status", func(r Record) { r[FieldStatus] = "ok" }, FieldStatus},
		{"missing relevance", func(r Record) { delete(r, section.Placement.Field()) }, section.Placement.Field()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Flatten(sampleChunk())
			tt.mut(r)
			err := Validate(r)
			if !errors.Is(err, domain.ErrInvalidMetadata) {
				t.Fatalf("expected ErrInvalidMetadata, got %v", err)
			}
			var fe *domain.FieldError
			if !errors.As(err, &fe) || fe.Field != tt.field {
				t.Errorf("field = %v, want %q", err, tt.field)
			}
		})
	}
}

func TestValidate_OptionalFieldsMayBeEmpty(t *testing.T) {
	r := Flatten(sampleChunk())
	r[FieldPrevChunkID] = ""
	delete(r, FieldCrossRefs)
	if err := Validate(r); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUnflatten_RestoresChunk(t *testing.T) {
	in := sampleChunk()
	in.Relationships.SubjectID = "student-42"
	in.Relationships.NextChunkID = "doc-1-c0001"

	out, err := Unflatten(Flatten(in), quality.DefaultWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ID != in.ID || out.Total != 2 || out.DocumentType != document.TypePlan {
		t.Errorf("identity not restored: %+v", out)
	}
	if out.Instrument != document.InstrumentNone {
		t.Errorf("Instrument = %q, want none", out.Instrument)
	}
	if out.Relationships.SubjectID != "student-42" || out.Relationships.NextChunkID != "doc-1-c0001" {
		t.Errorf("relationships = %+v", out.Relationships)
	}
	if out.Relevance.Get(section.Accommodations) != 0.6 || len(out.Relevance) != 12 {
		t.Errorf("relevance = %v", out.Relevance)
	}
	if out.Quality.Overall() != in.Quality.Overall() {
		t.Errorf("overall = %v, want %v", out.Quality.Overall(), in.Quality.Overall())
	}
	if !out.Temporal.AuthoredAt.Equal(in.Temporal.AuthoredAt) || out.Temporal.SchoolYear != "2023-2024" {
		t.Errorf("temporal = %+v", out.Temporal)
	}
	if len(out.Tags.DomainTags) != 2 {
		t.Errorf("domain tags = %v", out.Tags.DomainTags)
	}
}

func TestDocumentRecord(t *testing.T) {
	authored := time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC)
	in := document.Metadata{
		ID:          "doc-abc",
		ContentHash: "abc",
		SourcePath:  "/in/eval.txt",
		Filename:    "eval.txt",
		Classification: document.Classification{
			Type:       document.TypeAssessmentReport,
			Instrument: document.InstrumentWISCV,
			Confidence: 0.7,
		},
		Quality:     quality.New(quality.DefaultWeights(), 1, 1, 1, 1),
		Temporal:    document.NewTemporal(authored, authored),
		TotalChunks: 3,
	}

	out, err := UnflattenDocument(FlattenDocument(in), quality.DefaultWeights())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ID != in.ID || out.TotalChunks != 3 || out.Classification != in.Classification {
		t.Errorf("document not restored: %+v", out)
	}
	if out.SubjectID != "" {
		t.Errorf("SubjectID = %q", out.SubjectID)
	}

	if _, err := UnflattenDocument(Record{}, quality.DefaultWeights()); !errors.Is(err, domain.ErrInvalidMetadata) {
		t.Errorf("expected ErrInvalidMetadata, got %v", err)
	}
}
