package chunkmeta

import (
	"testing"
	"time"

	"github.com/kailas-cloud/evidex/internal/analysis/assessor"
	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/domain/chunk"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/metadata"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	lib, err := patterns.Default()
	if err != nil {
		t.Fatal(err)
	}
	return New(lib, assessor.New(lib, quality.DefaultWeights()))
}

func planDoc() document.Metadata {
	authored := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	return document.Metadata{
		ID:         "doc-123",
		SourcePath: "/in/iep.txt",
		Filename:   "iep.txt",
		SubjectID:  "student-9",
		Classification: document.Classification{
			Type:       document.TypePlan,
			Confidence: 0.8,
		},
		Temporal: document.NewTemporal(authored, authored.Add(time.Hour)),
	}
}

func TestRelevance_MatchesSectionVocabulary(t *testing.T) {
	b := newBuilder(t)
	rel := b.Relevance("Accommodations: extended time on tests and preferential seating near the teacher.", document.TypePlan)

	if rel.Get(section.Accommodations) <= 0 {
		t.Fatalf("accommodations relevance = %v", rel.Get(section.Accommodations))
	}
	if rel.Get(section.Transition) != 0 {
		t.Errorf("transition relevance = %v, want 0", rel.Get(section.Transition))
	}
	for n, v := range rel {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v out of range", n, v)
		}
	}
	if len(rel) != 12 {
		t.Errorf("vector has %d components", len(rel))
	}
}

func TestRelevance_PreferredTypeBonus(t *testing.T) {
	b := newBuilder(t)
	text := "He will receive a benchmark probe."
	plan := b.Relevance(text, document.TypePlan)
	other := b.Relevance(text, document.TypeOther)
	if plan.Get(section.ShortTermObjectives) <= other.Get(section.ShortTermObjectives) {
		t.Errorf("preferred type gave no bonus: %v vs %v",
			plan.Get(section.ShortTermObjectives), other.Get(section.ShortTermObjectives))
	}
}

func TestRelevance_NoMatchesAllZero(t *testing.T) {
	b := newBuilder(t)
	rel := b.Relevance("The bus leaves at noon.", document.TypePlan)
	if m := rel.Matched(); len(m) != 0 {
		t.Errorf("Matched() = %v, want none", m)
	}
}

func TestContentType(t *testing.T) {
	b := newBuilder(t)
	tests := []struct {
		text string
		want chunk.ContentType
	}{
		{"Standard score 95, 37th percentile, scaled score 9.", chunk.ContentScores},
		{"Sam will improve reading fluency to 90 words per minute.", chunk.ContentGoals},
		{"It is recommended that Sam receive tutoring.", chunk.ContentRecommendations},
		{"12/14 41/50 77 88 19 20", chunk.ContentData},
		{"Sam enjoys drawing and playing outside with friends.", chunk.ContentNarrative},
	}
	for _, tt := range tests {
		if got := b.ContentType(tt.text); got != tt.want {
			t.Errorf("ContentType(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestTags(t *testing.T) {
	b := newBuilder(t)
	tags := b.Tags("Reading fluency and decoding lag behind; math calculation is a relative strength.")
	if tags.PrimaryTopic != "reading" {
		t.Errorf("PrimaryTopic = %q, want reading", tags.PrimaryTopic)
	}
	if len(tags.DomainTags) != 2 || tags.DomainTags[1] != "math" {
		t.Errorf("DomainTags = %v", tags.DomainTags)
	}

	if none := b.Tags("The bus leaves at noon."); none.PrimaryTopic != "general" || none.DomainTags != nil {
		t.Errorf("unexpected tags %+v", none)
	}
}

func TestBuildAll_ProducesValidLinkedChunks(t *testing.T) {
	b := newBuilder(t)
	doc := planDoc()
	chunks := b.BuildAll(doc, []string{
		"Present levels: Sam currently reads at a second grade level.",
		"Annual goal: Sam will improve reading fluency with 80% accuracy.",
		"The bus leaves at noon.",
	})

	if len(chunks) != 3 {
		t.Fatalf("len = %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i || c.Total != 3 || c.DocumentID != doc.ID {
			t.Errorf("chunk %d identity: %+v", i, c)
		}
		if c.Relationships.SubjectID != "student-9" || c.Temporal != doc.Temporal {
			t.Errorf("chunk %d not scoped to parent: %+v", i, c.Relationships)
		}
		if err := metadata.Validate(metadata.Flatten(c)); err != nil {
			t.Errorf("chunk %d fails schema: %v", i, err)
		}
	}
	if chunks[1].Relationships.PrevChunkID != chunks[0].ID || chunks[1].Relationships.NextChunkID != chunks[2].ID {
		t.Errorf("links = %+v", chunks[1].Relationships)
	}
	if chunks[1].Relevance.Get(section.AnnualGoals) == 0 {
		t.Error("goal chunk has no annual_goals relevance")
	}
	if len(chunks[2].Relevance.Matched()) != 0 {
		t.Error("unrelated chunk should keep a zero vector and still be built")
	}
}
