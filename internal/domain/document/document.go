package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kailas-cloud/evidex/internal/domain/quality"
)

// Type is the coarse document family assigned by the classifier.
type Type string

// Document types.
const (
	TypeAssessmentReport     Type = "assessment-report"
	TypeProgressReport       Type = "progress-report"
	TypeBehavioralAssessment Type = "behavioral-assessment"
	TypePlan                 Type = "plan-document"
	TypeEvaluation           Type = "evaluation"
	TypeMeetingNotes         Type = "meeting-notes"
	TypeOther                Type = "other"
)

var allTypes = []Type{
	TypeAssessmentReport,
	TypeProgressReport,
	TypeBehavioralAssessment,
	TypePlan,
	TypeEvaluation,
	TypeMeetingNotes,
	TypeOther,
}

// Types returns every document type in canonical order.
func Types() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

// IsValid reports whether t is a known document type.
func (t Type) IsValid() bool {
	for _, v := range allTypes {
		if v == t {
			return true
		}
	}
	return false
}

// typeAliases maps common short names to a canonical type.
var typeAliases = map[string]Type{
	"iep":  TypePlan,
	"plan": TypePlan,
}

// ParseType parses a document type name or one of its aliases.
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if t, ok := typeAliases[name]; ok {
		return t, nil
	}
	t := Type(name)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown document type %q", s)
	}
	return t, nil
}

// Instrument is a standardized assessment family. The zero value means none.
type Instrument string

// Standardized instruments.
const (
	InstrumentNone     Instrument = ""
	InstrumentWISCV    Instrument = "wisc_v"
	InstrumentWJIV     Instrument = "wj_iv"
	InstrumentWIAT4    Instrument = "wiat_4"
	InstrumentBASC3    Instrument = "basc_3"
	InstrumentKABC2    Instrument = "kabc_2"
	InstrumentDAS2     Instrument = "das_2"
	InstrumentCTOPP2   Instrument = "ctopp_2"
	InstrumentCELF5    Instrument = "celf_5"
	InstrumentVineland Instrument = "vineland_3"
	InstrumentConners4 Instrument = "conners_4"
	InstrumentBRIEF2   Instrument = "brief_2"
	InstrumentPPVT5    Instrument = "ppvt_5"
)

var allInstruments = []Instrument{
	InstrumentWISCV, InstrumentWJIV, InstrumentWIAT4, InstrumentBASC3,
	InstrumentKABC2, InstrumentDAS2, InstrumentCTOPP2, InstrumentCELF5,
	InstrumentVineland, InstrumentConners4, InstrumentBRIEF2, InstrumentPPVT5,
}

// Instruments returns every known instrument, excluding none.
func Instruments() []Instrument {
	out := make([]Instrument, len(allInstruments))
	copy(out, allInstruments)
	return out
}

// IsValid reports whether i is a known instrument or none.
func (i Instrument) IsValid() bool {
	if i == InstrumentNone {
		return true
	}
	for _, v := range allInstruments {
		if v == i {
			return true
		}
	}
	return false
}

// ParseInstrument parses an instrument name. Empty and "none" map to InstrumentNone.
func ParseInstrument(s string) (Instrument, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "none" {
		return InstrumentNone, nil
	}
	i := Instrument(s)
	if !i.IsValid() {
		return "", fmt.Errorf("unknown instrument %q", s)
	}
	return i, nil
}

// Classification is the classifier verdict for a document.
type Classification struct {
	Type       Type
	Instrument Instrument
	Confidence float64
}

// Temporal holds the document dates. Chunks copy it from their document.
type Temporal struct {
	AuthoredAt  time.Time
	ProcessedAt time.Time
	SchoolYear  string
}

// SchoolYear returns the school year containing t, e.g. "2023-2024".
// A school year starts on August 1.
func SchoolYear(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	start := t.Year()
	if t.Month() < time.August {
		start--
	}
	return fmt.Sprintf("%d-%d", start, start+1)
}

// NewTemporal builds temporal metadata from the authored and processed times.
func NewTemporal(authored, processed time.Time) Temporal {
	return Temporal{
		AuthoredAt:  authored.UTC(),
		ProcessedAt: processed.UTC(),
		SchoolYear:  SchoolYear(authored.UTC()),
	}
}

// ContentHash returns the hex sha256 of the document text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// IDFromHash derives the stable document id from a content hash.
func IDFromHash(hash string) string {
	if len(hash) > 20 {
		hash = hash[:20]
	}
	return "doc-" + hash
}

// Metadata is the document-level record stored next to its chunks.
type Metadata struct {
	ID             string
	ExternalID     string
	ContentHash    string
	SourcePath     string
	Filename       string
	SubjectID      string
	Classification Classification
	Quality        quality.Metrics
	Temporal       Temporal
	TotalChunks    int
}

// FilenameOf returns the base name of a source path.
func FilenameOf(sourcePath string) string {
	if sourcePath == "" {
		return ""
	}
	return filepath.Base(sourcePath)
}
