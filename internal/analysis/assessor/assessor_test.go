package assessor

import (
	"math"
	"strings"
	"testing"

	"github.com/kailas-cloud/evidex/internal/analysis/patterns"
	"github.com/kailas-cloud/evidex/internal/domain/quality"
)

const report = `Summary of Results. The WISC-V was administered over two sessions in October.
His Full Scale IQ standard score of 95 falls at the 37th percentile, which is consistent with average cognitive functioning.
Reading fluency and decoding are significantly below grade level, with a grade equivalent of 2.5 on the achievement subtest.
Recommendations: the team recommended extended time, preferential seating and specialized reading instruction.
Progress will be monitored with weekly curriculum-based measurement probes and reviewed at the annual goal meeting.`

func newAssessor(t *testing.T) *Assessor {
	t.Helper()
	lib, err := patterns.Default()
	if err != nil {
		t.Fatal(err)
	}
	return New(lib, quality.DefaultWeights())
}

func inUnit(v float64) bool { return v >= 0 && v <= 1 }

func TestAssess_ScoresInRangeAndWeighted(t *testing.T) {
	a := newAssessor(t)
	inputs := []string{
		report,
		"ok",
		"THIS IS ALL CAPS AND SHOUTING WITHOUT END",
		"@@@@ ### %%%%% xkcdqwrt zzzzzzzz",
		strings.Repeat("word ", 500),
		"12 34 56 78 90.",
	}
	w := quality.DefaultWeights()
	for _, in := range inputs {
		m := a.Assess(in)
		for name, v := range map[string]float64{
			"extraction": m.Extraction(), "density": m.Density(),
			"readability": m.Readability(), "completeness": m.Completeness(),
			"overall": m.Overall(),
		} {
			if !inUnit(v) {
				t.Errorf("%q: %s = %v out of [0,1]", in[:min(len(in), 20)], name, v)
			}
		}
		want := w.Extraction*m.Extraction() + w.Density*m.Density() +
			w.Readability*m.Readability() + w.Completeness*m.Completeness()
		if math.Abs(m.Overall()-want) > 1e-9 {
			t.Errorf("overall %v != weighted average %v", m.Overall(), want)
		}
	}
}

func TestAssess_Empty(t *testing.T) {
	a := newAssessor(t)
	for _, in := range []string{"", "   \n\t", "...!!!"} {
		m := a.Assess(in)
		if m.Overall() != 0 || m.Extraction() != 0 || m.Density() != 0 ||
			m.Readability() != 0 || m.Completeness() != 0 {
			t.Errorf("Assess(%q) not all zero: %+v", in, m)
		}
		if m.Status() != quality.StatusError {
			t.Errorf("Assess(%q) status = %q", in, m.Status())
		}
	}
}

func TestAssess_ProfessionalReportBeatsNoise(t *testing.T) {
	a := newAssessor(t)
	good := a.Assess(report)
	noise := a.Assess("asdf qwrtyp @@@ ### lkjhgf mnbvcx zxcvbn ~~~ ^^^ plmkjn")

	if good.Overall() <= noise.Overall() {
		t.Errorf("report %v <= noise %v", good.Overall(), noise.Overall())
	}
	if good.Extraction() <= noise.Extraction() {
		t.Errorf("extraction: report %v <= noise %v", good.Extraction(), noise.Extraction())
	}
	if good.Completeness() < 0.5 {
		t.Errorf("report completeness = %v, want >= 0.5", good.Completeness())
	}
	if good.Density() == 0 {
		t.Error("report density = 0")
	}
}

func TestAssess_Deterministic(t *testing.T) {
	a := newAssessor(t)
	if a.Assess(report) != a.Assess(report) {
		t.Error("Assess is not deterministic")
	}
}

func TestIsWellFormed(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"The student reads fluently.", true},
		{"the student reads fluently.", false},
		{"The student reads fluently", false},
		{"Yes.", false},
		{"95 percent of trials were correct.", true},
	}
	for _, tt := range tests {
		if got := isWellFormed(tt.s); got != tt.want {
			t.Errorf("isWellFormed(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}
