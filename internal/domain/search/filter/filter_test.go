package filter

import (
	"strings"
	"testing"
)

func floatPtr(f float64) *float64 { return &f }

func TestNewRangeFilter_Valid(t *testing.T) {
	tests := []struct {
		name             string
		gt, gte, lt, lte *float64
	}{
		{"gt only", floatPtr(1), nil, nil, nil},
		{"gte only", nil, floatPtr(0), nil, nil},
		{"lt only", nil, nil, floatPtr(10), nil},
		{"lte only", nil, nil, nil, floatPtr(100)},
		{"gte+lte", nil, floatPtr(0), nil, floatPtr(10)},
		{"gt+lt", floatPtr(0), nil, floatPtr(10), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRangeFilter(tt.gt, tt.gte, tt.lt, tt.lte); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewRangeFilter_Invalid(t *testing.T) {
	if _, err := NewRangeFilter(nil, nil, nil, nil); err == nil {
		t.Error("expected error without boundaries")
	}
	if _, err := NewRangeFilter(floatPtr(1), floatPtr(1), nil, nil); err == nil {
		t.Error("expected error for gt+gte")
	}
	if _, err := NewRangeFilter(nil, nil, floatPtr(1), floatPtr(1)); err == nil {
		t.Error("expected error for lt+lte")
	}
}

func TestRange_Contains(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		v    float64
		want bool
	}{
		{"at least inclusive", AtLeast(0.5), 0.5, true},
		{"at least below", AtLeast(0.5), 0.49, false},
		{"between inside", Between(10, 20), 15, true},
		{"between upper edge", Between(10, 20), 20, true},
		{"between above", Between(10, 20), 20.1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.v); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}

	r, _ := NewRangeFilter(floatPtr(1), nil, floatPtr(2), nil)
	if r.Contains(1) || r.Contains(2) || !r.Contains(1.5) {
		t.Error("exclusive bounds misbehave")
	}
}

func TestNewMatch(t *testing.T) {
	c, err := NewMatch("document_type", "iep")
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsMatch() || c.IsRange() || c.Key() != "document_type" {
		t.Errorf("unexpected condition: %+v", c)
	}
	if _, err := NewMatch("", "x"); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := NewMatch("k", ""); err == nil {
		t.Error("expected error for empty value")
	}
}

func TestNewAnyOf(t *testing.T) {
	if _, err := NewAnyOf("document_type", nil); err == nil {
		t.Error("expected error for empty set")
	}
	if _, err := NewAnyOf("document_type", []string{"iep", ""}); err == nil {
		t.Error("expected error for empty member")
	}

	values := []string{"iep", "evaluation"}
	c, err := NewAnyOf("document_type", values)
	if err != nil {
		t.Fatal(err)
	}
	values[0] = "mutated"
	if c.Values()[0] != "iep" {
		t.Error("condition shares caller slice")
	}
}

func TestNewExpression_TooMany(t *testing.T) {
	conds := make([]Condition, MaxConditions+1)
	for i := range conds {
		conds[i], _ = NewMatch("k", "v")
	}
	_, err := NewExpression(conds...)
	if err == nil || !strings.Contains(err.Error(), "too many") {
		t.Errorf("expected too many error, got %v", err)
	}
	if _, err := NewExpression(conds[:MaxConditions]...); err != nil {
		t.Errorf("unexpected error at max: %v", err)
	}
}

func TestExpression_Matches(t *testing.T) {
	typ, _ := NewAnyOf("document_type", []string{"iep", "evaluation"})
	q, _ := NewRange("quality_overall", AtLeast(0.5))
	subj, _ := NewMatch("subject_id", "s-1")
	expr, _ := NewExpression(typ, q, subj)

	tests := []struct {
		name   string
		fields map[string]string
		want   bool
	}{
		{"all hold", map[string]string{"document_type": "iep", "quality_overall": "0.8", "subject_id": "s-1"}, true},
		{"type outside set", map[string]string{"document_type": "other", "quality_overall": "0.8", "subject_id": "s-1"}, false},
		{"quality too low", map[string]string{"document_type": "iep", "quality_overall": "0.2", "subject_id": "s-1"}, false},
		{"quality not numeric", map[string]string{"document_type": "iep", "quality_overall": "x", "subject_id": "s-1"}, false},
		{"missing subject", map[string]string{"document_type": "iep", "quality_overall": "0.9"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expr.Matches(tt.fields); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}

	var empty Expression
	if !empty.IsEmpty() || !empty.Matches(nil) {
		t.Error("empty expression should match everything")
	}
}

func TestCondition_MatchesMultiValuedTag(t *testing.T) {
	c, _ := NewMatch("domain_tags", "math")
	if !c.Matches("reading,math", true) {
		t.Error("expected match on second list element")
	}
	if c.Matches("mathematics", true) {
		t.Error("partial token must not match")
	}
}
