package qdrant

import (
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/evidex/internal/domain/metadata"
	"github.com/kailas-cloud/evidex/internal/domain/search/filter"
)

var (
	numericFields = map[string]bool{}
	listFields    = map[string]bool{
		metadata.FieldDomainTags: true,
		metadata.FieldCrossRefs:  true,
	}
)

func init() {
	for _, f := range metadata.Fields() {
		if f.Kind == metadata.KindNumeric {
			numericFields[f.Name] = true
		}
	}
}

// toPayload stores numbers as doubles so Range conditions apply, and
// multi-valued tags as keyword lists so a match hits any element.
func toPayload(rec metadata.Record) map[string]*qdrant.Value {
	p := make(map[string]*qdrant.Value, len(rec))
	for k, v := range rec {
		switch {
		case numericFields[k]:
			p[k] = qdrant.NewValueDouble(rec.Float(k))
		case listFields[k]:
			var items []*qdrant.Value
			if v != "" {
				for _, s := range strings.Split(v, metadata.ListSeparator) {
					items = append(items, qdrant.NewValueString(s))
				}
			}
			p[k] = qdrant.NewValueFromList(items...)
		default:
			p[k] = qdrant.NewValueString(v)
		}
	}
	return p
}

func fromPayload(p map[string]*qdrant.Value) metadata.Record {
	rec := make(metadata.Record, len(p))
	for k, v := range p {
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_DoubleValue:
			rec[k] = metadata.FormatFloat(kind.DoubleValue)
		case *qdrant.Value_IntegerValue:
			rec[k] = metadata.FormatFloat(float64(kind.IntegerValue))
		case *qdrant.Value_ListValue:
			parts := make([]string, 0, len(kind.ListValue.GetValues()))
			for _, item := range kind.ListValue.GetValues() {
				parts = append(parts, item.GetStringValue())
			}
			rec[k] = strings.Join(parts, metadata.ListSeparator)
		default:
			rec[k] = v.GetStringValue()
		}
	}
	return rec
}

// buildFilter translates a conjunctive expression into qdrant Must
// conditions. An empty expression is no filter.
func buildFilter(expr filter.Expression) *qdrant.Filter {
	if expr.IsEmpty() {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(expr.Must()))
	for _, c := range expr.Must() {
		switch {
		case c.IsMatch() && len(c.Values()) == 1:
			must = append(must, qdrant.NewMatch(c.Key(), c.Values()[0]))
		case c.IsMatch():
			must = append(must, qdrant.NewMatchKeywords(c.Key(), c.Values()...))
		case c.IsRange():
			r := c.Range()
			must = append(must, qdrant.NewRange(c.Key(), &qdrant.Range{
				Gt:  r.GT(),
				Gte: r.GTE(),
				Lt:  r.LT(),
				Lte: r.LTE(),
			}))
		}
	}
	return &qdrant.Filter{Must: must}
}
