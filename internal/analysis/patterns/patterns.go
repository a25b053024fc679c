// Package patterns loads the declarative pattern library that drives
// classification, section relevance, content typing and quality scoring.
// The library is data: a YAML table compiled once and shared read-only.
package patterns

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/evidex/internal/domain/chunk"
	"github.com/kailas-cloud/evidex/internal/domain/document"
	"github.com/kailas-cloud/evidex/internal/domain/section"
)

//go:embed default.yaml
var defaultYAML []byte

type ruleFile struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
	Keywords []string `yaml:"keywords"`
}

type sectionFile struct {
	Keywords       []string `yaml:"keywords"`
	Patterns       []string `yaml:"patterns"`
	SearchTerms    []string `yaml:"search_terms"`
	PreferredTypes []string `yaml:"preferred_types"`
	Threshold      float64  `yaml:"threshold"`
	MaxChunks      int      `yaml:"max_chunks"`
}

type libraryFile struct {
	DocumentTypes []ruleFile             `yaml:"document_types"`
	Instruments   []ruleFile             `yaml:"instruments"`
	Sections      map[string]sectionFile `yaml:"sections"`
	ContentTypes  []ruleFile             `yaml:"content_types"`
	Topics        []ruleFile             `yaml:"topics"`
	Quality       struct {
		DomainTerms       []string `yaml:"domain_terms"`
		ProfessionalTerms []string `yaml:"professional_terms"`
		SectionMarkers    []string `yaml:"section_markers"`
		Quantitative      []string `yaml:"quantitative"`
	} `yaml:"quality"`
}

// Rule is a named list of compiled patterns.
type Rule struct {
	Name     string
	Patterns []*regexp.Regexp
}

// Count returns the total number of matches of every pattern in text.
func (r Rule) Count(text string) int {
	return CountAll(r.Patterns, text)
}

// Strategy is the fixed retrieval configuration of one section.
type Strategy struct {
	SearchTerms    []string
	PreferredTypes []document.Type
	Threshold      float64
	MaxChunks      int
}

// Prefers reports whether t is in the preferred type subset.
func (s Strategy) Prefers(t document.Type) bool {
	for _, p := range s.PreferredTypes {
		if p == t {
			return true
		}
	}
	return false
}

// Section holds the relevance signals and strategy of one target section.
type Section struct {
	Name     section.Name
	Keywords []*regexp.Regexp
	Patterns []*regexp.Regexp
	Strategy Strategy
}

// Topic is a named keyword set used for semantic tags.
type Topic struct {
	Name     string
	Keywords []*regexp.Regexp
}

// Library is the compiled pattern library.
type Library struct {
	Types        []Rule
	Instruments  []Rule
	Sections     map[section.Name]Section
	ContentTypes []Rule
	Topics       []Topic

	DomainTerms       []*regexp.Regexp
	ProfessionalTerms []*regexp.Regexp
	SectionMarkers    []*regexp.Regexp
	Quantitative      []*regexp.Regexp
}

var loadDefault = sync.OnceValues(func() (*Library, error) {
	return Parse(defaultYAML)
})

// Default returns the built-in library, compiled on first use.
func Default() (*Library, error) {
	return loadDefault()
}

// Load reads a library from a YAML file. An empty path returns Default.
func Load(path string) (*Library, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read pattern library %s: %w", path, err)
	}
	lib, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("pattern library %s: %w", path, err)
	}
	return lib, nil
}

// Parse compiles a library from YAML. Every canonical section must be present.
func Parse(data []byte) (*Library, error) {
	var f libraryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pattern library: %w", err)
	}

	lib := &Library{Sections: make(map[section.Name]Section, len(f.Sections))}

	for _, r := range f.DocumentTypes {
		t, err := document.ParseType(r.Name)
		if err != nil {
			return nil, fmt.Errorf("document_types: %w", err)
		}
		r.Name = string(t)
		rule, err := compileRule(r)
		if err != nil {
			return nil, fmt.Errorf("document_types.%s: %w", r.Name, err)
		}
		lib.Types = append(lib.Types, rule)
	}

	for _, r := range f.Instruments {
		if i, err := document.ParseInstrument(r.Name); err != nil || i == document.InstrumentNone {
			return nil, fmt.Errorf("instruments: unknown instrument %q", r.Name)
		}
		rule, err := compileRule(r)
		if err != nil {
			return nil, fmt.Errorf("instruments.%s: %w", r.Name, err)
		}
		lib.Instruments = append(lib.Instruments, rule)
	}

	for name, s := range f.Sections {
		n, err := section.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("sections: %w", err)
		}
		compiled, err := compileSection(n, s)
		if err != nil {
			return nil, fmt.Errorf("sections.%s: %w", name, err)
		}
		lib.Sections[n] = compiled
	}
	for _, n := range section.All() {
		if _, ok := lib.Sections[n]; !ok {
			return nil, fmt.Errorf("sections: missing %q", n)
		}
	}

	for _, r := range f.ContentTypes {
		if !chunk.ContentType(r.Name).IsValid() {
			return nil, fmt.Errorf("content_types: unknown content type %q", r.Name)
		}
		rule, err := compileRule(r)
		if err != nil {
			return nil, fmt.Errorf("content_types.%s: %w", r.Name, err)
		}
		lib.ContentTypes = append(lib.ContentTypes, rule)
	}

	for _, t := range f.Topics {
		kws, err := compileKeywords(t.Keywords)
		if err != nil {
			return nil, fmt.Errorf("topics.%s: %w", t.Name, err)
		}
		lib.Topics = append(lib.Topics, Topic{Name: t.Name, Keywords: kws})
	}

	var err error
	if lib.DomainTerms, err = compileKeywords(f.Quality.DomainTerms); err != nil {
		return nil, fmt.Errorf("quality.domain_terms: %w", err)
	}
	if lib.ProfessionalTerms, err = compileKeywords(f.Quality.ProfessionalTerms); err != nil {
		return nil, fmt.Errorf("quality.professional_terms: %w", err)
	}
	if lib.SectionMarkers, err = compilePatterns(f.Quality.SectionMarkers); err != nil {
		return nil, fmt.Errorf("quality.section_markers: %w", err)
	}
	if lib.Quantitative, err = compilePatterns(f.Quality.Quantitative); err != nil {
		return nil, fmt.Errorf("quality.quantitative: %w", err)
	}

	return lib, nil
}

// Strategy returns the retrieval strategy for n.
func (l *Library) Strategy(n section.Name) (Strategy, bool) {
	s, ok := l.Sections[n]
	if !ok {
		return Strategy{}, false
	}
	return s.Strategy, true
}

func compileSection(n section.Name, s sectionFile) (Section, error) {
	kws, err := compileKeywords(s.Keywords)
	if err != nil {
		return Section{}, err
	}
	pats, err := compilePatterns(s.Patterns)
	if err != nil {
		return Section{}, err
	}
	if len(s.SearchTerms) == 0 {
		return Section{}, fmt.Errorf("at least one search term is required")
	}
	if s.Threshold < 0 || s.Threshold > 1 {
		return Section{}, fmt.Errorf("threshold must be within [0,1], got %v", s.Threshold)
	}
	if s.MaxChunks <= 0 {
		return Section{}, fmt.Errorf("max_chunks must be positive, got %d", s.MaxChunks)
	}
	preferred := make([]document.Type, 0, len(s.PreferredTypes))
	for _, p := range s.PreferredTypes {
		t, err := document.ParseType(p)
		if err != nil {
			return Section{}, err
		}
		preferred = append(preferred, t)
	}
	return Section{
		Name:     n,
		Keywords: kws,
		Patterns: pats,
		Strategy: Strategy{
			SearchTerms:    s.SearchTerms,
			PreferredTypes: preferred,
			Threshold:      s.Threshold,
			MaxChunks:      s.MaxChunks,
		},
	}, nil
}

func compileRule(r ruleFile) (Rule, error) {
	pats, err := compilePatterns(r.Patterns)
	if err != nil {
		return Rule{}, err
	}
	kws, err := compileKeywords(r.Keywords)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Name: r.Name, Patterns: append(pats, kws...)}, nil
}

func compilePatterns(src []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(src))
	for _, p := range src {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func compileKeywords(src []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(src))
	for _, k := range src {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(k) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("compile keyword %q: %w", k, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// CountAll sums the matches of every pattern in text.
func CountAll(pats []*regexp.Regexp, text string) int {
	n := 0
	for _, re := range pats {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

// CountDistinct returns how many patterns match text at least once.
func CountDistinct(pats []*regexp.Regexp, text string) int {
	n := 0
	for _, re := range pats {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}
