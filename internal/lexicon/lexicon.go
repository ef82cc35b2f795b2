// Package lexicon holds the versioned vocabulary that drives all structural
// scoring: vague-language terms, per-area keyword sets, specificity markers,
// and the opposing-concept catalogue used for contradiction detection.
//
// The defaults are embedded so the binary works with zero configuration, but
// the whole vocabulary can be replaced by a YAML file — severity and keyword
// tuning never requires a rebuild.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Pair is a two-term entry: either an opposing-concept pair with a severity,
// or a polarity-flip pair (severity unused).
type Pair struct {
	A        string `yaml:"a" json:"a"`
	B        string `yaml:"b" json:"b"`
	Severity string `yaml:"severity,omitempty" json:"severity,omitempty"`
}

// Lexicon is the full scoring vocabulary. All term matching is
// case-insensitive; matching against multi-word entries is phrase-based.
type Lexicon struct {
	Version string `yaml:"version"`

	// Vague-language vocabulary.
	Hedges    []string `yaml:"hedges"`
	Generic   []string `yaml:"generic"`
	Filler    []string `yaml:"filler"`
	Deferrals []string `yaml:"deferrals"` // regex patterns, e.g. "figure (it|this) out later"

	// Answer-level markers.
	Uncertainty []string `yaml:"uncertainty"`
	Negations   []string `yaml:"negations"`
	Polarity    []Pair   `yaml:"polarity"`

	// Specificity markers.
	Units      []string `yaml:"units"`
	Actors     []string `yaml:"actors"`
	Tech       []string `yaml:"tech"`
	Thresholds []string `yaml:"thresholds"`

	// Per-area coverage keyword sets. Keys must include the five fixed
	// areas: scope, success, constraint, risk, technical.
	Areas map[string][]string `yaml:"areas"`

	// Opposing-concept catalogue for contradiction detection.
	Opposing []Pair `yaml:"opposing"`

	deferralRe []*regexp.Regexp
}

// RequiredAreas are the five coverage areas every lexicon must define.
var RequiredAreas = []string{"scope", "success", "constraint", "risk", "technical"}

// Default returns the embedded vocabulary. It panics only if the embedded
// data is malformed, which is a build defect, not a runtime condition.
func Default() *Lexicon {
	lex, err := parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon invalid: %v", err))
	}
	return lex
}

// Load reads a lexicon from a YAML file, validating it fully.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon: %w", err)
	}
	lex, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing lexicon %s: %w", path, err)
	}
	return lex, nil
}

// parse unmarshals, validates, and precompiles deferral patterns.
func parse(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, err
	}
	if lex.Version == "" {
		return nil, fmt.Errorf("missing version")
	}
	for _, area := range RequiredAreas {
		if len(lex.Areas[area]) == 0 {
			return nil, fmt.Errorf("area %q has no keywords", area)
		}
	}
	lex.deferralRe = make([]*regexp.Regexp, 0, len(lex.Deferrals))
	for _, pat := range lex.Deferrals {
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			return nil, fmt.Errorf("deferral pattern %q: %w", pat, err)
		}
		lex.deferralRe = append(lex.deferralRe, re)
	}
	return &lex, nil
}

// --- Matching helpers ---

// ContainsTerm reports whether text contains term as a whole word or phrase,
// case-insensitively.
func ContainsTerm(text, term string) bool {
	lower := strings.ToLower(text)
	term = strings.ToLower(term)
	idx := 0
	for {
		i := strings.Index(lower[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		if boundaryBefore(lower, start) && boundaryAfter(lower, end) {
			return true
		}
		idx = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := rune(s[i-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// MatchTerms returns the subset of terms present in text, preserving the
// order of the term list.
func MatchTerms(text string, terms []string) []string {
	var matched []string
	for _, t := range terms {
		if ContainsTerm(text, t) {
			matched = append(matched, t)
		}
	}
	return matched
}

// CountDeferrals counts deferral-pattern matches in text.
func (l *Lexicon) CountDeferrals(text string) int {
	n := 0
	for _, re := range l.deferralRe {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

// VagueTerms returns hedges, generic terms, and filler as one list, in a
// stable order. This is the vocabulary the analyzer's vague-language pass
// scans with.
func (l *Lexicon) VagueTerms() []string {
	out := make([]string, 0, len(l.Hedges)+len(l.Generic)+len(l.Filler))
	out = append(out, l.Hedges...)
	out = append(out, l.Generic...)
	out = append(out, l.Filler...)
	return out
}
