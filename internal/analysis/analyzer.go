// Package analysis implements the structural quality analyzer — the
// deterministic scorer of raw epic text.
//
// The analyzer is the always-available half of the engine's two-layer
// design: it needs no external service, only the lexicon. Four passes run
// over the text (explicit-statement extraction, vague-language detection,
// per-area coverage, sentence-level specificity classification) and compose
// into a 0-100 overall score, a 1-5 quality tier, and a question-generation
// strategy.
package analysis

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/probelabs/socratic/internal/lexicon"
)

// --- Coverage level enum ---

// CoverageLevel buckets how thoroughly an area is addressed by the text.
type CoverageLevel string

const (
	LevelAbsent    CoverageLevel = "absent"
	LevelMentioned CoverageLevel = "mentioned"
	LevelPartial   CoverageLevel = "partial"
	LevelDetailed  CoverageLevel = "detailed"
)

// --- Strategy enum ---

// Strategy is the question-generation mode implied by the quality tier.
type Strategy string

const (
	StrategyComprehensive Strategy = "comprehensive"
	StrategyTargeted      Strategy = "targeted"
	StrategyValidation    Strategy = "validation"
	StrategyMinimal       Strategy = "minimal"
)

// RecommendedQuestions returns the question count the adaptive generation
// layer should respect for this strategy.
func (s Strategy) RecommendedQuestions() int {
	switch s {
	case StrategyComprehensive:
		return 8
	case StrategyTargeted:
		return 5
	case StrategyValidation:
		return 3
	case StrategyMinimal:
		return 2
	}
	return 5
}

// --- Sentence classification ---

// SentenceClass labels one sentence's specificity.
type SentenceClass string

const (
	SentenceSpecific SentenceClass = "specific"
	SentenceVague    SentenceClass = "vague"
	SentenceNeutral  SentenceClass = "neutral"
)

// shortSentenceWords is the word count below which a marker-less sentence
// is classified vague rather than neutral.
const shortSentenceWords = 6

// --- Report types ---

// AreaCoverage is the coverage result for one of the five fixed areas.
type AreaCoverage struct {
	Area    string        `json:"area"`
	Level   CoverageLevel `json:"level"`
	Score   int           `json:"score"`
	Matched []string      `json:"matched,omitempty"`
}

// Sentence is one classified sentence from the epic text.
type Sentence struct {
	Text  string        `json:"text"`
	Class SentenceClass `json:"class"`
}

// Explicit captures the explicit-statement extraction pass: concrete markers
// that ground the text in measurable reality.
type Explicit struct {
	HasNumerals bool     `json:"has_numerals"`
	Units       []string `json:"units,omitempty"`
	Actors      []string `json:"actors,omitempty"`
	Tech        []string `json:"tech,omitempty"`
}

// Report is the full structural analysis of one epic text.
type Report struct {
	SpecificityScore int            `json:"specificity_score"`
	CoverageScore    int            `json:"coverage_score"`
	ClarityScore     int            `json:"clarity_score"`
	OverallScore     int            `json:"overall_score"`
	Tier             int            `json:"tier"`
	Strategy         Strategy       `json:"strategy"`
	Explicit         Explicit       `json:"explicit"`
	VaguePhrases     []string       `json:"vague_phrases,omitempty"`
	Areas            []AreaCoverage `json:"areas"`
	Sentences        []Sentence     `json:"sentences,omitempty"`
	SuggestedFocus   []string       `json:"suggested_focus,omitempty"`
}

// --- Analyzer ---

// Analyzer scores raw epic text against a lexicon. It is stateless and safe
// for reuse across sessions.
type Analyzer struct {
	lex *lexicon.Lexicon
}

// New creates an analyzer over the given vocabulary.
func New(lex *lexicon.Lexicon) *Analyzer {
	return &Analyzer{lex: lex}
}

var numeralRe = regexp.MustCompile(`\d`)

// Analyze runs all four passes and composes the scores. It never panics:
// empty or whitespace-only input yields all-zero scores and tier 1.
func (a *Analyzer) Analyze(text string) *Report {
	report := &Report{}

	// Pass 1: explicit-statement extraction.
	report.Explicit = Explicit{
		HasNumerals: numeralRe.MatchString(text),
		Units:       lexicon.MatchTerms(text, a.lex.Units),
		Actors:      lexicon.MatchTerms(text, a.lex.Actors),
		Tech:        lexicon.MatchTerms(text, a.lex.Tech),
	}

	// Pass 2: vague-language detection.
	report.VaguePhrases = lexicon.MatchTerms(text, a.lex.VagueTerms())

	// Pass 3: per-area coverage.
	report.Areas = a.coverAreas(text)

	// Pass 4: sentence-level specificity classification.
	report.Sentences = a.classifySentences(text)

	a.compose(report)
	return report
}

// coverAreas computes keyword-overlap coverage for the five fixed areas,
// in a stable order.
func (a *Analyzer) coverAreas(text string) []AreaCoverage {
	areas := make([]AreaCoverage, 0, len(lexicon.RequiredAreas))
	for _, area := range lexicon.RequiredAreas {
		keywords := a.lex.Areas[area]
		matched := lexicon.MatchTerms(text, keywords)
		ratio := 0.0
		if len(keywords) > 0 {
			ratio = float64(len(matched)) / float64(len(keywords))
		}
		level, score := bucketCoverage(ratio)
		areas = append(areas, AreaCoverage{
			Area:    area,
			Level:   level,
			Score:   score,
			Matched: matched,
		})
	}
	return areas
}

// bucketCoverage maps a keyword-overlap ratio to a level and a fixed score.
func bucketCoverage(ratio float64) (CoverageLevel, int) {
	switch {
	case ratio <= 0:
		return LevelAbsent, 0
	case ratio < 0.2:
		return LevelMentioned, 30
	case ratio < 0.5:
		return LevelPartial, 60
	default:
		return LevelDetailed, 90
	}
}

// classifySentences splits the text into sentences and classifies each.
//
// The ordering is a deliberate tie-break: vague markers always win over weak
// specificity markers — a sentence with both is vague.
func (a *Analyzer) classifySentences(text string) []Sentence {
	raw := SplitSentences(text)
	sentences := make([]Sentence, 0, len(raw))
	for _, s := range raw {
		sentences = append(sentences, Sentence{Text: s, Class: a.classify(s)})
	}
	return sentences
}

func (a *Analyzer) classify(sentence string) SentenceClass {
	vague := len(lexicon.MatchTerms(sentence, a.lex.VagueTerms())) > 0
	if vague {
		return SentenceVague
	}

	specific := numeralRe.MatchString(sentence) ||
		len(lexicon.MatchTerms(sentence, a.lex.Units)) > 0 ||
		len(lexicon.MatchTerms(sentence, a.lex.Thresholds)) > 0
	if specific {
		return SentenceSpecific
	}

	if WordCount(sentence) < shortSentenceWords {
		return SentenceVague
	}
	return SentenceNeutral
}

// compose derives the composite scores, tier, strategy, and focus areas.
func (a *Analyzer) compose(r *Report) {
	total := len(r.Sentences)
	specific, vague := 0, 0
	for _, s := range r.Sentences {
		switch s.Class {
		case SentenceSpecific:
			specific++
		case SentenceVague:
			vague++
		}
	}

	if total > 0 {
		r.SpecificityScore = roundScore(float64(specific) / float64(total) * 100)
		r.ClarityScore = roundScore((1 - float64(vague)/float64(total)) * 100)
	}

	sum := 0
	for _, area := range r.Areas {
		sum += area.Score
	}
	if len(r.Areas) > 0 {
		r.CoverageScore = roundScore(float64(sum) / float64(len(r.Areas)))
	}

	r.OverallScore = roundScore(
		0.4*float64(r.SpecificityScore) +
			0.4*float64(r.CoverageScore) +
			0.2*float64(r.ClarityScore))

	r.Tier = tierFor(r.OverallScore)
	r.Strategy = strategyFor(r.Tier)
	r.SuggestedFocus = suggestFocus(r.Areas)
}

// tierFor maps the overall score to a 1-5 quality tier.
func tierFor(overall int) int {
	switch {
	case overall >= 75:
		return 5
	case overall >= 55:
		return 4
	case overall >= 35:
		return 3
	case overall >= 15:
		return 2
	default:
		return 1
	}
}

// strategyFor maps a tier to its question-generation strategy.
func strategyFor(tier int) Strategy {
	switch tier {
	case 1, 2:
		return StrategyComprehensive
	case 3:
		return StrategyTargeted
	case 4:
		return StrategyValidation
	default:
		return StrategyMinimal
	}
}

// suggestFocus returns areas scoring below 50, ascending by score.
func suggestFocus(areas []AreaCoverage) []string {
	weak := make([]AreaCoverage, 0, len(areas))
	for _, area := range areas {
		if area.Score < 50 {
			weak = append(weak, area)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].Score < weak[j].Score })

	focus := make([]string, 0, len(weak))
	for _, area := range weak {
		focus = append(focus, area.Area)
	}
	return focus
}

func roundScore(v float64) int {
	s := int(math.Round(v))
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// --- Text helpers ---

var sentenceSplitRe = regexp.MustCompile(`[.!?]+\s*|\n+`)

// SplitSentences breaks text into trimmed, non-empty sentences. Newlines act
// as sentence boundaries so bullet lists score per item.
func SplitSentences(text string) []string {
	parts := sentenceSplitRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
