// Package classify scores the difference between a spine reading and
// an alternative reading.
//
// Classification is purely descriptive and rule-based: an ordered rule
// list is evaluated top-to-bottom and the first match wins. The
// normalizer has already collapsed orthographic and accentual
// differences before two readings are considered distinct, so every
// pair reaching this package differs substantively.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/veritext/apparatus/errors"
	"github.com/veritext/apparatus/normalize"
)

// Classification describes the structural shape of a variant.
type Classification string

const (
	WordOrder    Classification = "word_order"
	Omission     Classification = "omission"
	Addition     Classification = "addition"
	Substitution Classification = "substitution"
)

// Significance is the descriptive severity of a variant.
type Significance string

const (
	Minor       Significance = "minor"
	Significant Significance = "significant"
	Major       Significance = "major"
)

// RequiresAcknowledgement reports whether units at this significance
// are gated behind explicit session acknowledgement.
func (s Significance) RequiresAcknowledgement() bool {
	return s == Significant || s == Major
}

// Result is the full classification of one spine/alternative pair.
type Result struct {
	Classification Classification
	Significance   Significance
	ReasonCode     string
	ReasonSummary  string
}

// termSet canonicalizes each entry the same way tokens are produced,
// so lookups are insensitive to sigma form, accents, and casing.
func termSet(terms ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[normalize.Key(t)] = struct{}{}
	}
	return set
}

// theologicalTerms is the fixed keyword set whose presence difference
// marks a variant as major.
var theologicalTerms = termSet(
	"θεος", "θεου", "θεον", "θεω",
	"χριστος", "χριστου", "χριστον",
	"ιησους", "ιησου", "ιησουν",
	"κυριος", "κυριου", "κυριον",
	"πνευμα", "πνευματος",
	"υιος", "υιου", "υιον",
	"πατηρ", "πατρος",
	"μονογενης",
	"αμαρτια", "αμαρτιας",
	"πιστις", "πιστεως",
)

// functionWords are Greek articles and particles whose presence alone
// never makes a variant more than minor.
var functionWords = termSet(
	// articles
	"ο", "η", "το", "οι", "αι", "τα",
	"του", "της", "των", "τω", "τη", "τοις",
	"ταις", "τον", "την", "τους", "τας",
	// particles and light conjunctions
	"δε", "τε", "γαρ", "και", "μεν", "ουν",
	"αν", "αρα", "γε", "δη",
)

// rule is one entry of the ordered rule list. match returns a Result
// and true when the rule fires.
type rule struct {
	code  string
	match func(spine, alt []string) (Result, bool)
}

// rules are evaluated top-to-bottom; first match wins.
var rules = []rule{
	{code: "theological_term", match: matchTheologicalTerm},
	{code: "function_words", match: matchFunctionWordsOnly},
	{code: "word_order", match: matchWordOrder},
	{code: "token_count", match: matchTokenCount},
}

// Classify scores an alternative reading against the spine reading.
// Both arguments are surface texts; normalization happens internally.
// Deterministic: the same pair always yields the same Result.
func Classify(spineText, altText string) Result {
	spine := tokens(spineText)
	alt := tokens(altText)

	for _, r := range rules {
		if res, ok := r.match(spine, alt); ok {
			return res
		}
	}

	return Result{
		Classification: Substitution,
		Significance:   Significant,
		ReasonCode:     "substitution",
		ReasonSummary:  "different wording at the same position",
	}
}

func tokens(text string) []string {
	key := normalize.Key(text)
	if key == "" {
		return nil
	}
	return strings.Split(key, " ")
}

func matchTheologicalTerm(spine, alt []string) (Result, bool) {
	spineSet := toSet(spine)
	altSet := toSet(alt)
	for term := range theologicalTerms {
		_, inSpine := spineSet[term]
		_, inAlt := altSet[term]
		if inSpine != inAlt {
			return Result{
				Classification: shape(spine, alt),
				Significance:   Major,
				ReasonCode:     "theological_term",
				ReasonSummary:  "presence of a theologically significant term differs between readings",
			}, true
		}
	}
	return Result{}, false
}

func matchFunctionWordsOnly(spine, alt []string) (Result, bool) {
	if equalTokens(spine, alt) {
		return Result{}, false
	}
	if !equalTokens(stripFunctionWords(spine), stripFunctionWords(alt)) {
		return Result{}, false
	}
	return Result{
		Classification: shape(spine, alt),
		Significance:   Minor,
		ReasonCode:     "function_words",
		ReasonSummary:  "difference is confined to articles or particles",
	}, true
}

func matchWordOrder(spine, alt []string) (Result, bool) {
	if len(spine) != len(alt) || equalTokens(spine, alt) {
		return Result{}, false
	}
	if !equalMultisets(spine, alt) {
		return Result{}, false
	}
	return Result{
		Classification: WordOrder,
		Significance:   Minor,
		ReasonCode:     "word_order",
		ReasonSummary:  "identical words in a different order",
	}, true
}

func matchTokenCount(spine, alt []string) (Result, bool) {
	diff := len(spine) - len(alt)
	if diff == 0 {
		return Result{}, false
	}

	classification := Omission
	delta := diff
	summaryShape := "fewer"
	if diff < 0 {
		classification = Addition
		delta = -diff
		summaryShape = "more"
	}

	// Small count differences with little shared vocabulary are
	// substitutions, not pure omissions or additions. An empty side is
	// always a pure omission or addition.
	if delta <= 2 && len(spine) > 0 && len(alt) > 0 {
		common := 0
		altSet := toSet(alt)
		for tok := range toSet(spine) {
			if _, ok := altSet[tok]; ok {
				common++
			}
		}
		if base := len(toSet(spine)); base > 0 && float64(common) <= float64(base)*0.7 {
			return Result{}, false
		}
	}

	significance := Minor
	if delta >= 2 {
		significance = Significant
	}

	return Result{
		Classification: classification,
		Significance:   significance,
		ReasonCode:     "token_count",
		ReasonSummary:  fmt.Sprintf("reading has %d %s word(s) than the spine", delta, summaryShape),
	}, true
}

func shape(spine, alt []string) Classification {
	switch diff := len(spine) - len(alt); {
	case diff > 0:
		return Omission
	case diff < 0:
		return Addition
	default:
		return Substitution
	}
}

func toSet(toks []string) map[string]struct{} {
	set := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		set[t] = struct{}{}
	}
	return set
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalMultisets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, t := range a {
		counts[t]++
	}
	for _, t := range b {
		counts[t]--
		if counts[t] < 0 {
			return false
		}
	}
	return true
}

func stripFunctionWords(toks []string) []string {
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		if _, ok := functionWords[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// bannedPhrases match evaluative language that must never appear in a
// persisted reason summary. Summaries describe; they do not judge.
var bannedPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)more likely original`),
	regexp.MustCompile(`(?i)preferred reading`),
	regexp.MustCompile(`(?i)better reading`),
	regexp.MustCompile(`(?i)original reading`),
	regexp.MustCompile(`(?i)\bsuperior\b`),
	regexp.MustCompile(`(?i)\binferior\b`),
	regexp.MustCompile(`(?i)\bauthentic\b`),
	regexp.MustCompile(`(?i)\bspurious\b`),
	regexp.MustCompile(`(?i)\bcorrupt(ed|ion)?\b`),
}

// ValidateSummary rejects reason summaries containing evaluative
// language. Returns an integrity error on violation: a banned phrase
// reaching the persistence boundary is a programming bug.
func ValidateSummary(summary string) error {
	for _, p := range bannedPhrases {
		if p.MatchString(summary) {
			return errors.NewIntegrityError("reason summary contains evaluative language: %q", summary)
		}
	}
	return nil
}

// ParseClassification converts a stored value back to a Classification.
func ParseClassification(stored string) Classification {
	switch Classification(stored) {
	case WordOrder, Omission, Addition, Substitution:
		return Classification(stored)
	default:
		return Substitution
	}
}

// ParseSignificance converts a stored value back to a Significance.
func ParseSignificance(stored string) Significance {
	switch Significance(stored) {
	case Minor, Significant, Major:
		return Significance(stored)
	default:
		return Significant
	}
}
