package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RuleSet selects the corporate suffix list used by Name.
type RuleSet int

const (
	// Strict strips legal forms and the common mining words.
	Strict RuleSet = iota
	// Extended additionally strips ventures, holdings, group and international.
	Extended
)

// ParseRuleSet maps a configuration value onto a RuleSet.
func ParseRuleSet(value string) (RuleSet, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return Strict, true
	case "extended", "":
		return Extended, true
	default:
		return Extended, false
	}
}

func (r RuleSet) String() string {
	if r == Strict {
		return "strict"
	}
	return "extended"
}

var baseSuffixes = compileSuffixes(
	`inc\.?`, `ltd\.?`, `limited`, `corp\.?`,
	`corporation`, `plc`, `llc`, `sa`, `ag`,
	`mining`, `mines`, `resources`, `minerals`,
	`gold`, `silver`, `metals`, `exploration`,
)

var extendedSuffixes = append(append([]*regexp.Regexp{}, baseSuffixes...), compileSuffixes(
	`ventures?`, `holdings?`, `group`, `international`,
)...)

var (
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

func compileSuffixes(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, word := range words {
		out = append(out, regexp.MustCompile(`\s+`+word+`$`))
	}
	return out
}

func (r RuleSet) suffixes() []*regexp.Regexp {
	if r == Strict {
		return baseSuffixes
	}
	return extendedSuffixes
}

// Name returns the comparison key for a company name.
//
// Each suffix rule is tried once, in list order, so "Probe Gold Inc." loses
// "inc." and then "gold". The result is not re-stripped afterwards.
func Name(raw string, rules RuleSet) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return ""
	}
	name = fold(name)
	for _, suffix := range rules.suffixes() {
		name = suffix.ReplaceAllString(name, "")
	}
	name = nonWord.ReplaceAllString(name, " ")
	name = whitespace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// fold lower-cases and strips combining marks so "Société Minière" and
// "Societe Miniere" share a key. Casers and transformers keep state, so a
// fresh pair is built per call.
func fold(value string) string {
	lowered := cases.Lower(language.Und).String(value)
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		return lowered
	}
	return folded
}
