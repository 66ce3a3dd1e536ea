package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var parenthetical = regexp.MustCompile(`\(([^)]+)\)`)

// Aliases returns the alternate forms of a company name, always including the
// name itself: the name without parenthetical segments, each parenthetical
// segment, an initials form, and the "&"/"and" substitutions. The result is
// sorted and free of duplicates.
func Aliases(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	set := map[string]struct{}{name: {}}
	add := func(value string) {
		value = strings.TrimSpace(whitespace.ReplaceAllString(value, " "))
		if value != "" {
			set[value] = struct{}{}
		}
	}

	if strings.Contains(name, "(") && strings.Contains(name, ")") {
		add(parenthetical.ReplaceAllString(name, ""))
		for _, match := range parenthetical.FindAllStringSubmatch(name, -1) {
			add(match[1])
		}
	}

	if initials := Initials(name); len([]rune(initials)) >= 2 {
		add(initials)
	}

	if strings.Contains(name, "&") {
		add(strings.ReplaceAll(name, "&", "and"))
	}
	if strings.Contains(name, " and ") {
		add(strings.ReplaceAll(name, " and ", " & "))
	}

	out := make([]string, 0, len(set))
	for alias := range set {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Initials returns the upper-cased first letter of every word that starts
// with a letter, or "" for single-word names.
func Initials(name string) string {
	words := strings.Fields(name)
	if len(words) < 2 {
		return ""
	}
	var b strings.Builder
	for _, word := range words {
		first := []rune(word)[0]
		if unicode.IsLetter(first) {
			b.WriteRune(unicode.ToUpper(first))
		}
	}
	return b.String()
}
