package normalize

import (
	"regexp"
	"strings"
)

var (
	exchangePrefix = regexp.MustCompile(`(?i)^(CVE|TSE|TSX|TSXV|CSE|CNSX|NYSE|NASDAQ|OTC|NEO):`)
	listingSuffix  = regexp.MustCompile(`(?i)\.(V|TO|CN|T|VN|WT|CSE|NEO)$`)
	tickerPunct    = regexp.MustCompile(`[.\-_]`)
)

// Ticker returns the canonical ticker key, or "" when raw carries no symbol.
//
// The rules are applied until the key stops changing so that inputs such as
// "TSX:TSX:ABC" or " CVE:ABC" settle on the same key as "ABC".
func Ticker(raw string) string {
	key := strings.TrimSpace(raw)
	for {
		next := tickerOnce(key)
		if next == key {
			return key
		}
		key = next
	}
}

func tickerOnce(value string) string {
	value = exchangePrefix.ReplaceAllString(value, "")
	value = listingSuffix.ReplaceAllString(value, "")
	value = tickerPunct.ReplaceAllString(value, "")
	return strings.ToUpper(strings.TrimSpace(value))
}
