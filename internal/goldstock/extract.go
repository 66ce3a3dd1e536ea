package goldstock

import (
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var nameSelectors = []string{
	"h1.company-name",
	"h1",
	".company-header h1",
	`meta[property="og:title"]`,
	"title",
	".company-title",
	"div.name",
	"span.company-name",
}

var nameCleanup = []*regexp.Regexp{
	regexp.MustCompile(`\s*\|.*$`),
	regexp.MustCompile(`(?i)\s*-\s*Goldstock.*$`),
	regexp.MustCompile(`(?i)\s*-\s*Company.*$`),
}

var (
	symbolPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)Symbol[:\s]+(?:Currency\s+)?(?:\*\*)?([A-Z]+)[:.]([A-Z0-9]+)(?:\*\*)?`),
		regexp.MustCompile(`(?im)Symbol[:\s]+(?:\*\*)?([A-Z]+)[:.]([A-Z0-9]+)(?:\*\*)?`),
		regexp.MustCompile(`(?im)\b(?:TSE|TSX|CVE|TSXV|CSE|CNSX|NEO|NYSE|NASDAQ|OTC)[:\s]*([A-Z0-9.\-]+)`),
	}
	exchangeTicker   = regexp.MustCompile(`([A-Z]+)[:\s]([A-Z0-9.\-]+)`)
	currencyTail     = regexp.MustCompile(`Currency.*`)
	fallbackPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b([A-Z]{2,5})\.(?:V|TO|CN)\b`),
		regexp.MustCompile(`(?i)\b(?:ticker|symbol)[:\s]*([A-Z0-9.\-]+)\b`),
	}
	whitespaceRun = regexp.MustCompile(`\s+`)
)

var canadianExchanges = []string{"TSE", "TSX", "TSXV", "CVE", "CSE", "CNSX", "NEO"}

// extractName returns the first selector match whose cleaned text is longer
// than two characters.
func extractName(doc *goquery.Document) string {
	for _, selector := range nameSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		var name string
		if goquery.NodeName(sel) == "meta" {
			name = sel.AttrOr("content", "")
		} else {
			name = sel.Text()
		}
		name = strings.TrimSpace(whitespaceRun.ReplaceAllString(name, " "))
		for _, expr := range nameCleanup {
			name = expr.ReplaceAllString(name, "")
		}
		if len(name) > 2 {
			return name
		}
	}
	return ""
}

// extractTicker tries, in order: symbol text patterns, bold exchange:ticker
// labels, symbol/ticker table rows and loose ticker-looking text.
func extractTicker(doc *goquery.Document) (ticker, exchange string) {
	pageText := doc.Text()

	for _, expr := range symbolPatterns {
		match := expr.FindStringSubmatch(pageText)
		if match == nil {
			continue
		}
		if len(match) == 3 {
			return match[2], match[1]
		}
		return match[1], ""
	}

	doc.Find("b, strong").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		match := exchangeTicker.FindStringSubmatch(strings.TrimSpace(sel.Text()))
		if match != nil && slices.Contains(canadianExchanges, match[1]) {
			exchange, ticker = match[1], match[2]
			return false
		}
		return true
	})
	if ticker != "" {
		return ticker, exchange
	}

	doc.Find("table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return true
		}
		label := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		if !strings.Contains(label, "symbol") && !strings.Contains(label, "ticker") {
			return true
		}
		value := strings.ReplaceAll(strings.TrimSpace(cells.Eq(1).Text()), "**", "")
		value = strings.TrimSpace(currencyTail.ReplaceAllString(value, ""))
		if match := exchangeTicker.FindStringSubmatch(value); match != nil {
			exchange, ticker = match[1], match[2]
		} else {
			ticker = value
		}
		return false
	})
	if ticker != "" {
		return ticker, exchange
	}

	for _, expr := range fallbackPatterns {
		if match := expr.FindStringSubmatch(pageText); match != nil {
			return match[1], ""
		}
	}
	return "", ""
}
