package logging

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

// infoHighlightKeys are shown first, in this order, on info-level console lines.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"error",
	FieldErrorHint,
	FieldImpact,
	FieldExternalID,
	"company_name",
	"goldstock_name",
	"match_method",
	"confidence_score",
	"processed",
	"total",
	"matched",
	"manual",
	"unmatched",
	"records",
	"negatives",
	"rate_per_sec",
	"elapsed",
}

// selectInfoFields returns formatted info-level fields and a count of hidden
// entries. A limit of zero means no limit.
func selectInfoFields(attrs []kv, limit int) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, infoAttrLimit)
	hidden := 0

	add := func(idx int) {
		used[idx] = true
		attr := attrs[idx]
		if skipInfoKey(attr.key) {
			return
		}
		if isDebugOnlyKey(attr.key) {
			hidden++
			return
		}
		value := formatValueForKey(attr.key, attr.value)
		if limit > 0 && len(result) >= limit {
			hidden++
			return
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: value})
	}

	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				add(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			add(idx)
		}
	}
	return result, hidden
}

// formatValueForKey renders info-line values: booleans as yes/no, durations
// rounded to a readable precision, *_percent floats with one decimal, and
// long errors cut at 200 bytes.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case v.Kind() == slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	case v.Kind() == slog.KindDuration:
		d := v.Duration()
		precision := time.Second
		if d < time.Second {
			precision = time.Millisecond
		} else if d < time.Minute {
			precision = 100 * time.Millisecond
		}
		return d.Round(precision).String()
	case v.Kind() == slog.KindFloat64 && strings.HasSuffix(key, "_percent"):
		return fmt.Sprintf("%.1f%%", v.Float64())
	case key == "error":
		const maxLen = 200
		msg := strings.TrimSpace(formatValue(v))
		if len(msg) > maxLen {
			msg = msg[:maxLen] + "…"
		}
		return msg
	default:
		return formatValue(v)
	}
}

// skipInfoKey reports keys already rendered in the header.
func skipInfoKey(key string) bool {
	return key == "" || key == FieldComponent || key == FieldRunID || key == FieldCompanyID
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case "url", "user_agent", "aliases":
		return true
	}
	return strings.HasSuffix(key, "_path")
}

var displayLabels = map[string]string{
	FieldAlert:         "Alert",
	FieldEventType:     "Event",
	FieldErrorHint:     "Hint",
	FieldExternalID:    "Goldstock ID",
	"goldstock_name":   "Goldstock",
	"company_name":     "Company",
	"match_method":     "Method",
	"confidence_score": "Confidence",
	"rate_per_sec":     "Rate/s",
}

// displayLabel maps a key to its console label; unknown snake_case keys are
// title-cased word by word.
func displayLabel(key string) string {
	if label, ok := displayLabels[key]; ok {
		return label
	}
	words := strings.FieldsFunc(strings.ToLower(key), func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
