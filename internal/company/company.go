package company

import (
	"sort"
	"strings"
)

// Entity is a company from the internal source list that needs an external identifier.
type Entity struct {
	ID     int     `json:"company_id"`
	Name   string  `json:"company_name"`
	Ticker *string `json:"tsx_code"`
}

// TickerValue returns the ticker or an empty string when absent.
func (e Entity) TickerValue() string {
	if e.Ticker == nil {
		return ""
	}
	return *e.Ticker
}

// Record is a company page fetched from the external provider.
type Record struct {
	ExternalID string   `json:"external_id"`
	Name       string   `json:"name"`
	Ticker     string   `json:"ticker,omitempty"`
	Exchange   string   `json:"exchange,omitempty"`
	Aliases    []string `json:"aliases"`
}

// WithAliases returns a copy whose alias list contains the canonical name and
// every supplied alias once, sorted for stable output.
func (r Record) WithAliases(aliases ...string) Record {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(aliases)+1)
	add := func(value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if _, ok := seen[value]; ok {
			return
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	add(r.Name)
	for _, alias := range r.Aliases {
		add(alias)
	}
	for _, alias := range aliases {
		add(alias)
	}
	sort.Strings(out)
	r.Aliases = out
	return r
}

// Status is the match status written to the output table.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusManual    Status = "manual"
	StatusUnmatched Status = "unmatched"
)

// Method names the tier that produced a mapping.
type Method string

const (
	MethodKnownMapping Method = "known_mapping"
	MethodExactTicker  Method = "exact_ticker"
	MethodExactName    Method = "exact_name"
	MethodFuzzyName    Method = "fuzzy_name"
	MethodNone         Method = "none"
)

// Mapping is the resolution outcome for one internal entity.
type Mapping struct {
	CompanyID    int     `json:"company_id"`
	CompanyName  string  `json:"company_name"`
	TSXCode      *string `json:"tsx_code"`
	ExternalID   *string `json:"goldstock_id"`
	ExternalName *string `json:"goldstock_name"`
	Status       Status  `json:"match_status"`
	Confidence   float64 `json:"confidence_score"`
	Method       Method  `json:"match_method"`
}

// Unmatched builds the outcome for an entity no tier could place.
func Unmatched(entity Entity) Mapping {
	return Mapping{
		CompanyID:   entity.ID,
		CompanyName: entity.Name,
		TSXCode:     entity.Ticker,
		Status:      StatusUnmatched,
		Confidence:  0,
		Method:      MethodNone,
	}
}

// Matched builds an outcome linking entity to an external company.
func Matched(entity Entity, externalID, externalName string, status Status, confidence float64, method Method) Mapping {
	return Mapping{
		CompanyID:    entity.ID,
		CompanyName:  entity.Name,
		TSXCode:      entity.Ticker,
		ExternalID:   &externalID,
		ExternalName: &externalName,
		Status:       status,
		Confidence:   confidence,
		Method:       method,
	}
}

// Consistent reports whether the unmatched invariants hold: a mapping is
// unmatched exactly when it has no external ID, method none and zero confidence.
func (m Mapping) Consistent() bool {
	unmatched := m.Status == StatusUnmatched
	return unmatched == (m.ExternalID == nil) &&
		unmatched == (m.Method == MethodNone) &&
		unmatched == (m.Confidence == 0)
}

// Tally counts mappings per status.
type Tally struct {
	Matched   int `json:"matched"`
	Manual    int `json:"manual"`
	Unmatched int `json:"unmatched"`
}

// Total returns the number of counted mappings.
func (t Tally) Total() int {
	return t.Matched + t.Manual + t.Unmatched
}

// Count tallies the supplied mappings.
func Count(mappings []Mapping) Tally {
	var t Tally
	for _, m := range mappings {
		switch m.Status {
		case StatusMatched:
			t.Matched++
		case StatusManual:
			t.Manual++
		default:
			t.Unmatched++
		}
	}
	return t
}
