package resolve

import (
	"goldmap/internal/company"
	"goldmap/internal/normalize"
)

// Index holds lookup tables over the fetched external records.
type Index struct {
	rules      normalize.RuleSet
	byTicker   map[string]company.Record
	byName     map[string]company.Record
	candidates []candidate
	collisions int
}

// candidate is a fuzzy-match target: a record and its normalized canonical
// name, kept in enumeration order.
type candidate struct {
	record company.Record
	key    string
}

// BuildIndex indexes records by normalized ticker and by normalized name and
// alias. Later records overwrite earlier ones on key collisions.
func BuildIndex(records []company.Record, rules normalize.RuleSet) *Index {
	ix := &Index{
		rules:      rules,
		byTicker:   make(map[string]company.Record, len(records)),
		byName:     make(map[string]company.Record, len(records)*2),
		candidates: make([]candidate, 0, len(records)),
	}
	for _, rec := range records {
		if key := normalize.Ticker(rec.Ticker); key != "" {
			ix.put(ix.byTicker, key, rec)
		}
	}
	for _, rec := range records {
		nameKey := normalize.Name(rec.Name, rules)
		ix.candidates = append(ix.candidates, candidate{record: rec, key: nameKey})
		if nameKey != "" {
			ix.put(ix.byName, nameKey, rec)
		}
		for _, alias := range rec.Aliases {
			if key := normalize.Name(alias, rules); key != "" && key != nameKey {
				ix.put(ix.byName, key, rec)
			}
		}
	}
	return ix
}

func (ix *Index) put(table map[string]company.Record, key string, rec company.Record) {
	if prev, ok := table[key]; ok && prev.ExternalID != rec.ExternalID {
		ix.collisions++
	}
	table[key] = rec
}

// Rules returns the name rule set the index was built with.
func (ix *Index) Rules() normalize.RuleSet {
	return ix.rules
}

// ByTicker looks up a normalized ticker.
func (ix *Index) ByTicker(key string) (company.Record, bool) {
	rec, ok := ix.byTicker[key]
	return rec, ok
}

// ByName looks up a normalized name or alias.
func (ix *Index) ByName(key string) (company.Record, bool) {
	rec, ok := ix.byName[key]
	return rec, ok
}

// Records returns the number of indexed records.
func (ix *Index) Records() int {
	return len(ix.candidates)
}

// Sizes returns the number of ticker and name keys.
func (ix *Index) Sizes() (tickers, names int) {
	return len(ix.byTicker), len(ix.byName)
}

// Collisions returns how many keys were overwritten by a different record.
func (ix *Index) Collisions() int {
	return ix.collisions
}
