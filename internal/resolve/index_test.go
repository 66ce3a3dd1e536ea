package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldmap/internal/company"
	"goldmap/internal/normalize"
)

func record(id, name, ticker string) company.Record {
	return company.Record{ExternalID: id, Name: name, Ticker: ticker}.WithAliases(normalize.Aliases(name)...)
}

func TestBuildIndexTickerAndNameKeys(t *testing.T) {
	ix := BuildIndex([]company.Record{
		record("8", "Agnico Eagle Mines Ltd", "AEM.TO"),
		record("1470", "Aya Gold & Silver Inc.", ""),
	}, normalize.Extended)

	rec, ok := ix.ByTicker("AEM")
	require.True(t, ok)
	assert.Equal(t, "8", rec.ExternalID)

	for _, key := range []string{"agnico eagle", "aya gold", "agsi", "aya gold and"} {
		_, ok := ix.ByName(key)
		assert.True(t, ok, "key %q", key)
	}
	tickers, _ := ix.Sizes()
	assert.Equal(t, 1, tickers)
	assert.Equal(t, 2, ix.Records())
	assert.Zero(t, ix.Collisions())
}

func TestBuildIndexLastWriterWins(t *testing.T) {
	ix := BuildIndex([]company.Record{
		record("5", "Nova Gold Corp", "NVG"),
		record("6", "Nova Gold Corp", "NVG.V"),
	}, normalize.Strict)

	rec, ok := ix.ByName("nova")
	require.True(t, ok)
	assert.Equal(t, "6", rec.ExternalID)
	rec, ok = ix.ByTicker("NVG")
	require.True(t, ok)
	assert.Equal(t, "6", rec.ExternalID)
	assert.Positive(t, ix.Collisions())
}

func TestIndexKeysResolveToMatchingRecords(t *testing.T) {
	records := []company.Record{
		record("1", "Abcourt Mines Inc", "TSXV:ABI"),
		record("2", "Osisko Development (ODV) Corp", "ODV.V"),
		record("3", "Smith and Jones Exploration", ""),
		record("4", "Société Minière Ltd", "SMX-T"),
	}
	for _, rules := range []normalize.RuleSet{normalize.Strict, normalize.Extended} {
		ix := BuildIndex(records, rules)
		for key, rec := range ix.byTicker {
			assert.Equal(t, key, normalize.Ticker(rec.Ticker))
		}
		for key, rec := range ix.byName {
			found := normalize.Name(rec.Name, rules) == key
			for _, alias := range rec.Aliases {
				found = found || normalize.Name(alias, rules) == key
			}
			assert.True(t, found, "key %q -> record %q", key, rec.Name)
		}
	}
}
