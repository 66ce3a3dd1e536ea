package company

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntitiesHandlesNullTickerAndLimit(t *testing.T) {
	data := []byte(`[
		{"company_id": 10, "company_name": "Agnico Eagle Mines Ltd", "tsx_code": "TSX:AEM"},
		{"company_id": 11, "company_name": " Probe Gold Inc. ", "tsx_code": null},
		{"company_id": 12, "company_name": "Aura Minerals Inc."}
	]`)

	entities, rejected, err := ParseEntities(data, 2)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Empty(t, rejected)

	assert.Equal(t, "TSX:AEM", entities[0].TickerValue())
	assert.Equal(t, "Probe Gold Inc.", entities[1].Name)
	assert.Nil(t, entities[1].Ticker)
	assert.Equal(t, "", entities[1].TickerValue())
}

func TestParseEntitiesSkipsInvalidRows(t *testing.T) {
	data := []byte(`[
		{"company_id": 1, "company_name": "Abcourt Mines Inc"},
		{"company_id": 1, "company_name": "Abcourt Again"},
		{"company_id": 2, "company_name": "  "},
		{"company_id": 3, "company_name": "Probe Gold Inc."}
	]`)

	entities, rejected, err := ParseEntities(data, 0)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "Abcourt Mines Inc", entities[0].Name, "first row for an id wins")
	assert.Equal(t, 3, entities[1].ID)

	require.Len(t, rejected, 2)
	assert.Equal(t, 1, rejected[0].Index)
	assert.ErrorIs(t, rejected[0], ErrDuplicateID)
	assert.Equal(t, 2, rejected[1].ID)
	assert.ErrorIs(t, rejected[1], ErrMissingName)
	assert.Contains(t, rejected[1].Error(), "index 2")
}

func TestParseEntitiesRejectsMalformedDocument(t *testing.T) {
	_, _, err := ParseEntities([]byte(`{"company_id":1}`), 0)
	assert.Error(t, err)
}

func TestLoadEntitiesMissingFile(t *testing.T) {
	_, _, err := LoadEntities(filepath.Join(t.TempDir(), "absent.json"), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMappingConstructorsKeepInvariants(t *testing.T) {
	ticker := "CVE:ABC"
	entity := Entity{ID: 7, Name: "Abc Gold Corp", Ticker: &ticker}

	unmatched := Unmatched(entity)
	assert.True(t, unmatched.Consistent())
	assert.Equal(t, MethodNone, unmatched.Method)
	assert.Nil(t, unmatched.ExternalID)

	matched := Matched(entity, "42", "ABC Gold Corp", StatusMatched, 100, MethodExactTicker)
	assert.True(t, matched.Consistent())
	require.NotNil(t, matched.ExternalID)
	assert.Equal(t, "42", *matched.ExternalID)

	broken := matched
	broken.Confidence = 0
	assert.False(t, broken.Consistent())
}

func TestRecordWithAliasesIncludesNameOnce(t *testing.T) {
	rec := Record{ExternalID: "1", Name: "Aya Gold & Silver Inc.", Aliases: []string{"AGSI"}}
	got := rec.WithAliases("Aya Gold and Silver Inc.", "AGSI", "")

	assert.Equal(t, []string{"AGSI", "Aya Gold & Silver Inc.", "Aya Gold and Silver Inc."}, got.Aliases)
	assert.Equal(t, []string{"AGSI"}, rec.Aliases, "receiver must not be mutated")
}

func TestCount(t *testing.T) {
	entity := Entity{ID: 1, Name: "x"}
	tally := Count([]Mapping{
		Matched(entity, "1", "x", StatusMatched, 100, MethodExactTicker),
		Matched(entity, "2", "y", StatusManual, 75, MethodFuzzyName),
		Unmatched(entity),
		Unmatched(entity),
	})
	assert.Equal(t, Tally{Matched: 1, Manual: 1, Unmatched: 2}, tally)
	assert.Equal(t, 4, tally.Total())
}
