package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldmap/internal/company"
)

func fixture() []company.Mapping {
	ticker := "TSX:AEM"
	return []company.Mapping{
		company.Matched(company.Entity{ID: 10, Name: "Agnico Eagle Mines Ltd", Ticker: &ticker},
			"8", "Agnico Eagle Mines Ltd", company.StatusMatched, 100, company.MethodKnownMapping),
		company.Matched(company.Entity{ID: 48, Name: "Aya Gold, Silver"},
			"1470", "Aya Gold & Silver Inc.", company.StatusManual, 78, company.MethodFuzzyName),
		company.Unmatched(company.Entity{ID: 99, Name: "Nowhere Corp"}),
	}
}

func TestWriteProducesFixedColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, fixture()))

	want := "company_id,company_name,tsx_code,goldstock_id,goldstock_name,match_status,confidence_score,match_method\n" +
		"10,Agnico Eagle Mines Ltd,TSX:AEM,8,Agnico Eagle Mines Ltd,matched,100,known_mapping\n" +
		"48,\"Aya Gold, Silver\",,1470,Aya Gold & Silver Inc.,manual,78,fuzzy_name\n" +
		"99,Nowhere Corp,,,,unmatched,0,none\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVRewritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "mappings.csv")
	require.NoError(t, WriteCSV(path, fixture()))
	require.NoError(t, WriteCSV(path, fixture()[:1]))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Columns, rows[0])
}

func TestEmptyTableHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))
	assert.Equal(t, "company_id,company_name,tsx_code,goldstock_id,goldstock_name,match_status,confidence_score,match_method\n", buf.String())
}

func TestFormatConfidence(t *testing.T) {
	assert.Equal(t, "100", FormatConfidence(100))
	assert.Equal(t, "0", FormatConfidence(0))
	assert.Equal(t, "87.5", FormatConfidence(87.5))
}
