package goldstock_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldmap/internal/goldstock"
)

func newServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T, baseURL string) *goldstock.Client {
	t.Helper()
	client, err := goldstock.New(baseURL, goldstock.WithPoliteness(0, 0))
	require.NoError(t, err)
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := goldstock.New("  ")
	require.Error(t, err)
}

func TestFetchExtractsNameTickerAndAliases(t *testing.T) {
	server := newServer(t, map[string]string{
		"/company/1470-": `<html><head><title>Aya Gold &amp; Silver Inc. | Goldstock Data</title></head>
<body><h1 class="company-name">Aya Gold &amp; Silver Inc.</h1><p>Symbol: TSX:AYA</p></body></html>`,
	})
	client := newClient(t, server.URL)

	rec, err := client.Fetch(context.Background(), 1470)
	require.NoError(t, err)
	assert.Equal(t, "1470", rec.ExternalID)
	assert.Equal(t, "Aya Gold & Silver Inc.", rec.Name)
	assert.Equal(t, "AYA", rec.Ticker)
	assert.Equal(t, "TSX", rec.Exchange)
	assert.Equal(t, []string{"AGSI", "Aya Gold & Silver Inc.", "Aya Gold and Silver Inc."}, rec.Aliases)
}

func TestFetchNameFallbacks(t *testing.T) {
	server := newServer(t, map[string]string{
		"/company/1-": `<html><head><title>Probe Gold Inc | Goldstock Data</title></head><body></body></html>`,
		"/company/2-": `<html><head><meta property="og:title" content="Osisko Mining - Company Profile"></head><body></body></html>`,
		"/company/3-": `<html><head><title>Real Name Corp</title></head><body><h1>AB</h1></body></html>`,
	})
	client := newClient(t, server.URL)

	for id, want := range map[int]string{1: "Probe Gold Inc", 2: "Osisko Mining", 3: "Real Name Corp"} {
		rec, err := client.Fetch(context.Background(), id)
		require.NoError(t, err, "id %d", id)
		assert.Equal(t, want, rec.Name, "id %d", id)
	}
}

func TestFetchTickerStrategies(t *testing.T) {
	server := newServer(t, map[string]string{
		"/company/1-": `<html><body><h1>Bold Corp</h1><p>Listed on<b>TSXV:ABC</b></p></body></html>`,
		"/company/2-": `<html><body><h1>Table Corp</h1><table><tr><td>Ticker</td><td>**XYZ** Currency CAD</td></tr></table></body></html>`,
		"/company/3-": `<html><body><h1>Loose Corp</h1><p>Trades as QRS.V on the venture exchange</p></body></html>`,
		"/company/4-": `<html><body><h1>Private Corp</h1><p>Not listed</p></body></html>`,
	})
	client := newClient(t, server.URL)

	tests := []struct {
		id       int
		ticker   string
		exchange string
	}{
		{1, "ABC", "TSXV"},
		{2, "XYZ", ""},
		{3, "QRS", ""},
		{4, "", ""},
	}
	for _, tt := range tests {
		rec, err := client.Fetch(context.Background(), tt.id)
		require.NoError(t, err, "id %d", tt.id)
		assert.Equal(t, tt.ticker, rec.Ticker, "id %d", tt.id)
		assert.Equal(t, tt.exchange, rec.Exchange, "id %d", tt.id)
	}
}

func TestFetchNotFound(t *testing.T) {
	server := newServer(t, map[string]string{
		"/company/5-": `<html><body><p>nothing here</p></body></html>`,
	})
	client := newClient(t, server.URL)

	_, err := client.Fetch(context.Background(), 404)
	assert.ErrorIs(t, err, goldstock.ErrNotFound)

	_, err = client.Fetch(context.Background(), 5)
	assert.ErrorIs(t, err, goldstock.ErrNotFound, "page without a name is a confirmed absence")
}

func TestFetchServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	client := newClient(t, server.URL)

	_, err := client.Fetch(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, goldstock.ErrNotFound))
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var agent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`<h1>Header Check Inc</h1>`))
	}))
	t.Cleanup(server.Close)

	client, err := goldstock.New(server.URL, goldstock.WithPoliteness(0, 0), goldstock.WithUserAgent("goldmap-test"))
	require.NoError(t, err)
	_, err = client.Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "goldmap-test", agent.Load())
}

func TestFetchHonorsCancellationDuringDelay(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(server.Close)

	client, err := goldstock.New(server.URL, goldstock.WithPoliteness(time.Hour, time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Fetch(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hits.Load())
}

func TestVerifyLogo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead && r.URL.Path == "/images/logos/8.jpg" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)
	client := newClient(t, server.URL)

	assert.True(t, client.VerifyLogo(context.Background(), "8"))
	assert.False(t, client.VerifyLogo(context.Background(), "9"))
	assert.False(t, client.VerifyLogo(context.Background(), ""))
}

func TestCompanyURL(t *testing.T) {
	client := newClient(t, "https://example.com/")
	assert.Equal(t, "https://example.com/company/42-", client.CompanyURL(42))
}
