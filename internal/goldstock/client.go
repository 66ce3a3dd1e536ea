package goldstock

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"goldmap/internal/company"
	"goldmap/internal/normalize"
)

// DefaultBaseURL is the public goldstockdata.com site.
const DefaultBaseURL = "https://www.goldstockdata.com"

// DefaultUserAgent mimics a desktop browser; the site rejects bare clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// ErrNotFound reports a confirmed absence: the page does not exist or names
// no company.
var ErrNotFound = errors.New("goldstock company not found")

var logoExtensions = []string{"png", "jpg", "webp"}

// Client retrieves and parses company pages.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	logoTimeout time.Duration
	minDelay    time.Duration
	maxDelay    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		if agent = strings.TrimSpace(agent); agent != "" {
			c.userAgent = agent
		}
	}
}

// WithPoliteness sets the range of the random delay before each page request.
// A zero range disables the delay.
func WithPoliteness(minDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		if minDelay < 0 {
			minDelay = 0
		}
		if maxDelay < minDelay {
			maxDelay = minDelay
		}
		c.minDelay, c.maxDelay = minDelay, maxDelay
	}
}

// WithLogoTimeout bounds each logo probe.
func WithLogoTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.logoTimeout = timeout
		}
	}
}

// New creates a goldstock client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("goldstock base url required")
	}
	client := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   DefaultUserAgent,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logoTimeout: 5 * time.Second,
		minDelay:    time.Second,
		maxDelay:    2 * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// CompanyURL returns the page URL for an external ID.
func (c *Client) CompanyURL(id int) string {
	return c.baseURL + "/company/" + strconv.Itoa(id) + "-"
}

// Fetch retrieves and parses one company page.
func (c *Client) Fetch(ctx context.Context, id int) (*company.Record, error) {
	if err := c.pause(ctx); err != nil {
		return nil, err
	}
	doc, err := c.fetchDocument(ctx, c.CompanyURL(id))
	if err != nil {
		return nil, fmt.Errorf("company %d: %w", id, err)
	}

	name := extractName(doc)
	if name == "" {
		return nil, fmt.Errorf("company %d: no company name on page: %w", id, ErrNotFound)
	}
	ticker, exchange := extractTicker(doc)

	rec := company.Record{
		ExternalID: strconv.Itoa(id),
		Name:       name,
		Ticker:     ticker,
		Exchange:   exchange,
	}.WithAliases(normalize.Aliases(name)...)
	return &rec, nil
}

// VerifyLogo reports whether a logo image exists for the external ID in any
// of the known formats.
func (c *Client) VerifyLogo(ctx context.Context, externalID string) bool {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return false
	}
	for _, ext := range logoExtensions {
		if c.probe(ctx, fmt.Sprintf("%s/images/logos/%s.%s", c.baseURL, externalID, ext)) {
			return true
		}
	}
	return false
}

func (c *Client) probe(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.logoTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("request document (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("goldstock returned %s (latency=%v)", resp.Status, latency)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// pause waits a random interval in [minDelay, maxDelay], returning early
// with the context error when ctx is cancelled.
func (c *Client) pause(ctx context.Context) error {
	delay := c.minDelay
	if spread := c.maxDelay - c.minDelay; spread > 0 {
		delay += time.Duration(rand.Int64N(int64(spread) + 1))
	}
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
