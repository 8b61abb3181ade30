package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"

	"github.com/franz/manga-mirror/internal/engine"
	"github.com/franz/manga-mirror/internal/util"
)

const (
	// DefaultBaseURL is the series catalog root
	DefaultBaseURL = "https://www.mangaread.org/manga/"

	// requestInterval is the minimum spacing between requests. The
	// orchestrator adds its own per-chapter delays on top; this floor
	// only protects against hammering when those are disabled.
	requestInterval = 500 * time.Millisecond

	// maxImageSize caps a single panel download
	maxImageSize = 32 << 20
)

// Client fetches series pages, chapter pages and panel images. The
// site sits behind Cloudflare, so the transport carries the bypass
// headers and a browser user agent.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	retry       *util.RetryConfig
	lastRequest time.Time
}

var _ engine.Source = (*Client)(nil)

// NewClient creates a Client for the given catalog root. An empty
// baseURL selects DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	transport := cloudflarebp.AddCloudFlareByPass(&http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		ForceAttemptHTTP2:   true,
	})

	return &Client{
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
		baseURL:     baseURL,
		userAgent:   browser.Chrome(),
		retry:       util.DefaultRetryConfig(),
		lastRequest: time.Now().Add(-requestInterval),
	}
}

// SeriesURL returns the canonical page URL for a series slug
func (c *Client) SeriesURL(slug string) string {
	return c.baseURL + strings.Trim(slug, "/") + "/"
}

// ListChapters fetches the series page and returns every advertised
// chapter, oldest first.
func (c *Client) ListChapters(ctx context.Context, slug string) ([]engine.ChapterRef, error) {
	pageURL := c.SeriesURL(slug)

	body, err := util.RetryWithBackoff(c.retry, func() ([]byte, error) {
		return c.fetchPage(ctx, pageURL)
	}, "series page "+slug)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrFetch, err)
	}

	refs, err := parseChapterList(bytes.NewReader(body), pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse series page: %v", util.ErrFetch, err)
	}

	util.DebugLog("Source: %s lists %d chapters", slug, len(refs))
	return refs, nil
}

// FetchChapterPanels fetches a chapter page and returns its panel image
// URLs in reading order.
func (c *Client) FetchChapterPanels(ctx context.Context, chapterURL string) ([]string, error) {
	body, err := util.RetryWithBackoff(c.retry, func() ([]byte, error) {
		return c.fetchPage(ctx, chapterURL)
	}, "chapter page")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrFetch, err)
	}

	urls, err := parsePanelImages(bytes.NewReader(body), chapterURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse chapter page: %v", util.ErrFetch, err)
	}

	return urls, nil
}

// FetchImage downloads one panel. The Referer header matters: the CDN
// rejects requests that don't look like they came from the reader.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	data, err := util.RetryWithBackoff(c.retry, func() ([]byte, error) {
		return c.get(ctx, imageURL, c.baseURL, maxImageSize)
	}, "panel image")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrFetch, err)
	}
	return data, nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	return c.get(ctx, pageURL, "", 8<<20)
}

func (c *Client) get(ctx context.Context, target, referer string, limit int64) ([]byte, error) {
	c.waitForInterval()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	util.DebugLog("GET %s", target)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s returned status %d", target, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// waitForInterval enforces the request spacing floor
func (c *Client) waitForInterval() {
	elapsed := time.Since(c.lastRequest)
	if elapsed < requestInterval {
		time.Sleep(requestInterval - elapsed)
	}
	c.lastRequest = time.Now()
}
