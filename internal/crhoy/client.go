package crhoy

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"tico/internal/config"
	"tico/internal/services"
)

const (
	retryBaseDelay = time.Second
	retryMaxDelay  = 10 * time.Second

	// Article pages can be large but are bounded; index days rarely exceed
	// a few hundred KiB.
	maxBodyBytes = 8 << 20
)

// Client accesses the CRHoy index and article endpoints.
type Client struct {
	apiBase    string
	websiteURL string
	userAgent  string
	loc        *time.Location
	maxRetries int

	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetrySleep overrides how retry waits are performed (useful for tests).
func WithRetrySleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient constructs a source client from configuration.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	client := &Client{
		apiBase:    cfg.Source.APIBaseURL,
		websiteURL: cfg.Source.WebsiteURL,
		userAgent:  cfg.Source.UserAgent,
		loc:        cfg.Location(),
		maxRetries: cfg.Downloader.MaxRetries,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Downloader.RequestTimeout) * time.Second,
		},
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// CheckInternet reports whether the host has outbound connectivity by
// dialing a well-known resolver.
func (c *Client) CheckInternet(ctx context.Context, timeout time.Duration) bool {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", "8.8.8.8:53")
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// CheckAPI reports whether the index API responds at all. Any HTTP status
// counts as available; only connection failures count as down.
func (c *Client) CheckAPI(ctx context.Context) bool {
	resp, err := c.head(ctx, c.apiBase)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// CheckWebsite reports whether the article website answers with 200.
func (c *Client) CheckWebsite(ctx context.Context) bool {
	resp, err := c.head(ctx, c.websiteURL)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) head(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	return c.httpClient.Do(req)
}

// FetchDailyIndex downloads and parses the index for one day, returning the
// entries plus the raw JSON for on-disk persistence. A 404 yields an empty
// index.
func (c *Client) FetchDailyIndex(ctx context.Context, day time.Time) ([]IndexEntry, []byte, error) {
	endpoint, err := url.JoinPath(c.apiBase, "ultimas", day.Format("2006-01-02")+".json")
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "crhoy", "index url", "", err)
	}
	endpoint += "?v=3"

	body, status, err := c.getWithRetry(ctx, endpoint)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "crhoy", "fetch index", day.Format("2006-01-02"), err)
	}
	if status == http.StatusNotFound {
		empty := []byte(`{"ultimas": []}`)
		return nil, empty, nil
	}
	if status != http.StatusOK {
		return nil, nil, services.Wrap(services.ErrTransient, "crhoy", "fetch index",
			fmt.Sprintf("%s: http %d", day.Format("2006-01-02"), status), nil)
	}

	entries, err := ParseIndex(body, c.loc)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrParse, "crhoy", "parse index", day.Format("2006-01-02"), err)
	}
	return entries, body, nil
}

// FetchArticle downloads the HTML page for one article URL.
func (c *Client) FetchArticle(ctx context.Context, articleURL string) (string, error) {
	body, status, err := c.getWithRetry(ctx, articleURL)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "crhoy", "fetch article", articleURL, err)
	}
	if status != http.StatusOK {
		return "", services.Wrap(services.ErrTransient, "crhoy", "fetch article",
			fmt.Sprintf("%s: http %d", articleURL, status), nil)
	}
	return string(body), nil
}

// getWithRetry issues a GET with bounded retries. A 404 is returned to the
// caller without retrying; 5xx and network errors back off and retry.
func (c *Client) getWithRetry(ctx context.Context, endpoint string) ([]byte, int, error) {
	attempts := c.maxRetries + 1
	delay := retryBaseDelay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		body, status, err := c.getOnce(ctx, endpoint)
		switch {
		case err == nil && status < http.StatusInternalServerError:
			return body, status, nil
		case err != nil:
			lastErr = err
		default:
			lastErr = fmt.Errorf("http %d", status)
		}

		if attempt == attempts || ctx.Err() != nil {
			break
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, 0, err
		}
		if next := delay * 2; next <= retryMaxDelay {
			delay = next
		}
	}
	return nil, 0, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) getOnce(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
