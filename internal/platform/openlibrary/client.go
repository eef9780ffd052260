package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"booklist/internal/platform/cache"
)

const coversURL = "https://covers.openlibrary.org/b/id/%d-L.jpg"

type Options struct {
	BaseURL    string
	UserAgent  string
	RPS        int
	MaxRetries int

	// Timeout caps one Search call including retries and backoff.
	Timeout  time.Duration
	Cache    cache.Cache
	CacheTTL time.Duration
}

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
	timeout    time.Duration
	backoff    time.Duration
	cache      cache.Cache
	cacheTTL   time.Duration
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://openlibrary.org"
	}
	if opts.RPS <= 0 {
		opts.RPS = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		userAgent:  opts.UserAgent,
		baseURL:    opts.BaseURL,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(opts.RPS)), 1),
		maxRetries: opts.MaxRetries,
		timeout:    opts.Timeout,
		backoff:    time.Second,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
	}
}

// SearchParams are combined with AND by the search endpoint.
type SearchParams struct {
	Query  string
	Title  string
	Author string
	ISBN   string
}

// Doc is one record of search.json.
type Doc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorNames      []string `json:"author_name"`
	ISBN             []string `json:"isbn"`
	FirstPublishYear int      `json:"first_publish_year"`
	PublishDate      []string `json:"publish_date"`
	Language         []string `json:"language"`
	CoverID          int      `json:"cover_i"`
	NumberOfPages    int      `json:"number_of_pages_median"`
}

// CoverURL returns the large cover image for the doc, or "" if it has none.
func (d Doc) CoverURL() string {
	if d.CoverID <= 0 {
		return ""
	}
	return fmt.Sprintf(coversURL, d.CoverID)
}

// SearchResponse matches search.json
type SearchResponse struct {
	NumFound int   `json:"numFound"`
	Docs     []Doc `json:"docs"`
}

func (c *Client) Search(ctx context.Context, p SearchParams, limit int) (*SearchResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	v := url.Values{}
	if p.Query != "" {
		v.Set("q", p.Query)
	}
	if p.Title != "" {
		v.Set("title", p.Title)
	}
	if p.Author != "" {
		v.Set("author", p.Author)
	}
	if p.ISBN != "" {
		v.Set("isbn", p.ISBN)
	}
	v.Set("fields", "key,title,author_name,isbn,first_publish_year,publish_date,language,cover_i,number_of_pages_median")
	v.Set("limit", strconv.Itoa(limit))

	var res SearchResponse
	if err := c.get(ctx, c.baseURL+"/search.json?"+v.Encode(), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, u string, target any) error {
	if c.cache != nil {
		// A cached body that no longer decodes is refetched and overwritten.
		if b, ok, err := c.cache.Get(ctx, u); err == nil && ok && json.Unmarshal(b, target) == nil {
			return nil
		}
	}

	body, err := c.fetch(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, u, body, c.cacheTTL)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: 1s, 2s, 4s...
			wait := c.backoff * time.Duration(1<<uint(i-1))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retry, err := c.do(ctx, u)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, u string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	return body, false, nil
}
