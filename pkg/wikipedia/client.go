// Package wikipedia is the article source adapter. It talks to the Wikipedia
// REST and action APIs, normalizes responses into the canonical article shape
// and shields callers from upstream flakiness with a throttle and a single
// retry-with-backoff policy.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"

	"github.com/wikiflow/wikiflow/pkg/domain"
)

// Config holds adapter settings
type Config struct {
	BaseURL   string // endpoint template, {lang} is replaced by the language code
	UserAgent string
	Timeout   time.Duration
	Throttle  time.Duration // minimum spacing between upstream requests
	Attempts  int           // retry attempts per request
	BaseDelay time.Duration // initial retry delay, doubled per attempt
}

// Client fetches and normalizes Wikipedia articles
type Client struct {
	client    *http.Client
	userAgent string
	baseURL   string
	limiter   *rate.Limiter
	sanitizer *bluemonday.Policy
	attempts  int
	baseDelay time.Duration
}

// New creates an adapter client
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://{lang}.wikipedia.org"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Wikiflow/1.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Throttle == 0 {
		cfg.Throttle = 300 * time.Millisecond
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: cfg.UserAgent,
		baseURL:   cfg.BaseURL,
		limiter:   rate.NewLimiter(rate.Every(cfg.Throttle), 1),
		sanitizer: bluemonday.StrictPolicy(),
		attempts:  cfg.Attempts,
		baseDelay: cfg.BaseDelay,
	}
}

// pageSummary mirrors the REST summary endpoint response
type pageSummary struct {
	PageID      int64  `json:"pageid"`
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ExtractHTML string `json:"extract_html"`
	Lang        string `json:"lang"`
	Timestamp   string `json:"timestamp"`
	Type        string `json:"type"`
	Thumbnail   *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	OriginalImage *struct {
		Source string `json:"source"`
	} `json:"originalimage"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// FetchRandom retrieves one random article summary
func (c *Client) FetchRandom(ctx context.Context, language string) (*domain.Article, error) {
	var summary pageSummary
	endpoint := c.endpoint(language, "/api/rest_v1/page/random/summary")
	if err := c.getJSON(ctx, endpoint, &summary); err != nil {
		return nil, fmt.Errorf("fetch random article: %w", err)
	}
	return c.normalize(summary, language), nil
}

// FetchByID retrieves one article summary by its title-based id
func (c *Client) FetchByID(ctx context.Context, id, language string) (*domain.Article, error) {
	var summary pageSummary
	endpoint := c.endpoint(language, "/api/rest_v1/page/summary/"+url.PathEscape(id))
	if err := c.getJSON(ctx, endpoint, &summary); err != nil {
		return nil, fmt.Errorf("fetch article %q: %w", id, err)
	}
	return c.normalize(summary, language), nil
}

// FetchCategories retrieves the non-hidden categories of an article
func (c *Client) FetchCategories(ctx context.Context, id, language string) ([]string, error) {
	params := url.Values{
		"action":  {"query"},
		"titles":  {id},
		"prop":    {"categories"},
		"clshow":  {"!hidden"},
		"cllimit": {"20"},
		"format":  {"json"},
	}
	endpoint := c.endpoint(language, "/w/api.php?"+params.Encode())

	var resp struct {
		Query struct {
			Pages map[string]struct {
				Categories []struct {
					Title string `json:"title"`
				} `json:"categories"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch categories for %q: %w", id, err)
	}

	var categories []string
	for _, page := range resp.Query.Pages {
		for _, cat := range page.Categories {
			categories = append(categories, cat.Title)
		}
	}
	return categories, nil
}

// SearchByCategory retrieves up to limit member articles of a category
func (c *Client) SearchByCategory(ctx context.Context, category, language string, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		limit = 2
	}
	title := category
	if !strings.HasPrefix(strings.ToLower(title), "category:") {
		title = "Category:" + title
	}
	params := url.Values{
		"action":  {"query"},
		"list":    {"categorymembers"},
		"cmtitle": {title},
		"cmtype":  {"page"},
		"cmlimit": {strconv.Itoa(limit * 2)}, // fetch extra, some members fail validation later
		"format":  {"json"},
	}
	endpoint := c.endpoint(language, "/w/api.php?"+params.Encode())

	var resp struct {
		Query struct {
			CategoryMembers []struct {
				Title string `json:"title"`
			} `json:"categorymembers"`
		} `json:"query"`
	}
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("search category %q: %w", category, err)
	}

	articles := make([]domain.Article, 0, limit)
	for _, member := range resp.Query.CategoryMembers {
		if len(articles) >= limit {
			break
		}
		article, err := c.FetchByID(ctx, member.Title, language)
		if err != nil {
			continue // degrade to fewer results
		}
		articles = append(articles, *article)
	}
	return articles, nil
}

// FetchFeatured retrieves the most-read articles of the day, used as the
// generic fallback pool when personalized signal is insufficient
func (c *Client) FetchFeatured(ctx context.Context, language string, limit int) ([]domain.Article, error) {
	now := time.Now().UTC()
	endpoint := c.endpoint(language, fmt.Sprintf("/api/rest_v1/feed/featured/%04d/%02d/%02d",
		now.Year(), now.Month(), now.Day()))

	var resp struct {
		TFA      *pageSummary `json:"tfa"`
		MostRead *struct {
			Articles []pageSummary `json:"articles"`
		} `json:"mostread"`
	}
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch featured feed: %w", err)
	}

	var articles []domain.Article
	if resp.TFA != nil {
		articles = append(articles, *c.normalize(*resp.TFA, language))
	}
	if resp.MostRead != nil {
		for _, summary := range resp.MostRead.Articles {
			if limit > 0 && len(articles) >= limit {
				break
			}
			articles = append(articles, *c.normalize(summary, language))
		}
	}
	return articles, nil
}

// normalize converts an upstream summary into the canonical article shape
func (c *Client) normalize(s pageSummary, language string) *domain.Article {
	excerpt := strings.TrimSpace(s.Extract)
	if excerpt == "" && s.ExtractHTML != "" {
		excerpt = strings.TrimSpace(html.UnescapeString(c.sanitizer.Sanitize(s.ExtractHTML)))
	}

	article := &domain.Article{
		ID:           strconv.FormatInt(s.PageID, 10),
		Title:        s.Title,
		Excerpt:      excerpt,
		Content:      excerpt,
		Language:     language,
		URL:          s.ContentURLs.Desktop.Page,
		LastModified: s.Timestamp,
	}
	if s.Lang != "" {
		article.Language = s.Lang
	}
	if s.Thumbnail != nil {
		article.Thumbnail = s.Thumbnail.Source
	}
	if s.OriginalImage != nil {
		article.ImageURL = s.OriginalImage.Source
	}
	article.ImagePending = !article.HasImage()
	return article
}

// getJSON performs one throttled GET with the canonical retry policy
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	retrier := repeater.NewBackoff(c.attempts, c.baseDelay)

	return retrier.Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("request %s: %w", endpoint, err)
		}
		defer resp.Body.Close() //nolint:errcheck // read-only body

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

func (c *Client) endpoint(language, path string) string {
	return strings.ReplaceAll(c.baseURL, "{lang}", language) + path
}
