// Package kicktipp is a thin client for the live prediction platform. It
// reads submitted values and raw evidence pages; all decisions about them
// live elsewhere.
package kicktipp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/predictops/tipsync/internal/model"
	"github.com/predictops/tipsync/internal/retry"
)

// Default base URL of the platform.
const defaultBaseURL = "https://www.kicktipp.de"

// Client defines the platform operations used by the pipeline.
type Client interface {
	// GetSubmittedValues returns entityKey -> currently submitted value
	// for the scope. Entities with an empty submission are omitted.
	GetSubmittedValues(ctx context.Context, scope string) (map[string]model.PredictionValue, error)

	// FetchPage returns the raw body of a scope-relative page, used by
	// the capture cycle as document source material.
	FetchPage(ctx context.Context, scope, page string) (string, error)
}

// APIError is returned when the platform responds with a non-2xx status.
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kicktipp: HTTP %d: %s", e.StatusCode, e.URL)
}

// Transient marks rate limiting and server-side failures as retryable.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetries overrides the retry policy for platform requests.
func WithRetries(p retry.Policy) Option {
	return func(c *httpClient) {
		c.retries = p
	}
}

// WithRateLimit caps requests per second against the platform.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

// httpClient implements Client using net/http and goquery.
type httpClient struct {
	loginToken string
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	retries    retry.Policy
}

// NewClient creates a new platform client.
func NewClient(loginToken string, opts ...Option) Client {
	c := &httpClient{
		loginToken: loginToken,
		baseURL:    defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		retries: retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) GetSubmittedValues(ctx context.Context, scope string) (map[string]model.PredictionValue, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/%s/tippabgabe", c.baseURL, scope))
	if err != nil {
		return nil, err
	}
	return parseSubmittedValues(body)
}

func (c *httpClient) FetchPage(ctx context.Context, scope, page string) (string, error) {
	return c.get(ctx, fmt.Sprintf("%s/%s/%s", c.baseURL, scope, strings.TrimLeft(page, "/")))
}

func (c *httpClient) get(ctx context.Context, url string) (string, error) {
	return retry.Do(ctx, c.retries, func(ctx context.Context) (string, error) {
		return c.getOnce(ctx, url)
	})
}

func (c *httpClient) getOnce(ctx context.Context, url string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "kicktipp: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrapf(err, "kicktipp: build request %s", url)
	}
	if c.loginToken != "" {
		req.AddCookie(&http.Cookie{Name: "login", Value: c.loginToken})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", model.WrapUnavailable(err, fmt.Sprintf("kicktipp: GET %s", url))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, URL: url}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", model.WrapUnavailable(err, fmt.Sprintf("kicktipp: read %s", url))
	}
	return string(data), nil
}

// parseSubmittedValues reads the submission form. Match rows carry the
// score in the heimTipp/gastTipp cells, bonus rows carry selected option
// ids; rows with an empty submission are skipped.
func parseSubmittedValues(html string) (map[string]model.PredictionValue, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "kicktipp: parse submission page")
	}

	out := make(map[string]model.PredictionValue)

	doc.Find("tr.tipp-row").Each(func(_ int, row *goquery.Selection) {
		key, ok := row.Attr("data-entity")
		if !ok {
			return
		}
		homeText := strings.TrimSpace(row.Find("td.heimTipp").Text())
		awayText := strings.TrimSpace(row.Find("td.gastTipp").Text())
		if homeText == "" || awayText == "" {
			return
		}
		home, err1 := strconv.Atoi(homeText)
		away, err2 := strconv.Atoi(awayText)
		if err1 != nil || err2 != nil {
			return
		}
		out[key] = model.Score{Home: home, Away: away}
	})

	doc.Find("tr.bonus-row").Each(func(_ int, row *goquery.Selection) {
		key, ok := row.Attr("data-entity")
		if !ok {
			return
		}
		var options []string
		row.Find("span.option").Each(func(_ int, opt *goquery.Selection) {
			if id, ok := opt.Attr("data-id"); ok {
				options = append(options, id)
			}
		})
		if len(options) == 0 {
			return
		}
		out[key] = model.Selection{Options: options}
	})

	return out, nil
}
