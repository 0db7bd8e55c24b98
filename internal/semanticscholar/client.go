// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package semanticscholar looks up paper abstracts on the Semantic
// Scholar Graph API by DOI.
package semanticscholar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pdiddy/journal-engine/pkg/types"
)

// DefaultRequestsPerSecond matches the unauthenticated Semantic
// Scholar allowance. Keys raise the limit; configure accordingly.
const DefaultRequestsPerSecond = 1.0

var (
	apiBase       = "https://api.semanticscholar.org"
	retryWaitTime = 500 * time.Millisecond
)

// ErrPaperNotFound reports a DOI the Graph API has no record for.
var ErrPaperNotFound = errors.New("paper not found")

// Client is a rate-limited Semantic Scholar Graph API client.
type Client struct {
	client  *resty.Client
	limiter *rate.Limiter
	log     *logrus.Entry
}

// NewClient builds a Client from config. Transient upstream failures
// (429, 5xx, transport errors) are retried; every request first waits
// on the rate limiter so bulk enrichment stays inside the API's
// request budget.
func NewClient(cfg types.SemanticScholarConfig, log *logrus.Entry) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "journal-engine/0.1"
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(retries).
		SetRetryWaitTime(retryWaitTime).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		}).
		SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
			// A Retry-After hint from the API overrides the backoff;
			// zero falls back to resty's jittered wait.
			if secs, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second, nil
			}
			return 0, nil
		})
	if cfg.APIKey != "" {
		client.SetHeader("x-api-key", cfg.APIKey)
	}

	return &Client{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log,
	}
}

type paperResponse struct {
	PaperID  string `json:"paperId"`
	Abstract string `json:"abstract"`
}

// Abstract fetches the abstract for a DOI. A paper the API knows but
// has no abstract text for returns an empty string without error;
// ErrPaperNotFound reports a DOI the API has never seen.
func (c *Client) Abstract(ctx context.Context, doi string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	var result paperResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("fields", "abstract").
		SetResult(&result).
		Get(fmt.Sprintf("%s/graph/v1/paper/DOI:%s", apiBase, doi))
	if err != nil {
		return "", fmt.Errorf("calling semantic scholar: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusOK:
		return result.Abstract, nil
	case resp.StatusCode() == http.StatusNotFound:
		return "", fmt.Errorf("DOI %s: %w", doi, ErrPaperNotFound)
	default:
		return "", fmt.Errorf("semantic scholar returned HTTP %d", resp.StatusCode())
	}
}
