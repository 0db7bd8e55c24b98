// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crossref fetches journal metadata and paginated works listings
// from the Crossref REST API.
package crossref

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/journal-engine/internal/httputil"
	"github.com/pdiddy/journal-engine/pkg/types"
)

// apiBase is the Crossref REST endpoint. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://api.crossref.org"

// maxRows is the largest page size the works endpoint accepts.
const maxRows = 1000

var (
	// ErrUpstreamUnavailable reports a transient upstream failure that
	// survived the retry budget.
	ErrUpstreamUnavailable = errors.New("crossref unavailable")

	// ErrJournalNotFound reports an ISSN the registry does not know.
	ErrJournalNotFound = errors.New("journal not registered with crossref")
)

// Client pages through Crossref journal works.
type Client struct {
	client     *http.Client
	userAgent  string
	rows       int
	maxRetries int
	pageDelay  time.Duration
	log        *logrus.Entry
}

// NewClient builds a Client from config. A nil httpClient gets a default
// one with the configured timeout. The polite-pool mailto address is
// folded into the User-Agent when present.
func NewClient(httpClient *http.Client, cfg types.CrossrefConfig, log *logrus.Entry) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	rows := cfg.Rows
	if rows <= 0 || rows > maxRows {
		rows = maxRows
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = "journal-engine/0.1"
	}
	if cfg.Mailto != "" {
		ua = fmt.Sprintf("%s (mailto:%s)", ua, cfg.Mailto)
	}

	return &Client{
		client:     httpClient,
		userAgent:  ua,
		rows:       rows,
		maxRetries: cfg.MaxRetries,
		pageDelay:  cfg.PageDelay,
		log:        log,
	}
}

// JournalTitle fetches the registered title for an ISSN.
func (c *Client) JournalTitle(ctx context.Context, issn string) (string, error) {
	reqURL := fmt.Sprintf("%s/journals/%s", apiBase, url.PathEscape(issn))

	var jr journalResponse
	if err := c.getJSON(ctx, reqURL, &jr); err != nil {
		return "", err
	}
	return jr.Message.Title, nil
}

// JournalWorks pages through every work registered for an ISSN and
// returns them in upstream order. Works without a DOI are dropped with a
// warning. On error the returned slice holds the records collected
// before the failure, so callers can report partial progress.
func (c *Client) JournalWorks(ctx context.Context, issn string) ([]types.Paper, error) {
	var papers []types.Paper
	cursor := "*"
	seen := 0

	for page := 1; ; page++ {
		msg, err := c.worksPage(ctx, issn, cursor)
		if err != nil {
			return papers, err
		}

		for _, w := range msg.Items {
			if strings.TrimSpace(w.DOI) == "" {
				c.log.WithFields(logrus.Fields{"issn": issn, "title": firstString(w.Title)}).
					Warn("dropping work without DOI")
				continue
			}
			papers = append(papers, workToPaper(w, issn))
		}
		seen += len(msg.Items)

		c.log.WithFields(logrus.Fields{
			"issn":  issn,
			"page":  page,
			"got":   len(msg.Items),
			"total": msg.TotalResults,
		}).Debug("fetched works page")

		if len(msg.Items) == 0 || seen >= msg.TotalResults || msg.NextCursor == "" {
			return papers, nil
		}
		cursor = msg.NextCursor

		if c.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return papers, ctx.Err()
			case <-time.After(c.pageDelay):
			}
		}
	}
}

// worksPage fetches one page of the works listing.
func (c *Client) worksPage(ctx context.Context, issn, cursor string) (*worksMessage, error) {
	params := url.Values{
		"rows":   {strconv.Itoa(c.rows)},
		"cursor": {cursor},
	}
	reqURL := fmt.Sprintf("%s/journals/%s/works?%s", apiBase, url.PathEscape(issn), params.Encode())

	var wr worksResponse
	if err := c.getJSON(ctx, reqURL, &wr); err != nil {
		return nil, err
	}
	return &wr.Message, nil
}

// getJSON performs a GET through the retry helper and decodes the body.
func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := httputil.DoWithRetry(ctx, c.client, req, c.maxRetries)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrJournalNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		// Retry budget exhausted inside DoWithRetry.
		return fmt.Errorf("%w: HTTP %d after retries", ErrUpstreamUnavailable, resp.StatusCode)
	default:
		return fmt.Errorf("crossref returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing crossref response: %w", err)
	}
	return nil
}

// jatsTagPattern matches the JATS XML markup Crossref embeds in abstracts.
var jatsTagPattern = regexp.MustCompile(`<[^>]+>`)

// cleanAbstract strips JATS tags and collapses whitespace.
func cleanAbstract(s string) string {
	s = jatsTagPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// workToPaper maps a Crossref work onto the stored record shape.
func workToPaper(w crossrefWork, issn string) types.Paper {
	year := w.PublishedPrint.year()
	if year == 0 {
		year = w.PublishedOnline.year()
	}
	if year == 0 {
		year = w.Issued.year()
	}

	return types.Paper{
		DOI:             w.DOI,
		Title:           firstString(w.Title),
		Authors:         authorNames(w.Author),
		Year:            year,
		ISSN:            issn,
		Abstract:        cleanAbstract(w.Abstract),
		Type:            w.Type,
		URL:             w.URL,
		Publisher:       w.Publisher,
		ContainerTitle:  firstString(w.ContainerTitle),
		Volume:          w.Volume,
		Issue:           w.Issue,
		Pages:           w.Page,
		Subjects:        w.Subject,
		Language:        w.Language,
		ReferencesCount: w.ReferencesCount,
		CitedByCount:    w.IsReferencedByCount,
	}
}

// authorNames renders "given family" per author, falling back to the
// literal name field for corporate authors.
func authorNames(authors []crossrefAuthor) []string {
	var names []string
	for _, a := range authors {
		name := strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
		if name == "" {
			name = strings.TrimSpace(a.Name)
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func firstString(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

// Crossref API JSON structures.
type worksResponse struct {
	Status  string       `json:"status"`
	Message worksMessage `json:"message"`
}

type worksMessage struct {
	TotalResults int            `json:"total-results"`
	Items        []crossrefWork `json:"items"`
	NextCursor   string         `json:"next-cursor"`
}

type crossrefWork struct {
	DOI                 string           `json:"DOI"`
	Title               []string         `json:"title"`
	Abstract            string           `json:"abstract"`
	Author              []crossrefAuthor `json:"author"`
	PublishedPrint      crossrefDate     `json:"published-print"`
	PublishedOnline     crossrefDate     `json:"published-online"`
	Issued              crossrefDate     `json:"issued"`
	Type                string           `json:"type"`
	URL                 string           `json:"URL"`
	Publisher           string           `json:"publisher"`
	ContainerTitle      []string         `json:"container-title"`
	Volume              string           `json:"volume"`
	Issue               string           `json:"issue"`
	Page                string           `json:"page"`
	Subject             []string         `json:"subject"`
	Language            string           `json:"language"`
	ReferencesCount     int              `json:"references-count"`
	IsReferencedByCount int              `json:"is-referenced-by-count"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

// year returns the leading date part, 0 when absent.
func (d crossrefDate) year() int {
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
		return d.DateParts[0][0]
	}
	return 0
}

type journalResponse struct {
	Status  string         `json:"status"`
	Message journalMessage `json:"message"`
}

type journalMessage struct {
	Title string `json:"title"`
}
