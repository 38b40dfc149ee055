// Package guindex is a client for the Guindex crowd-sourced pint price API.
package guindex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "https://guindex.ie/api"
	defaultPageSize = 500
	maxPages        = 10000
)

// Client defines the Guindex API operations.
type Client interface {
	// Pubs lists the open and closed pubs in a county.
	Pubs(ctx context.Context, county string) ([]Pub, error)
	// Pints lists prices submitted for pubs in a county, joined to the pub for its
	// name and coordinates. An empty years list keeps every year.
	Pints(ctx context.Context, county string, years []int) ([]Pint, error)
}

// Doer sends HTTP requests. The retrying fetcher satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Pub is a venue as returned by GET /pubs/.
type Pub struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	County    string  `json:"county"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Closed    bool    `json:"closed"`
}

// Pint is a price submission as returned by GET /pints/. PubName, Latitude and
// Longitude are filled from the matching Pub.
type Pint struct {
	ID           int       `json:"id"`
	PubID        int       `json:"pub"`
	Price        float64   `json:"price"`
	CreationDate time.Time `json:"creationDate"`

	PubName   string  `json:"-"`
	Latitude  float64 `json:"-"`
	Longitude float64 `json:"-"`
}

// Page is one page of a paginated list response.
type Page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []T    `json:"results"`
}

// APIError is returned when Guindex responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("guindex: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the transport used for requests.
func WithHTTPClient(d Doer) Option {
	return func(c *httpClient) {
		c.http = d
	}
}

// WithRateLimit caps the request rate.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithPageSize sets the page_size query parameter.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		c.pageSize = n
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	baseURL  string
	http     Doer
	limiter  *rate.Limiter
	pageSize int
}

// NewClient creates a new Guindex client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:  defaultBaseURL,
		http:     &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(2, 1),
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Pubs(ctx context.Context, county string) ([]Pub, error) {
	q := url.Values{}
	if county != "" {
		q.Set("county", county)
	}
	pubs, err := list[Pub](ctx, c, "/pubs/", q)
	if err != nil {
		return nil, eris.Wrapf(err, "guindex: list pubs in %q", county)
	}
	return pubs, nil
}

func (c *httpClient) Pints(ctx context.Context, county string, years []int) ([]Pint, error) {
	pubs, err := c.Pubs(ctx, county)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]Pub, len(pubs))
	for _, p := range pubs {
		byID[p.ID] = p
	}

	pints, err := list[Pint](ctx, c, "/pints/", url.Values{})
	if err != nil {
		return nil, eris.Wrap(err, "guindex: list pints")
	}

	want := make(map[int]struct{}, len(years))
	for _, y := range years {
		want[y] = struct{}{}
	}

	out := make([]Pint, 0, len(pints))
	for _, p := range pints {
		pub, ok := byID[p.PubID]
		if !ok {
			continue
		}
		if len(want) > 0 {
			if _, ok := want[p.CreationDate.Year()]; !ok {
				continue
			}
		}
		p.PubName = pub.Name
		p.Latitude = pub.Latitude
		p.Longitude = pub.Longitude
		out = append(out, p)
	}
	return out, nil
}

// list follows next links from path until the last page.
func list[T any](ctx context.Context, c *httpClient, path string, q url.Values) ([]T, error) {
	if c.pageSize > 0 {
		q.Set("page_size", strconv.Itoa(c.pageSize))
	}
	next := c.baseURL + path
	if enc := q.Encode(); enc != "" {
		next += "?" + enc
	}

	var out []T
	for page := 0; next != ""; page++ {
		if page >= maxPages {
			return nil, eris.Errorf("guindex: more than %d pages", maxPages)
		}
		var p Page[T]
		if err := c.get(ctx, next, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Results...)
		next = p.Next
	}
	return out, nil
}

func (c *httpClient) get(ctx context.Context, rawURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "guindex: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrap(err, "guindex: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "guindex: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrap(err, "guindex: decode response")
	}
	return nil
}
