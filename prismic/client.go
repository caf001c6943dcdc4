// Package prismic is a feed.ContentSource backed by the Prismic REST API v2.
package prismic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/eringen/spacetraveling/feed"
)

const (
	DefaultDocumentType = "posts"
	DefaultTimeout      = 15 * time.Second

	slugPageSize = 100
)

// Client is a thin HTTP wrapper for a Prismic repository's API.
type Client struct {
	endpoint    *url.URL // e.g. https://spacetraveling.cdn.prismic.io/api/v2
	accessToken string
	docType     string
	http        *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAccessToken sets the token sent with every request to a private
// repository.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = token
	}
}

// WithDocumentType sets the custom type queried for posts (default "posts").
func WithDocumentType(t string) Option {
	return func(c *Client) {
		c.docType = t
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the repository API at endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("prismic: invalid endpoint %q", endpoint)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("prismic: invalid endpoint scheme %q", u.Scheme)
	}
	c := &Client{
		endpoint: u,
		docType:  DefaultDocumentType,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type refKey struct{}

// WithRef returns a context whose queries run against ref instead of the
// master ref. Used for previews.
func WithRef(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, refKey{}, ref)
}

// RefFrom returns the ref set by WithRef, or "".
func RefFrom(ctx context.Context) string {
	ref, _ := ctx.Value(refKey{}).(string)
	return ref
}

type apiInfo struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

// ref returns the preview ref from ctx or the repository's master ref.
func (c *Client) ref(ctx context.Context) (string, error) {
	if ref := RefFrom(ctx); ref != "" {
		return ref, nil
	}
	data, err := c.get(ctx, "api", c.withToken(*c.endpoint))
	if err != nil {
		return "", err
	}
	var info apiInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("%w: decoding api info: %v", feed.ErrMalformedPage, err)
	}
	for _, r := range info.Refs {
		if r.IsMasterRef {
			return r.Ref, nil
		}
	}
	return "", fmt.Errorf("%w: repository has no master ref", feed.ErrMalformedPage)
}

// searchURL builds a documents/search query.
func (c *Client) searchURL(ref, predicate string, pageSize int) url.URL {
	u := *c.endpoint
	u.Path = strings.TrimRight(u.Path, "/") + "/documents/search"
	q := url.Values{}
	q.Set("ref", ref)
	q.Set("q", "["+predicate+"]")
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("orderings", "[document.first_publication_date desc]")
	u.RawQuery = q.Encode()
	return c.withToken(u)
}

func (c *Client) withToken(u url.URL) url.URL {
	if c.accessToken == "" {
		return u
	}
	q := u.Query()
	q.Set("access_token", c.accessToken)
	u.RawQuery = q.Encode()
	return u
}

// get performs a GET request and returns the body of a 2xx response. op
// labels the request in metrics and logs.
func (c *Client) get(ctx context.Context, op string, u url.URL) (data []byte, err error) {
	start := time.Now()
	defer func() {
		observe(op, start, err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("prismic: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request to %s: %v", feed.ErrSourceUnavailable, u.Path, err)
	}
	defer resp.Body.Close()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", feed.ErrSourceUnavailable, err)
	}
	log.Debugf("prismic: GET %s -> %d (%s)", u.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: GET %s returned %d: %s", feed.ErrSourceUnavailable, u.Path, resp.StatusCode, truncate(data, 200))
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// cursorURL validates that cursor is a next_page URL of this repository.
func (c *Client) cursorURL(cursor string) (url.URL, error) {
	u, err := url.Parse(cursor)
	if err != nil {
		return url.URL{}, fmt.Errorf("%w: invalid cursor: %v", feed.ErrMalformedPage, err)
	}
	if u.Host != c.endpoint.Host || !strings.HasPrefix(u.Path, c.endpoint.Path) {
		return url.URL{}, fmt.Errorf("%w: cursor %q does not belong to %s", feed.ErrMalformedPage, cursor, c.endpoint.Host)
	}
	// Prismic returns http next_page links behind its https CDN.
	u.Scheme = c.endpoint.Scheme
	return c.withToken(*u), nil
}

// ListPosts implements feed.ContentSource.
func (c *Client) ListPosts(ctx context.Context, pageSize int, cursor string) (feed.PostFeedPage, error) {
	var u url.URL
	if cursor == "" {
		ref, err := c.ref(ctx)
		if err != nil {
			return feed.PostFeedPage{}, err
		}
		u = c.searchURL(ref, fmt.Sprintf("[at(document.type,%q)]", c.docType), pageSize)
	} else {
		var err error
		if u, err = c.cursorURL(cursor); err != nil {
			return feed.PostFeedPage{}, err
		}
	}

	res, err := c.search(ctx, "list", u)
	if err != nil {
		return feed.PostFeedPage{}, err
	}
	items := make([]feed.PostSummary, 0, len(res.Results))
	for _, d := range res.Results {
		items = append(items, d.summary())
	}
	return feed.PostFeedPage{Items: items, NextCursor: res.NextPage}, nil
}

// GetPostBySlug implements feed.ContentSource.
func (c *Client) GetPostBySlug(ctx context.Context, slug string) (feed.PostBody, error) {
	ref, err := c.ref(ctx)
	if err != nil {
		return feed.PostBody{}, err
	}
	u := c.searchURL(ref, fmt.Sprintf("[at(my.%s.uid,%q)]", c.docType, slug), 1)
	res, err := c.search(ctx, "get", u)
	if err != nil {
		return feed.PostBody{}, err
	}
	if len(res.Results) == 0 {
		return feed.PostBody{}, fmt.Errorf("%w: %s", feed.ErrNotFound, slug)
	}
	return res.Results[0].body(), nil
}

// ListAllSlugs implements feed.ContentSource.
func (c *Client) ListAllSlugs(ctx context.Context) ([]string, error) {
	first, err := c.ListPosts(ctx, slugPageSize, "")
	if err != nil {
		return nil, err
	}
	acc, err := feed.Collect(ctx, first, feed.PageFetcher(c, slugPageSize))
	if err != nil {
		return nil, err
	}
	return slugs(acc.Items), nil
}

type searchResult struct {
	Results  []document
	NextPage string
}

// search fetches u and validates the response shape: both results and
// next_page must be present, results must be an array, next_page a string
// or null.
func (c *Client) search(ctx context.Context, op string, u url.URL) (searchResult, error) {
	data, err := c.get(ctx, op, u)
	if err != nil {
		return searchResult{}, err
	}
	var raw struct {
		Results  json.RawMessage `json:"results"`
		NextPage json.RawMessage `json:"next_page"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return searchResult{}, fmt.Errorf("%w: decoding response: %v", feed.ErrMalformedPage, err)
	}
	if raw.Results == nil || string(raw.Results) == "null" {
		return searchResult{}, fmt.Errorf("%w: missing results", feed.ErrMalformedPage)
	}
	if raw.NextPage == nil {
		return searchResult{}, fmt.Errorf("%w: missing next_page", feed.ErrMalformedPage)
	}

	var res searchResult
	if err := json.Unmarshal(raw.Results, &res.Results); err != nil {
		return searchResult{}, fmt.Errorf("%w: results: %v", feed.ErrMalformedPage, err)
	}
	var next *string
	if err := json.Unmarshal(raw.NextPage, &next); err != nil {
		return searchResult{}, fmt.Errorf("%w: next_page: %v", feed.ErrMalformedPage, err)
	}
	if next != nil {
		res.NextPage = *next
	}
	return res, nil
}
