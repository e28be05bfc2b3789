// Package client speaks the summarization service's request/response
// contract: GET /summarize?topic_id=...&date=... returning a status and,
// once the job has finished, the summary text.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/briangreenhill/topicsum/internal/summary"
)

const DefaultBaseURL = "https://ivc6ivtvmg.execute-api.eu-west-3.amazonaws.com/devo"

type Client struct {
	http    *http.Client
	baseURL *url.URL
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		}
	}
}

func New(opts ...Option) *Client {
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: u,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Summary issues one summarization request for topicID on day. Any
// transport-level problem (network failure, non-2xx status, unparseable
// body, unknown status value) comes back as an error; a well-formed
// response comes back as-is, including status "error".
func (c *Client) Summary(ctx context.Context, topicID, day string) (summary.Result, error) {
	u := *c.baseURL
	u.Path = path.Join(u.Path, "summarize")
	q := u.Query()
	q.Set("topic_id", topicID)
	q.Set("date", day)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return summary.Result{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return summary.Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return summary.Result{}, fmt.Errorf("GET summarize: %s: %s", resp.Status, string(b))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return summary.Result{}, err
	}
	var res summary.Result
	if err := json.Unmarshal(body, &res); err != nil {
		return summary.Result{}, fmt.Errorf("decode summarize response: %w", err)
	}
	if !res.Status.Known() {
		return summary.Result{}, fmt.Errorf("summarize response: unknown status %q", res.Status)
	}
	return res, nil
}
