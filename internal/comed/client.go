// Package comed provides a client for the ComEd hourly pricing API and the
// price-to-compare reference page.
package comed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Client provides access to ComEd pricing data.
type Client struct {
	apiURL         string
	referenceURL   string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// ClientConfig holds retry tuning for the client.
type ClientConfig struct {
	MaxRetries     int
	RetryDelayBase time.Duration
}

// NewClient creates a new ComEd client.
func NewClient(apiURL, referenceURL string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	return &Client{
		apiURL:       apiURL,
		referenceURL: referenceURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
	}
}

// hourlyPrice is one element of the currenthouraverage response.
// The API encodes price as a string; accept a bare number as well.
type hourlyPrice struct {
	MillisUTC string    `json:"millisUTC"`
	Price     priceText `json:"price"`
}

type priceText float64

func (p *priceText) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("non-numeric price %q", s)
	}
	*p = priceText(v)
	return nil
}

// FetchSpotPrice retrieves the current hour average price in cents per kWh.
// The first element of the returned array is authoritative.
func (c *Client) FetchSpotPrice(ctx context.Context) (float64, error) {
	resp, err := c.doRequest(ctx, c.apiURL, "application/json")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch spot price: %w", err)
	}
	defer resp.Body.Close()

	var prices []hourlyPrice
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return 0, fmt.Errorf("failed to decode spot price response: %w", err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("spot price response is empty")
	}
	return float64(prices[0].Price), nil
}

var numericToken = regexp.MustCompile(`\d+(\.\d+)?`)

// FetchReferencePrice scrapes the price-to-compare value, in cents per kWh,
// from the second cell of the second row of the page's first table. The page
// is third-party markup; any structural mismatch is reported as an error and
// the caller keeps its previous value.
func (c *Client) FetchReferencePrice(ctx context.Context) (float64, error) {
	resp, err := c.doRequest(ctx, c.referenceURL, "text/html")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch reference price page: %w", err)
	}
	defer resp.Body.Close()

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to parse reference price page: %w", err)
	}

	table := findFirst(doc, "table")
	if table == nil {
		return 0, fmt.Errorf("reference price page has no table")
	}
	rows := findAll(table, "tr")
	if len(rows) < 2 {
		return 0, fmt.Errorf("reference price table has %d rows, want at least 2", len(rows))
	}
	cells := findAll(rows[1], "td")
	if len(cells) < 2 {
		cells = findAll(rows[1], "th")
	}
	if len(cells) < 2 {
		return 0, fmt.Errorf("reference price row has fewer than 2 cells")
	}

	token := numericToken.FindString(nodeText(cells[1]))
	if token == "" {
		return 0, fmt.Errorf("no numeric token in reference price cell %q", nodeText(cells[1]))
	}
	price, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse reference price %q: %w", token, err)
	}
	return price, nil
}

// findFirst returns the first element named tag in depth-first order.
func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every element named tag under n in depth-first order.
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walk(child)
	}
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// doRequest performs an HTTP GET with linear-backoff retry.
func (c *Client) doRequest(ctx context.Context, urlStr, accept string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", accept)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		} else if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		} else {
			return resp, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
