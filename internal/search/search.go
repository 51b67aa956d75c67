// Package search queries external NDT supplier sites and scrapes their result cards.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

type Result struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Source      string   `json:"source"`
	Link        string   `json:"link"`
}

// NoResults is returned alone when no source produced anything.
var NoResults = Result{
	Title:       "No results",
	Description: "Search endpoints unavailable or returned no data.",
	Features:    []string{},
	Source:      "system",
	Link:        "#",
}

// Client fans a query out to every source base URL concurrently.
type Client struct {
	httpClient *http.Client
	sources    []string
}

func NewClient(sources []string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		sources:    sources,
	}
}

// Search returns results in source order. A source that fails contributes nothing.
func (c *Client) Search(ctx context.Context, query string) []Result {
	perSource := make([][]Result, len(c.sources))
	var g errgroup.Group
	for i, src := range c.sources {
		g.Go(func() error {
			res, err := c.fetch(ctx, src, query)
			if err != nil {
				slog.Warn("search source failed", "source", src, "error", err)
				return nil
			}
			perSource[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var out []Result
	for _, res := range perSource {
		out = append(out, res...)
	}
	if len(out) == 0 {
		return []Result{NoResults}
	}
	return out
}

func (c *Client) fetch(ctx context.Context, base, query string) ([]Result, error) {
	u := strings.TrimRight(base, "/") + "/search?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, u)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u, err)
	}
	return parseCards(doc, sourceName(base)), nil
}

// parseCards reads .search-result cards. Cards without a title or link are skipped.
func parseCards(doc *goquery.Document, source string) []Result {
	var results []Result
	doc.Find(".search-result").Each(func(_ int, card *goquery.Selection) {
		title := strings.TrimSpace(card.Find("h3").First().Text())
		link, ok := card.Find("a[href]").First().Attr("href")
		if title == "" || !ok {
			return
		}
		features := []string{}
		card.Find(".tag, .feature").Each(func(_ int, f *goquery.Selection) {
			if t := strings.TrimSpace(f.Text()); t != "" {
				features = append(features, t)
			}
		})
		results = append(results, Result{
			Title:       title,
			Description: strings.TrimSpace(card.Find(".description").First().Text()),
			Features:    features,
			Source:      source,
			Link:        link,
		})
	})
	return results
}

// sourceName is the first label of the host: https://www.aerofabndt.com -> aerofabndt.
func sourceName(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Hostname() == "" {
		return base
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if i := strings.IndexByte(host, '.'); i > 0 {
		return host[:i]
	}
	return host
}
