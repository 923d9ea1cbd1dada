// internal/news/news.go
package news

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/user/tradeagent/internal/types"
)

const maxSummaryChars = 2000

// Item is one fetched article.
type Item struct {
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Text      string  `json:"text"`
	FetchedAt float64 `json:"fetched_at"`
}

// News text ends up inside planner and policy prompts, so fetched
// content is treated as hostile input: only allowlisted domains are
// fetched and common instruction-override phrasings are stripped.
var (
	spaceRe       = regexp.MustCompile(`\s+`)
	overrideRe    = regexp.MustCompile(`(?i)\b(ignore|disregard)\b.{0,80}\b(instructions|previous)\b`)
	promptSpeakRe = regexp.MustCompile(`(?i)\b(system prompt|developer message|tool instructions)\b`)
)

// cleanText flattens whitespace so the override pattern can match
// across line breaks, strips injection phrasings, then collapses again
// because each removal leaves a double space behind.
func cleanText(text string) string {
	text = spaceRe.ReplaceAllString(text, " ")
	text = overrideRe.ReplaceAllString(text, "")
	text = promptSpeakRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Fetcher retrieves articles from allowlisted domains and produces
// extractive summaries suitable for prompt context.
type Fetcher struct {
	client *http.Client
	allow  map[string]bool
}

// NewFetcher builds a fetcher for the given allowed domains. Domains
// are matched case-insensitively with any leading "www." stripped.
func NewFetcher(allowDomains []string) *Fetcher {
	allow := make(map[string]bool, len(allowDomains))
	for _, d := range allowDomains {
		allow[normalizeDomain(d)] = true
	}
	return &Fetcher{
		client: &http.Client{Timeout: 15 * time.Second},
		allow:  allow,
	}
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	return strings.TrimPrefix(d, "www.")
}

// Allowed reports whether the URL's host is on the allowlist.
func (f *Fetcher) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return f.allow[normalizeDomain(u.Hostname())]
}

// FetchArticle retrieves one article. Returns (nil, nil) for URLs
// outside the allowlist.
func (f *Fetcher) FetchArticle(ctx context.Context, rawURL string) (*Item, error) {
	if !f.Allowed(rawURL) {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "tradeagent/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	md, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}

	return &Item{
		URL:       rawURL,
		Title:     cleanText(extractTitle(string(body))),
		Text:      cleanText(md),
		FetchedAt: types.NowTS(),
	}, nil
}

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

func extractTitle(html string) string {
	m := titleRe.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return m[1]
}

// Summarize renders an item as a bounded extractive summary.
func Summarize(item *Item) string {
	text := item.Text
	if len(text) > maxSummaryChars {
		text = text[:maxSummaryChars] + "…"
	}
	return fmt.Sprintf("Title: %s\nURL: %s\nContent: %s", item.Title, item.URL, text)
}

// FetchAndSummarize fetches every URL and returns summaries for the
// ones that resolve. Disallowed and failing URLs are skipped.
func (f *Fetcher) FetchAndSummarize(ctx context.Context, urls []string) []string {
	var out []string
	for _, u := range urls {
		item, err := f.FetchArticle(ctx, u)
		if err != nil || item == nil {
			continue
		}
		out = append(out, Summarize(item))
	}
	return out
}
