package proofcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Preview is the snapshot we keep of a proof URL at upload time. The
// title gives reviewers something to look at without following the
// link; ContentLength and FetchedAt help spot pages that changed later.
type Preview struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	ContentLength int       `json:"content_length"`
	FetchedAt     time.Time `json:"fetched_at"`
}

type Fetcher struct {
	httpClient *http.Client
	log        *zap.Logger
	maxRetries int
}

func NewFetcher(timeoutMS, maxRetries int, log *zap.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutMS) * time.Millisecond,
		},
		log:        log,
		maxRetries: maxRetries,
	}
}

// Fetch downloads the proof page and extracts its title and
// description. Only http(s) URLs are accepted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Preview, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proof url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported proof url scheme %q", u.Scheme)
	}

	var doc *goquery.Document
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}

		doc, err = goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}

	if lastErr != nil {
		return nil, lastErr
	}

	return extract(doc, rawURL), nil
}

func extract(doc *goquery.Document, rawURL string) *Preview {
	p := &Preview{
		URL:       rawURL,
		FetchedAt: time.Now(),
	}

	p.Title = strings.TrimSpace(doc.Find("title").First().Text())

	// og: tags usually carry a cleaner title than <title>.
	doc.Find(`meta[property="og:title"]`).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok && strings.TrimSpace(content) != "" {
			p.Title = strings.TrimSpace(content)
		}
	})
	doc.Find(`meta[property="og:description"], meta[name="description"]`).Each(func(_ int, s *goquery.Selection) {
		if p.Description != "" {
			return
		}
		if content, ok := s.Attr("content"); ok {
			p.Description = strings.TrimSpace(content)
		}
	})

	if p.Title != "" && len(p.Title) > 200 {
		p.Title = p.Title[:200]
	}
	if len(p.Description) > 500 {
		p.Description = p.Description[:500]
	}
	p.ContentLength = len(doc.Text())

	return p
}
