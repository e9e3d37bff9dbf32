package proofcheck

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestExtractTitle(t *testing.T) {
	doc := docFromHTML(t, `<html><head><title>Match result thread</title></head><body>hi</body></html>`)
	p := extract(doc, "https://example.com/post/1")

	if p.Title != "Match result thread" {
		t.Errorf("title = %q, want %q", p.Title, "Match result thread")
	}
	if p.URL != "https://example.com/post/1" {
		t.Errorf("url = %q", p.URL)
	}
}

func TestExtractPrefersOGTitle(t *testing.T) {
	doc := docFromHTML(t, `<html><head>
		<title>site | page | junk</title>
		<meta property="og:title" content="Final score 3-1">
		<meta property="og:description" content="Screenshot of the scoreboard">
	</head><body></body></html>`)
	p := extract(doc, "https://example.com")

	if p.Title != "Final score 3-1" {
		t.Errorf("title = %q, want og:title", p.Title)
	}
	if p.Description != "Screenshot of the scoreboard" {
		t.Errorf("description = %q", p.Description)
	}
}

func TestExtractTruncatesLongTitle(t *testing.T) {
	long := strings.Repeat("x", 300)
	doc := docFromHTML(t, "<html><head><title>"+long+"</title></head><body></body></html>")
	p := extract(doc, "https://example.com")

	if len(p.Title) != 200 {
		t.Errorf("title length = %d, want 200", len(p.Title))
	}
}

func TestFetchRejectsNonHTTPScheme(t *testing.T) {
	f := NewFetcher(1000, 0, zap.NewNop())
	if _, err := f.Fetch(t.Context(), "ftp://example.com/file"); err == nil {
		t.Fatal("expected error for ftp scheme")
	}
}
