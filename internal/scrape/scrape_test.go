package scrape

import (
	"strings"
	"testing"
)

func TestExtractNewsLinks(t *testing.T) {
	page := `<html><body>
		<a href="/us/news/24301">First</a>
		<a href="/us/news/24301?utm_source=x#comments">First again</a>
		<a href="https://news.example.com/us/news/24302">Second</a>
		<a href="/us/shop/mounts">Shop</a>
		<a href="https://other.example.com/us/news/9">Offsite</a>
		<a href="">Empty</a>
	</body></html>`

	links, err := ExtractNewsLinks(strings.NewReader(page), "https://news.example.com/us/news/", "https://news.example.com/us/news/")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := []string{
		"https://news.example.com/us/news/24301",
		"https://news.example.com/us/news/24302",
	}
	if len(links) != len(want) {
		t.Fatalf("links = %v", links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Fatalf("links[%d] = %q, want %q", i, links[i], want[i])
		}
	}
}

func TestExtractMetaPrefersOpenGraph(t *testing.T) {
	page := `<html><head>
		<title>Fallback Title</title>
		<meta property="og:title" content="Patch 11.2 Hotfixes">
		<meta name="description" content="A list of hotfixes.">
		<link rel="icon" href="/static/favicon.png">
	</head><body></body></html>`

	meta, err := ExtractMeta(strings.NewReader(page), "https://news.example.com/us/news/1")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if meta.Title != "Patch 11.2 Hotfixes" {
		t.Fatalf("title = %q", meta.Title)
	}
	if meta.Description != "A list of hotfixes." {
		t.Fatalf("description = %q", meta.Description)
	}
	if meta.Favicon != "https://news.example.com/static/favicon.png" {
		t.Fatalf("favicon = %q", meta.Favicon)
	}
}

func TestExtractMetaFallbacks(t *testing.T) {
	page := `<html><head><title>  Plain Title  </title></head><body></body></html>`
	meta, err := ExtractMeta(strings.NewReader(page), "https://news.example.com/post")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if meta.Title != "Plain Title" {
		t.Fatalf("title = %q", meta.Title)
	}
	if meta.Favicon != "https://news.example.com/favicon.ico" {
		t.Fatalf("favicon = %q", meta.Favicon)
	}

	empty, err := ExtractMeta(strings.NewReader("<html></html>"), "https://news.example.com/post")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if empty.Title != "https://news.example.com/post" {
		t.Fatalf("title fallback = %q", empty.Title)
	}
}

func TestFallbackFavicon(t *testing.T) {
	if got := FallbackFavicon("https://news.example.com:8443/us/news/1"); got != "https://icons.duckduckgo.com/ip3/news.example.com.ico" {
		t.Fatalf("favicon = %q", got)
	}
	if got := FallbackFavicon("not a url"); got != "" {
		t.Fatalf("expected empty for invalid url, got %q", got)
	}
}

func TestParseRSS(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<rss version="2.0"><channel>
	<title>News</title>
	<item>
		<title>Hotfixes for March 12</title>
		<link>https://news.example.com/us/news/1</link>
		<description>Combat log event changes.</description>
	</item>
	<item>
		<title>Shop sale</title>
		<link>https://news.example.com/us/news/2</link>
		<description></description>
	</item>
</channel></rss>`)

	items, err := ParseRSS(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Title != "Hotfixes for March 12" || items[0].Link != "https://news.example.com/us/news/1" {
		t.Fatalf("first item = %+v", items[0])
	}
	if items[0].Description != "Combat log event changes." {
		t.Fatalf("description = %q", items[0].Description)
	}

	if _, err := ParseRSS([]byte("not xml at all <")); err == nil {
		t.Fatal("expected error for malformed feed")
	}
}
