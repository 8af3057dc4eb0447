package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "Mozilla/5.0 (compatible; addonwatch/1.0)"

type PageMeta struct {
	Title       string
	Description string
	Favicon     string
}

type Client struct {
	http *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

func (c *Client) get(ctx context.Context, pageURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return c.http.Do(req)
}

// FetchPageMeta downloads a page and extracts its title, description
// and favicon for the article record.
func (c *Client) FetchPageMeta(ctx context.Context, pageURL string) (PageMeta, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return PageMeta{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return PageMeta{}, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}
	return ExtractMeta(resp.Body, pageURL)
}

// ExtractMeta pulls og:title / description / icon from an HTML
// document, falling back to <title> and /favicon.ico.
func ExtractMeta(r io.Reader, baseURL string) (PageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return PageMeta{}, err
	}

	title, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		title = baseURL
	}

	description, _ := doc.Find(`meta[name="description"]`).Attr("content")
	if description == "" {
		description, _ = doc.Find(`meta[property="og:description"]`).Attr("content")
	}

	icon, _ := doc.Find(`link[rel="icon"]`).Attr("href")
	if icon == "" {
		icon, _ = doc.Find(`link[rel="shortcut icon"]`).Attr("href")
	}
	favicon := resolveIcon(icon, baseURL)

	return PageMeta{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Favicon:     favicon,
	}, nil
}

func resolveIcon(icon, baseURL string) string {
	if strings.HasPrefix(icon, "http://") || strings.HasPrefix(icon, "https://") {
		return icon
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return icon
	}
	if icon == "" {
		icon = "/favicon.ico"
	}
	ref, err := url.Parse(icon)
	if err != nil {
		return icon
	}
	return base.ResolveReference(ref).String()
}

// FallbackFavicon derives an icon-service URL from the article host,
// used when a page could not be scraped.
func FallbackFavicon(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return "https://icons.duckduckgo.com/ip3/" + u.Hostname() + ".ico"
}

// FetchArticleText pulls the readable body of an article page for the
// classifier, trying common content containers before falling back to
// the meta description and finally the supplied fallback.
func (c *Client) FetchArticleText(ctx context.Context, pageURL, fallback string) string {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return fallback
	}
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fallback
	}
	var parts []string
	doc.Find("article, .news-article, #news-article, #main, .content, .content-block, .post, .post-content").
		Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) > 100 {
				parts = append(parts, text)
			}
		})
	body := strings.Join(parts, "\n\n")
	if body == "" {
		body, _ = doc.Find(`meta[name="description"]`).Attr("content")
	}
	if body == "" {
		body = fallback
	}
	if len(body) > 6000 {
		body = body[:6000]
	}
	return body
}
