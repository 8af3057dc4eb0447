package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FetchNewsLinks downloads a news index page and extracts candidate
// article links under the given prefix.
func (c *Client) FetchNewsLinks(ctx context.Context, indexURL, prefix string) ([]string, error) {
	resp, err := c.get(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", indexURL, resp.StatusCode)
	}
	return ExtractNewsLinks(resp.Body, indexURL, prefix)
}

// ExtractNewsLinks collects article links from a news index page:
// every anchor is resolved against baseURL, filtered to the given
// prefix, stripped of query and fragment and de-duplicated. Output is
// sorted so repeated scrapes of the same page are order-stable.
func ExtractNewsLinks(r io.Reader, baseURL, prefix string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.RawQuery = ""
		abs.Fragment = ""
		link := abs.String()
		if prefix != "" && !strings.HasPrefix(link, prefix) {
			return
		}
		seen[link] = struct{}{}
	})

	links := make([]string, 0, len(seen))
	for link := range seen {
		links = append(links, link)
	}
	sort.Strings(links)
	return links, nil
}
