package scrape

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type RSSItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
}

type rssDoc struct {
	Channel struct {
		Items []RSSItem `xml:"item"`
	} `xml:"channel"`
}

// ParseRSS decodes the items of an RSS 2.0 document.
func ParseRSS(data []byte) ([]RSSItem, error) {
	var doc rssDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	items := doc.Channel.Items
	for i := range items {
		items[i].Title = strings.TrimSpace(items[i].Title)
		items[i].Link = strings.TrimSpace(items[i].Link)
		items[i].Description = strings.TrimSpace(items[i].Description)
	}
	return items, nil
}

// FetchRSS downloads and parses a news feed.
func (c *Client) FetchRSS(ctx context.Context, feedURL string) ([]RSSItem, error) {
	resp, err := c.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", feedURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	return ParseRSS(data)
}
