package search

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const googleNewsEndpoint = "https://news.google.com/rss/search"

// NewsFeed searches a news RSS endpoint (Google News by default). Items are
// news articles, so it suits recent schedule announcements best.
type NewsFeed struct {
	Endpoint string
	http     httpGetter
}

func (n *NewsFeed) Name() string { return ProviderGoogleNews }

func (n *NewsFeed) Search(ctx context.Context, query string, count, recencyDays int) ([]Result, error) {
	q := query
	if recencyDays > 0 {
		q = fmt.Sprintf("%s when:%dd", query, recencyDays)
	}
	params := url.Values{"q": {q}, "hl": {"en-US"}, "gl": {"US"}, "ceid": {"US:en"}}
	endpoint := n.Endpoint
	if endpoint == "" {
		endpoint = googleNewsEndpoint
	}
	body, err := n.http.get(ctx, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse news feed: %w", err)
	}
	out := make([]Result, 0, len(feed.Items))
	for _, it := range feed.Items {
		if count > 0 && len(out) >= count {
			break
		}
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}
		r := Result{Title: strings.TrimSpace(it.Title), URL: link, Snippet: plainText(it.Description)}
		if it.PublishedParsed != nil {
			t := *it.PublishedParsed
			r.PublishedAt = &t
		} else if it.UpdatedParsed != nil {
			t := *it.UpdatedParsed
			r.PublishedAt = &t
		}
		out = append(out, r)
	}
	return out, nil
}

// plainText strips markup from an RSS description.
func plainText(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
