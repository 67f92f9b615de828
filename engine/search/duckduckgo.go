package search

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the key-less HTML results page.
type DuckDuckGo struct {
	Endpoint string
	http     httpGetter
}

func (d *DuckDuckGo) Name() string { return ProviderDuckDuckGo }

func (d *DuckDuckGo) Search(ctx context.Context, query string, count, recencyDays int) ([]Result, error) {
	params := url.Values{"q": {query}}
	if recencyDays > 0 {
		params.Set("df", bingFreshness(recencyDays)[:1])
	}
	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = duckDuckGoEndpoint
	}
	body, err := d.http.get(ctx, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse duckduckgo page: %w", err)
	}
	var out []Result
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if count > 0 && len(out) >= count {
			return false
		}
		a := s.Find("a.result__a").First()
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		link := unwrapDuckLink(href)
		if link == "" {
			return true
		}
		out = append(out, Result{
			Title:   strings.TrimSpace(a.Text()),
			URL:     link,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return true
	})
	return out, nil
}

// unwrapDuckLink resolves "//duckduckgo.com/l/?uddg=<target>" redirect links.
func unwrapDuckLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
