package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const bingEndpoint = "https://api.bing.microsoft.com/v7.0/search"

// Bing queries the Bing Web Search v7 API.
type Bing struct {
	Key      string
	Endpoint string
	http     httpGetter
}

func (b *Bing) Name() string { return ProviderBing }

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name            string `json:"name"`
			URL             string `json:"url"`
			Snippet         string `json:"snippet"`
			DateLastCrawled string `json:"dateLastCrawled"`
		} `json:"value"`
	} `json:"webPages"`
}

// bingFreshness maps a day window onto Bing's coarse freshness buckets.
func bingFreshness(days int) string {
	switch {
	case days <= 1:
		return "Day"
	case days <= 7:
		return "Week"
	default:
		return "Month"
	}
}

func (b *Bing) Search(ctx context.Context, query string, count, recencyDays int) ([]Result, error) {
	params := url.Values{
		"q":     {query},
		"count": {strconv.Itoa(min(count, 50))},
	}
	if recencyDays > 0 {
		params.Set("freshness", bingFreshness(recencyDays))
	}
	endpoint := b.Endpoint
	if endpoint == "" {
		endpoint = bingEndpoint
	}
	header := http.Header{"Ocp-Apim-Subscription-Key": {b.Key}}
	body, err := b.http.get(ctx, endpoint+"?"+params.Encode(), header)
	if err != nil {
		return nil, err
	}
	var resp bingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode bing response: %w", err)
	}
	out := make([]Result, 0, len(resp.WebPages.Value))
	for _, r := range resp.WebPages.Value {
		out = append(out, Result{Title: r.Name, URL: r.URL, Snippet: r.Snippet, PublishedAt: parsePublished(r.DateLastCrawled)})
	}
	return out, nil
}
