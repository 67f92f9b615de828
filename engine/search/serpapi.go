package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

const serpAPIEndpoint = "https://serpapi.com/search"

// SerpAPI queries Google through serpapi.com.
type SerpAPI struct {
	Key      string
	Endpoint string
	http     httpGetter
}

func (s *SerpAPI) Name() string { return ProviderSerpAPI }

type serpResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Date    string `json:"date"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

func (s *SerpAPI) Search(ctx context.Context, query string, count, recencyDays int) ([]Result, error) {
	params := url.Values{
		"q":       {query},
		"api_key": {s.Key},
		"engine":  {"google"},
		"num":     {strconv.Itoa(min(count, 20))},
	}
	if recencyDays > 0 {
		params.Set("tbs", fmt.Sprintf("qdr:d%d", recencyDays))
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = serpAPIEndpoint
	}
	body, err := s.http.get(ctx, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var resp serpResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", resp.Error)
	}
	out := make([]Result, 0, len(resp.Organic))
	for _, r := range resp.Organic {
		out = append(out, Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet, PublishedAt: parsePublished(r.Date)})
	}
	return out, nil
}
