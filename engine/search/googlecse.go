package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

const googleCSEEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleCSE queries a Google Programmable Search Engine.
type GoogleCSE struct {
	Key      string
	CX       string
	Endpoint string
	http     httpGetter
}

func (g *GoogleCSE) Name() string { return ProviderGoogleCSE }

type cseResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func (g *GoogleCSE) Search(ctx context.Context, query string, count, recencyDays int) ([]Result, error) {
	params := url.Values{
		"key": {g.Key},
		"cx":  {g.CX},
		"q":   {query},
		"num": {strconv.Itoa(min(count, 10))},
	}
	if recencyDays > 0 {
		params.Set("dateRestrict", fmt.Sprintf("d%d", recencyDays))
	}
	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = googleCSEEndpoint
	}
	body, err := g.http.get(ctx, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var resp cseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode google cse response: %w", err)
	}
	out := make([]Result, 0, len(resp.Items))
	for _, r := range resp.Items {
		out = append(out, Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return out, nil
}
