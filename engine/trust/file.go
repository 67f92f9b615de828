package trust

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is the on-disk trust configuration.
//
//	series:
//	  imsa:
//	    tier1: [imsa.com]
//	    deny: [imsaforum.example]
//	site_hints:
//	  - domain: nascar.com
//	    network_patterns: [race_list_basic.json]
type File struct {
	Series    map[string]Overrides `yaml:"series"`
	SiteHints []SiteHint           `yaml:"site_hints"`
}

// LoadFile reads a trust override file. An empty path yields an empty File.
func LoadFile(path string) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read trust file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse trust file %s: %w", path, err)
	}
	f.Series = normalizeSeries(f.Series)
	return f, nil
}

// normalizeSeries re-keys overrides by SeriesKey. Entries whose keys differ
// only in case or spacing are merged.
func normalizeSeries(in map[string]Overrides) map[string]Overrides {
	if len(in) == 0 {
		return in
	}
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]Overrides, len(in))
	for _, k := range keys {
		o := in[k]
		id := SeriesKey(k)
		prev, ok := out[id]
		if !ok {
			out[id] = o
			continue
		}
		prev.Tier1 = append(prev.Tier1, o.Tier1...)
		prev.Tier2 = append(prev.Tier2, o.Tier2...)
		prev.Deny = append(prev.Deny, o.Deny...)
		if o.ScheduleURL != "" {
			prev.ScheduleURL = o.ScheduleURL
		}
		out[id] = prev
	}
	return out
}

// ModelFor builds the Model for seriesID using any overrides in f.
func (f File) ModelFor(seriesID string) *Model {
	return NewForSeries(seriesID, f.Series[SeriesKey(seriesID)])
}

// Hints merges the built-in site hints with those in f.
func (f File) Hints() *Hints {
	return NewHints(DefaultSiteHints, f.SiteHints)
}
