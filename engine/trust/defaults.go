package trust

// SeriesDefaults are the built-in official sources of a series.
type SeriesDefaults struct {
	Tier1       []string
	ScheduleURL string
}

// BuiltinSeries lists the official domains known for each series id.
var BuiltinSeries = map[string]SeriesDefaults{
	"indycar":       {Tier1: []string{"indycar.com", "indianapolismotorspeedway.com"}, ScheduleURL: "https://www.indycar.com/schedule"},
	"imsa":          {Tier1: []string{"imsa.com"}, ScheduleURL: "https://www.imsa.com/weathertech/schedule/"},
	"wec":           {Tier1: []string{"fiawec.com", "fia.com", "24h-lemans.com"}, ScheduleURL: "https://www.fiawec.com/en/season-calendar"},
	"motogp":        {Tier1: []string{"motogp.com"}, ScheduleURL: "https://www.motogp.com/en/calendar"},
	"f1":            {Tier1: []string{"formula1.com", "fia.com"}, ScheduleURL: "https://www.formula1.com/en/racing"},
	"wrc":           {Tier1: []string{"wrc.com", "fia.com"}, ScheduleURL: "https://www.wrc.com/en/calendar/"},
	"nascar":        {Tier1: []string{"nascar.com"}, ScheduleURL: "https://www.nascar.com/nascar-cup-series/schedule/"},
	"v8supercars":   {Tier1: []string{"supercars.com"}},
	"super_formula": {Tier1: []string{"superformula.net"}},
	"super_gt":      {Tier1: []string{"supergt.net"}},
}

// DefaultGlobalDeny holds social networks, forums, wikis and video platforms.
// An entry may carry a path prefix ("racefans.net/forum").
var DefaultGlobalDeny = []string{
	"reddit.com", "forum.motorsport.com", "forums.autosport.com", "racefans.net/forum",
	"facebook.com", "twitter.com", "x.com", "instagram.com", "tiktok.com",
	"pinterest.com", "youtube.com", "quora.com", "answers.yahoo.com",
	"wikipedia.org", "fandom.com",
}

// DefaultGlobalTier2 holds reputable general motorsport outlets.
var DefaultGlobalTier2 = []string{
	"motorsport.com", "autosport.com", "racer.com", "motorsportweek.com",
	"the-race.com", "racingamerica.com", "sportscar365.com", "dailysportscar.com",
	"formula1.com", "motorsportstats.com",
}
