package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type location struct{ country, city string }

// venueZones maps known circuit locations onto IANA zones.
var venueZones = map[location]string{
	{"united states", "indianapolis"}:   "America/Indiana/Indianapolis",
	{"united states", "detroit"}:        "America/Detroit",
	{"united states", "long beach"}:     "America/Los_Angeles",
	{"united states", "st. petersburg"}: "America/New_York",
	{"united states", "phoenix"}:        "America/Phoenix",
	{"united states", "nashville"}:      "America/Chicago",
	{"united states", "miami"}:          "America/New_York",
	{"united states", "austin"}:         "America/Chicago",
	{"united states", "portland"}:       "America/Los_Angeles",
	{"united states", "milwaukee"}:      "America/Chicago",
	{"united states", "monterey"}:       "America/Los_Angeles",
	{"united states", "daytona beach"}:  "America/New_York",
	{"united states", "sebring"}:        "America/New_York",
	{"canada", "toronto"}:               "America/Toronto",
	{"canada", "montreal"}:              "America/Montreal",
	{"canada", "edmonton"}:              "America/Edmonton",
	{"japan", "tokyo"}:                  "Asia/Tokyo",
	{"japan", "suzuka"}:                 "Asia/Tokyo",
	{"united kingdom", "silverstone"}:   "Europe/London",
	{"italy", "monza"}:                  "Europe/Rome",
	{"monaco", "monte carlo"}:           "Europe/Monaco",
	{"belgium", "spa"}:                  "Europe/Brussels",
	{"austria", "spielberg"}:            "Europe/Vienna",
	{"hungary", "budapest"}:             "Europe/Budapest",
	{"netherlands", "zandvoort"}:        "Europe/Amsterdam",
	{"france", "le mans"}:               "Europe/Paris",
	{"mexico", "mexico city"}:           "America/Mexico_City",
	{"brazil", "são paulo"}:             "America/Sao_Paulo",
	{"singapore", "singapore"}:          "Asia/Singapore",
	{"australia", "melbourne"}:          "Australia/Melbourne",
	{"australia", "adelaide"}:           "Australia/Adelaide",
	{"uae", "abu dhabi"}:                "Asia/Dubai",
	{"bahrain", "sakhir"}:               "Asia/Bahrain",
	{"saudi arabia", "jeddah"}:          "Asia/Riyadh",
}

// InferTimezone returns the IANA zone for a venue, or "" when unknown.
// A hit is always an inference: pages rarely state the zone explicitly.
func InferTimezone(country, city string) (string, bool) {
	if country == "" || city == "" {
		return "", false
	}
	tz, ok := venueZones[location{strings.ToLower(strings.TrimSpace(country)), strings.ToLower(strings.TrimSpace(city))}]
	return tz, ok
}

// abbrevOffsets are fixed offsets for the zone abbreviations schedule pages use.
var abbrevOffsets = map[string]string{
	"ET": "-05:00", "EST": "-05:00", "EDT": "-04:00",
	"CT": "-06:00", "CST": "-06:00", "CDT": "-05:00",
	"MT": "-07:00", "MST": "-07:00", "MDT": "-06:00",
	"PT": "-08:00", "PST": "-08:00", "PDT": "-07:00",
	"CET": "+01:00", "CEST": "+02:00",
	"BST": "+01:00", "GMT": "+00:00",
	"AEST": "+10:00", "AEDT": "+11:00",
	"JST": "+09:00",
}

// OffsetFor returns the UTC offset for a zone abbreviation, "+00:00" if unknown.
func OffsetFor(abbrev string) string {
	if off, ok := abbrevOffsets[strings.ToUpper(abbrev)]; ok {
		return off
	}
	return "+00:00"
}

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*(AM|PM|am|pm)?`)

// BuildISOTime joins an ISO date, a clock string and a zone abbreviation into
// an RFC 3339 timestamp. It returns "" if the clock cannot be read.
func BuildISOTime(date, clock, abbrev string) string {
	if date == "" {
		return ""
	}
	m := clockRe.FindStringSubmatch(strings.TrimSpace(clock))
	if m == nil {
		return ""
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	switch strings.ToUpper(m[3]) {
	case "PM":
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return ""
	}
	return fmt.Sprintf("%sT%02d:%02d:00%s", date, hour, minute, OffsetFor(abbrev))
}
