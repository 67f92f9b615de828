package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

const monthAlt = `\b(Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`

var (
	// "March 15-17", "Feb 27 - March 1", "March 6 – 7, 2024"
	monthFirstRange = regexp.MustCompile(monthAlt + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?\s*[-–—]\s*(?:` + monthAlt + `\.?\s+)?(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4}))?`)
	// "15-17 March 2024", "27 Feb - 1 Mar"
	dayFirstRange = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s*(?:` + monthAlt + `\.?\s*)?[-–—]\s*(\d{1,2})(?:st|nd|rd|th)?\s+` + monthAlt + `\b\.?(?:,?\s+(\d{4}))?`)
	// "Friday, March 6", "Mar 6th, 2024"
	monthFirstDay = regexp.MustCompile(monthAlt + `\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4}))?`)
	// "6 March 2024"
	dayFirstDay = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+` + monthAlt + `\b\.?(?:,?\s+(\d{4}))?`)

	isoPrefix  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	numericDMY = regexp.MustCompile(`^(\d{1,2})[./](\d{1,2})[./](\d{4})`)

	// hasMonthDay is the cheap "looks like a date" test used on table cells.
	hasMonthDay = regexp.MustCompile(monthAlt + `\.?\s+\d|\b\d{1,2}(?:st|nd|rd|th)?\s+` + monthAlt + `\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

func monthOf(s string) time.Month {
	if len(s) < 3 {
		return 0
	}
	return months[strings.ToLower(s[:3])]
}

// makeDate validates y-m-d; time.Date would silently normalise "Feb 30".
func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if month == 0 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

func yearOr(s string, season int) int {
	if y, err := strconv.Atoi(s); err == nil && y > 1900 {
		return y
	}
	return season
}

// ParseDateRange finds the first date range in text and returns ISO start
// and end dates. The season year is used unless the text names one. A range
// that wraps the year end ("December 30 - January 2") ends the next year.
func ParseDateRange(text string, season int) (start, end string, ok bool) {
	if m := monthFirstRange.FindStringSubmatch(text); m != nil {
		endMonth := m[3]
		if endMonth == "" {
			endMonth = m[1]
		}
		d1, _ := strconv.Atoi(m[2])
		d2, _ := strconv.Atoi(m[4])
		if s, e, ok := rangeDates(yearOr(m[5], season), monthOf(m[1]), d1, monthOf(endMonth), d2); ok {
			return s, e, true
		}
	}
	if m := dayFirstRange.FindStringSubmatch(text); m != nil {
		startMonth := m[2]
		if startMonth == "" {
			startMonth = m[4]
		}
		d1, _ := strconv.Atoi(m[1])
		d2, _ := strconv.Atoi(m[3])
		if s, e, ok := rangeDates(yearOr(m[5], season), monthOf(startMonth), d1, monthOf(m[4]), d2); ok {
			return s, e, true
		}
	}
	return "", "", false
}

func rangeDates(year int, m1 time.Month, d1 int, m2 time.Month, d2 int) (string, string, bool) {
	start, ok := makeDate(year, m1, d1)
	if !ok {
		return "", "", false
	}
	end, ok := makeDate(year, m2, d2)
	if !ok {
		return "", "", false
	}
	if end.Before(start) {
		if end, ok = makeDate(year+1, m2, d2); !ok {
			return "", "", false
		}
	}
	return start.Format(isoDate), end.Format(isoDate), true
}

// ParseSingleDate finds a month/day pair in text ("Friday, March 6",
// "6 Mar 2024") and returns it as an ISO date. Month-first wins when both
// orders match.
func ParseSingleDate(text string, season int) (string, bool) {
	if m := monthFirstDay.FindStringSubmatch(text); m != nil {
		d, _ := strconv.Atoi(m[2])
		if t, ok := makeDate(yearOr(m[3], season), monthOf(m[1]), d); ok {
			return t.Format(isoDate), true
		}
	}
	if m := dayFirstDay.FindStringSubmatch(text); m != nil {
		d, _ := strconv.Atoi(m[1])
		if t, ok := makeDate(yearOr(m[3], season), monthOf(m[2]), d); ok {
			return t.Format(isoDate), true
		}
	}
	return "", false
}

// parseDates returns a range when text has one, else a single date as both
// start and end.
func parseDates(text string, season int) (start, end string, ok bool) {
	if s, e, ok := ParseDateRange(text, season); ok {
		return s, e, true
	}
	if s, ok := ParseSingleDate(text, season); ok {
		return s, s, true
	}
	return "", "", false
}

// parseDateValue reads a date out of a JSON field value: ISO dates and
// timestamps, dd.mm.yyyy or dd/mm/yyyy, or text dates.
func parseDateValue(v any, season int) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if m := isoPrefix.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if t, ok := makeDate(y, time.Month(mo), d); ok {
			return t.Format(isoDate), true
		}
		return "", false
	}
	if m := numericDMY.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if t, ok := makeDate(y, time.Month(mo), d); ok {
			return t.Format(isoDate), true
		}
		return "", false
	}
	return ParseSingleDate(s, season)
}
