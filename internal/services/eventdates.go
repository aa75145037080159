package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var absoluteDateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"1/2/06",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Monday, January 2, 2006",
}

var clockPattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?`)

// parseLooseDateTime combines a scraped date and time into one instant.
// Dates may be absolute ("2025-10-07", "October 7, 2025") or a month and day
// whose year is inferred. Placeholders like "TBD" and recurrence phrases
// like "Every Saturday" have no instant. A missing time means noon.
func parseLooseDateTime(date, clock string, now time.Time) (time.Time, bool) {
	date = strings.TrimSpace(date)
	if date == "" || strings.EqualFold(date, "TBD") {
		return time.Time{}, false
	}

	day, ok := parseLooseDate(date, now)
	if !ok {
		return time.Time{}, false
	}

	hour, minute := 12, 0
	if h, m, ok := parseClock(clock); ok {
		hour, minute = h, m
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC), true
}

func parseLooseDate(date string, now time.Time) (time.Time, bool) {
	if len(date) >= 10 {
		if t, err := time.Parse(time.RFC3339, date); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02", date[:10]); err == nil {
			return t, true
		}
	}
	for _, layout := range absoluteDateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t, true
		}
	}
	return extractSnippetDate(date, now)
}

// parseClock reads "6:30 PM", "7pm", "18:00" or "noon"
func parseClock(clock string) (int, int, bool) {
	clock = strings.TrimSpace(clock)
	if clock == "" || strings.EqualFold(clock, "TBD") {
		return 0, 0, false
	}
	if strings.Contains(strings.ToLower(clock), "noon") {
		return 12, 0, true
	}

	m := clockPattern.FindStringSubmatch(clock)
	if m == nil {
		return 0, 0, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}

	switch suffix := strings.ToLower(strings.ReplaceAll(m[3], ".", "")); suffix {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
