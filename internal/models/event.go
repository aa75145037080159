package models

import (
	"fmt"
	"strings"
	"time"
)

// Location is a geocoded postal code
type Location struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	City  string  `json:"city"`
	State string  `json:"state"`
}

// String renders "City, ST"
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	return fmt.Sprintf("%s, %s", l.City, l.State)
}

// Coordinates of an event venue, when the source provides them
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event is a real, time-boxed activity fetched from a third-party source.
// StartTime and EndTime are ISO-8601 strings; empty means the source did not
// provide a resolvable time.
type Event struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	StartTime   string       `json:"startTime,omitempty"`
	EndTime     string       `json:"endTime,omitempty"`
	Venue       string       `json:"venue"`
	Address     string       `json:"address"`
	Cost        string       `json:"cost"`
	URL         string       `json:"url"`
	Category    string       `json:"category"`
	Source      string       `json:"source"`
	Recurring   bool         `json:"recurring,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// StartsAt parses StartTime. Times without a zone are read as UTC.
func (e *Event) StartsAt() (time.Time, bool) {
	s := strings.TrimSpace(e.StartTime)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DedupKey is lower(name) + "_" + the first ten characters of StartTime.
// Events without a start time have no key and are never merged.
func (e *Event) DedupKey() (string, bool) {
	if e.StartTime == "" {
		return "", false
	}
	day := e.StartTime
	if len(day) > 10 {
		day = day[:10]
	}
	return strings.ToLower(strings.TrimSpace(e.Name)) + "_" + day, true
}

// UserProfile is the slice of a user's survey the event pipeline needs
type UserProfile struct {
	PostalCode        string   `json:"postalCode"`
	Categories        []string `json:"categories"`
	SpecificInterests string   `json:"specificInterests"`
}

// IdealCharacteristics describes the setting of a synthesized concept
type IdealCharacteristics struct {
	Setting        string `json:"setting"`
	GroupSize      string `json:"groupSize"`
	Atmosphere     string `json:"atmosphere"`
	TimeCommitment string `json:"timeCommitment"`
}

// Concept is an LLM-synthesized idealized activity, not tied to a real event
type Concept struct {
	ConceptName          string               `json:"conceptName"`
	Category             string               `json:"category"`
	WhyItMatches         string               `json:"whyItMatches"`
	IdealCharacteristics IdealCharacteristics `json:"idealCharacteristics"`
	SearchQueries        []string             `json:"searchQueries"`
	Keywords             []string             `json:"keywords"`
	IsRecurring          bool                 `json:"isRecurring"`
	Priority             int                  `json:"priority"`
}

// Recommendation is a concept formatted for display
type Recommendation struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	WhyItMatches string `json:"whyItMatches"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Location     string `json:"location"`
	Recurring    bool   `json:"recurring"`
	Category     string `json:"category"`
	IsConceptual bool   `json:"isConceptual"`
}

// Text renders the recommendation in the block layout stored with prompts
func (r Recommendation) Text() string {
	return fmt.Sprintf("%s\n%s\n%s %s at %s\n%s", r.Name, r.WhyItMatches, r.Date, r.Time, r.Location, r.URL)
}

// ParsedRecommendation is a record reconstructed from LLM free text
type ParsedRecommendation struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	WhyMatches  string `json:"whyMatches"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	IsRecurring bool   `json:"isRecurring"`
}
