// Package parser rebuilds structured recommendation records from the free text
// stored on a user's prompt record. It is best-effort: when the model followed
// one of the requested output formats the fields come back, otherwise the
// segment is dropped and callers fall back to showing the raw text.
package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"social-activity-recommender/internal/models"
)

const maxNameLength = 200

// extractor pulls one field out of a segment. The bool reports whether the
// extractor recognised its pattern at all.
type extractor func(segment string) (string, bool)

// Parse splits raw recommendation text into records. The result is never nil;
// an empty slice means nothing recognisable was found.
func Parse(raw string) []models.ParsedRecommendation {
	recs := make([]models.ParsedRecommendation, 0)
	for _, segment := range split(raw) {
		if rec, ok := parseSegment(segment); ok {
			recs = append(recs, rec)
		}
	}
	return recs
}

func parseSegment(segment string) (models.ParsedRecommendation, bool) {
	var rec models.ParsedRecommendation
	if strings.TrimSpace(segment) == "" {
		return rec, false
	}

	name, structured := firstMatch(segment, headerName, eventNameField, boldNumberedName, numberedName)
	if !structured {
		name, _ = firstLineName(segment)
	}
	if !usableName(name) {
		return rec, false
	}
	rec.Name = name

	typeText, hasType := fieldValue(segment, "type")
	rec.IsRecurring = hasType && strings.Contains(strings.ToLower(typeText), "recurring")

	why, hasWhy := firstMatch(segment, conversationalWhy, whyField)
	if !hasWhy {
		why, _ = secondLineWhy(segment)
	}
	rec.WhyMatches = why

	logistics, hasLogistics := fieldValue(segment, "logistics")
	if !hasLogistics {
		logistics, _ = logisticsLine(segment, why)
	}
	rec.Date, rec.Time, rec.Location = splitLogistics(logistics)

	rec.URL, _ = firstMatch(segment, urlField, lineURL, howToJoinURL, anyMarkdownLink)

	// A bare first line is only trusted when something else in the segment
	// looks like a recommendation.
	if !structured && !hasType && !hasWhy && !hasLogistics && rec.URL == "" {
		return rec, false
	}
	return rec, true
}

func firstMatch(segment string, extractors ...extractor) (string, bool) {
	for _, extract := range extractors {
		if value, ok := extract(segment); ok {
			return value, true
		}
	}
	return "", false
}

// Segmentation

var (
	headerStart   = regexp.MustCompile(`(?i)#+[ \t]*Recommendation[ \t]+\d+:`)
	numberedStart = regexp.MustCompile(`(?m)^[ \t]*\d+\.(?:[ \t]|\*\*)`)
)

var splitters = []func(string) []string{
	func(text string) []string { return cutAt(text, matchStarts(headerStart, text)) },
	func(text string) []string { return strings.Split(text, "\n\n---\n\n") },
	func(text string) []string { return strings.Split(text, "\n---\n") },
	splitNumbered,
}

// split keeps the first delimiter style that yields at least two segments.
// Text with no delimiters at all is treated as a single segment.
func split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	for _, splitter := range splitters {
		if segments := splitter(text); len(segments) >= 2 {
			return segments
		}
	}
	return []string{text}
}

// splitNumbered cuts before numbered lines that open a new item. Numbered
// field lines ("2. **Type:** ...") belong to the item above them.
func splitNumbered(text string) []string {
	var at []int
	for _, loc := range numberedStart.FindAllStringIndex(text, -1) {
		line := text[loc[0]:]
		if end := strings.IndexByte(line, '\n'); end >= 0 {
			line = line[:end]
		}
		if label, _, ok := parseFieldLine(line); ok && label != "event/activity name" {
			continue
		}
		at = append(at, loc[0])
	}
	return cutAt(text, at)
}

func matchStarts(re *regexp.Regexp, text string) []int {
	var at []int
	for _, loc := range re.FindAllStringIndex(text, -1) {
		at = append(at, loc[0])
	}
	return at
}

func cutAt(text string, at []int) []string {
	var segments []string
	prev := 0
	for _, i := range at {
		if i > prev {
			segments = append(segments, text[prev:i])
			prev = i
		}
	}
	return append(segments, text[prev:])
}

// Field lines

var fieldLine = regexp.MustCompile(`(?i)^\s*(?:\d+\.\s*|[-*•]\s+)?(?:\*\*)?\s*(event/activity name|type|why it matches|why we think you['’]ll like this|logistics|what to expect|how to join|url|date|time|location)\s*(?:\*\*)?\s*:\s*(?:\*\*)?\s*(.*)$`)

// parseFieldLine recognises "Label: value" lines in their numbered, bulleted
// and bold variants. The label comes back lower-cased.
func parseFieldLine(line string) (label, value string, ok bool) {
	m := fieldLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return "", "", false
	}
	label = strings.ReplaceAll(strings.ToLower(m[1]), "’", "'")
	return label, strings.TrimSpace(m[2]), true
}

// fieldValue returns the value of the first field with one of the labels,
// including continuation lines up to the next field or numbered line.
func fieldValue(segment string, labels ...string) (string, bool) {
	lines := strings.Split(segment, "\n")
	for i, line := range lines {
		label, value, ok := parseFieldLine(line)
		if !ok || !contains(labels, label) {
			continue
		}
		parts := []string{value}
		for _, next := range lines[i+1:] {
			if _, _, isField := parseFieldLine(next); isField || numberedStart.MatchString(next) {
				break
			}
			parts = append(parts, next)
		}
		joined := strings.TrimSpace(strings.Join(parts, "\n"))
		return joined, joined != ""
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func nonEmptyLines(segment string) []string {
	var lines []string
	for _, line := range strings.Split(segment, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// Names

var (
	headerNamePattern   = regexp.MustCompile(`(?im)#+[ \t]*Recommendation[ \t]+\d+:[ \t]*(.+)$`)
	boldNumberedPattern = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]*\*\*(.+?)\*\*`)
	numberedPattern     = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+(.+)$`)
	urlPrefix           = regexp.MustCompile(`(?i)^(?:https?://|www\.)`)
	labelName           = regexp.MustCompile(`(?i)^(?:event/activity name|type|name|logistics|what to expect|what|how to join|how|url|why it matches)\s*(?::.*)?$`)

	titleCleaners = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^#+\s*Recommendation\s+\d+:\s*`),
		regexp.MustCompile(`(?i)^\d+\.\s*#+\s*Recommendation\s+\d+:\s*`),
		regexp.MustCompile(`(?i)^\d+\.\s*Recommendation\s+\d+:\s*`),
		regexp.MustCompile(`^#+\s*`),
		regexp.MustCompile(`(?i)^Recommendation\s+\d+:\s*`),
	}
	leadingOrdinal = regexp.MustCompile(`^\d+\.\s*`)
)

// cleanTitle strips markdown headers, "Recommendation N:" prefixes, bold
// markers and leading ordinals.
func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, re := range titleCleaners {
		title = re.ReplaceAllString(title, "")
	}
	title = strings.ReplaceAll(title, "**", "")
	title = leadingOrdinal.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

func usableName(name string) bool {
	if name == "" || utf8.RuneCountInString(name) >= maxNameLength {
		return false
	}
	return !labelName.MatchString(name)
}

func headerName(segment string) (string, bool) {
	m := headerNamePattern.FindStringSubmatch(segment)
	if m == nil {
		return "", false
	}
	name := cleanTitle(m[1])
	return name, usableName(name)
}

func eventNameField(segment string) (string, bool) {
	value, ok := fieldValue(segment, "event/activity name")
	if !ok {
		return "", false
	}
	if i := strings.IndexByte(value, '\n'); i >= 0 {
		value = value[:i]
	}
	name := cleanTitle(value)
	return name, usableName(name)
}

func boldNumberedName(segment string) (string, bool) {
	for _, m := range boldNumberedPattern.FindAllStringSubmatch(segment, -1) {
		if name := cleanTitle(m[1]); usableName(name) {
			return name, true
		}
	}
	return "", false
}

func numberedName(segment string) (string, bool) {
	for _, m := range numberedPattern.FindAllStringSubmatch(segment, -1) {
		if _, _, isField := parseFieldLine(m[0]); isField {
			continue
		}
		if name := cleanTitle(m[1]); usableName(name) {
			return name, true
		}
	}
	return "", false
}

// firstLineName is the weakest guess: the first line that is neither a URL nor
// a field.
func firstLineName(segment string) (string, bool) {
	lines := nonEmptyLines(segment)
	if len(lines) == 0 {
		return "", false
	}
	first := lines[0]
	if first == "#" || urlPrefix.MatchString(first) {
		return "", false
	}
	if _, _, isField := parseFieldLine(first); isField {
		return "", false
	}
	name := cleanTitle(first)
	return name, usableName(name)
}

// Explanation

var (
	conversationalHeader = regexp.MustCompile(`(?i)\*\*Why we think you['’]ll like this:\*\*`)
	explanationStop      = regexp.MustCompile(`^\s*(?:(?i:TBD\s+TBD)|at\s+[A-Z]|(?i:https?://|www\.)|\d{1,2}:\d{2}\s*(?i:AM|PM)|#\s*$)`)
	secondLineReject     = regexp.MustCompile(`(?i)^(?:https?://|www\.|TBD|Date|Time|Location|at |\d{1,2}:\d{2})`)
)

// conversationalWhy captures the three-part "Why we think you'll like this"
// block up to the first line that looks like logistics or a link.
func conversationalWhy(segment string) (string, bool) {
	loc := conversationalHeader.FindStringIndex(segment)
	if loc == nil {
		return "", false
	}
	var parts []string
	for i, line := range strings.Split(segment[loc[1]:], "\n") {
		if i > 0 && explanationStop.MatchString(line) {
			break
		}
		parts = append(parts, line)
	}
	body := strings.TrimSpace(strings.Join(parts, "\n"))
	if body == "" {
		return "", false
	}
	return "**Why we think you'll like this:**\n" + body, true
}

func whyField(segment string) (string, bool) {
	value, ok := fieldValue(segment, "why it matches")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(strings.ReplaceAll(value, "**", "")), true
}

func secondLineWhy(segment string) (string, bool) {
	lines := nonEmptyLines(segment)
	if len(lines) < 2 {
		return "", false
	}
	second := lines[1]
	if secondLineReject.MatchString(second) || utf8.RuneCountInString(second) <= 20 {
		return "", false
	}
	if _, _, isField := parseFieldLine(second); isField {
		return "", false
	}
	return strings.ReplaceAll(second, "**", ""), true
}

// Logistics

var (
	logisticsShape = regexp.MustCompile(`(?i:\bTBD\b)|\d{1,2}:\d{2}|\bat\s+[A-Z]|\b[A-Z][A-Za-z]+,\s+[A-Z]{2}\b`)
	clockPattern   = regexp.MustCompile(`(?i)(\d{1,2}:\d{2}\s*(?:AM|PM))`)
	dayPattern     = regexp.MustCompile(`(?i)\b(every\s+[a-z]+day|bi-weekly|weekly|monthly|ongoing|check schedule|first\s+[a-z]+day|third\s+[a-z]+day|next\s+[a-z]+day|[a-z]+days?)\b`)
	datePattern    = regexp.MustCompile(`(?i)(\d{1,2}/\d{1,2}/\d{4}|[a-z]+\s+\d{1,2},?\s+\d{4}|upcoming\s+weekend|(?:sun|sat),?\s+[a-z]+\s+\d{1,2})`)
	placePattern   = regexp.MustCompile(`(?i)\b(?:at|in)\s+([^,.\n]+?)\s*(?:[.,\n]|$)`)
)

// logisticsLine finds a date/time/location shaped line when there is no
// Logistics field. The name line and the explanation are skipped.
func logisticsLine(segment, why string) (string, bool) {
	lines := nonEmptyLines(segment)
	if len(lines) < 2 {
		return "", false
	}
	for _, line := range lines[1:] {
		if line == why || strings.HasPrefix(line, "**") || urlPrefix.MatchString(line) {
			continue
		}
		if logisticsShape.MatchString(line) {
			return line, true
		}
	}
	return "", false
}

func splitLogistics(logistics string) (date, clock, location string) {
	if logistics == "" {
		return "", "", ""
	}
	hasTBD := strings.Contains(logistics, "TBD")

	if m := clockPattern.FindStringSubmatch(logistics); m != nil {
		clock = strings.TrimSpace(m[1])
	} else if hasTBD {
		clock = "TBD"
	} else if strings.Contains(logistics, "Varies") {
		clock = "Varies"
	}

	if m := dayPattern.FindStringSubmatch(logistics); m != nil {
		date = strings.TrimSpace(m[1])
	} else if m := datePattern.FindStringSubmatch(logistics); m != nil {
		date = strings.TrimSpace(m[1])
	} else if hasTBD {
		date = "TBD"
	}

	if m := placePattern.FindStringSubmatch(logistics); m != nil {
		location = strings.TrimSpace(m[1])
	}
	return date, clock, location
}

// Links

var (
	markdownLink = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)
	bareURL      = regexp.MustCompile(`(?i)https?://[^\s)\]>"']+`)
	wwwURL       = regexp.MustCompile(`(?i)\bwww\.[^\s)\]>"']+`)
	bareDomain   = regexp.MustCompile(`(?i)\b[a-z0-9-]+\.(?:com|org|net|io|co)\b[^\s)\]>"']*`)
)

func trimURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), ".,;:!?")
}

func urlField(segment string) (string, bool) {
	value, ok := fieldValue(segment, "url")
	if !ok {
		return "", false
	}
	if m := markdownLink.FindStringSubmatch(value); m != nil {
		return trimURL(m[1]), true
	}
	if u := bareURL.FindString(value); u != "" {
		return trimURL(u), true
	}
	return "", false
}

// lineURL takes the first absolute URL on any line. A line holding only "#"
// is the placeholder link written for conceptual suggestions.
func lineURL(segment string) (string, bool) {
	for _, line := range nonEmptyLines(segment) {
		if u := bareURL.FindString(line); u != "" {
			return trimURL(u), true
		}
		if line == "#" {
			return "#", true
		}
	}
	return "", false
}

func howToJoinURL(segment string) (string, bool) {
	value, ok := fieldValue(segment, "how to join")
	if !ok {
		return "", false
	}
	if m := markdownLink.FindStringSubmatch(value); m != nil {
		return trimURL(m[1]), true
	}
	for _, re := range []*regexp.Regexp{bareURL, wwwURL, bareDomain} {
		if u := re.FindString(value); u != "" {
			u = trimURL(u)
			if !strings.HasPrefix(strings.ToLower(u), "http") {
				u = "https://" + u
			}
			return u, true
		}
	}
	return "", false
}

func anyMarkdownLink(segment string) (string, bool) {
	if m := markdownLink.FindStringSubmatch(segment); m != nil {
		return trimURL(m[1]), true
	}
	return "", false
}
