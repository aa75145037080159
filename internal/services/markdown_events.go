package services

import (
	"regexp"
	"strings"
)

// markdownEvent is the raw data read from one event block of a scraped page
type markdownEvent struct {
	Title       string
	URL         string
	Date        string
	Time        string
	Location    string
	Price       string
	Description string
}

// eventBlock represents a block of text that potentially contains an event
type eventBlock struct {
	title   string
	url     string
	content []string
}

var (
	blockStartPattern   = regexp.MustCompile(`^(Event:|Activity:|Class:|Workshop:|Program:|\d+\.\s|\*\s+|-\s+)`)
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)[^)]*\)`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`),
		regexp.MustCompile(`\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec|January|February|March|April|June|July|August|September|October|November|December)\.?\s+\d{1,2}\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}\b`),
	}
	recurringDatePattern = regexp.MustCompile(`(?i)\b(every|each)\s+(day|week|month|weekday|weekend|(mon|tues|wednes|thurs|fri|satur|sun)day)s?\b`)

	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*(am|pm)\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}\s*(am|pm)\b`),
		regexp.MustCompile(`\b([01]?\d|2[0-3]):[0-5]\d\b`),
		regexp.MustCompile(`(?i)\bnoon\b`),
	}

	labeledLocationPattern = regexp.MustCompile(`(?i)\b(?:location|venue|where|address|held at|meet at):\s*([^.\n|]+)`)
	venuePattern           = regexp.MustCompile(`\b((?:[A-Z][a-z]+\s+){1,3}(?:Library|Park|Center|Museum|School|Theater|Theatre|Hall|Studio|Church|Temple|Brewery|Cafe))\b`)

	freePattern  = regexp.MustCompile(`(?i)\b(free|no cost|no charge|complimentary)\b`)
	pricePattern = regexp.MustCompile(`\$\d+(?:\.\d{2})?(?:\s*[-–]\s*\$\d+(?:\.\d{2})?)?`)
)

var eventTitleKeywords = []string{
	"class", "workshop", "event", "meetup", "program", "club", "league",
	"music", "art", "dance", "festival", "fair", "market", "night",
	"tour", "walk", "hike", "performance", "show", "concert", "trivia",
	"tasting", "volunteer", "yoga", "run",
}

var metadataPrefixes = []string{
	"date:", "time:", "location:", "price:", "cost:", "when:", "where:",
	"contact:", "phone:", "email:", "website:", "registration:", "venue:",
}

var separatorPhrases = []string{
	"back to top", "more events", "view all", "see more",
	"next page", "previous page", "calendar view",
}

// parseMarkdownEvents reads up to limit event blocks from page markdown. A
// block only counts as an event when a date or time is found in it.
func parseMarkdownEvents(markdown string, limit int) []markdownEvent {
	lines := strings.Split(markdown, "\n")

	var events []markdownEvent
	for _, block := range identifyEventBlocks(lines) {
		if limit > 0 && len(events) == limit {
			break
		}
		event := extractEventFromBlock(block)
		if event.Title == "" || (event.Date == "" && event.Time == "") {
			continue
		}
		events = append(events, event)
	}
	return events
}

// identifyEventBlocks groups lines under the header or list item that starts them
func identifyEventBlocks(lines []string) []eventBlock {
	var blocks []eventBlock
	var current *eventBlock

	flush := func() {
		if current != nil {
			blocks = append(blocks, *current)
			current = nil
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isBlockSeparator(line) {
			flush()
			continue
		}

		if isEventBlockStart(line) {
			flush()
			title, url := cleanEventTitle(line)
			current = &eventBlock{title: title, url: url, content: []string{line}}
			continue
		}

		if current != nil {
			current.content = append(current.content, line)
			if current.url == "" {
				if m := markdownLinkPattern.FindStringSubmatch(line); m != nil {
					current.url = m[2]
				}
			}
		}
	}
	flush()

	return blocks
}

// isEventBlockStart determines if a line starts a new event block
func isEventBlockStart(line string) bool {
	if strings.HasPrefix(line, "#") {
		return true
	}
	if isMetadataLine(line) {
		return false
	}
	if blockStartPattern.MatchString(line) {
		return true
	}
	return isEventHeader(line)
}

// isEventHeader checks for short title-case lines or lines naming an activity
func isEventHeader(line string) bool {
	if len(line) <= 5 || len(line) >= 100 || strings.HasSuffix(line, ".") {
		return false
	}

	lower := strings.ToLower(line)
	for _, keyword := range eventTitleKeywords {
		if strings.Contains(lower, keyword) && looksLikeTitle(line) {
			return true
		}
	}
	return false
}

// looksLikeTitle checks if a line has title-like characteristics
func looksLikeTitle(line string) bool {
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 15 {
		return false
	}

	capitalWords := 0
	for _, word := range words {
		if word[0] >= 'A' && word[0] <= 'Z' {
			capitalWords++
		}
	}
	return float64(capitalWords)/float64(len(words)) >= 0.5
}

// cleanEventTitle strips header markers, list bullets, label prefixes and
// link syntax. The link target, if any, is returned as the event URL.
func cleanEventTitle(line string) (string, string) {
	title := strings.TrimSpace(strings.TrimLeft(line, "#"))
	title = strings.TrimSpace(blockStartPattern.ReplaceAllString(title, ""))

	var url string
	if m := markdownLinkPattern.FindStringSubmatch(title); m != nil {
		url = m[2]
		title = strings.Replace(title, m[0], m[1], 1)
	}

	title = strings.ReplaceAll(title, "**", "")
	title = strings.Trim(title, " *_")
	return title, url
}

// isMetadataLine checks if a line contains metadata rather than description content
func isMetadataLine(line string) bool {
	lower := strings.ToLower(strings.TrimLeft(line, "*-_ "))
	for _, prefix := range metadataPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// isBlockSeparator checks if a line ends the current block without starting another
func isBlockSeparator(line string) bool {
	if line == "---" || line == "***" || line == "___" {
		return true
	}

	lower := strings.ToLower(line)
	for _, phrase := range separatorPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// extractEventFromBlock extracts structured event data from a text block
func extractEventFromBlock(block eventBlock) markdownEvent {
	text := strings.Join(block.content, " ")
	text = markdownLinkPattern.ReplaceAllString(text, "$1")

	return markdownEvent{
		Title:       block.title,
		URL:         block.url,
		Date:        extractDateWithPatterns(text),
		Time:        extractTimeWithPatterns(text),
		Location:    extractLocationWithPatterns(block.content),
		Price:       extractPriceWithPatterns(text),
		Description: buildEventDescription(block.content[1:]),
	}
}

func extractDateWithPatterns(text string) string {
	for _, pattern := range datePatterns {
		if match := pattern.FindString(text); match != "" {
			return strings.TrimSpace(match)
		}
	}
	if match := recurringDatePattern.FindString(text); match != "" {
		return match
	}
	return ""
}

func extractTimeWithPatterns(text string) string {
	for _, pattern := range timePatterns {
		if match := pattern.FindString(text); match != "" {
			match = strings.ReplaceAll(match, "am", "AM")
			match = strings.ReplaceAll(match, "pm", "PM")
			return strings.TrimSpace(match)
		}
	}
	return ""
}

// extractLocationWithPatterns prefers a labeled line and falls back to a
// capitalized venue name anywhere in the block
func extractLocationWithPatterns(lines []string) string {
	for _, line := range lines {
		line = markdownLinkPattern.ReplaceAllString(line, "$1")
		if m := labeledLocationPattern.FindStringSubmatch(line); m != nil {
			location := strings.TrimSpace(strings.Trim(m[1], "*_ "))
			if len(location) > 3 && len(location) < 100 {
				return location
			}
		}
	}
	if m := venuePattern.FindStringSubmatch(strings.Join(lines, " ")); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractPriceWithPatterns(text string) string {
	if freePattern.MatchString(text) {
		return "Free"
	}
	return pricePattern.FindString(text)
}

// buildEventDescription joins up to three descriptive lines, skipping headers and metadata
func buildEventDescription(contentLines []string) string {
	var parts []string
	for _, line := range contentLines {
		line = strings.TrimSpace(markdownLinkPattern.ReplaceAllString(line, "$1"))
		if strings.HasPrefix(line, "#") || isMetadataLine(line) || len(line) <= 20 || len(line) >= 500 {
			continue
		}
		parts = append(parts, line)
		if len(parts) == 3 {
			break
		}
	}
	return strings.Join(parts, " ")
}
