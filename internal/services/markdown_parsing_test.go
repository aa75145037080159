package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMarkdownParsingRealWorldSamples tests markdown parsing with content shaped like community calendars
func TestMarkdownParsingRealWorldSamples(t *testing.T) {
	t.Run("CalendarFormat", func(t *testing.T) {
		content := `
# Charlottesville Community Events - October 2025

## Weekend Activities

#### Pottery Wheel Workshop
**When:** Saturday, October 4, 2025, 10:00 AM - 12:00 PM
**Where:** McGuffey Art Center, 201 2nd St NW, Charlottesville, VA
**Cost:** $25 per person

Join us for a hands-on pottery workshop where adults explore wheel throwing. All materials provided.

#### Movie in the Park
**When:** Saturday, October 4, 2025, 7:00 PM
**Where:** Washington Park, Charlottesville, VA
**Cost:** Free (donations appreciated)

Outdoor screening of a classic film. Event may be cancelled due to weather.
`
		events := parseMarkdownEvents(content, 0)
		require.Len(t, events, 2)

		pottery := events[0]
		assert.Equal(t, "Pottery Wheel Workshop", pottery.Title)
		assert.Equal(t, "October 4, 2025", pottery.Date)
		assert.Equal(t, "10:00 AM", pottery.Time)
		assert.Equal(t, "McGuffey Art Center, 201 2nd St NW, Charlottesville, VA", pottery.Location)
		assert.Equal(t, "$25", pottery.Price)
		assert.True(t, strings.HasPrefix(pottery.Description, "Join us for a hands-on pottery workshop"))

		movie := events[1]
		assert.Equal(t, "Movie in the Park", movie.Title)
		assert.Equal(t, "7:00 PM", movie.Time)
		assert.Equal(t, "Washington Park, Charlottesville, VA", movie.Location)
		assert.Equal(t, "Free", movie.Price)
	})

	t.Run("LinkedTitleWithRecurringSchedule", func(t *testing.T) {
		content := `
### [Trivia Night](https://example.org/trivia)
Every Tuesday, 7 pm at Champion Brewery
`
		events := parseMarkdownEvents(content, 0)
		require.Len(t, events, 1)
		assert.Equal(t, "Trivia Night", events[0].Title)
		assert.Equal(t, "https://example.org/trivia", events[0].URL)
		assert.Equal(t, "Every Tuesday", events[0].Date)
		assert.Equal(t, "7 PM", events[0].Time)
		assert.Equal(t, "Champion Brewery", events[0].Location)
	})
}

// TestMarkdownParsingEdgeCases tests various edge cases in markdown parsing
func TestMarkdownParsingEdgeCases(t *testing.T) {
	t.Run("EmptyContent", func(t *testing.T) {
		assert.Empty(t, parseMarkdownEvents("", 0))
	})

	t.Run("OnlyHeaders", func(t *testing.T) {
		content := `
# Main Header
## Sub Header
### Another Header
#### Yet Another Header
`
		assert.Empty(t, parseMarkdownEvents(content, 0))
	})

	t.Run("SeparatorEndsBlock", func(t *testing.T) {
		content := `
## Board Game Night
October 9, 7:00 PM
Back to top
Sign up for our newsletter on October 12
`
		events := parseMarkdownEvents(content, 0)
		require.Len(t, events, 1)
		assert.Equal(t, "October 9", events[0].Date)
		assert.Equal(t, "7:00 PM", events[0].Time)
		assert.Empty(t, events[0].Description)
	})

	t.Run("VeryLongContent", func(t *testing.T) {
		var content strings.Builder
		content.WriteString("# Very Long Document\n\n")
		for i := 0; i < 100; i++ {
			content.WriteString("This is filler text that doesn't contain event information. ")
		}
		content.WriteString("\n\n## Real Event\n")
		content.WriteString("Date: December 15, 2025\n")
		content.WriteString("Time: 2 PM\n")
		content.WriteString("Location: Jefferson School Center\n")
		content.WriteString("This is a real event buried in lots of content.\n\n")

		events := parseMarkdownEvents(content.String(), 0)
		require.Len(t, events, 1)
		assert.Equal(t, "Real Event", events[0].Title)
		assert.Equal(t, "December 15, 2025", events[0].Date)
		assert.Equal(t, "Jefferson School Center", events[0].Location)
	})

	t.Run("Limit", func(t *testing.T) {
		content := `
## Yoga Class
October 5, 9:00 AM

## Dance Class
October 6, 6:00 PM

## Art Class
October 7, 5:00 PM
`
		events := parseMarkdownEvents(content, 2)
		require.Len(t, events, 2)
		assert.Equal(t, "Dance Class", events[1].Title)
	})
}

func TestCleanEventTitle(t *testing.T) {
	testCases := []struct {
		line          string
		expectedTitle string
		expectedURL   string
	}{
		{"## **Salsa Social**", "Salsa Social", ""},
		{"1. Open Mic Night", "Open Mic Night", ""},
		{"- [Book Club](https://lib.example.org/book-club)", "Book Club", "https://lib.example.org/book-club"},
		{"Workshop: Intro to Woodworking", "Intro to Woodworking", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.line, func(t *testing.T) {
			title, url := cleanEventTitle(tc.line)
			assert.Equal(t, tc.expectedTitle, title)
			assert.Equal(t, tc.expectedURL, url)
		})
	}
}
