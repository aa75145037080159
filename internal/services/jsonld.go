package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"social-activity-recommender/internal/models"
)

// extractJSONLDEvents reads schema.org Event objects from the page's
// application/ld+json scripts. Blocks that fail to decode are skipped.
func extractJSONLDEvents(html, pageURL string, req FetchRequest) ([]models.Event, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	category := "General"
	if len(req.Categories) > 0 {
		category = req.Categories[0]
	}

	var events []models.Event
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload interface{}
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return
		}
		for _, node := range jsonLDNodes(payload) {
			if !isSchemaEvent(node["@type"]) {
				continue
			}
			if event, ok := eventFromJSONLD(node, pageURL, req, category); ok {
				events = append(events, event)
			}
		}
	})
	return events, nil
}

// jsonLDNodes flattens arrays and @graph containers into plain objects
func jsonLDNodes(payload interface{}) []map[string]interface{} {
	switch v := payload.(type) {
	case []interface{}:
		var nodes []map[string]interface{}
		for _, item := range v {
			nodes = append(nodes, jsonLDNodes(item)...)
		}
		return nodes
	case map[string]interface{}:
		if graph, ok := v["@graph"]; ok {
			return jsonLDNodes(graph)
		}
		return []map[string]interface{}{v}
	}
	return nil
}

// isSchemaEvent accepts Event and its subtypes (MusicEvent, SocialEvent, ...)
func isSchemaEvent(t interface{}) bool {
	switch v := t.(type) {
	case string:
		return strings.HasSuffix(v, "Event")
	case []interface{}:
		for _, item := range v {
			if isSchemaEvent(item) {
				return true
			}
		}
	}
	return false
}

func eventFromJSONLD(node map[string]interface{}, pageURL string, req FetchRequest, category string) (models.Event, bool) {
	name := strings.TrimSpace(fieldString(node, "name"))
	if len(name) <= 3 {
		return models.Event{}, false
	}

	event := models.Event{
		Name:        name,
		Description: fieldString(node, "description"),
		StartTime:   fieldString(node, "startDate"),
		EndTime:     fieldString(node, "endDate"),
		Venue:       req.LocationString(),
		Address:     req.LocationString(),
		URL:         fieldString(node, "url"),
		Cost:        "See website",
		Category:    category,
		Source:      "Local Community",
	}
	if !models.IsValidURL(event.URL) {
		event.URL = pageURL
	}

	if place, ok := node["location"].(map[string]interface{}); ok {
		if venue := fieldString(place, "name"); venue != "" {
			event.Venue = venue
			event.Address = venue
		}
		if address := jsonLDAddress(place["address"]); address != "" {
			event.Address = address
		}
	}

	if free, ok := node["isAccessibleForFree"].(bool); ok && free {
		event.Cost = "Free"
	} else if offers, ok := node["offers"].(map[string]interface{}); ok {
		switch price := offers["price"].(type) {
		case float64:
			if price == 0 {
				event.Cost = "Free"
			} else {
				event.Cost = fmt.Sprintf("$%.2f", price)
			}
		case string:
			if price == "0" || strings.EqualFold(price, "free") {
				event.Cost = "Free"
			} else if price != "" {
				event.Cost = "$" + strings.TrimPrefix(price, "$")
			}
		}
	}
	return event, true
}

func jsonLDAddress(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]interface{}:
		var parts []string
		for _, key := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode"} {
			if part := fieldString(v, key); part != "" {
				parts = append(parts, part)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}
