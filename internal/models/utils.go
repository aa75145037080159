package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// MapInterestCategories converts internal category keys to store labels.
// Values that are already labels, or unknown, pass through unchanged.
func MapInterestCategories(categories []string) []string {
	mapped := make([]string, 0, len(categories))
	for _, category := range categories {
		key := strings.ToLower(strings.TrimSpace(category))
		if label, ok := interestCategoryLabels[key]; ok {
			mapped = append(mapped, label)
			continue
		}
		mapped = append(mapped, category)
	}
	return mapped
}

// ValidateInterestCategory checks the label against the controlled vocabulary
func ValidateInterestCategory(category string) bool {
	for _, label := range interestCategoryLabels {
		if category == label {
			return true
		}
	}
	return false
}

// ValidateFeedbackAction checks if the feedback action is valid
func ValidateFeedbackAction(action string) bool {
	validActions := []string{
		FeedbackInterested,
		FeedbackMaybe,
		FeedbackNotInterested,
	}

	for _, validAction := range validActions {
		if action == validAction {
			return true
		}
	}
	return false
}

// FeedbackActions lists the valid actions in display order
func FeedbackActions() []string {
	return []string{FeedbackInterested, FeedbackMaybe, FeedbackNotInterested}
}

// HashHex returns the first n hex characters of sha256(input)
func HashHex(input string, n int) string {
	hash := sha256.Sum256([]byte(input))
	encoded := hex.EncodeToString(hash[:])
	if n <= 0 || n > len(encoded) {
		return encoded
	}
	return encoded[:n]
}

// GenerateSnapshotKey creates a stable object key for an archived event list
func GenerateSnapshotKey(postalCode string, categories []string, stamp string) string {
	input := fmt.Sprintf("%s|%s", postalCode, strings.Join(categories, ","))
	return fmt.Sprintf("events/%s/%s_%s.json", postalCode, stamp, HashHex(input, 8))
}

// IsValidURL performs basic URL validation
func IsValidURL(url string) bool {
	if url == "" {
		return false
	}

	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// CitySlug lowercases a city name and strips whitespace, e.g. "San Diego" -> "sandiego"
func CitySlug(city string) string {
	return strings.Join(strings.Fields(strings.ToLower(city)), "")
}
