package models

import "time"

// User is a person who completed the survey. Created once at submission and
// updated in place when the profile is edited.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Age         int       `json:"age"`
	Gender      string    `json:"gender"`
	Zipcode     string    `json:"zipcode"`
	CreatedTime time.Time `json:"createdTime,omitempty"`
}

// DisplayName falls back to a neutral name for records created without one
func (u *User) DisplayName() string {
	if u == nil || u.Name == "" {
		return "User"
	}
	return u.Name
}

// CalculatedScores holds the trait and motivation values computed by the
// record store's formula engine. The service only creates the linking record
// and reads the values back.
type CalculatedScores struct {
	ID                        string    `json:"id"`
	UserID                    string    `json:"userId"`
	SurveyResponseID          string    `json:"surveyResponseId"`
	ExtraversionRaw           float64   `json:"extraversionRaw"`
	ExtraversionCategory      string    `json:"extraversionCategory"`
	ConscientiousnessRaw      float64   `json:"conscientiousnessRaw"`
	ConscientiousnessCategory string    `json:"conscientiousnessCategory"`
	OpennessRaw               float64   `json:"opennessRaw"`
	OpennessCategory          string    `json:"opennessCategory"`
	PrimaryMotivation         string    `json:"primaryMotivation"`
	IntrinsicMotivation       float64   `json:"intrinsicMotivation"`
	SocialMotivation          float64   `json:"socialMotivation"`
	AchievementMotivation     float64   `json:"achievementMotivation"`
	CreatedTime               time.Time `json:"createdTime,omitempty"`
}

// ApplyDefaults fills in the values used when formulas have not produced output yet
func (s *CalculatedScores) ApplyDefaults() {
	if s.ExtraversionCategory == "" {
		s.ExtraversionCategory = TraitMedium
	}
	if s.ConscientiousnessCategory == "" {
		s.ConscientiousnessCategory = TraitMedium
	}
	if s.OpennessCategory == "" {
		s.OpennessCategory = TraitMedium
	}
	if s.PrimaryMotivation == "" {
		s.PrimaryMotivation = MotivationSocial
	}
}

// PrimaryMotivationScore returns the score of whichever motivation is primary
func (s *CalculatedScores) PrimaryMotivationScore() float64 {
	switch s.PrimaryMotivation {
	case MotivationIntrinsic:
		return s.IntrinsicMotivation
	case MotivationSocial:
		return s.SocialMotivation
	default:
		return s.AchievementMotivation
	}
}

// GPTPrompt is the append-only audit record of one generation attempt
type GPTPrompt struct {
	ID                       string    `json:"id"`
	UserID                   string    `json:"userId"`
	SurveyResponseID         string    `json:"surveyResponseId"`
	CalculatedScoresID       string    `json:"calculatedScoresId"`
	PromptText               string    `json:"promptText"`
	RecommendationsGenerated string    `json:"recommendationsGenerated"`
	CreatedTime              time.Time `json:"createdTime,omitempty"`
}

// Feedback is a user's reaction to one recommendation
type Feedback struct {
	UserID           string `json:"userId"`
	RecommendationID string `json:"recommendationId"`
	Action           string `json:"action"`
	Reason           string `json:"reason,omitempty"`
	Timestamp        string `json:"timestamp,omitempty"`
}

// Trait categories written by the record store formulas
const (
	TraitHigh   = "High"
	TraitMedium = "Medium"
	TraitLow    = "Low"
)

// Motivation names written by the record store formulas
const (
	MotivationIntrinsic   = "Intrinsic"
	MotivationSocial      = "Social"
	MotivationAchievement = "Achievement"
)

// Feedback actions
const (
	FeedbackInterested    = "interested"
	FeedbackMaybe         = "maybe"
	FeedbackNotInterested = "not-interested"
)
