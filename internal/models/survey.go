package models

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// PersonalityQuestions are the six short-form Big Five items, in form order
var PersonalityQuestions = []string{"q1", "q6", "q3", "q8", "q5", "q10"}

// MotivationQuestions are the six motivation items
var MotivationQuestions = []string{"m1", "m2", "m3", "m4", "m5", "m6"}

// SocialAnswers captures the social-needs section of the survey
type SocialAnswers struct {
	CloseFriends string   `json:"closeFriends"`
	Satisfaction string   `json:"satisfaction"`
	Loneliness   string   `json:"loneliness"`
	LookingFor   []string `json:"lookingFor"`
}

// InterestAnswers holds the controlled-vocabulary categories and free text
type InterestAnswers struct {
	Categories []string `json:"categories"`
	Specific   string   `json:"specific"`
}

// PreferenceAnswers holds time, distance and the six setting toggles
type PreferenceAnswers struct {
	FreeTime       string `json:"freeTime"`
	TravelDistance string `json:"travelDistance"`
	Indoor         bool   `json:"indoor"`
	Outdoor        bool   `json:"outdoor"`
	Physical       bool   `json:"physical"`
	Relaxed        bool   `json:"relaxed"`
	Structured     bool   `json:"structured"`
	Spontaneous    bool   `json:"spontaneous"`
}

// AffinityAnswers holds the six affinity-group tag sets
type AffinityAnswers struct {
	Faith         []string `json:"faith"`
	LGBTQ         []string `json:"lgbtq"`
	Cultural      []string `json:"cultural"`
	Womens        []string `json:"womens"`
	YoungProf     []string `json:"youngProf"`
	International []string `json:"international"`
}

// IsEmpty reports whether no affinity group was selected
func (a AffinityAnswers) IsEmpty() bool {
	return len(a.Faith)+len(a.LGBTQ)+len(a.Cultural)+len(a.Womens)+len(a.YoungProf)+len(a.International) == 0
}

// SurveyAnswers is the survey body shared by submissions and stored responses
type SurveyAnswers struct {
	Personality    map[string]float64 `json:"personality"`
	Motivation     map[string]float64 `json:"motivation"`
	Social         SocialAnswers      `json:"social"`
	Interests      InterestAnswers    `json:"interests"`
	Preferences    PreferenceAnswers  `json:"preferences"`
	AffinityGroups AffinityAnswers    `json:"affinityGroups"`
}

// SurveyResponse is a stored survey linked to a user
type SurveyResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	CreatedTime time.Time `json:"createdTime,omitempty"`
	SurveyAnswers
}

// SurveyForm is the flat user + survey document used to pre-fill the edit form
type SurveyForm struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
	Zipcode  string `json:"zipcode"`
	SurveyAnswers
}

// SurveySubmission is the body of POST /api/submit-survey
type SurveySubmission struct {
	IsEdit   bool   `json:"isEdit"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Age      *int   `json:"age"`
	Gender   string `json:"gender"`
	Zipcode  string `json:"zipcode"`
	SurveyAnswers
}

// UnmarshalJSON leaves a wrongly typed age or score unset instead of failing,
// so Validate reports it with the field's own message.
func (s *SurveySubmission) UnmarshalJSON(data []byte) error {
	type submission SurveySubmission
	var raw struct {
		submission
		Age         interface{} `json:"age"`
		Personality interface{} `json:"personality"`
		Motivation  interface{} `json:"motivation"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = SurveySubmission(raw.submission)
	s.Age = wholeNumber(raw.Age)
	s.Personality = numericScores(raw.Personality)
	s.Motivation = numericScores(raw.Motivation)
	return nil
}

func wholeNumber(v interface{}) *int {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}

// numericScores keeps only the numeric answers; a non-object yields nil
func numericScores(v interface{}) map[string]float64 {
	answers, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	scores := make(map[string]float64, len(answers))
	for question, answer := range answers {
		if score, ok := answer.(float64); ok {
			scores[question] = score
		}
	}
	return scores
}

// User builds the trimmed user record carried by the submission
func (s *SurveySubmission) User() User {
	u := User{
		ID:       s.UserID,
		Name:     strings.TrimSpace(s.Name),
		Username: strings.TrimSpace(s.Username),
		Email:    strings.TrimSpace(s.Email),
		Gender:   strings.TrimSpace(s.Gender),
		Zipcode:  strings.TrimSpace(s.Zipcode),
	}
	if s.Age != nil {
		u.Age = *s.Age
	}
	return u
}

// Mode decides once whether the submission creates or edits records
func (s *SurveySubmission) Mode() SubmissionMode {
	return ModeFor(s.IsEdit, s.UserID)
}

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	zipcodePattern = regexp.MustCompile(`^\d{5}$`)
)

// ValidationError is a request-shape problem reported back to the caller as a 400
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Validate checks the submission in form order and returns the first problem
func (s *SurveySubmission) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return invalid("Name is required")
	}
	if len(strings.TrimSpace(s.Username)) < 3 {
		return invalid("Username is required (minimum 3 characters)")
	}
	if !emailPattern.MatchString(strings.TrimSpace(s.Email)) {
		return invalid("Valid email is required (format: name@domain.com)")
	}
	if s.Age == nil || *s.Age < 1 || *s.Age > 120 {
		return invalid("Valid age is required (1-120)")
	}
	if strings.TrimSpace(s.Gender) == "" {
		return invalid("Gender is required")
	}
	if !zipcodePattern.MatchString(strings.TrimSpace(s.Zipcode)) {
		return invalid("Valid zipcode is required (5 digits)")
	}

	if s.Personality == nil {
		return invalid("Personality scores are required")
	}
	for _, q := range PersonalityQuestions {
		score, ok := s.Personality[q]
		if !ok || score < 1 || score > 7 {
			return invalid("Personality question %s must be a number between 1 and 7", q)
		}
	}

	if s.Motivation == nil {
		return invalid("Motivation scores are required")
	}
	for _, m := range MotivationQuestions {
		score, ok := s.Motivation[m]
		if !ok || score < 1 || score > 5 {
			return invalid("Motivation question %s must be a number between 1 and 5", m)
		}
	}

	if len(s.Interests.Categories) == 0 {
		return invalid("Please select at least one interest category")
	}
	return nil
}
