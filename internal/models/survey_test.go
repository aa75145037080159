package models

import (
	"encoding/json"
	"testing"
)

func validSubmission() SurveySubmission {
	age := 30
	return SurveySubmission{
		Name:     "Ada",
		Username: "ada",
		Email:    "ada@example.com",
		Age:      &age,
		Gender:   "Female",
		Zipcode:  "22903",
		SurveyAnswers: SurveyAnswers{
			Personality: map[string]float64{"q1": 5, "q6": 3, "q3": 6, "q8": 2, "q5": 4, "q10": 3},
			Motivation:  map[string]float64{"m1": 4, "m2": 5, "m3": 3, "m4": 4, "m5": 5, "m6": 3},
			Interests:   InterestAnswers{Categories: []string{"sports"}},
		},
	}
}

func TestSurveySubmissionValidate(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(s *SurveySubmission)
		expected string
	}{
		{"valid", func(s *SurveySubmission) {}, ""},
		{"missing name", func(s *SurveySubmission) { s.Name = "  " }, "Name is required"},
		{"short username", func(s *SurveySubmission) { s.Username = "ab" }, "Username is required (minimum 3 characters)"},
		{"bad email", func(s *SurveySubmission) { s.Email = "ada@example" }, "Valid email is required (format: name@domain.com)"},
		{"missing age", func(s *SurveySubmission) { s.Age = nil }, "Valid age is required (1-120)"},
		{"age too high", func(s *SurveySubmission) { a := 121; s.Age = &a }, "Valid age is required (1-120)"},
		{"missing gender", func(s *SurveySubmission) { s.Gender = "" }, "Gender is required"},
		{"short zipcode", func(s *SurveySubmission) { s.Zipcode = "2290" }, "Valid zipcode is required (5 digits)"},
		{"no personality", func(s *SurveySubmission) { s.Personality = nil }, "Personality scores are required"},
		{"personality out of range", func(s *SurveySubmission) { s.Personality["q8"] = 8 }, "Personality question q8 must be a number between 1 and 7"},
		{"personality missing", func(s *SurveySubmission) { delete(s.Personality, "q10") }, "Personality question q10 must be a number between 1 and 7"},
		{"motivation out of range", func(s *SurveySubmission) { s.Motivation["m3"] = 0 }, "Motivation question m3 must be a number between 1 and 5"},
		{"no categories", func(s *SurveySubmission) { s.Interests.Categories = nil }, "Please select at least one interest category"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSubmission()
			tc.mutate(&s)
			err := s.Validate()
			if tc.expected == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error %q, got nil", tc.expected)
			}
			if err.Error() != tc.expected {
				t.Errorf("Expected: %q, got: %q", tc.expected, err.Error())
			}
		})
	}
}

func TestSurveySubmissionDecodeWrongTypes(t *testing.T) {
	testCases := []struct {
		name     string
		field    string
		value    interface{}
		expected string
	}{
		{"age as string", "age", "30", "Valid age is required (1-120)"},
		{"fractional age", "age", 30.5, "Valid age is required (1-120)"},
		{"personality score as string", "personality", map[string]interface{}{"q1": "5", "q6": 3, "q3": 6, "q8": 2, "q5": 4, "q10": 3}, "Personality question q1 must be a number between 1 and 7"},
		{"personality not an object", "personality", "high", "Personality scores are required"},
		{"motivation score as bool", "motivation", map[string]interface{}{"m1": 4, "m2": true, "m3": 3, "m4": 4, "m5": 5, "m6": 3}, "Motivation question m2 must be a number between 1 and 5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := json.Marshal(validSubmission())
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var body map[string]interface{}
			if err := json.Unmarshal(encoded, &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			body[tc.field] = tc.value
			encoded, _ = json.Marshal(body)

			var s SurveySubmission
			if err := json.Unmarshal(encoded, &s); err != nil {
				t.Fatalf("Expected lenient decode, got: %v", err)
			}
			if s.Name != "Ada" || s.Zipcode != "22903" || len(s.Interests.Categories) != 1 {
				t.Errorf("Expected remaining fields decoded, got: %+v", s)
			}
			err = s.Validate()
			if err == nil || err.Error() != tc.expected {
				t.Errorf("Expected: %q, got: %v", tc.expected, err)
			}
		})
	}
}

func TestSurveySubmissionDecodeValid(t *testing.T) {
	body := `{"isEdit":true,"userId":"recAda","name":"Ada","username":"ada","email":"ada@example.com","age":30,` +
		`"gender":"Female","zipcode":"22903","personality":{"q1":5,"q6":3,"q3":6,"q8":2,"q5":4,"q10":3},` +
		`"motivation":{"m1":4,"m2":5,"m3":3,"m4":4,"m5":5,"m6":3},"interests":{"categories":["sports"]}}`

	var s SurveySubmission
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if !s.IsEdit || s.UserID != "recAda" || s.Age == nil || *s.Age != 30 || s.Personality["q3"] != 6 {
		t.Errorf("Unexpected decode: %+v", s)
	}
}

func TestSubmissionMode(t *testing.T) {
	testCases := []struct {
		name   string
		isEdit bool
		userID string
		edit   bool
	}{
		{"new", false, "", false},
		{"edit flag without id", true, "", false},
		{"id without flag", false, "rec123", false},
		{"edit", true, "rec123", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := SurveySubmission{IsEdit: tc.isEdit, UserID: tc.userID}
			mode := s.Mode()
			if mode.IsEdit() != tc.edit {
				t.Errorf("Expected edit=%v, got %v", tc.edit, mode.IsEdit())
			}
			if tc.edit && mode.UserID() != tc.userID {
				t.Errorf("Expected user id %q, got %q", tc.userID, mode.UserID())
			}
		})
	}
}

func TestMapInterestCategories(t *testing.T) {
	got := MapInterestCategories([]string{"sports", "Arts & Culture", "knitting"})
	expected := []string{"Sports & Fitness", "Arts & Culture", "knitting"}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Expected: %q, got: %q", expected[i], got[i])
		}
	}
}

func TestEventDedupKey(t *testing.T) {
	e := Event{Name: "Pottery Night", StartTime: "2025-03-04T18:00:00Z"}
	key, ok := e.DedupKey()
	if !ok || key != "pottery night_2025-03-04" {
		t.Errorf("Unexpected key %q (%v)", key, ok)
	}

	noTime := Event{Name: "Pottery Night"}
	if _, ok := noTime.DedupKey(); ok {
		t.Error("Expected no key for event without start time")
	}
}

func TestValidateFeedbackAction(t *testing.T) {
	for _, action := range FeedbackActions() {
		if !ValidateFeedbackAction(action) {
			t.Errorf("Expected %q to be valid", action)
		}
	}
	if ValidateFeedbackAction("love-it") {
		t.Error("Expected love-it to be invalid")
	}
}
