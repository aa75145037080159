package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"social-activity-recommender/internal/logging"
	"social-activity-recommender/internal/models"
)

// RecordStore maps the domain models onto the record store tables
type RecordStore struct {
	client *AirtableClient
	logger *logging.Logger
}

// NewRecordStore wraps an AirtableClient
func NewRecordStore(client *AirtableClient, logger *logging.Logger) *RecordStore {
	return &RecordStore{client: client, logger: logging.OrNop(logger)}
}

// Client exposes the underlying client for direct queries
func (s *RecordStore) Client() *AirtableClient {
	return s.client
}

// CreateUser inserts a new user and returns it with its store id
func (s *RecordStore) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	record, err := s.client.Create(ctx, models.TableUsers, userFields(user))
	if err != nil {
		return nil, err
	}
	s.logger.Info("[AIRTABLE] user created", "user_id", record.ID)
	return userFromRecord(record), nil
}

// UpdateUser overwrites the profile fields of an existing user
func (s *RecordStore) UpdateUser(ctx context.Context, user models.User) error {
	if user.ID == "" {
		return fmt.Errorf("failed to update user: %w", ErrNotFound)
	}
	_, err := s.client.Update(ctx, models.TableUsers, user.ID, userFields(user))
	return err
}

// GetUser fetches a user by record id
func (s *RecordStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	record, err := s.client.Find(ctx, models.TableUsers, id)
	if err != nil {
		return nil, err
	}
	return userFromRecord(record), nil
}

// GetUserByUsername matches the username exactly
func (s *RecordStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	formula := fmt.Sprintf("{%s} = '%s'", models.FieldUsername, escapeFormulaValue(username))
	return s.findUser(ctx, formula, "username")
}

// GetUserByEmail matches the email case-insensitively
func (s *RecordStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	formula := fmt.Sprintf(`LOWER({%s}) = "%s"`, models.FieldEmail, escapeFormulaValue(strings.ToLower(email)))
	return s.findUser(ctx, formula, "email")
}

func (s *RecordStore) findUser(ctx context.Context, formula, by string) (*models.User, error) {
	records, err := s.client.Select(ctx, models.TableUsers, SelectOptions{FilterByFormula: formula, MaxRecords: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to find user by %s: %w", by, ErrNotFound)
	}
	return userFromRecord(&records[0]), nil
}

// CreateSurveyResponse stores a survey linked to userID
func (s *RecordStore) CreateSurveyResponse(ctx context.Context, userID string, answers models.SurveyAnswers) (*models.SurveyResponse, error) {
	if userID == "" {
		return nil, fmt.Errorf("userId is required")
	}
	fields := surveyFields(answers)
	fields[models.FieldUser] = []string{userID}

	record, err := s.client.Create(ctx, models.TableSurveyResponses, fields)
	if err != nil {
		return nil, err
	}
	return surveyFromRecord(record), nil
}

// UpdateSurveyResponse overwrites the answers of an existing survey response
func (s *RecordStore) UpdateSurveyResponse(ctx context.Context, id string, answers models.SurveyAnswers) (*models.SurveyResponse, error) {
	record, err := s.client.Update(ctx, models.TableSurveyResponses, id, surveyFields(answers))
	if err != nil {
		return nil, err
	}
	return surveyFromRecord(record), nil
}

// GetSurveyResponse fetches a survey response by record id
func (s *RecordStore) GetSurveyResponse(ctx context.Context, id string) (*models.SurveyResponse, error) {
	record, err := s.client.Find(ctx, models.TableSurveyResponses, id)
	if err != nil {
		return nil, err
	}
	return surveyFromRecord(record), nil
}

// LatestSurveyResponse returns the newest survey response linked to userID
func (s *RecordStore) LatestSurveyResponse(ctx context.Context, userID string) (*models.SurveyResponse, error) {
	records, err := s.client.FindLinkedRecords(ctx, models.TableSurveyResponses, models.FieldUser, userID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to find survey response for user %s: %w", userID, ErrNotFound)
	}
	return surveyFromRecord(&records[0]), nil
}

// CreateCalculatedScores creates the linking record and re-reads it so the
// store's formula values are populated.
func (s *RecordStore) CreateCalculatedScores(ctx context.Context, userID, surveyResponseID string) (*models.CalculatedScores, error) {
	if userID == "" || surveyResponseID == "" {
		return nil, fmt.Errorf("userId and surveyResponseId are required")
	}
	created, err := s.client.Create(ctx, models.TableCalculatedScores, map[string]interface{}{
		models.FieldUser:           []string{userID},
		models.FieldSurveyResponse: []string{surveyResponseID},
	})
	if err != nil {
		return nil, err
	}
	return s.GetCalculatedScores(ctx, created.ID)
}

// UpdateCalculatedScores re-links the user's latest scores record to the
// survey response, which makes the store recompute its formulas. A user with
// no scores record gets a new one.
func (s *RecordStore) UpdateCalculatedScores(ctx context.Context, userID, surveyResponseID string) (*models.CalculatedScores, error) {
	existing, err := s.LatestCalculatedScores(ctx, userID)
	if IsNotFound(err) {
		return s.CreateCalculatedScores(ctx, userID, surveyResponseID)
	}
	if err != nil {
		return nil, err
	}

	_, err = s.client.Update(ctx, models.TableCalculatedScores, existing.ID, map[string]interface{}{
		models.FieldUser:           []string{userID},
		models.FieldSurveyResponse: []string{surveyResponseID},
	})
	if err != nil {
		return nil, err
	}
	return s.GetCalculatedScores(ctx, existing.ID)
}

// GetCalculatedScores fetches a scores record by id with defaults applied
func (s *RecordStore) GetCalculatedScores(ctx context.Context, id string) (*models.CalculatedScores, error) {
	record, err := s.client.Find(ctx, models.TableCalculatedScores, id)
	if err != nil {
		return nil, err
	}
	return scoresFromRecord(record), nil
}

// LatestCalculatedScores returns the newest scores record linked to userID
func (s *RecordStore) LatestCalculatedScores(ctx context.Context, userID string) (*models.CalculatedScores, error) {
	records, err := s.client.FindLinkedRecords(ctx, models.TableCalculatedScores, models.FieldUser, userID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to find calculated scores for user %s: %w", userID, ErrNotFound)
	}
	return scoresFromRecord(&records[0]), nil
}

// SavePrompt appends a generation record. Empty link ids are omitted.
func (s *RecordStore) SavePrompt(ctx context.Context, prompt models.GPTPrompt) (*models.GPTPrompt, error) {
	fields := map[string]interface{}{
		models.FieldPromptText:               prompt.PromptText,
		models.FieldRecommendationsGenerated: prompt.RecommendationsGenerated,
	}
	if prompt.UserID != "" {
		fields[models.FieldUser] = []string{prompt.UserID}
	}
	if prompt.SurveyResponseID != "" {
		fields[models.FieldSurveyResponse] = []string{prompt.SurveyResponseID}
	}
	if prompt.CalculatedScoresID != "" {
		fields[models.FieldCalculatedScores] = []string{prompt.CalculatedScoresID}
	}

	record, err := s.client.Create(ctx, models.TableGPTPrompts, fields)
	if err != nil {
		return nil, err
	}
	return promptFromRecord(record), nil
}

// LatestPrompt returns the newest generation record linked to userID
func (s *RecordStore) LatestPrompt(ctx context.Context, userID string) (*models.GPTPrompt, error) {
	records, err := s.client.FindLinkedRecords(ctx, models.TableGPTPrompts, models.FieldUser, userID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to find recommendations for user %s: %w", userID, ErrNotFound)
	}
	return promptFromRecord(&records[0]), nil
}

// SaveFeedback stores a reaction to one recommendation
func (s *RecordStore) SaveFeedback(ctx context.Context, feedback models.Feedback) error {
	timestamp := feedback.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	fields := map[string]interface{}{
		models.FieldUser:             []string{feedback.UserID},
		models.FieldRecommendationID: feedback.RecommendationID,
		models.FieldAction:           feedback.Action,
		models.FieldTimestamp:        timestamp,
	}
	if feedback.Reason != "" {
		fields[models.FieldReason] = feedback.Reason
	}
	_, err := s.client.Create(ctx, models.TableRecommendationFeedback, fields)
	return err
}

func userFields(user models.User) map[string]interface{} {
	return map[string]interface{}{
		models.FieldName:     user.Name,
		models.FieldUsername: user.Username,
		models.FieldEmail:    user.Email,
		models.FieldAge:      user.Age,
		models.FieldGender:   user.Gender,
		models.FieldZipcode:  user.Zipcode,
	}
}

func userFromRecord(record *AirtableRecord) *models.User {
	f := record.Fields
	return &models.User{
		ID:          record.ID,
		Name:        fieldString(f, models.FieldName),
		Username:    fieldString(f, models.FieldUsername),
		Email:       fieldString(f, models.FieldEmail),
		Age:         int(fieldFloat(f, models.FieldAge)),
		Gender:      fieldString(f, models.FieldGender),
		Zipcode:     fieldString(f, models.FieldZipcode),
		CreatedTime: record.CreatedTime,
	}
}

func surveyFields(answers models.SurveyAnswers) map[string]interface{} {
	fields := map[string]interface{}{
		models.FieldLookingFor:         nonNil(answers.Social.LookingFor),
		models.FieldInterestCategories: nonNil(models.MapInterestCategories(answers.Interests.Categories)),
		models.FieldSpecificInterests:  answers.Interests.Specific,

		models.FieldPrefIndoor:         answers.Preferences.Indoor,
		models.FieldPrefOutdoor:        answers.Preferences.Outdoor,
		models.FieldPrefPhysicalActive: answers.Preferences.Physical,
		models.FieldPrefRelaxedLowkey:  answers.Preferences.Relaxed,
		models.FieldPrefStructured:     answers.Preferences.Structured,
		models.FieldPrefSpontaneous:    answers.Preferences.Spontaneous,

		models.FieldAffinityFaithBased:    nonNil(answers.AffinityGroups.Faith),
		models.FieldAffinityLGBTQ:         nonNil(answers.AffinityGroups.LGBTQ),
		models.FieldAffinityCultural:      nonNil(answers.AffinityGroups.Cultural),
		models.FieldAffinityWomens:        nonNil(answers.AffinityGroups.Womens),
		models.FieldAffinityYoungProf:     nonNil(answers.AffinityGroups.YoungProf),
		models.FieldAffinityInternational: nonNil(answers.AffinityGroups.International),
	}

	for key, field := range models.PersonalityFields {
		if score, ok := answers.Personality[key]; ok {
			fields[field] = score
		}
	}
	for key, field := range models.MotivationFields {
		if score, ok := answers.Motivation[key]; ok {
			fields[field] = score
		}
	}

	// Empty select values are rejected by the store, so they are left out.
	setIfPresent(fields, models.FieldCloseFriendsCount, answers.Social.CloseFriends)
	setIfPresent(fields, models.FieldSocialSatisfaction, answers.Social.Satisfaction)
	setIfPresent(fields, models.FieldLonelinessFrequency, answers.Social.Loneliness)
	setIfPresent(fields, models.FieldFreeTimePerWeek, answers.Preferences.FreeTime)
	setIfPresent(fields, models.FieldTravelDistance, answers.Preferences.TravelDistance)
	return fields
}

func surveyFromRecord(record *AirtableRecord) *models.SurveyResponse {
	f := record.Fields
	response := &models.SurveyResponse{
		ID:          record.ID,
		UserID:      firstLink(f, models.FieldUser),
		CreatedTime: record.CreatedTime,
	}
	response.Personality = make(map[string]float64, len(models.PersonalityFields))
	for key, field := range models.PersonalityFields {
		if _, ok := f[field]; ok {
			response.Personality[key] = fieldFloat(f, field)
		}
	}
	response.Motivation = make(map[string]float64, len(models.MotivationFields))
	for key, field := range models.MotivationFields {
		if _, ok := f[field]; ok {
			response.Motivation[key] = fieldFloat(f, field)
		}
	}

	response.Social = models.SocialAnswers{
		CloseFriends: fieldString(f, models.FieldCloseFriendsCount),
		Satisfaction: fieldString(f, models.FieldSocialSatisfaction),
		Loneliness:   fieldString(f, models.FieldLonelinessFrequency),
		LookingFor:   fieldStrings(f, models.FieldLookingFor),
	}
	response.Interests = models.InterestAnswers{
		Categories: fieldStrings(f, models.FieldInterestCategories),
		Specific:   fieldString(f, models.FieldSpecificInterests),
	}
	response.Preferences = models.PreferenceAnswers{
		FreeTime:       fieldString(f, models.FieldFreeTimePerWeek),
		TravelDistance: fieldString(f, models.FieldTravelDistance),
		Indoor:         fieldBool(f, models.FieldPrefIndoor),
		Outdoor:        fieldBool(f, models.FieldPrefOutdoor),
		Physical:       fieldBool(f, models.FieldPrefPhysicalActive),
		Relaxed:        fieldBool(f, models.FieldPrefRelaxedLowkey),
		Structured:     fieldBool(f, models.FieldPrefStructured),
		Spontaneous:    fieldBool(f, models.FieldPrefSpontaneous),
	}
	response.AffinityGroups = models.AffinityAnswers{
		Faith:         fieldStrings(f, models.FieldAffinityFaithBased),
		LGBTQ:         fieldStrings(f, models.FieldAffinityLGBTQ),
		Cultural:      fieldStrings(f, models.FieldAffinityCultural),
		Womens:        fieldStrings(f, models.FieldAffinityWomens),
		YoungProf:     fieldStrings(f, models.FieldAffinityYoungProf),
		International: fieldStrings(f, models.FieldAffinityInternational),
	}
	return response
}

func scoresFromRecord(record *AirtableRecord) *models.CalculatedScores {
	f := record.Fields
	scores := &models.CalculatedScores{
		ID:                        record.ID,
		UserID:                    firstLink(f, models.FieldUser),
		SurveyResponseID:          firstLink(f, models.FieldSurveyResponse),
		ExtraversionRaw:           fieldFloat(f, models.FieldExtraversionRaw),
		ExtraversionCategory:      fieldString(f, models.FieldExtraversionCategory),
		ConscientiousnessRaw:      fieldFloat(f, models.FieldConscientiousnessRaw),
		ConscientiousnessCategory: fieldString(f, models.FieldConscientiousnessCategory),
		OpennessRaw:               fieldFloat(f, models.FieldOpennessRaw),
		OpennessCategory:          fieldString(f, models.FieldOpennessCategory),
		PrimaryMotivation:         fieldString(f, models.FieldPrimaryMotivation),
		IntrinsicMotivation:       fieldFloat(f, models.FieldIntrinsicMotivation),
		SocialMotivation:          fieldFloat(f, models.FieldSocialMotivation),
		AchievementMotivation:     fieldFloat(f, models.FieldAchievementMotivation),
		CreatedTime:               record.CreatedTime,
	}
	scores.ApplyDefaults()
	return scores
}

func promptFromRecord(record *AirtableRecord) *models.GPTPrompt {
	f := record.Fields
	return &models.GPTPrompt{
		ID:                       record.ID,
		UserID:                   firstLink(f, models.FieldUser),
		SurveyResponseID:         firstLink(f, models.FieldSurveyResponse),
		CalculatedScoresID:       firstLink(f, models.FieldCalculatedScores),
		PromptText:               fieldString(f, models.FieldPromptText),
		RecommendationsGenerated: fieldString(f, models.FieldRecommendationsGenerated),
		CreatedTime:              record.CreatedTime,
	}
}

func setIfPresent(fields map[string]interface{}, key, value string) {
	if value != "" {
		fields[key] = value
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func fieldString(fields map[string]interface{}, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []interface{}:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

func fieldFloat(fields map[string]interface{}, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	case []interface{}:
		// Lookup fields come back as single-element arrays.
		if len(v) > 0 {
			if f, ok := v[0].(float64); ok {
				return f
			}
		}
	}
	return 0
}

func fieldBool(fields map[string]interface{}, key string) bool {
	v, _ := fields[key].(bool)
	return v
}

func fieldStrings(fields map[string]interface{}, key string) []string {
	switch v := fields[key].(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

func firstLink(fields map[string]interface{}, key string) string {
	links := fieldStrings(fields, key)
	if len(links) == 0 {
		return ""
	}
	return links[0]
}
