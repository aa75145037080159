package models

// Record store tables
const (
	TableUsers                  = "Users"
	TableSurveyResponses        = "Survey_Responses"
	TableCalculatedScores       = "Calculated_Scores"
	TableGPTPrompts             = "GPT_Prompts"
	TableRecommendationFeedback = "Recommendation_Feedback"
)

// Field names must match the store schema exactly; a mismatched select option
// fails the whole write.
const (
	FieldUser             = "User"
	FieldSurveyResponse   = "Survey Response"
	FieldCalculatedScores = "Calculated Scores"

	FieldName     = "Name"
	FieldUsername = "Username"
	FieldEmail    = "Email"
	FieldAge      = "Age"
	FieldGender   = "Gender"
	FieldZipcode  = "Zipcode"

	FieldQ1  = "Q1_Extraverted_Enthusiastic"
	FieldQ6  = "Q6_Reserved_Quiet"
	FieldQ3  = "Q3_Dependable_Disciplined"
	FieldQ8  = "Q8_Disorganized_Careless"
	FieldQ5  = "Q5_Open_Complex"
	FieldQ10 = "Q10_Conventional_Uncreative"

	FieldM1 = "M1_Enjoyable_Fun"
	FieldM2 = "M2_Time_With_People"
	FieldM3 = "M3_Develop_Skills"
	FieldM4 = "M4_Energized_Engaged"
	FieldM5 = "M5_Meet_New_People"
	FieldM6 = "M6_Challenge_Myself"

	FieldCloseFriendsCount     = "Close_Friends_Count"
	FieldSocialSatisfaction    = "Social_Satisfaction"
	FieldLonelinessFrequency   = "Loneliness_Frequency"
	FieldLookingFor            = "Looking_For"
	FieldInterestCategories    = "Interest_Categories"
	FieldSpecificInterests     = "Specific_Interests"
	FieldFreeTimePerWeek       = "Free_Time_Per_Week"
	FieldTravelDistance        = "Travel_Distance_Willing"
	FieldPrefIndoor            = "Pref_Indoor"
	FieldPrefOutdoor           = "Pref_Outdoor"
	FieldPrefPhysicalActive    = "Pref_Physical_Active"
	FieldPrefRelaxedLowkey     = "Pref_Relaxed_Lowkey"
	FieldPrefStructured        = "Pref_Structured"
	FieldPrefSpontaneous       = "Pref_Spontaneous"
	FieldAffinityFaithBased    = "Affinity_Faith_Based"
	FieldAffinityLGBTQ         = "Affinity_LGBTQ"
	FieldAffinityCultural      = "Affinity_Cultural_Ethnic"
	FieldAffinityWomens        = "Affinity_Womens"
	FieldAffinityYoungProf     = "Affinity_Young_Prof"
	FieldAffinityInternational = "Affinity_International"

	FieldExtraversionRaw           = "Extraversion_Raw"
	FieldExtraversionCategory      = "Extraversion_Category"
	FieldConscientiousnessRaw      = "Conscientiousness_Raw"
	FieldConscientiousnessCategory = "Conscientiousness_Category"
	FieldOpennessRaw               = "Openness_Raw"
	FieldOpennessCategory          = "Openness_Category"
	FieldPrimaryMotivation         = "Primary_Motivation"
	FieldIntrinsicMotivation       = "Intrinsic_Motivation"
	FieldSocialMotivation          = "Social_Motivation"
	FieldAchievementMotivation     = "Achievement_Motivation"

	FieldPromptText               = "Prompt_Text"
	FieldRecommendationsGenerated = "Recommendations_Generated"

	FieldRecommendationID = "Recommendation_ID"
	FieldAction           = "Action"
	FieldReason           = "Reason"
	FieldTimestamp        = "Timestamp"
)

// PersonalityFields maps survey question keys to store fields
var PersonalityFields = map[string]string{
	"q1":  FieldQ1,
	"q6":  FieldQ6,
	"q3":  FieldQ3,
	"q8":  FieldQ8,
	"q5":  FieldQ5,
	"q10": FieldQ10,
}

// MotivationFields maps survey question keys to store fields
var MotivationFields = map[string]string{
	"m1": FieldM1,
	"m2": FieldM2,
	"m3": FieldM3,
	"m4": FieldM4,
	"m5": FieldM5,
	"m6": FieldM6,
}

// Interest category display labels (the store's controlled vocabulary)
const (
	CategoryArtsCulture         = "Arts & Culture"
	CategorySportsFitness       = "Sports & Fitness"
	CategoryFoodDining          = "Food & Dining"
	CategorySocialEntertainment = "Social & Entertainment"
	CategoryLearningDevelopment = "Learning & Development"
	CategoryOutdoorNature       = "Outdoor & Nature"
	CategoryGamesHobbies        = "Games & Hobbies"
	CategoryVolunteering        = "Volunteering & Community"
	CategoryWellness            = "Wellness & Mindfulness"
	CategoryMusicPerformance    = "Music & Performance"
)

var interestCategoryLabels = map[string]string{
	"arts":         CategoryArtsCulture,
	"sports":       CategorySportsFitness,
	"food":         CategoryFoodDining,
	"social":       CategorySocialEntertainment,
	"learning":     CategoryLearningDevelopment,
	"outdoor":      CategoryOutdoorNature,
	"games":        CategoryGamesHobbies,
	"volunteering": CategoryVolunteering,
	"wellness":     CategoryWellness,
	"music":        CategoryMusicPerformance,
}
