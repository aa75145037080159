package services

import (
	"fmt"
	"strconv"
	"strings"

	"social-activity-recommender/internal/models"
)

// Interpretations used by the event-grounded prompt
var (
	legacyExtraversion = map[string]string{
		models.TraitHigh:   "You gain energy from social interaction and enjoy meeting new people",
		models.TraitMedium: "You enjoy a balance of social time and solitude",
		models.TraitLow:    "You prefer smaller groups and meaningful one-on-one connections",
	}
	legacyConscientiousness = map[string]string{
		models.TraitHigh:   "You appreciate structure, organization, and goal-oriented activities",
		models.TraitMedium: "You balance planning with flexibility",
		models.TraitLow:    "You prefer spontaneous, flexible activities without rigid schedules",
	}
	legacyOpenness = map[string]string{
		models.TraitHigh:   "You seek novel experiences and enjoy exploring new ideas and cultures",
		models.TraitMedium: "You appreciate both familiar comforts and occasional new experiences",
		models.TraitLow:    "You prefer traditional activities and established communities",
	}
)

// Interpretations used by the concept prompt; unknown categories read as Medium
var (
	conceptExtraversion = map[string]string{
		models.TraitHigh:   "You gain energy from social interaction and enjoy meeting new people",
		models.TraitMedium: "You enjoy both social and solo activities in balance",
		models.TraitLow:    "You prefer smaller groups and intimate settings",
	}
	conceptConscientiousness = map[string]string{
		models.TraitHigh:   "You prefer structured, organized activities with clear goals",
		models.TraitMedium: "You enjoy a mix of structured and flexible activities",
		models.TraitLow:    "You prefer spontaneous, flexible activities without rigid schedules",
	}
	conceptOpenness = map[string]string{
		models.TraitHigh:   "You enjoy novel experiences and creative activities",
		models.TraitMedium: "You balance familiar and new experiences",
		models.TraitLow:    "You prefer traditional, familiar activities and routines",
	}
)

func interpret(table map[string]string, category string, fallbackMedium bool) string {
	if s, ok := table[category]; ok {
		return s
	}
	if fallbackMedium {
		return table[models.TraitMedium]
	}
	return ""
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// BuildRecommendationPrompt renders the event-grounded prompt. Section order
// is fixed: intro, user profile, guidelines, available events (or the
// conceptual instruction when there are none), category constraint, output
// format and the closing request.
func BuildRecommendationPrompt(user *models.User, survey *models.SurveyResponse, scores *models.CalculatedScores, events []models.Event, location string, count int) string {
	categories := strings.Join(survey.Interests.Categories, ", ")
	settings := settingPreferenceList(survey.Preferences)

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert social activity recommendation engine for Empower Social, a platform that matches people with events, activities, and communities based on psychology and personality - not just interests.\n\n")
	fmt.Fprintf(&b, "Your task is to recommend %d personalized social activities, events, groups, or experiences for this user in %s.\n\n---\n\n", count, location)

	b.WriteString("## USER PROFILE\n\n")
	b.WriteString("**Demographics:**\n")
	fmt.Fprintf(&b, "- Age: %d\n- Gender: %s\n- Location: %s (%s)\n\n", user.Age, user.Gender, user.Zipcode, location)

	b.WriteString("**Personality Assessment (Big Five Traits):**\n")
	fmt.Fprintf(&b, "- Extraversion: %s (%s/14)\n  - Interpretation: %s\n", scores.ExtraversionCategory, formatScore(scores.ExtraversionRaw), interpret(legacyExtraversion, scores.ExtraversionCategory, false))
	fmt.Fprintf(&b, "- Conscientiousness: %s (%s/14)\n  - Interpretation: %s\n", scores.ConscientiousnessCategory, formatScore(scores.ConscientiousnessRaw), interpret(legacyConscientiousness, scores.ConscientiousnessCategory, false))
	fmt.Fprintf(&b, "- Openness to Experience: %s (%s/14)\n  - Interpretation: %s\n\n", scores.OpennessCategory, formatScore(scores.OpennessRaw), interpret(legacyOpenness, scores.OpennessCategory, false))

	b.WriteString("**Motivation Profile:**\n")
	fmt.Fprintf(&b, "- Primary Motivation: %s\n", scores.PrimaryMotivation)
	fmt.Fprintf(&b, "- Intrinsic Motivation (fun-seeking): %.1f/5\n", scores.IntrinsicMotivation)
	fmt.Fprintf(&b, "- Social Motivation (connection-seeking): %.1f/5\n", scores.SocialMotivation)
	fmt.Fprintf(&b, "- Achievement Motivation (skill-building): %.1f/5\n\n", scores.AchievementMotivation)

	b.WriteString("**Social Needs:**\n")
	fmt.Fprintf(&b, "- Close Friends: %s\n- Social Satisfaction: %s\n- Loneliness Frequency: %s\n- Looking For: %s\n\n",
		survey.Social.CloseFriends, survey.Social.Satisfaction, survey.Social.Loneliness, strings.Join(survey.Social.LookingFor, ", "))

	fmt.Fprintf(&b, "**Interest Categories:**\n%s\n\n", categories)
	fmt.Fprintf(&b, "**Specific Interests:**\n%s\n\n", orDefault(survey.Interests.Specific, "Not specified"))

	b.WriteString("**Activity Preferences:**\n")
	fmt.Fprintf(&b, "- Free Time Available: %s\n- Willing to Travel: %s\n- Setting Preferences: %s\n\n",
		survey.Preferences.FreeTime, survey.Preferences.TravelDistance, settings)

	b.WriteString(affinitySection(survey.AffinityGroups))
	b.WriteString("\n\n---\n\n")

	b.WriteString(legacyGuidelines)
	fmt.Fprintf(&b, "### 5. Practical Constraints\n\n**Time Commitment:**\n- Match recommendations to available free time: %s\n\n**Distance:**\n- Only recommend events within: %s\n\n**Setting Preferences:**\n- %s → Weight recommendations toward these settings\n\n",
		survey.Preferences.FreeTime, survey.Preferences.TravelDistance, settings)
	b.WriteString(legacyRecommendationMix)
	b.WriteString("\n---\n\n")

	if len(events) > 0 {
		fmt.Fprintf(&b, "## AVAILABLE REAL EVENTS\n\nThe following %d real events were found near %s in the next 14 days. Prefer recommending from this list and use each event's real name, date, location and URL.\n\n", len(events), location)
		b.WriteString(formatEventList(events))
	} else {
		b.WriteString("## AVAILABLE REAL EVENTS\n\nNo real events were found for this location. Produce conceptual suggestions instead: describe the kind of group or event that fits this user and how to find one locally, and do not invent specific dates or URLs.\n")
	}
	b.WriteString("\n---\n\n")

	fmt.Fprintf(&b, "## INTEREST CATEGORY CONSTRAINT\n\nONLY recommend activities from these interest categories: %s\nDO NOT recommend activities from any category the user did not select.\n\n---\n\n", categories)

	b.WriteString(legacyOutputFormat)
	fmt.Fprintf(&b, "\n---\n\n## YOUR RECOMMENDATIONS:\n\nPlease provide %d personalized recommendations following all guidelines above.", count)

	return strings.TrimSpace(b.String())
}

const legacyGuidelines = `## RECOMMENDATION GUIDELINES

### 1. Personality-Based Matching

**For Extraversion:**
- High (11-14): Prioritize large group events, social mixers, networking opportunities, high-energy gatherings
- Medium (7-10): Balance between small group activities and moderate-sized events, mix of intimate and social
- Low (2-6): Focus on small group activities (3-6 people), one-on-one opportunities, quieter environments

**For Conscientiousness:**
- High (11-14): Structured classes, organized volunteer work, goal-oriented activities, scheduled programs
- Medium (7-10): Mix of structured and flexible activities
- Low (2-6): Drop-in events, spontaneous meetups, flexible commitments, improvisation

**For Openness:**
- High (11-14): Novel experiences, diverse cultural events, experimental activities, creative pursuits
- Medium (7-10): Balance of familiar and new experiences
- Low (2-6): Traditional activities, familiar venues, established communities, routine hobbies

### 2. Motivation Alignment

**Intrinsic Motivation (Fun-seeking):**
- High (4-5): Entertainment events, recreational activities, playful experiences, enjoyment-focused
- Medium (2.5-3.9): Balance fun with other benefits
- Low (1-2.4): Focus on other motivations (skill-building, social connection)

**Social Motivation (Connection-seeking):**
- High (4-5): Friend-making emphasis, community-building, recurring meetups, relationship-focused
- Medium (2.5-3.9): Social aspect present but not primary
- Low (1-2.4): Activity-focused rather than social-focused

**Achievement Motivation (Skill-building):**
- High (4-5): Workshops, classes, competitive activities, skill progression, certifications
- Medium (2.5-3.9): Some learning component
- Low (1-2.4): Casual participation, no pressure to improve

### 3. Social Needs Response

**High Loneliness + Low Friend Count:**
- Prioritize: Welcoming beginner-friendly groups, buddy systems, structured ice-breakers, recurring meetups

**Low Social Satisfaction:**
- Recommend: New social circles different from current routine, fresh communities, different activity types

**Looking For (adjust recommendations based on stated goals):**
- "Make new friends" → Emphasize community-building, recurring groups
- "Explore new interests" → Novel activities, variety of options
- "Meet romantic partner" → Social events with singles, co-ed activities
- "Professional networking" → Career-related meetups, industry events
- "Community involvement" → Volunteer opportunities, civic engagement

### 4. Affinity Groups Integration (70/30 Rule)

**CRITICAL:** Affinity groups are enhancement, not replacement.

**70% of recommendations:** Based purely on interests, personality, and motivation
**30% of recommendations:** Interest-based + affinity enhancement

**If affinity groups selected:** Find organizations/events that match BOTH their interests AND affinity identity. Do not recommend affinity events outside their stated interests.

**If no affinity groups selected:** Focus 100% on personality, motivation, and interests.

`

const legacyRecommendationMix = `### 6. Recommendation Mix (REQUIRED)

**Event Type Balance:**
- 50% recurring activities (weekly clubs, ongoing classes, regular meetups)
- 50% one-time events (workshops, concerts, festivals, special occasions)

**Diversity Requirements:**
- At least 3 different activity categories
- Mix of group sizes (small, medium, large)
- Variety of time commitments (drop-in, weekly, monthly)
`

const legacyOutputFormat = `## OUTPUT FORMAT

For each recommendation, provide:

1. **Event/Activity Name**
2. **Type:** [Recurring/One-time] [Category]
3. **Why It Matches:** Specific personality, motivation, or interest alignment
4. **Logistics:** Day/time, location, cost
5. **What to Expect:** Group size, atmosphere, commitment
6. **How to Join:** Contact info or website
7. **URL:** [Event page](https://...)
`

func settingPreferenceList(p models.PreferenceAnswers) string {
	var prefs []string
	for _, pref := range []struct {
		on    bool
		label string
	}{
		{p.Indoor, "Indoor"},
		{p.Outdoor, "Outdoor"},
		{p.Physical, "Physical/Active"},
		{p.Relaxed, "Relaxed/Low-key"},
		{p.Structured, "Structured"},
		{p.Spontaneous, "Spontaneous"},
	} {
		if pref.on {
			prefs = append(prefs, pref.label)
		}
	}
	if len(prefs) == 0 {
		return "No specific preferences"
	}
	return strings.Join(prefs, ", ")
}

func affinitySection(a models.AffinityAnswers) string {
	groups := affinityLines(a, []string{"Faith-based", "LGBTQ+", "Cultural/Ethnic", "Women's Groups", "Young Professionals", "International/Immigrant"})
	if len(groups) == 0 {
		return "**Community Connections (Affinity Groups):**\nNo affinity groups selected"
	}
	return "**Community Connections (Affinity Groups):**\n" + strings.Join(groups, "\n")
}

// affinityLines renders "Label: a, b" for each non-empty group in form order
func affinityLines(a models.AffinityAnswers, labels []string) []string {
	var lines []string
	for i, values := range [][]string{a.Faith, a.LGBTQ, a.Cultural, a.Womens, a.YoungProf, a.International} {
		if len(values) > 0 {
			lines = append(lines, labels[i]+": "+strings.Join(values, ", "))
		}
	}
	return lines
}

func formatEventList(events []models.Event) string {
	var b strings.Builder
	for i, event := range events {
		fmt.Fprintf(&b, "%d. %s\n", i+1, event.Name)
		if event.StartTime != "" {
			fmt.Fprintf(&b, "   - When: %s\n", event.StartTime)
		}
		fmt.Fprintf(&b, "   - Where: %s (%s)\n", orDefault(event.Venue, "TBD"), orDefault(event.Address, "TBD"))
		fmt.Fprintf(&b, "   - Category: %s\n", orDefault(event.Category, "General"))
		fmt.Fprintf(&b, "   - Cost: %s\n", orDefault(event.Cost, "See website"))
		if desc := strings.TrimSpace(event.Description); desc != "" {
			if len(desc) > 200 {
				desc = desc[:200] + "..."
			}
			fmt.Fprintf(&b, "   - Description: %s\n", desc)
		}
		fmt.Fprintf(&b, "   - URL: %s\n   - Source: %s\n", event.URL, event.Source)
	}
	return b.String()
}

// BuildConceptualPrompt renders the prompt that asks for idealized activity
// concepts as JSON, with no real events.
func BuildConceptualPrompt(user *models.User, survey *models.SurveyResponse, scores *models.CalculatedScores, location string, count int) string {
	categories := strings.Join(survey.Interests.Categories, ", ")
	extraversion := interpret(conceptExtraversion, scores.ExtraversionCategory, true)
	conscientiousness := interpret(conceptConscientiousness, scores.ConscientiousnessCategory, true)
	openness := interpret(conceptOpenness, scores.OpennessCategory, true)

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert social psychologist and activity recommender. Generate %d idealized event/activity concepts that would be PERFECT for this person.\n\n", count)

	b.WriteString("USER PROFILE:\n")
	age := user.Age
	if age <= 0 {
		age = 25
	}
	fmt.Fprintf(&b, "Name: %s\nLocation: %s\nAge: %d\nGender: %s\n\n", user.DisplayName(), location, age, orDefault(user.Gender, "Not specified"))

	b.WriteString("Personality:\n")
	fmt.Fprintf(&b, "- Extraversion: %s/14 (%s) - %s\n", formatScore(scores.ExtraversionRaw), scores.ExtraversionCategory, extraversion)
	fmt.Fprintf(&b, "- Conscientiousness: %s/14 (%s) - %s\n", formatScore(scores.ConscientiousnessRaw), scores.ConscientiousnessCategory, conscientiousness)
	fmt.Fprintf(&b, "- Openness: %s/14 (%s) - %s\n\n", formatScore(scores.OpennessRaw), scores.OpennessCategory, openness)

	b.WriteString("Motivations:\n")
	fmt.Fprintf(&b, "- Primary: %s\n- Intrinsic (fun): %.1f/5\n- Social (connection): %.1f/5\n- Achievement (skill-building): %.1f/5\n\n",
		scores.PrimaryMotivation, scores.IntrinsicMotivation, scores.SocialMotivation, scores.AchievementMotivation)

	fmt.Fprintf(&b, "Interests: %s\nSpecific Interests: %s\n\n", categories, orDefault(survey.Interests.Specific, "Not specified"))

	b.WriteString("CRITICAL - INTEREST RESTRICTIONS:\n")
	fmt.Fprintf(&b, "- ONLY recommend activities from the interest categories listed above: %s\n", categories)
	b.WriteString("- DO NOT recommend activities from categories NOT in the list above\n")
	b.WriteString("- If \"Sports & Fitness\" is NOT in the list, DO NOT recommend any sports activities\n")
	b.WriteString("- If \"Arts & Culture\" is NOT in the list, DO NOT recommend arts/cultural activities\n")
	b.WriteString("- Only use the specific interest categories the user has selected\n\n")

	fmt.Fprintf(&b, "Social Needs:\n- Close Friends: %s\n- Social Satisfaction: %s\n- Loneliness: %s\n\n",
		survey.Social.CloseFriends, survey.Social.Satisfaction, survey.Social.Loneliness)
	fmt.Fprintf(&b, "Preferences:\n- Free Time: %s\n- Travel Distance: %s\n\n", survey.Preferences.FreeTime, survey.Preferences.TravelDistance)

	if groups := affinityLines(survey.AffinityGroups, []string{"Faith", "LGBTQ", "Cultural", "Women's", "Young Professional", "International"}); len(groups) > 0 {
		fmt.Fprintf(&b, "Affinity Groups: %s\n", strings.Join(groups, "; "))
	}
	b.WriteString("\n---\n\n")

	b.WriteString(interpretationSection(survey, scores))
	b.WriteString("\n\n---\n\n")

	b.WriteString(strings.ReplaceAll(conceptRequirements, "{location}", location))
	fmt.Fprintf(&b, "- Generate exactly %d concepts\n", count)
	b.WriteString(conceptRequirementList)
	b.WriteString(strings.ReplaceAll(conceptSearchQueries, "{location}", location))

	b.WriteString(conceptOutputFormat(survey, scores, location, extraversion, conscientiousness, openness))
	fmt.Fprintf(&b, "\n\nGenerate %d concepts now.", count)

	return b.String()
}

// interpretationSection turns scores and social answers into the fixed guidance sentences
func interpretationSection(survey *models.SurveyResponse, scores *models.CalculatedScores) string {
	var b strings.Builder
	social := survey.Social
	prefs := survey.Preferences

	b.WriteString("## HOW TO INTERPRET THIS DATA\n\n### Understanding Personality Scores:\n")
	fmt.Fprintf(&b, "- **Extraversion (%s/14 - %s):**\n  - This measures how much energy the user gains from social interaction\n  - %s\n  \n",
		formatScore(scores.ExtraversionRaw), scores.ExtraversionCategory, extraversionGuidance(scores.ExtraversionCategory))
	fmt.Fprintf(&b, "- **Conscientiousness (%s/14 - %s):**\n  - This measures preference for structure and planning\n  - %s\n  \n",
		formatScore(scores.ConscientiousnessRaw), scores.ConscientiousnessCategory, conscientiousnessGuidance(scores.ConscientiousnessCategory))
	fmt.Fprintf(&b, "- **Openness (%s/14 - %s):**\n  - This measures openness to new experiences\n  - %s\n\n",
		formatScore(scores.OpennessRaw), scores.OpennessCategory, opennessGuidance(scores.OpennessCategory))

	b.WriteString("### Understanding Motivation Scores:\n")
	fmt.Fprintf(&b, "- **Primary Motivation: %s** - This is their MAIN driver. Weight this highest.\n", scores.PrimaryMotivation)
	fmt.Fprintf(&b, "- **Intrinsic (%.1f/5):** %s\n", scores.IntrinsicMotivation, motivationGuidance(scores.IntrinsicMotivation,
		"HIGH - User prioritizes fun and enjoyment. Activities should be entertaining and pleasurable.",
		"MEDIUM - Fun matters but not primary.",
		"LOW - Fun is secondary. Focus on other motivations."))
	fmt.Fprintf(&b, "- **Social (%.1f/5):** %s\n", scores.SocialMotivation, motivationGuidance(scores.SocialMotivation,
		"HIGH - User seeks connection and friendship. Prioritize community-building, recurring groups, buddy systems.",
		"MEDIUM - Social connection is nice but not essential.",
		"LOW - Social aspect is secondary. Activity quality matters more than socializing."))
	fmt.Fprintf(&b, "- **Achievement (%.1f/5):** %s\n\n", scores.AchievementMotivation, motivationGuidance(scores.AchievementMotivation,
		"HIGH - User wants to learn and improve. Prioritize: workshops, classes, skill-building, certifications, progression paths.",
		"MEDIUM - Some learning component is appreciated.",
		"LOW - User prefers casual participation without pressure to improve."))

	b.WriteString("### Understanding Social Needs:\n")
	fmt.Fprintf(&b, "- **Close Friends: %s** - %s\n", social.CloseFriends, closeFriendsGuidance(social.CloseFriends))
	fmt.Fprintf(&b, "- **Social Satisfaction: %s** - %s\n", social.Satisfaction, satisfactionGuidance(social.Satisfaction))
	fmt.Fprintf(&b, "- **Loneliness: %s** - %s\n", social.Loneliness, lonelinessGuidance(social.Loneliness))
	fmt.Fprintf(&b, "- **Looking For: %s** - Interpret each:\n%s\n\n", strings.Join(social.LookingFor, ", "), lookingForGuidance(social.LookingFor))

	b.WriteString("### Understanding Preferences:\n")
	fmt.Fprintf(&b, "- **Free Time: %s** - %s\n", prefs.FreeTime, freeTimeGuidance(prefs.FreeTime))
	fmt.Fprintf(&b, "- **Travel Distance: %s** - %s\n", prefs.TravelDistance, travelGuidance(prefs.TravelDistance))
	fmt.Fprintf(&b, "- **Setting Preferences:**\n%s\n\n", detailedSettingPreferences(prefs))

	lonely := isHighLoneliness(social.Loneliness)
	b.WriteString("## DECISION PRIORITY ORDER:\n\nWhen selecting recommendations, prioritize in this order:\n\n")
	fmt.Fprintf(&b, "1. **MUST MATCH (Non-negotiable):**\n   - Interest categories (ONLY from: %s)\n   - Time window (within 14 days)\n   - Travel distance (%s)\n\n",
		strings.Join(survey.Interests.Categories, ", "), prefs.TravelDistance)
	b.WriteString("2. **HIGH PRIORITY (Strongly weight):**\n")
	if scores.ExtraversionCategory == models.TraitLow && lonely {
		b.WriteString("  - CRITICAL: Low extraversion + high loneliness = Small, welcoming groups with structured social time\n")
	}
	fmt.Fprintf(&b, "  - %s motivation (%.1f/5)\n", scores.PrimaryMotivation, scores.PrimaryMotivationScore())
	if lonely {
		b.WriteString("  - HIGH LONELINESS - Prioritize community-building\n")
	} else {
		b.WriteString("  - Social needs\n")
	}
	b.WriteString("  - Setting preferences\n\n")
	b.WriteString(decisionMatrix)

	return b.String()
}

const decisionMatrix = `3. **MEDIUM PRIORITY (Consider):**
  - Other personality traits (conscientiousness, openness)
  - Secondary motivations
  - Affinity groups (70/30 rule)

4. **NICE TO HAVE:**
  - Variety in categories
  - Mix of recurring/one-time
  - Group size diversity

## COMBINING SIGNALS - DECISION MATRIX:

When multiple signals point in different directions, use these rules:

**Personality Conflicts:**
- High Extraversion + Low Openness → Large groups doing familiar activities
- Low Extraversion + High Openness → Small groups trying new things
- High Conscientiousness + Low Extraversion → Structured small-group activities
- Low Conscientiousness + High Extraversion → Spontaneous large-group events

**Motivation Conflicts:**
- High Social + High Achievement → Skill-building classes with strong community
- High Intrinsic + Low Social → Fun activities that happen to be social
- High Achievement + Low Conscientiousness → Flexible learning opportunities

**Social Needs Override:**
- If loneliness is HIGH, prioritize social connection over other factors
- If social satisfaction is LOW, prioritize new social circles
- If close friends count is LOW, prioritize welcoming beginner groups`

func extraversionGuidance(category string) string {
	switch category {
	case models.TraitHigh:
		return "HIGH: User thrives in large groups, networking events, and high-energy social situations. Prioritize events with 20+ people, mixers, and social gatherings."
	case models.TraitLow:
		return "LOW: User prefers intimate settings and meaningful one-on-one connections. Prioritize small groups (3-6 people), quiet environments, and activities with built-in conversation time."
	}
	return "MEDIUM: User enjoys balance. Mix small intimate groups with moderate-sized events (10-20 people)."
}

func conscientiousnessGuidance(category string) string {
	switch category {
	case models.TraitHigh:
		return "HIGH: User needs clear schedules, goals, and organization. Recommend: classes with curriculum, structured volunteer programs, scheduled meetups with agendas."
	case models.TraitLow:
		return "LOW: User prefers flexibility and spontaneity. Recommend: drop-in events, open workshops, flexible meetups, improvisation activities."
	}
	return "MEDIUM: User enjoys both structure and flexibility. Mix scheduled programs with flexible options."
}

func opennessGuidance(category string) string {
	switch category {
	case models.TraitHigh:
		return "HIGH: User craves novelty and diversity. Prioritize: experimental activities, diverse cultural events, creative workshops, new experiences they haven't tried."
	case models.TraitLow:
		return "LOW: User prefers familiar, traditional activities. Prioritize: established communities, routine hobbies, familiar venues, traditional formats."
	}
	return "MEDIUM: User enjoys both familiar and new experiences. Balance traditional activities with occasional novelty."
}

// motivationGuidance picks high at 4 and above, low at 2 and below
func motivationGuidance(score float64, high, medium, low string) string {
	switch {
	case score >= 4:
		return high
	case score <= 2:
		return low
	}
	return medium
}

func closeFriendsGuidance(count string) string {
	switch count {
	case "0", "1-2":
		return "CRITICAL: User has very few close friends. Prioritize welcoming, beginner-friendly groups with structured ice-breakers. Emphasize community-building and recurring meetups."
	case "3-5":
		return "MODERATE: User has some friends but could use more. Balance community-building with activity-focused events."
	}
	return "GOOD: User has solid friend group. Focus on activity quality and shared interests."
}

func satisfactionGuidance(satisfaction string) string {
	switch {
	case strings.Contains(satisfaction, "Dissatisfied"):
		return "LOW SATISFACTION: User is unhappy with current social life. Recommend NEW social circles, different activity types, fresh communities away from current routine."
	case strings.Contains(satisfaction, "Satisfied"):
		return "HIGH SATISFACTION: User is happy socially. Focus on activity quality and shared interests rather than friend-making."
	}
	return "NEUTRAL: User is okay with current social life. Balance community-building with activity focus."
}

func isHighLoneliness(frequency string) bool {
	return strings.Contains(frequency, "Often") || strings.Contains(frequency, "Always")
}

func lonelinessGuidance(frequency string) string {
	switch {
	case isHighLoneliness(frequency):
		return "HIGH LONELINESS: CRITICAL PRIORITY. User feels isolated. Prioritize: welcoming beginner groups, recurring meetups, buddy systems, structured social activities, community-building focus."
	case strings.Contains(frequency, "Never") || strings.Contains(frequency, "Rarely"):
		return "LOW LONELINESS: User feels connected. Focus on activity quality and shared interests."
	}
	return "MODERATE: User sometimes feels lonely. Include some community-building activities."
}

func lookingForGuidance(goals []string) string {
	if len(goals) == 0 {
		return "  - Consider user goals when selecting recommendations"
	}

	lines := make([]string, 0, len(goals))
	for _, goal := range goals {
		var hint string
		switch {
		case strings.Contains(goal, "friends") || strings.Contains(goal, "community"):
			hint = "Prioritize recurring groups, community-building, welcoming environments"
		case strings.Contains(goal, "romantic") || strings.Contains(goal, "partner"):
			hint = "Include co-ed social events, singles mixers, activities with relationship-building potential"
		case strings.Contains(goal, "networking") || strings.Contains(goal, "professional"):
			hint = "Include career-related meetups, industry events, professional development"
		case strings.Contains(goal, "explore") || strings.Contains(goal, "interests"):
			hint = "Prioritize variety, novel activities, diverse options"
		case strings.Contains(goal, "fun") || strings.Contains(goal, "enjoy"):
			hint = "Emphasize entertaining, enjoyable activities"
		case strings.Contains(goal, "volunteer") || strings.Contains(goal, "involvement"):
			hint = "Include volunteer opportunities, civic engagement, community service"
		default:
			hint = "Consider in recommendation selection"
		}
		lines = append(lines, fmt.Sprintf("  - %q → %s", goal, hint))
	}
	return strings.Join(lines, "\n")
}

func freeTimeGuidance(freeTime string) string {
	switch {
	case strings.Contains(freeTime, "Less than 5") || strings.Contains(freeTime, "5-10"):
		return "LIMITED TIME: Only recommend activities that fit their schedule. Prioritize: short events (1-2 hours), flexible timing, low commitment."
	case strings.Contains(freeTime, "More than 20"):
		return "PLENTY OF TIME: User has significant availability. Can recommend longer activities, multi-day events, intensive workshops."
	}
	return "MODERATE TIME: Recommend activities that fit typical schedules (2-4 hours)."
}

func travelGuidance(distance string) string {
	switch {
	case strings.Contains(distance, "Less than 5") || strings.Contains(distance, "5-10"):
		return "LOCAL ONLY: Prioritize events within walking distance or short drive. Avoid recommending events far away."
	case strings.Contains(distance, "15+"):
		return "WILLING TO TRAVEL: User is open to events further away. Can include events in neighboring areas."
	}
	return "MODERATE DISTANCE: Focus on events within reasonable distance, prioritize closer options."
}

func detailedSettingPreferences(p models.PreferenceAnswers) string {
	lines := []string{
		settingLine(p.Indoor, "Prefers INDOOR activities", "Does NOT prefer indoor activities"),
		settingLine(p.Outdoor, "Prefers OUTDOOR activities", "Does NOT prefer outdoor activities"),
		settingLine(p.Physical, "Prefers PHYSICAL/ACTIVE activities", "Does NOT prefer physical activities"),
		settingLine(p.Relaxed, "Prefers RELAXED/LOW-KEY atmospheres", "Does NOT prefer relaxed atmospheres"),
		settingLine(p.Structured, "Prefers STRUCTURED activities", "Does NOT prefer structured activities"),
		settingLine(p.Spontaneous, "Prefers SPONTANEOUS activities", "Does NOT prefer spontaneous activities"),
	}
	return strings.Join(lines, "\n")
}

func settingLine(on bool, yes, no string) string {
	if on {
		return "- ✅ " + yes
	}
	return "- ❌ " + no
}

const conceptRequirements = `CRITICAL REQUIREMENT - SOCIAL FOCUS:
- ALL recommendations MUST be activities done WITH OTHER PEOPLE
- Focus on: groups, clubs, leagues, classes, meetups, events, workshops, tours
- AVOID: solo activities, individual pursuits, things you do alone
- Every concept should involve social interaction, group participation, or community engagement

LOCATION CONTEXT:
- User is in an URBAN AREA: {location}
- Focus on activities that work in dense, walkable cities (DC, NY, SF, Chicago, Denver, Miami, etc.)
- Prioritize: organizations, clubs, leagues, meetups, workshops, events, festivals
- AVOID: rural activities (camping, fishing, hunting, birdwatching)
- Urban-friendly outdoor: urban hiking groups, park activities, walking tours, community gardens
- Urban-specific: rooftop events, street festivals, pop-ups, walking tours, neighborhood events

REQUIREMENTS:
`

const conceptRequirementList = `- 50% should be RECURRING ORGANIZATIONS/GROUPS: clubs, classes, regular meetups, ongoing groups (ONLY from interest categories listed above)
- 50% should be ONE-TIME EVENTS: workshops, concerts, festivals, pop-ups, street events (ONLY from interest categories listed above)
- EVERY concept must be SOCIAL - done with others, not solo
- Focus on URBAN-FRIENDLY activities that thrive in cities
- NOT rural activities: avoid camping, fishing, hunting, birdwatching
- NOT solo activities: avoid individual hobbies, solo workouts, personal projects
- Urban outdoor activities: urban hiking groups, park fitness groups, walking tours, community gardens
- Diverse categories (at least 3 different types)
- Each concept tailored to THIS specific person in an URBAN, SOCIAL environment

`

const conceptSearchQueries = `SEARCH QUERY REQUIREMENTS (CRITICAL):
- For RECURRING activities: Search for ORGANIZATIONS, LEAGUES, CLUBS, GROUPS, CLASSES (ONLY from interest categories listed above)
  * Format: "join [activity] league [location]", "join [activity] club [location]", "[activity] meetup group [location]", "[activity] class [location]"
  * Examples (only if those categories are selected): "join pottery club {location}", "join book club {location}", "join cooking class {location}", "join art workshop {location}"

- For ONE-TIME events: Search for SPECIFIC EVENTS, WORKSHOPS, TOURNAMENTS, TOURS
  * Format: "attend [activity] workshop [location]", "[activity] event [location] this week", "[activity] tournament [location]", "[activity] tour [location]"
  * Examples: "attend cooking workshop {location}", "jazz concert {location} this week", "photography workshop {location}", "food tour {location}"

- ALWAYS include action verbs: "join", "attend", "participate", "enroll"
- ALWAYS specify format: "league", "club", "group", "class", "workshop", "event", "meetup", "tour"
- Include location: "{location}"
- Add temporal: "weekly", "monthly", "this week", "upcoming" for events
- NEVER search for solo activities or individual pursuits

EXAMPLES OF GOOD QUERIES FOR ORGANIZATIONS (SOCIAL):
✅ "join adult recreational basketball league {location} registration"
✅ "join pottery wheel throwing club {location} membership"
✅ "running group {location} weekly meetup"
✅ "photography meetup group {location}"
✅ "yoga class {location} beginner friendly"

EXAMPLES OF GOOD QUERIES FOR EVENTS (SOCIAL):
✅ "attend beginner pottery workshop {location} this weekend"
✅ "cooking class Italian cuisine {location} registration"
✅ "jazz concert {location} this week"
✅ "weekend hiking group event {location}"
✅ "food tour {location} walking"

EXAMPLES OF BAD QUERIES (AVOID - SOLO OR GENERIC):
❌ "pottery studio {location}" (venue, not group activity)
❌ "gym near me" (solo workout, not group)
❌ "art classes" (missing location and social context)
❌ "fitness places" (too vague, not social)
❌ "meditation app" (solo, not group)
❌ "running solo" (not social)
❌ "camping trip" (rural, not urban)

`

func conceptOutputFormat(survey *models.SurveyResponse, scores *models.CalculatedScores, location, extraversion, conscientiousness, openness string) string {
	var b strings.Builder
	b.WriteString("OUTPUT FORMAT (JSON):\n{\n  \"concepts\": [\n    {\n")
	b.WriteString("      \"conceptName\": \"Descriptive name of ideal event\",\n")
	b.WriteString("      \"category\": \"Category name\",\n")
	b.WriteString("      \"whyItMatches\": \"COMPREHENSIVE explanation (3-4 sentences) covering:\n")
	fmt.Fprintf(&b, "        - Interest alignment: How this matches their specific interests (%s) and interest categories (%s)\n",
		orDefault(survey.Interests.Specific, "their stated interests"), strings.Join(survey.Interests.Categories, ", "))
	fmt.Fprintf(&b, "        - Personality fit: How this aligns with their %s extraversion (%s/14 - %s), %s conscientiousness (%s/14 - %s), and %s openness (%s/14 - %s)\n",
		scores.ExtraversionCategory, formatScore(scores.ExtraversionRaw), extraversion,
		scores.ConscientiousnessCategory, formatScore(scores.ConscientiousnessRaw), conscientiousness,
		scores.OpennessCategory, formatScore(scores.OpennessRaw), openness)
	fmt.Fprintf(&b, "        - Motivation match: How this supports their %s motivation - specifically their intrinsic/fun-seeking (%.1f/5), social/connection-seeking (%.1f/5), and achievement/skill-building (%.1f/5) motivations\n",
		scores.PrimaryMotivation, scores.IntrinsicMotivation, scores.SocialMotivation, scores.AchievementMotivation)
	fmt.Fprintf(&b, "        - Social needs: How this addresses their social situation - they have %s close friends, rate their social satisfaction as %s, and experience loneliness %s\n",
		survey.Social.CloseFriends, survey.Social.Satisfaction, survey.Social.Loneliness)
	fmt.Fprintf(&b, "        - Practical fit: How this works with their %s free time per week and willingness to travel %s\",\n",
		survey.Preferences.FreeTime, survey.Preferences.TravelDistance)
	b.WriteString("      \"idealCharacteristics\": {\n        \"setting\": \"indoor/outdoor/mixed\",\n        \"groupSize\": \"small/medium/large\",\n        \"atmosphere\": \"relaxed/energetic/structured/etc\",\n        \"timeCommitment\": \"1-2 hours / 2-4 hours / full day\"\n      },\n")
	b.WriteString("      \"searchQueries\": [\n        \"[action verb] [activity] [format] [qualifier] [location]\",\n")
	fmt.Fprintf(&b, "        \"Example: join beginner pottery wheel throwing classes %s\",\n        \"Example: take weekend cooking workshop %s registration\"\n      ],\n", location, location)
	b.WriteString("      \"keywords\": [\"keyword1\", \"keyword2\", \"keyword3\"],\n      \"isRecurring\": true/false,\n      \"priority\": 1-5\n    }\n  ]\n}")
	return b.String()
}
