package analysis

import "strings"

// CategoryRule maps a category to the substrings that trigger it.
type CategoryRule struct {
	Category string
	Triggers []string
}

// Error categories.
const (
	SpacingIssues   = "spacing_issues"
	CoverIssues     = "cover_issues"
	FormationIssues = "formation_issues"
)

// Strength categories.
const (
	CoverUtilization    = "cover_utilization"
	FormationDiscipline = "formation_discipline"
	WeaponDiscipline    = "weapon_discipline"
)

// ErrorRules categorize tactical errors.
var ErrorRules = []CategoryRule{
	{Category: SpacingIssues, Triggers: []string{"spacing", "tight"}},
	{Category: CoverIssues, Triggers: []string{"cover", "exposed"}},
	{Category: FormationIssues, Triggers: []string{"formation"}},
}

// StrengthRules categorize tactical strengths.
var StrengthRules = []CategoryRule{
	{Category: CoverUtilization, Triggers: []string{"cover"}},
	{Category: FormationDiscipline, Triggers: []string{"formation", "stack"}},
	{Category: WeaponDiscipline, Triggers: []string{"weapon", "muzzle"}},
}

// Categorize counts case-insensitive trigger matches. A single item counts
// once toward every rule it matches. Categories with no matches are absent.
func Categorize(items []string, rules []CategoryRule) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		lowered := strings.ToLower(item)
		for _, rule := range rules {
			if matchesAny(lowered, rule.Triggers) {
				counts[rule.Category]++
			}
		}
	}
	return counts
}

func matchesAny(text string, triggers []string) bool {
	for _, trigger := range triggers {
		if strings.Contains(text, trigger) {
			return true
		}
	}
	return false
}

// Recommendation texts.
const (
	RecommendFundamentals = "Schedule additional training sessions focusing on fundamentals"
	RecommendSpacing      = "Practice spacing drills - maintain 3-5 meter intervals during movement"
	RecommendCover        = "Emphasize cover utilization - always move from cover to cover"
	RecommendFormations   = "Review and practice standard formations (wedge, line, column)"
	RecommendWeapons      = "Continue excellent weapon handling - maintain this standard"
	RecommendEntry        = "Formation discipline is strong - focus on refining entry techniques"
	RecommendContinue     = "Continue current training regimen"
	RecommendConsistency  = "Focus on maintaining consistent performance across all scenarios"
)

// MaxRecommendations caps the recommendation list.
const MaxRecommendations = 5

const (
	fundamentalsThreshold = 70
	categoryThreshold     = 2
)

type recommendationInput struct {
	average   float64
	errors    map[string]int
	strengths map[string]int
}

type recommendationRule struct {
	text     string
	category bool
	applies  func(recommendationInput) bool
}

func categoryAtLeast(counts func(recommendationInput) map[string]int, category string) func(recommendationInput) bool {
	return func(in recommendationInput) bool {
		return counts(in)[category] >= categoryThreshold
	}
}

func errorCounts(in recommendationInput) map[string]int    { return in.errors }
func strengthCounts(in recommendationInput) map[string]int { return in.strengths }

// recommendationRules are evaluated in order. Category rules are the ones
// whose absence triggers the default recommendations.
var recommendationRules = []recommendationRule{
	{text: RecommendFundamentals, applies: func(in recommendationInput) bool { return in.average < fundamentalsThreshold }},
	{text: RecommendSpacing, category: true, applies: categoryAtLeast(errorCounts, SpacingIssues)},
	{text: RecommendCover, category: true, applies: categoryAtLeast(errorCounts, CoverIssues)},
	{text: RecommendFormations, category: true, applies: categoryAtLeast(errorCounts, FormationIssues)},
	{text: RecommendWeapons, category: true, applies: categoryAtLeast(strengthCounts, WeaponDiscipline)},
	{text: RecommendEntry, category: true, applies: categoryAtLeast(strengthCounts, FormationDiscipline)},
}

var defaultRecommendations = []string{RecommendContinue, RecommendConsistency}

// Recommend builds the ordered recommendation list, capped at MaxRecommendations.
func Recommend(average float64, errorsByCategory, strengthsByCategory map[string]int) []string {
	in := recommendationInput{average: average, errors: errorsByCategory, strengths: strengthsByCategory}
	out := make([]string, 0, MaxRecommendations)
	categoryFired := false
	for _, rule := range recommendationRules {
		if len(out) == MaxRecommendations {
			return out
		}
		if rule.applies(in) {
			out = append(out, rule.text)
			if rule.category {
				categoryFired = true
			}
		}
	}
	if !categoryFired {
		for _, text := range defaultRecommendations {
			if len(out) == MaxRecommendations {
				break
			}
			out = append(out, text)
		}
	}
	return out
}
