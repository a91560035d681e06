// Package recommend turns a claimant's priority scores into scheme
// recommendations.
//
// The two eligibility-gated schemes (PM-KISAN, PMAY) are recommended
// outright when the claimant holds the top score of the eligible subset.
// The three settlement-level schemes are ranked: any scheme above
// model.HighPriorityThreshold is recommended when it is within CloseMargin
// of the best score, and only considered otherwise.
package recommend

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/fra-atlas/fra-dss/internal/model"
)

// CloseMargin is how far below the highest settlement-level score a scheme
// may be and still be recommended.
const CloseMargin = 0.05

// Kind distinguishes direct-eligibility recommendations from ranked ones.
type Kind string

const (
	KindEligible Kind = "eligible"
	KindPriority Kind = "priority-based"
)

// Status of a listed scheme.
type Status string

const (
	StatusRecommended Status = "recommended"
	StatusConsidered  Status = "considered"
)

// SchemeRecommendation is one listed scheme.
type SchemeRecommendation struct {
	Scheme      model.Scheme `json:"scheme"`
	Name        string       `json:"name"`
	Type        Kind         `json:"type"`
	Priority    float64      `json:"priority"`
	Status      Status       `json:"status"`
	Reasoning   string       `json:"reasoning"`
	Description string       `json:"description"`
	Benefits    []string     `json:"benefits"`
}

// SchemeAnalysis explains the decision taken for one scheme, listed or not.
type SchemeAnalysis struct {
	Score       float64 `json:"score"`
	Eligible    bool    `json:"eligible"`
	Recommended bool    `json:"recommended"`
	Reasoning   string  `json:"reasoning"`
}

// Summary condenses the recommendation list.
type Summary struct {
	TotalRecommended int    `json:"total_recommended"`
	HighestPriority  string `json:"highest_priority"`
	EligibleSchemes  int    `json:"eligible_schemes"`
	PrioritySchemes  int    `json:"priority_schemes"`
	Message          string `json:"message"`
}

// Recommendation is the full result for one claimant.
type Recommendation struct {
	ClaimID      int64                `json:"claim_id"`
	ClaimantName string               `json:"claimant_name"`
	Location     model.SettlementKey  `json:"location"`
	Category     string               `json:"category"`
	AnnualIncome float64              `json:"annual_income"`
	Scores       model.PriorityScores `json:"scores"`

	Recommendations []SchemeRecommendation          `json:"recommendations"`
	Analysis        map[model.Scheme]SchemeAnalysis `json:"analysis"`
	Summary         Summary                         `json:"summary"`
}

type schemeInfo struct {
	name        string
	description string
	benefits    []string
}

var catalogue = map[model.Scheme]schemeInfo{
	model.SchemePMKISAN: {
		name:        "PM-KISAN (Pradhan Mantri Kisan Samman Nidhi)",
		description: "Direct income support of ₹6,000 per year to small and marginal farmers",
		benefits:    []string{"₹2,000 transferred in 3 installments", "Direct benefit transfer to bank account"},
	},
	model.SchemePMAY: {
		name:        "PM Awas Yojana (Pradhan Mantri Awas Yojana)",
		description: "Housing assistance for rural poor and homeless families",
		benefits:    []string{"Financial assistance for house construction", "Technical support for construction"},
	},
	model.SchemeJalJeevanMission: {
		name:        "Jal Jeevan Mission",
		description: "Functional Household Tap Connection (FHTC) to every rural household",
		benefits:    []string{"Piped water supply to household", "Water quality monitoring", "Community participation in water management"},
	},
	model.SchemeDAJGUA: {
		name:        "DAJGUA (Development of Aspirational Blocks Program)",
		description: "Integrated development program for backward blocks",
		benefits:    []string{"Infrastructure development", "Skill development programs", "Health and education improvement"},
	},
	model.SchemeMGNREGA: {
		name:        "MGNREGA (Mahatma Gandhi National Rural Employment Guarantee Act)",
		description: "Employment guarantee scheme providing 100 days of wage employment",
		benefits:    []string{"Guaranteed 100 days employment", "Wage payment within 15 days", "Asset creation in rural areas"},
	},
}

type gatedRule struct {
	scheme      model.Scheme
	reasoning   string
	eligibleWhy string
	rejectWhy   string
}

var gatedRules = []gatedRule{
	{
		scheme:      model.SchemePMKISAN,
		reasoning:   "Beneficiary is eligible for PM-KISAN scheme as a farmer",
		eligibleWhy: "Meets eligibility criteria as agricultural land holder",
		rejectWhy:   "Not eligible - either not a farmer or does not meet land ownership criteria",
	},
	{
		scheme:      model.SchemePMAY,
		reasoning:   "Beneficiary is eligible for PMAY housing scheme",
		eligibleWhy: "Meets eligibility criteria for housing assistance",
		rejectWhy:   "Not eligible - may already have pucca house or income exceeds limit",
	},
}

// rankedSchemes are evaluated in this order before sorting, so equal scores
// keep it.
var rankedSchemes = []model.Scheme{
	model.SchemeJalJeevanMission,
	model.SchemeDAJGUA,
	model.SchemeMGNREGA,
}

// Evaluate builds the recommendation for one scored claimant.
func Evaluate(row *model.ResultRow) *Recommendation {
	rec := &Recommendation{
		ClaimID:      row.ClaimID,
		ClaimantName: row.Name,
		Location:     row.Key(),
		Category:     row.Category,
		AnnualIncome: row.AnnualIncome,
		Scores:       row.PriorityScores,
		Analysis:     make(map[model.Scheme]SchemeAnalysis, len(model.Schemes)),
	}

	for _, rule := range gatedRules {
		score := row.Get(rule.scheme)
		if score != 1 {
			rec.Analysis[rule.scheme] = SchemeAnalysis{Score: score, Reasoning: rule.rejectWhy}
			continue
		}
		info := catalogue[rule.scheme]
		rec.Recommendations = append(rec.Recommendations, SchemeRecommendation{
			Scheme:      rule.scheme,
			Name:        info.name,
			Type:        KindEligible,
			Priority:    1,
			Status:      StatusRecommended,
			Reasoning:   rule.reasoning,
			Description: info.description,
			Benefits:    info.benefits,
		})
		rec.Analysis[rule.scheme] = SchemeAnalysis{
			Score: score, Eligible: true, Recommended: true, Reasoning: rule.eligibleWhy,
		}
	}

	ranked := slices.Clone(rankedSchemes)
	slices.SortStableFunc(ranked, func(a, b model.Scheme) int {
		return cmp.Compare(row.Get(b), row.Get(a))
	})
	highest := row.Get(ranked[0])

	for _, s := range ranked {
		score := row.Get(s)
		if score <= model.HighPriorityThreshold {
			rec.Analysis[s] = SchemeAnalysis{
				Score:     score,
				Reasoning: fmt.Sprintf("Low priority score %s - below recommendation threshold", percent(score)),
			}
			continue
		}

		status := StatusRecommended
		var reasoning string
		switch {
		case score == highest:
			reasoning = fmt.Sprintf("Highest priority scheme with score %s", percent(score))
		case highest-score <= CloseMargin:
			reasoning = fmt.Sprintf("High priority scheme with score %s (within %g of highest)", percent(score), CloseMargin)
		default:
			status = StatusConsidered
			reasoning = fmt.Sprintf("Moderate priority with score %s", percent(score))
		}

		info := catalogue[s]
		rec.Recommendations = append(rec.Recommendations, SchemeRecommendation{
			Scheme:      s,
			Name:        info.name,
			Type:        KindPriority,
			Priority:    score,
			Status:      status,
			Reasoning:   reasoning,
			Description: info.description,
			Benefits:    info.benefits,
		})
		rec.Analysis[s] = SchemeAnalysis{
			Score: score, Recommended: status == StatusRecommended, Reasoning: reasoning,
		}
	}

	slices.SortStableFunc(rec.Recommendations, func(a, b SchemeRecommendation) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	rec.Summary = summarize(rec)
	return rec
}

func summarize(rec *Recommendation) Summary {
	sum := Summary{HighestPriority: "None"}
	var eligibleRecommended int
	for _, r := range rec.Recommendations {
		if r.Type == KindEligible {
			sum.EligibleSchemes++
		}
		if r.Status != StatusRecommended {
			continue
		}
		if sum.TotalRecommended == 0 {
			sum.HighestPriority = r.Name
		}
		sum.TotalRecommended++
		if r.Type == KindEligible {
			eligibleRecommended++
		} else {
			sum.PrioritySchemes++
		}
	}

	if sum.TotalRecommended == 0 {
		sum.Message = "No schemes are currently recommended based on the DSS analysis. " +
			"Consider reviewing eligibility criteria or improving priority factors."
		return sum
	}

	sum.Message = fmt.Sprintf("Based on DSS analysis, %d scheme(s) are recommended for %s.",
		sum.TotalRecommended, rec.ClaimantName)
	if eligibleRecommended > 0 {
		sum.Message += fmt.Sprintf(" %d scheme(s) based on direct eligibility.", eligibleRecommended)
	}
	if sum.PrioritySchemes > 0 {
		sum.Message += fmt.Sprintf(" %d scheme(s) based on high priority scores.", sum.PrioritySchemes)
	}
	return sum
}

func percent(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}
