// Package eligibility decides whether a student may claim the active meal
// service. This is pure domain logic - no I/O, no side effects.
package eligibility

import (
	"strings"

	"cafeteria/internal/claims/models"
)

// planNone is the directory's sentinel for students with no food plan.
const planNone = "NINGUNO"

// Engine applies the claim eligibility rule chain. The goal is to keep the
// rules centralized and testable.
type Engine struct {
	blockedHomerooms map[string]struct{}
}

// New builds an Engine with the configured blocked homeroom set.
func New(blockedHomerooms []string) *Engine {
	blocked := make(map[string]struct{}, len(blockedHomerooms))
	for _, h := range blockedHomerooms {
		blocked[strings.ToUpper(strings.TrimSpace(h))] = struct{}{}
	}
	return &Engine{blockedHomerooms: blocked}
}

// Decide evaluates the rule chain for a student against the active service.
// Rules run in fixed precedence and short-circuit on the first failure:
//  1. Service availability - nothing is claimable outside every window
//  2. Homeroom block - excluded classrooms never claim, regardless of plan
//  3. Plan assigned - empty or sentinel plans claim nothing
//  4. Plan matches window - snack plans only during SNACK, lunch plans only during LUNCH
//  5. Not already claimed - one claim per student per service per day
//
// Student lookup failures are handled upstream; Decide assumes the record exists.
func (e *Engine) Decide(student models.Student, active models.Service, alreadyClaimed bool) models.Decision {
	if active == models.ServiceNone {
		return models.Reject(models.ReasonServiceUnavailable)
	}

	if _, blocked := e.blockedHomerooms[strings.ToUpper(strings.TrimSpace(student.Homeroom))]; blocked {
		return models.Reject(models.ReasonHomeroomBlocked)
	}

	plan := strings.ToUpper(strings.TrimSpace(student.FoodPlan))
	if plan == "" || plan == planNone {
		return models.Reject(models.ReasonNoPlanAssigned)
	}

	if !planCovers(plan, active) {
		return models.Reject(models.ReasonPlanNotEligibleForWindow)
	}

	if alreadyClaimed {
		return models.Reject(models.ReasonAlreadyClaimedToday)
	}

	return models.Accept()
}

// planCovers reports whether a directory plan string entitles the student to
// the given service. Plans are free text; "REFRIGERIO Y ALMUERZO" covers both
// services, and English aliases appear in older directory rows.
func planCovers(plan string, service models.Service) bool {
	switch service {
	case models.ServiceSnack:
		return strings.Contains(plan, "REFRIGERIO") || strings.Contains(plan, "SNACK")
	case models.ServiceLunch:
		return strings.Contains(plan, "ALMUERZO") || strings.Contains(plan, "LUNCH")
	default:
		return false
	}
}
