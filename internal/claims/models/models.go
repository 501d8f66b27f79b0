package models

import (
	"time"

	"github.com/google/uuid"
)

// Service identifies the meal service offered during a time window.
type Service string

const (
	ServiceSnack Service = "SNACK"
	ServiceLunch Service = "LUNCH"
	ServiceNone  Service = "NONE"
)

// Student is a read-only record from the student directory. Field names track
// the directory schema (codigo_estudiante, nombre, grado, tipo_alimentacion).
type Student struct {
	Code     string
	Name     string
	Homeroom string
	FoodPlan string
}

// ClaimStatus is the lifecycle state of a claim record. Claims are append-only
// and created already validated, so there is a single status today.
type ClaimStatus string

const ClaimStatusValidated ClaimStatus = "VALIDATED"

// ClaimRecord is the durable record of one accepted claim. At most one record
// may exist per (student code, service, calendar day); the store enforces this
// with a uniqueness constraint.
type ClaimRecord struct {
	ID          uuid.UUID
	StudentCode string
	Name        string
	Service     Service
	Plan        string
	ClaimedAt   time.Time
	Status      ClaimStatus
}

// ClaimDay returns the calendar day a claim at time t belongs to, as a
// DateOnly string. All duplicate checks key on this value.
func ClaimDay(t time.Time) string {
	return t.Format(time.DateOnly)
}

// FulfillmentTask carries an accepted claim from the request path to the
// background worker. It snapshots the student so the worker never re-reads
// the directory.
type FulfillmentTask struct {
	Student   Student
	Service   Service
	Validated time.Time
}

// RejectReason enumerates why a claim was refused. Values are surfaced
// verbatim in 403 responses.
type RejectReason string

const (
	ReasonServiceUnavailable       RejectReason = "ServiceUnavailable"
	ReasonHomeroomBlocked          RejectReason = "HomeroomBlocked"
	ReasonNoPlanAssigned           RejectReason = "NoPlanAssigned"
	ReasonPlanNotEligibleForWindow RejectReason = "PlanNotEligibleForWindow"
	ReasonAlreadyClaimedToday      RejectReason = "AlreadyClaimedToday"
)

// Decision is the result of the eligibility rule chain.
type Decision struct {
	Accepted bool
	Reason   RejectReason // set only when Accepted is false
}

// Accept returns an accepting decision.
func Accept() Decision { return Decision{Accepted: true} }

// Reject returns a rejecting decision with the given reason.
func Reject(reason RejectReason) Decision {
	return Decision{Accepted: false, Reason: reason}
}

// Result is the outcome of a claim submission that passed input validation
// and student lookup. Input errors, missing students, and store failures are
// reported as domain errors instead.
type Result struct {
	Accepted bool
	Service  Service
	Reason   RejectReason // set only when Accepted is false
	Student  *Student     // set only when Accepted is true
}
