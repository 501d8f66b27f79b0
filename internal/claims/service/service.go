// Package service orchestrates claim submission: window check, combined
// lookup and duplicate check, eligibility rules, then handoff to fulfillment.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cafeteria/internal/claims/eligibility"
	"cafeteria/internal/claims/metrics"
	"cafeteria/internal/claims/models"
	dErrors "cafeteria/pkg/domain-errors"
	"cafeteria/pkg/platform/sentinel"
	"cafeteria/pkg/requestcontext"
)

// Schedule maps a timestamp to the active meal service.
type Schedule interface {
	Active(t time.Time) models.Service
}

// Store is the claim store as seen from the request path. Appends happen in
// the fulfillment worker, never here.
type Store interface {
	LookupWithClaimStatus(ctx context.Context, code string, service models.Service, day string) (*models.Student, int, error)
}

// Marker is the advisory fast-path duplicate check.
type Marker interface {
	AlreadyClaimed(ctx context.Context, code string, service models.Service, day string) (bool, error)
}

// Enqueuer hands accepted claims to the fulfillment queue.
type Enqueuer interface {
	Enqueue(task models.FulfillmentTask)
	Depth() int
}

// ClaimService validates claim submissions. The request path never waits on
// the printer or on claim persistence; acceptance means "queued for
// fulfillment", not "ticket printed".
type ClaimService struct {
	schedule Schedule
	engine   *eligibility.Engine
	store    Store
	marker   Marker // nil disables the fast path
	queue    Enqueuer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New constructs a ClaimService.
func New(schedule Schedule, engine *eligibility.Engine, store Store, marker Marker, queue Enqueuer, m *metrics.Metrics, logger *slog.Logger) *ClaimService {
	return &ClaimService{
		schedule: schedule,
		engine:   engine,
		store:    store,
		marker:   marker,
		queue:    queue,
		metrics:  m,
		logger:   logger,
	}
}

// SubmitClaim validates a scanned student code against the active service.
//
// Returns a Result for accept/reject outcomes, and a domain error for input
// problems (bad_request), unknown students (not_found), and store failures
// (unavailable - the request fails closed, nothing is enqueued).
func (s *ClaimService) SubmitClaim(ctx context.Context, code string) (*models.Result, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveValidateLatency(time.Since(start)) }()

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "codigo is required")
	}

	now := requestcontext.Now(ctx)
	active := s.schedule.Active(now)
	if active == models.ServiceNone {
		// Fail fast: outside every window nothing is claimable, so the
		// store is never consulted.
		return s.reject(active, models.ReasonServiceUnavailable), nil
	}

	day := models.ClaimDay(now)

	if s.marker != nil {
		claimed, err := s.marker.AlreadyClaimed(ctx, code, active, day)
		if err != nil {
			// Advisory path only; fall through to the store.
			s.logger.WarnContext(ctx, "claim marker check failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		} else if claimed {
			// A marker only exists for a claim that already passed every
			// rule for this service and day, so the reason is exact.
			return s.reject(active, models.ReasonAlreadyClaimedToday), nil
		}
	}

	student, claimCount, err := s.store.LookupWithClaimStatus(ctx, code, active, day)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "claim store unavailable")
	}

	decision := s.engine.Decide(*student, active, claimCount > 0)
	if !decision.Accepted {
		return s.reject(active, decision.Reason), nil
	}

	s.queue.Enqueue(models.FulfillmentTask{
		Student:   *student,
		Service:   active,
		Validated: now,
	})
	s.metrics.SetQueueDepth(s.queue.Depth())
	s.metrics.IncrementOutcome("accepted", "")

	s.logger.InfoContext(ctx, "claim accepted",
		"request_id", requestcontext.RequestID(ctx),
		"student_code", student.Code,
		"service", active,
	)

	return &models.Result{Accepted: true, Service: active, Student: student}, nil
}

func (s *ClaimService) reject(service models.Service, reason models.RejectReason) *models.Result {
	s.metrics.IncrementOutcome("rejected", string(reason))
	return &models.Result{Accepted: false, Service: service, Reason: reason}
}
