package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"cafeteria/internal/claims/eligibility"
	"cafeteria/internal/claims/metrics"
	"cafeteria/internal/claims/models"
	"cafeteria/internal/claims/store/claim"
	"cafeteria/internal/claims/store/marker"
	"cafeteria/internal/platform/config"
	"cafeteria/internal/schedule"
	dErrors "cafeteria/pkg/domain-errors"
	"cafeteria/pkg/requestcontext"
)

// fakeQueue records enqueued tasks without running a worker.
type fakeQueue struct {
	tasks []models.FulfillmentTask
}

func (q *fakeQueue) Enqueue(task models.FulfillmentTask) { q.tasks = append(q.tasks, task) }
func (q *fakeQueue) Depth() int                          { return len(q.tasks) }

// failingStore simulates an unreachable claim store.
type failingStore struct{}

func (failingStore) LookupWithClaimStatus(ctx context.Context, code string, service models.Service, day string) (*models.Student, int, error) {
	return nil, 0, errors.New("connection refused")
}

var serviceMetrics = metrics.New()

type ServiceSuite struct {
	suite.Suite
	store *claim.InMemory
	queue *fakeQueue
	svc   *ClaimService
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = claim.NewInMemory()
	s.store.SeedStudents(
		models.Student{Code: "S1", Name: "ANA MARIA PEREZ", Homeroom: "3", FoodPlan: "ALMUERZO"},
		models.Student{Code: "S2", Name: "JUAN CAMILO RIOS", Homeroom: "K3", FoodPlan: "REFRIGERIO Y ALMUERZO"},
		models.Student{Code: "S3", Name: "SARA LUCIA GOMEZ", Homeroom: "4", FoodPlan: "NINGUNO"},
	)
	s.queue = &fakeQueue{}
	s.svc = s.newService(s.store, nil)
}

func (s *ServiceSuite) newService(store Store, mk Marker) *ClaimService {
	sched, err := schedule.New(config.Windows{
		SnackStart: "06:00", SnackEnd: "11:20",
		LunchStart: "11:20", LunchEnd: "18:00",
	})
	s.Require().NoError(err)

	engine := eligibility.New([]string{"K2", "K3", "K4", "K5", "1", "2"})
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return New(sched, engine, store, mk, s.queue, serviceMetrics, logger)
}

// ctxAt pins the request-scoped clock, the way the RequestTime middleware
// does for real requests.
func ctxAt(hour, minute int) context.Context {
	t := time.Date(2026, 3, 10, hour, minute, 0, 0, time.Local)
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) TestAcceptsLunchClaim() {
	res, err := s.svc.SubmitClaim(ctxAt(12, 0), "S1")
	s.Require().NoError(err)

	s.True(res.Accepted)
	s.Equal(models.ServiceLunch, res.Service)
	s.Equal("ANA MARIA PEREZ", res.Student.Name)

	s.Require().Len(s.queue.tasks, 1)
	s.Equal("S1", s.queue.tasks[0].Student.Code)
	s.Equal(models.ServiceLunch, s.queue.tasks[0].Service)
}

func (s *ServiceSuite) TestRejectsSecondClaimSameDay() {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	s.Require().NoError(s.store.Append(context.Background(), models.ClaimRecord{
		ID: uuid.New(), StudentCode: "S1", Name: "ANA MARIA PEREZ",
		Service: models.ServiceLunch, Plan: "ALMUERZO",
		ClaimedAt: now, Status: models.ClaimStatusValidated,
	}))

	res, err := s.svc.SubmitClaim(ctxAt(12, 5), "S1")
	s.Require().NoError(err)

	s.False(res.Accepted)
	s.Equal(models.ReasonAlreadyClaimedToday, res.Reason)
	s.Empty(s.queue.tasks, "rejection must not enqueue fulfillment")
}

func (s *ServiceSuite) TestRejectsBlockedHomeroomRegardlessOfPlan() {
	res, err := s.svc.SubmitClaim(ctxAt(12, 0), "S2")
	s.Require().NoError(err)

	s.False(res.Accepted)
	s.Equal(models.ReasonHomeroomBlocked, res.Reason)
	s.Empty(s.queue.tasks)
}

func (s *ServiceSuite) TestRejectsOutsideAllWindowsWithoutStoreLookup() {
	// A failing store proves the window check runs first.
	svc := s.newService(failingStore{}, nil)

	res, err := svc.SubmitClaim(ctxAt(5, 0), "S1")
	s.Require().NoError(err)

	s.False(res.Accepted)
	s.Equal(models.ReasonServiceUnavailable, res.Reason)
}

func (s *ServiceSuite) TestRejectsMissingPlan() {
	res, err := s.svc.SubmitClaim(ctxAt(12, 0), "S3")
	s.Require().NoError(err)

	s.False(res.Accepted)
	s.Equal(models.ReasonNoPlanAssigned, res.Reason)
}

func (s *ServiceSuite) TestRejectsPlanOutsideItsWindow() {
	// S1 has lunch only; ask during snack.
	res, err := s.svc.SubmitClaim(ctxAt(9, 0), "S1")
	s.Require().NoError(err)

	s.False(res.Accepted)
	s.Equal(models.ReasonPlanNotEligibleForWindow, res.Reason)
}

func (s *ServiceSuite) TestEmptyCodeIsBadRequest() {
	_, err := s.svc.SubmitClaim(ctxAt(12, 0), "  ")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.Empty(s.queue.tasks)
}

func (s *ServiceSuite) TestUnknownCodeIsNotFound() {
	_, err := s.svc.SubmitClaim(ctxAt(12, 0), "NOPE")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Empty(s.queue.tasks)
}

func (s *ServiceSuite) TestStoreFailureFailsClosed() {
	svc := s.newService(failingStore{}, nil)

	_, err := svc.SubmitClaim(ctxAt(12, 0), "S1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Empty(s.queue.tasks, "store failure must not enqueue fulfillment")
}

// Submitting the same invalid code twice yields the same rejection both
// times with no observable side effect.
func (s *ServiceSuite) TestRejectionIsIdempotent() {
	for i := 0; i < 2; i++ {
		res, err := s.svc.SubmitClaim(ctxAt(12, 0), "S2")
		s.Require().NoError(err)
		s.Equal(models.ReasonHomeroomBlocked, res.Reason)
	}
	s.Empty(s.queue.tasks)
	s.Empty(s.store.ClaimsFor("S2"))
}

func (s *ServiceSuite) TestMarkerFastPathShortCircuitsStore() {
	mk := marker.NewInMemory()
	day := models.ClaimDay(time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local))
	s.Require().NoError(mk.MarkClaimed(context.Background(), "S1", models.ServiceLunch, day, time.Hour))

	// A failing store proves the marker answered without a store read.
	svc := s.newService(failingStore{}, mk)

	res, err := svc.SubmitClaim(ctxAt(12, 0), "S1")
	s.Require().NoError(err)
	s.False(res.Accepted)
	s.Equal(models.ReasonAlreadyClaimedToday, res.Reason)
}

func (s *ServiceSuite) TestMarkerFailureFallsBackToStore() {
	mk := &erroringMarker{}
	svc := s.newService(s.store, mk)

	res, err := svc.SubmitClaim(ctxAt(12, 0), "S1")
	s.Require().NoError(err)
	s.True(res.Accepted, "marker errors must not reject valid claims")
}

type erroringMarker struct{}

func (erroringMarker) AlreadyClaimed(ctx context.Context, code string, service models.Service, day string) (bool, error) {
	return false, errors.New("redis down")
}
