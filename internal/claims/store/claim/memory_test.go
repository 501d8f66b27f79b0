package claim

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"cafeteria/internal/claims/models"
	"cafeteria/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.store.SeedStudents(
		models.Student{Code: "1001", Name: "ANA MARIA PEREZ", Homeroom: "3", FoodPlan: "ALMUERZO"},
		models.Student{Code: "1002", Name: "JUAN CAMILO RIOS", Homeroom: "K3", FoodPlan: "REFRIGERIO"},
	)
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func newClaim(code string, service models.Service, at time.Time) models.ClaimRecord {
	return models.ClaimRecord{
		ID:          uuid.New(),
		StudentCode: code,
		Name:        "ANA MARIA PEREZ",
		Service:     service,
		Plan:        "ALMUERZO",
		ClaimedAt:   at,
		Status:      models.ClaimStatusValidated,
	}
}

func (s *MemoryStoreSuite) TestLookupWithClaimStatus() {
	noon := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	day := models.ClaimDay(noon)

	s.Run("returns student with zero claims", func() {
		st, count, err := s.store.LookupWithClaimStatus(s.ctx, "1001", models.ServiceLunch, day)
		s.Require().NoError(err)
		s.Equal("ANA MARIA PEREZ", st.Name)
		s.Equal(0, count)
	})

	s.Run("counts an existing claim for the same service and day", func() {
		s.Require().NoError(s.store.Append(s.ctx, newClaim("1001", models.ServiceLunch, noon)))

		_, count, err := s.store.LookupWithClaimStatus(s.ctx, "1001", models.ServiceLunch, day)
		s.Require().NoError(err)
		s.Equal(1, count)
	})

	s.Run("a different service does not count", func() {
		_, count, err := s.store.LookupWithClaimStatus(s.ctx, "1001", models.ServiceSnack, day)
		s.Require().NoError(err)
		s.Equal(0, count)
	})

	s.Run("a different day does not count", func() {
		tomorrow := models.ClaimDay(noon.AddDate(0, 0, 1))
		_, count, err := s.store.LookupWithClaimStatus(s.ctx, "1001", models.ServiceLunch, tomorrow)
		s.Require().NoError(err)
		s.Equal(0, count)
	})

	s.Run("returns ErrNotFound for unknown code", func() {
		_, _, err := s.store.LookupWithClaimStatus(s.ctx, "9999", models.ServiceLunch, day)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestAppendUniqueness() {
	noon := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

	s.Run("rejects a second claim for the same service and day", func() {
		s.Require().NoError(s.store.Append(s.ctx, newClaim("1001", models.ServiceLunch, noon)))

		err := s.store.Append(s.ctx, newClaim("1001", models.ServiceLunch, noon.Add(5*time.Minute)))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
		s.Len(s.store.ClaimsFor("1001"), 1)
	})

	s.Run("allows the other service on the same day", func() {
		s.Require().NoError(s.store.Append(s.ctx, newClaim("1002", models.ServiceSnack, noon)))
		s.Require().NoError(s.store.Append(s.ctx, newClaim("1002", models.ServiceLunch, noon)))
		s.Len(s.store.ClaimsFor("1002"), 2)
	})

	s.Run("allows the same service on the next day", func() {
		s.Require().NoError(s.store.Append(s.ctx, newClaim("1001", models.ServiceSnack, noon)))
		s.Require().NoError(s.store.Append(s.ctx, newClaim("1001", models.ServiceSnack, noon.AddDate(0, 0, 1))))
	})
}
