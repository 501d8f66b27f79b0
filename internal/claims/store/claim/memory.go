package claim

import (
	"context"
	"fmt"
	"sync"

	"cafeteria/internal/claims/models"
	"cafeteria/pkg/platform/sentinel"
)

// InMemory implements the claim store over process memory. Used by unit tests
// and local development; production uses the Postgres store.
//
// A single mutex covers both the directory and the claim set, so the combined
// lookup observes a consistent snapshot and Append is atomic with its
// uniqueness check.
type InMemory struct {
	mu       sync.Mutex
	students map[string]models.Student
	claims   map[claimKey]models.ClaimRecord
}

type claimKey struct {
	code    string
	service models.Service
	day     string
}

// NewInMemory creates an empty in-memory claim store.
func NewInMemory() *InMemory {
	return &InMemory{
		students: make(map[string]models.Student),
		claims:   make(map[claimKey]models.ClaimRecord),
	}
}

// SeedStudents loads directory records, keyed by student code.
func (s *InMemory) SeedStudents(students ...models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range students {
		s.students[st.Code] = st
	}
}

// LookupWithClaimStatus fetches the student record and the count of existing
// claims for (code, service, day) in one atomic read.
func (s *InMemory) LookupWithClaimStatus(ctx context.Context, code string, service models.Service, day string) (*models.Student, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[code]
	if !ok {
		return nil, 0, fmt.Errorf("student %q: %w", code, sentinel.ErrNotFound)
	}

	count := 0
	if _, claimed := s.claims[claimKey{code: code, service: service, day: day}]; claimed {
		count = 1
	}
	out := st
	return &out, count, nil
}

// Append records a claim, enforcing at most one claim per
// (student code, service, calendar day).
func (s *InMemory) Append(ctx context.Context, rec models.ClaimRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := claimKey{code: rec.StudentCode, service: rec.Service, day: models.ClaimDay(rec.ClaimedAt)}
	if _, exists := s.claims[key]; exists {
		return fmt.Errorf("claim for %s/%s on %s: %w", rec.StudentCode, rec.Service, key.day, sentinel.ErrConflict)
	}
	s.claims[key] = rec
	return nil
}

// ClaimsFor returns all claims recorded for a student, in no particular
// order. Test helper.
func (s *InMemory) ClaimsFor(code string) []models.ClaimRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ClaimRecord
	for _, rec := range s.claims {
		if rec.StudentCode == code {
			out = append(out, rec)
		}
	}
	return out
}
