package claim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"cafeteria/internal/claims/models"
	"cafeteria/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres error code raised when an insert hits a
// unique index.
const uniqueViolation = "23505"

// Postgres persists claims in PostgreSQL next to the student directory.
//
// The unique index on (codigo_estudiante, tipo_servicio, dia) is the
// authoritative at-most-once guarantee. The combined read in
// LookupWithClaimStatus narrows the duplicate window but cannot close it
// across independent connections; a losing racer surfaces as
// sentinel.ErrConflict from Append.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed claim store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema creates the claims table and its uniqueness constraint. The
// estudiantes table is owned by the directory and only created here for
// development and integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS estudiantes (
	codigo_estudiante TEXT PRIMARY KEY,
	nombre            TEXT NOT NULL,
	grado             TEXT NOT NULL,
	tipo_alimentacion TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS reclamos (
	id                UUID PRIMARY KEY,
	codigo_estudiante TEXT        NOT NULL,
	nombre            TEXT        NOT NULL,
	tipo_servicio     TEXT        NOT NULL,
	plan              TEXT        NOT NULL,
	reclamado_en      TIMESTAMPTZ NOT NULL,
	dia               DATE        NOT NULL,
	estado            TEXT        NOT NULL,
	UNIQUE (codigo_estudiante, tipo_servicio, dia)
);
`

// EnsureSchema applies Schema. Idempotent.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure claim schema: %w", err)
	}
	return nil
}

// LookupWithClaimStatus fetches the student record and the count of existing
// claims for (code, service, day) in a single query, so both facts come from
// one consistent snapshot.
func (p *Postgres) LookupWithClaimStatus(ctx context.Context, code string, service models.Service, day string) (*models.Student, int, error) {
	query := `
		SELECT e.codigo_estudiante, e.nombre, e.grado, e.tipo_alimentacion,
		       (SELECT COUNT(*) FROM reclamos r
		         WHERE r.codigo_estudiante = e.codigo_estudiante
		           AND r.tipo_servicio = $2
		           AND r.dia = $3) AS claim_count
		FROM estudiantes e
		WHERE e.codigo_estudiante = $1
	`
	var st models.Student
	var count int
	err := p.db.QueryRowContext(ctx, query, code, string(service), day).
		Scan(&st.Code, &st.Name, &st.Homeroom, &st.FoodPlan, &count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, fmt.Errorf("student %q: %w", code, sentinel.ErrNotFound)
		}
		return nil, 0, fmt.Errorf("lookup student with claim status: %w", err)
	}
	return &st, count, nil
}

// Append inserts a claim record. The unique index turns a duplicate race into
// sentinel.ErrConflict.
func (p *Postgres) Append(ctx context.Context, rec models.ClaimRecord) error {
	query := `
		INSERT INTO reclamos (id, codigo_estudiante, nombre, tipo_servicio, plan, reclamado_en, dia, estado)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := p.db.ExecContext(ctx, query,
		rec.ID,
		rec.StudentCode,
		rec.Name,
		string(rec.Service),
		rec.Plan,
		rec.ClaimedAt,
		models.ClaimDay(rec.ClaimedAt),
		string(rec.Status),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("claim for %s/%s: %w", rec.StudentCode, rec.Service, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}
