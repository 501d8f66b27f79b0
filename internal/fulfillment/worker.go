package fulfillment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cafeteria/internal/claims/metrics"
	"cafeteria/internal/claims/models"
	"cafeteria/pkg/platform/sentinel"
)

// Dispatcher sends a ticket to the printer service.
type Dispatcher interface {
	Dispatch(ctx context.Context, student models.Student, service models.Service) error
}

// Store persists claim records.
type Store interface {
	Append(ctx context.Context, rec models.ClaimRecord) error
}

// Marker records completed claims for the fast-path duplicate check.
type Marker interface {
	MarkClaimed(ctx context.Context, code string, service models.Service, day string, ttl time.Duration) error
}

// Worker consumes fulfillment tasks and performs the printer dispatch and
// claim persistence for each. It is the single consumer of the queue, so all
// side effects happen in FIFO order regardless of request arrival order.
//
// Outcomes are logged, never surfaced to the original caller - the HTTP
// response was already sent when the task was enqueued.
type Worker struct {
	queue      *Queue
	dispatcher Dispatcher
	store      Store
	marker     Marker // nil disables the fast-path marker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewWorker wires a worker to its queue and collaborators.
func NewWorker(queue *Queue, dispatcher Dispatcher, store Store, marker Marker, m *metrics.Metrics, logger *slog.Logger) *Worker {
	return &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		store:      store,
		marker:     marker,
		metrics:    m,
		logger:     logger,
	}
}

// Run processes tasks until ctx is cancelled. A task picked up before
// cancellation runs to completion; tasks still queued at that point are
// dropped and their count logged.
func (w *Worker) Run(ctx context.Context) error {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if pending := w.queue.Depth(); pending > 0 {
				w.logger.Warn("fulfillment worker stopping with tasks pending",
					"pending", pending,
				)
			}
			return err
		}
		w.metrics.SetQueueDepth(w.queue.Depth())
		w.process(task)
	}
}

// process runs one task: dispatch the ticket, then persist the claim.
// Persistence is attempted even when printing failed - losing the ticket is
// recoverable, losing the eligibility decision is not. This is a product
// decision; do not reorder without changing requirements.
func (w *Worker) process(task models.FulfillmentTask) {
	// The HTTP request that produced this task is gone; side effects run
	// under the process context, not the request's.
	ctx := context.Background()

	start := time.Now()
	dispatchErr := w.dispatcher.Dispatch(ctx, task.Student, task.Service)
	w.metrics.ObserveDispatchLatency(time.Since(start))
	if dispatchErr != nil {
		w.metrics.IncrementDispatchFailures()
		w.logger.Error("printer dispatch failed",
			"student_code", task.Student.Code,
			"service", task.Service,
			"error", dispatchErr.Error(),
		)
	}

	rec := models.ClaimRecord{
		ID:          uuid.New(),
		StudentCode: task.Student.Code,
		Name:        task.Student.Name,
		Service:     task.Service,
		Plan:        task.Student.FoodPlan,
		ClaimedAt:   task.Validated,
		Status:      models.ClaimStatusValidated,
	}

	if err := w.store.Append(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the duplicate race; the winning record preserves the claim.
			w.logger.Warn("claim already recorded by concurrent request",
				"student_code", task.Student.Code,
				"service", task.Service,
			)
			return
		}
		w.metrics.IncrementPersistFailures()
		if dispatchErr == nil {
			// Printed but unrecorded - the inconsistency operators must chase.
			w.logger.Error("ticket printed but claim not recorded",
				"student_code", task.Student.Code,
				"service", task.Service,
				"error", err.Error(),
			)
		} else {
			w.logger.Error("claim not recorded",
				"student_code", task.Student.Code,
				"service", task.Service,
				"error", err.Error(),
			)
		}
		return
	}

	w.logger.Info("claim fulfilled",
		"student_code", task.Student.Code,
		"service", task.Service,
		"printed", dispatchErr == nil,
	)

	if w.marker != nil {
		day := models.ClaimDay(task.Validated)
		if err := w.marker.MarkClaimed(ctx, task.Student.Code, task.Service, day, untilEndOfDay(task.Validated)); err != nil {
			// Marker is advisory; the unique index still holds.
			w.logger.Warn("claim marker not set",
				"student_code", task.Student.Code,
				"error", err.Error(),
			)
		}
	}
}

// untilEndOfDay returns how long a marker for a claim at t should live:
// until local midnight, when the claim day rolls over.
func untilEndOfDay(t time.Time) time.Duration {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
	return midnight.Sub(t)
}
