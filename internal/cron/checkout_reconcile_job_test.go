package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/gamevault/gamevault-backend/pkg/db/models"
	"github.com/gamevault/gamevault-backend/pkg/enums"
	"github.com/gamevault/gamevault-backend/pkg/logger"
)

func TestCheckoutReconcileJobSweepsEveryIntent(t *testing.T) {
	reconciler := &fakeIntentReconciler{
		intents: []models.CheckoutIntent{
			{ID: uuid.New(), Status: enums.CheckoutIntentStockReserved},
			{ID: uuid.New(), Status: enums.CheckoutIntentPaymentCaptured},
		},
	}
	job := newCheckoutReconcileJob(t, reconciler)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reconciler.limit != defaultReconcileBatch {
		t.Fatalf("expected batch %d, got %d", defaultReconcileBatch, reconciler.limit)
	}
	if len(reconciler.reconciled) != 2 {
		t.Fatalf("expected 2 intents reconciled, got %d", len(reconciler.reconciled))
	}
}

func TestCheckoutReconcileJobContinuesPastFailures(t *testing.T) {
	bad := uuid.New()
	good := uuid.New()
	reconciler := &fakeIntentReconciler{
		intents: []models.CheckoutIntent{
			{ID: bad, Status: enums.CheckoutIntentCreated},
			{ID: good, Status: enums.CheckoutIntentInvoicesIssued},
		},
		failFor: bad,
	}
	job := newCheckoutReconcileJob(t, reconciler)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(reconciler.reconciled) != 2 {
		t.Fatalf("expected sweep to reach both intents, got %d", len(reconciler.reconciled))
	}
	if reconciler.reconciled[1] != good {
		t.Fatalf("expected second intent %s reconciled, got %s", good, reconciler.reconciled[1])
	}
}

func TestCheckoutReconcileJobPropagatesQueryError(t *testing.T) {
	reconciler := &fakeIntentReconciler{findErr: errors.New("boom")}
	job := newCheckoutReconcileJob(t, reconciler)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newCheckoutReconcileJob(t *testing.T, reconciler *fakeIntentReconciler) Job {
	t.Helper()
	job, err := NewCheckoutReconcileJob(CheckoutReconcileJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Reconciler: reconciler,
	})
	if err != nil {
		t.Fatalf("NewCheckoutReconcileJob: %v", err)
	}
	return job
}

type fakeIntentReconciler struct {
	intents    []models.CheckoutIntent
	findErr    error
	failFor    uuid.UUID
	limit      int
	reconciled []uuid.UUID
}

func (f *fakeIntentReconciler) FindStuckIntents(ctx context.Context, limit int) ([]models.CheckoutIntent, error) {
	f.limit = limit
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.intents, nil
}

func (f *fakeIntentReconciler) ReconcileIntent(ctx context.Context, intent models.CheckoutIntent) error {
	f.reconciled = append(f.reconciled, intent.ID)
	if intent.ID == f.failFor {
		return errors.New("gateway unavailable")
	}
	return nil
}
