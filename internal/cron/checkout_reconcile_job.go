package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/gamevault/gamevault-backend/pkg/db/models"
	"github.com/gamevault/gamevault-backend/pkg/logger"
)

const defaultReconcileBatch = 100

// CheckoutReconcileJobParams configure the stuck checkout sweeper.
type CheckoutReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler intentReconciler
	BatchSize  int
}

type intentReconciler interface {
	FindStuckIntents(ctx context.Context, limit int) ([]models.CheckoutIntent, error)
	ReconcileIntent(ctx context.Context, intent models.CheckoutIntent) error
}

// NewCheckoutReconcileJob builds the cron job that drives stuck checkout
// intents to a terminal state: releasing stale reservations, refunding
// captures whose order vanished, and finishing interrupted invoice issuance.
func NewCheckoutReconcileJob(params CheckoutReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("checkout reconciler required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &checkoutReconcileJob{
		logg:       params.Logger,
		reconciler: params.Reconciler,
		batch:      batch,
	}, nil
}

type checkoutReconcileJob struct {
	logg       *logger.Logger
	reconciler intentReconciler
	batch      int
}

func (j *checkoutReconcileJob) Name() string { return "checkout-reconcile" }

func (j *checkoutReconcileJob) Run(ctx context.Context) error {
	intents, err := j.reconciler.FindStuckIntents(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("query stuck checkout intents: %w", err)
	}
	var errs []error
	recovered := 0
	for _, intent := range intents {
		intentCtx := j.logg.WithFields(ctx, map[string]any{
			"intent_id":     intent.ID,
			"intent_status": intent.Status,
		})
		if err := j.reconciler.ReconcileIntent(intentCtx, intent); err != nil {
			j.logg.Error(intentCtx, "reconcile checkout intent", err)
			errs = append(errs, fmt.Errorf("reconcile intent %s: %w", intent.ID, err))
			continue
		}
		recovered++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"found":     len(intents),
		"recovered": recovered,
	})
	j.logg.Info(logCtx, "checkout reconcile sweep complete")
	return multierr.Combine(errs...)
}
