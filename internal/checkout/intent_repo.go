package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gamevault/gamevault-backend/pkg/db/models"
	"github.com/gamevault/gamevault-backend/pkg/enums"
)

// ErrIntentFinalized is returned when an update targets an intent that has
// already reached complete or failed. Terminal intents never move again.
var ErrIntentFinalized = errors.New("checkout intent already finalized")

var terminalIntentStatuses = []enums.CheckoutIntentStatus{
	enums.CheckoutIntentComplete,
	enums.CheckoutIntentFailed,
}

// IntentRepository persists the durable checkout progress markers the
// reconciliation job recovers from.
type IntentRepository struct {
	db *gorm.DB
}

// NewIntentRepository constructs an intent repo bound to the provided DB.
func NewIntentRepository(db *gorm.DB) *IntentRepository {
	return &IntentRepository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *IntentRepository) WithTx(tx *gorm.DB) *IntentRepository {
	if tx == nil {
		return r
	}
	return &IntentRepository{db: tx}
}

// Create inserts a new checkout intent.
func (r *IntentRepository) Create(ctx context.Context, intent *models.CheckoutIntent) (*models.CheckoutIntent, error) {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(intent).Error; err != nil {
		return nil, err
	}
	return intent, nil
}

// FindByID loads one intent.
func (r *IntentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutIntent, error) {
	var intent models.CheckoutIntent
	if err := r.db.WithContext(ctx).First(&intent, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

// FindByIdempotencyKey loads the intent created under the given key, if any.
func (r *IntentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.CheckoutIntent, error) {
	var intent models.CheckoutIntent
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

// SetStatus advances the intent's status. Terminal intents are immutable;
// touching one returns ErrIntentFinalized. Updates go through gorm's Updates
// so updated_at always moves with the status and FindStuck measures real
// inactivity.
func (r *IntentRepository) SetStatus(ctx context.Context, id uuid.UUID, status enums.CheckoutIntentStatus) error {
	return r.updateLive(ctx, id, map[string]any{"status": status})
}

// AttachOrder links the intent to the order it reserved.
func (r *IntentRepository) AttachOrder(ctx context.Context, id, orderID uuid.UUID) error {
	return r.updateLive(ctx, id, map[string]any{"order_id": orderID})
}

// SetPaymentCaptured records the provider payment id alongside the
// payment_captured status.
func (r *IntentRepository) SetPaymentCaptured(ctx context.Context, id uuid.UUID, paymentID string) error {
	return r.updateLive(ctx, id, map[string]any{
		"status":     enums.CheckoutIntentPaymentCaptured,
		"payment_id": paymentID,
	})
}

// MarkFailed moves the intent to failed with the terminal error message.
func (r *IntentRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.updateLive(ctx, id, map[string]any{
		"status":     enums.CheckoutIntentFailed,
		"last_error": reason,
	})
}

func (r *IntentRepository) updateLive(ctx context.Context, id uuid.UUID, values map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("id = ? AND status NOT IN ?", id, terminalIntentStatuses).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrIntentFinalized
	}
	return nil
}

// FindStuck returns non-terminal intents that have not moved since the
// cutoff, oldest first.
func (r *IntentRepository) FindStuck(ctx context.Context, statuses []enums.CheckoutIntentStatus, updatedBefore time.Time, limit int) ([]models.CheckoutIntent, error) {
	var rows []models.CheckoutIntent
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", statuses, updatedBefore).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
