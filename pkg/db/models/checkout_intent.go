package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gamevault/gamevault-backend/pkg/enums"
)

// CheckoutIntent is the durable progress record written ahead of each
// checkout side effect. The reconciliation job reads stuck intents to finish
// or unwind interrupted attempts.
type CheckoutIntent struct {
	ID             uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID     uuid.UUID                  `gorm:"column:customer_id;type:uuid;not null;index"`
	OrderID        *uuid.UUID                 `gorm:"column:order_id;type:uuid"`
	Status         enums.CheckoutIntentStatus `gorm:"column:status;type:text;not null;default:'created'"`
	IdempotencyKey string                     `gorm:"column:idempotency_key;not null;uniqueIndex"`
	AmountCents    int64                      `gorm:"column:amount_cents;not null"`
	Currency       enums.Currency             `gorm:"column:currency;type:text;not null;default:'USD'"`
	PaymentID      *string                    `gorm:"column:payment_id"`
	LastError      *string                    `gorm:"column:last_error"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
