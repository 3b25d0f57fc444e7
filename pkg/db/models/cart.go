package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gamevault/gamevault-backend/pkg/enums"
)

// Cart is the single open cart held per customer.
type Cart struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID uuid.UUID      `gorm:"column:customer_id;type:uuid;not null;uniqueIndex"`
	Currency   enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	Items      []CartItem     `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// SubtotalCents sums the line subtotals of every item in the cart.
func (c Cart) SubtotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.LineSubtotalCents()
	}
	return total
}
