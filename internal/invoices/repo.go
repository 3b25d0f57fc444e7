package invoices

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gamevault/gamevault-backend/pkg/db/models"
	"github.com/gamevault/gamevault-backend/pkg/pagination"
)

// Repository exposes invoice persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an invoices repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the invoice together with its items.
func (r *Repository) Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	for i := range invoice.Items {
		if invoice.Items[i].ID == uuid.Nil {
			invoice.Items[i].ID = uuid.New()
		}
		invoice.Items[i].InvoiceID = invoice.ID
	}
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// FindByID loads an invoice with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindByOrder loads every invoice cut from the order.
func (r *Repository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Invoice, error) {
	var rows []models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindItem loads one invoice item scoped to the invoice.
func (r *Repository) FindItem(ctx context.Context, invoiceID, itemID uuid.UUID) (*models.InvoiceItem, error) {
	var item models.InvoiceItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND invoice_id = ?", itemID, invoiceID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Save overwrites the invoice row with the provided snapshot.
func (r *Repository) Save(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).
		Omit("Items").
		Save(invoice).Error
}

// SaveItem overwrites one invoice item row.
func (r *Repository) SaveItem(ctx context.Context, item *models.InvoiceItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// ListByVendor returns the vendor's invoices newest first.
func (r *Repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.Invoice, string, error) {
	return r.list(ctx, "vendor_id = ?", vendorID, params)
}

// ListByCustomer returns the customer's invoices newest first.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Invoice, string, error) {
	return r.list(ctx, "customer_id = ?", customerID, params)
}

func (r *Repository) list(ctx context.Context, where string, id uuid.UUID, params pagination.Params) ([]models.Invoice, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Preload("Items").
		Where(where, id).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Invoice
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}
