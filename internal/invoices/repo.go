package invoices

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
)

// Repository manages persistence for resident invoices.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListOpenForUpdate(ctx context.Context, residentID uuid.UUID) ([]models.Invoice, error)
	ListByResident(ctx context.Context, residentID uuid.UUID) ([]models.Invoice, error)
	Save(ctx context.Context, invoice *models.Invoice) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an invoice repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindForUpdate locks the invoice row for the remainder of the transaction.
func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListOpenForUpdate returns the resident's unpaid invoices oldest-first, each
// locked for the remainder of the transaction. Oldest-first ordering is what
// makes auto-allocation settle the longest-standing debt first.
func (r *repository) ListOpenForUpdate(ctx context.Context, residentID uuid.UUID) ([]models.Invoice, error) {
	var list []models.Invoice
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("resident_id = ? AND status <> ?", residentID, enums.InvoiceStatusPaid).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) ListByResident(ctx context.Context, residentID uuid.UUID) ([]models.Invoice, error) {
	var list []models.Invoice
	if err := r.db.WithContext(ctx).
		Where("resident_id = ?", residentID).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) Save(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}
