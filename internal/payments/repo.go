package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/pagination"
)

// Repository manages persistence for payments and their allocations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	Save(ctx context.Context, payment *models.Payment) error
	ListByResident(ctx context.Context, residentID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Payment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create persists the payment together with its allocation rows.
func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindForUpdate locks the payment row for the remainder of the transaction
// and loads its allocations.
func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("payment_id = ?", payment.ID).
		Find(&payment.Allocations).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) Save(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Omit("Allocations").Save(payment).Error
}

// ListByResident pages newest-first. The cursor pins the scan to rows strictly
// older than the (created_at, id) pair it encodes, so a page is stable even
// when new payments land between requests.
func (r *repository) ListByResident(ctx context.Context, residentID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Payment, error) {
	var list []models.Payment
	q := r.db.WithContext(ctx).
		Preload("Allocations").
		Where("resident_id = ?", residentID).
		Order("created_at DESC, id DESC")
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
