package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
)

// CreditRepository manages persistence for resident credit accounts.
type CreditRepository interface {
	WithTx(tx *gorm.DB) CreditRepository
	FindOrCreate(ctx context.Context, residentID uuid.UUID) (*models.CreditAccount, error)
	FindForUpdate(ctx context.Context, residentID uuid.UUID) (*models.CreditAccount, error)
	Save(ctx context.Context, account *models.CreditAccount) error
}

type creditRepository struct {
	db *gorm.DB
}

// NewCreditRepository returns a credit account repository bound to the provided database.
func NewCreditRepository(db *gorm.DB) CreditRepository {
	return &creditRepository{db: db}
}

func (r *creditRepository) WithTx(tx *gorm.DB) CreditRepository {
	if tx == nil {
		return r
	}
	return &creditRepository{db: tx}
}

// FindOrCreate returns the resident's credit account, creating a zero-balance
// row on first use.
func (r *creditRepository) FindOrCreate(ctx context.Context, residentID uuid.UUID) (*models.CreditAccount, error) {
	var account models.CreditAccount
	if err := r.db.WithContext(ctx).
		Where(models.CreditAccount{ResidentID: residentID}).
		FirstOrCreate(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindForUpdate locks the credit row for the remainder of the transaction.
func (r *creditRepository) FindForUpdate(ctx context.Context, residentID uuid.UUID) (*models.CreditAccount, error) {
	var account models.CreditAccount
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&account, "resident_id = ?", residentID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *creditRepository) Save(ctx context.Context, account *models.CreditAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}
