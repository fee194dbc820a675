package residents

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
)

// Repository manages persistence for resident accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Resident, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Resident, error)
	Save(ctx context.Context, resident *models.Resident) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a resident repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Resident, error) {
	var resident models.Resident
	if err := r.db.WithContext(ctx).First(&resident, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resident, nil
}

// FindForUpdate locks the resident row for the remainder of the transaction.
func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Resident, error) {
	var resident models.Resident
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&resident, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &resident, nil
}

func (r *repository) Save(ctx context.Context, resident *models.Resident) error {
	return r.db.WithContext(ctx).Save(resident).Error
}

// ApplyContribution adds a collection's reward and charge to the account.
func ApplyContribution(resident *models.Resident, starPoints int, charge decimal.Decimal) {
	resident.StarPoints += starPoints
	resident.OutstandingBalance = resident.OutstandingBalance.Add(charge).Round(2)
}

// ReverseContribution removes a previously applied reward and charge,
// clamping both at zero so a reversal can never drive the account negative.
func ReverseContribution(resident *models.Resident, starPoints int, charge decimal.Decimal) {
	resident.StarPoints -= starPoints
	if resident.StarPoints < 0 {
		resident.StarPoints = 0
	}
	resident.OutstandingBalance = resident.OutstandingBalance.Sub(charge).Round(2)
	if resident.OutstandingBalance.IsNegative() {
		resident.OutstandingBalance = decimal.Zero
	}
}
