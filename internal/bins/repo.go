package bins

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
)

// Repository manages persistence for waste bins.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bin, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.BinStatus, lastCollection *time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bin repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Bin, error) {
	var bin models.Bin
	if err := r.db.WithContext(ctx).First(&bin, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bin, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.BinStatus, lastCollection *time.Time) error {
	updates := map[string]any{"status": status}
	if lastCollection != nil {
		updates["last_collection"] = *lastCollection
	}
	return r.db.WithContext(ctx).
		Model(&models.Bin{}).
		Where("id = ?", id).
		Updates(updates).Error
}
