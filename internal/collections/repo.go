package collections

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
)

// Repository manages persistence for collection events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.CollectionEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CollectionEvent, error)
	Save(ctx context.Context, event *models.CollectionEvent) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByResident(ctx context.Context, residentID uuid.UUID, limit int) ([]models.CollectionEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a collection event repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.CollectionEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CollectionEvent, error) {
	var event models.CollectionEvent
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) Save(ctx context.Context, event *models.CollectionEvent) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CollectionEvent{}, "id = ?", id).Error
}

func (r *repository) ListByResident(ctx context.Context, residentID uuid.UUID, limit int) ([]models.CollectionEvent, error) {
	var events []models.CollectionEvent
	q := r.db.WithContext(ctx).
		Where("resident_id = ?", residentID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
