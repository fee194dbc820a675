package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
)

// CollectionEvent records one pickup and the reward or charge it produced.
// StarPointsAwarded and PaymentAmount are the amounts actually applied to the
// resident account, kept so a later amend or retract can reverse them exactly.
type CollectionEvent struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BinID             uuid.UUID              `gorm:"column:bin_id;type:uuid;not null;index"`
	ResidentID        uuid.UUID              `gorm:"column:resident_id;type:uuid;not null;index"`
	WorkerID          *uuid.UUID             `gorm:"column:worker_id;type:uuid"`
	WasteType         enums.WasteType        `gorm:"column:waste_type;type:waste_type;not null"`
	WeightKg          decimal.Decimal        `gorm:"column:weight_kg;type:numeric(10,3);not null"`
	Status            enums.CollectionStatus `gorm:"column:status;type:collection_status;not null;default:'collected'"`
	StarPointsAwarded int                    `gorm:"column:star_points_awarded;not null;default:0"`
	PaymentAmount     decimal.Decimal        `gorm:"column:payment_amount;type:numeric(12,2);not null;default:0"`
	Notes             *string                `gorm:"column:notes"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
