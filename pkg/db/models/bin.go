package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
)

// Bin is a serviced waste container linked to the resident it bills against.
type Bin struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ResidentID     *uuid.UUID      `gorm:"column:resident_id;type:uuid;index"`
	Label          string          `gorm:"column:label;not null"`
	Status         enums.BinStatus `gorm:"column:status;type:bin_status;not null;default:'pending'"`
	LastCollection *time.Time      `gorm:"column:last_collection"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
