package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
)

// Invoice bills a resident. Balance only ever decreases while being paid;
// status is paid exactly when the balance reaches zero.
type Invoice struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ResidentID  uuid.UUID           `gorm:"column:resident_id;type:uuid;not null;index"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Balance     decimal.Decimal     `gorm:"column:balance;type:numeric(12,2);not null"`
	Status      enums.InvoiceStatus `gorm:"column:status;type:invoice_status;not null;default:'open'"`
	Description *string             `gorm:"column:description"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
