package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditAccount holds a resident's revolving credit, drawn before the gateway
// is charged and topped up by payment leftovers. Created lazily on the first
// charge attempt.
type CreditAccount struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ResidentID uuid.UUID       `gorm:"column:resident_id;type:uuid;not null;uniqueIndex"`
	Balance    decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
