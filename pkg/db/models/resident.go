package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Resident carries the ledger-facing slice of a resident account: cumulative
// star points and the outstanding balance accrued from collection charges.
type Resident struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string          `gorm:"column:name;not null"`
	Email              string          `gorm:"column:email;not null;uniqueIndex"`
	City               *string         `gorm:"column:city"`
	StarPoints         int             `gorm:"column:star_points;not null;default:0"`
	OutstandingBalance decimal.Decimal `gorm:"column:outstanding_balance;type:numeric(12,2);not null;default:0"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
