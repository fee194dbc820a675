package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
)

// Payment is a settled charge attempt with the allocations it applied.
// CreditUsed and AppliedAmount are stored so a void can reverse the payment's
// exact financial effect. ReceiptNo is a display label; the row ID is the
// unique key.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ResidentID    uuid.UUID           `gorm:"column:resident_id;type:uuid;not null;index"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	AppliedAmount decimal.Decimal     `gorm:"column:applied_amount;type:numeric(12,2);not null;default:0"`
	CreditUsed    decimal.Decimal     `gorm:"column:credit_used;type:numeric(12,2);not null;default:0"`
	Method        enums.PaymentMethod `gorm:"column:method;type:payment_method;not null;default:'card'"`
	MaskedPan     *string             `gorm:"column:masked_pan"`
	Status        enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'posted'"`
	ReceiptNo     string              `gorm:"column:receipt_no;not null"`
	GatewayRef    *string             `gorm:"column:gateway_ref"`
	Voided        bool                `gorm:"column:voided;not null;default:false"`
	VoidReason    *string             `gorm:"column:void_reason"`
	VoidedAt      *time.Time          `gorm:"column:voided_at"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	Allocations   []PaymentAllocation `gorm:"foreignKey:PaymentID"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
