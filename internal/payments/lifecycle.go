package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/invoices"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/errors"
)

// Confirm settles a posted payment as paid or failed. Terminal payments are
// returned unchanged so retried confirmations stay safe.
func (s *service) Confirm(ctx context.Context, paymentID uuid.UUID, actor Actor, status enums.PaymentStatus, gatewayRef *string) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "payment id is required")
	}
	if status != enums.PaymentStatusPaid && status != enums.PaymentStatusFailed {
		return nil, errors.New(errors.CodeValidation, "confirm status must be paid or failed")
	}

	var confirmed *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)

		payment, err := paymentRepo.FindForUpdate(ctx, paymentID)
		if err != nil {
			if db.IsNotFound(err) {
				return errors.New(errors.CodeNotFound, "payment not found")
			}
			return err
		}
		if err := authorizeActor(payment, actor); err != nil {
			return err
		}

		if payment.Status.IsTerminal() {
			confirmed = payment
			return nil
		}

		payment.Status = status
		if status == enums.PaymentStatusPaid {
			now := s.now()
			payment.PaidAt = &now
			if gatewayRef != nil {
				payment.GatewayRef = gatewayRef
			}
		}
		if err := paymentRepo.Save(ctx, payment); err != nil {
			return err
		}
		confirmed = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// Void cancels a payment and reverses its full financial effect: every
// allocation is put back on its invoice and the credit account gives back the
// leftover it gained while reclaiming the credit the payment drew. Already
// voided payments are returned unchanged.
func (s *service) Void(ctx context.Context, paymentID uuid.UUID, actor Actor, reason string) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "payment id is required")
	}

	var voided *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		invoiceRepo := s.invoiceRepo.WithTx(tx)
		creditRepo := s.creditRepo.WithTx(tx)

		payment, err := paymentRepo.FindForUpdate(ctx, paymentID)
		if err != nil {
			if db.IsNotFound(err) {
				return errors.New(errors.CodeNotFound, "payment not found")
			}
			return err
		}
		if err := authorizeActor(payment, actor); err != nil {
			return err
		}

		if payment.Voided {
			voided = payment
			return nil
		}

		for _, alloc := range payment.Allocations {
			invoice, err := invoiceRepo.FindForUpdate(ctx, alloc.InvoiceID)
			if err != nil {
				return err
			}
			invoices.RestoreAmount(invoice, alloc.Amount)
			if err := invoiceRepo.Save(ctx, invoice); err != nil {
				return err
			}
		}

		// The payment took CreditUsed out of the account and floated any
		// unapplied leftover back in. Reversing nets the two, clamped at
		// zero in case the leftover was already spent by a later charge.
		account, err := creditRepo.FindForUpdate(ctx, payment.ResidentID)
		if err != nil {
			return err
		}
		leftover := payment.Amount.Sub(payment.AppliedAmount).Round(2)
		account.Balance = account.Balance.Add(payment.CreditUsed).Sub(leftover).Round(2)
		if account.Balance.IsNegative() {
			account.Balance = decimal.Zero
		}
		if err := creditRepo.Save(ctx, account); err != nil {
			return err
		}

		now := s.now()
		payment.Voided = true
		payment.VoidReason = &reason
		payment.VoidedAt = &now
		payment.Status = enums.PaymentStatusCancelled
		if err := paymentRepo.Save(ctx, payment); err != nil {
			return err
		}
		voided = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return voided, nil
}
