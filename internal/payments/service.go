package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/invoices"
	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/residents"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/errors"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/metrics"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service charges residents and manages the resulting payment records.
type Service interface {
	Charge(ctx context.Context, input ChargeInput) (*ChargeResult, error)
	Confirm(ctx context.Context, paymentID uuid.UUID, actor Actor, status enums.PaymentStatus, gatewayRef *string) (*models.Payment, error)
	Void(ctx context.Context, paymentID uuid.UUID, actor Actor, reason string) (*models.Payment, error)
	FindByID(ctx context.Context, paymentID uuid.UUID, actor Actor) (*models.Payment, error)
	ListByResident(ctx context.Context, residentID uuid.UUID, params pagination.Params) ([]models.Payment, string, error)
}

// Actor identifies who is making a lifecycle call. Residents may only touch
// their own payments; workers and admins may touch any.
type Actor struct {
	ResidentID uuid.UUID
	Role       enums.ActorRole
}

// AllocationRequest is one caller-directed payment slice.
type AllocationRequest struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// ChargeInput is a charge request. AutoAllocate defaults to true when no
// explicit allocations are supplied.
type ChargeInput struct {
	ResidentID   uuid.UUID
	Amount       decimal.Decimal
	Card         *Card
	Allocations  []AllocationRequest
	AutoAllocate *bool
}

// ChargeResult reports a posted charge.
type ChargeResult struct {
	Payment          *models.Payment
	Applied          decimal.Decimal
	CreditUsed       decimal.Decimal
	NewCreditBalance decimal.Decimal
}

type service struct {
	tx           txRunner
	paymentRepo  Repository
	creditRepo   CreditRepository
	invoiceRepo  invoices.Repository
	residentRepo residents.Repository
	gateway      Gateway
	metrics      *metrics.PaymentMetrics
	now          func() time.Time
}

// NewService wires the payment engine.
func NewService(
	tx txRunner,
	paymentRepo Repository,
	creditRepo CreditRepository,
	invoiceRepo invoices.Repository,
	residentRepo residents.Repository,
	gateway Gateway,
	paymentMetrics *metrics.PaymentMetrics,
) (Service, error) {
	if tx == nil {
		return nil, errors.New(errors.CodeInternal, "transaction runner required")
	}
	if paymentRepo == nil || creditRepo == nil || invoiceRepo == nil || residentRepo == nil {
		return nil, errors.New(errors.CodeInternal, "payment repositories required")
	}
	if gateway == nil {
		return nil, errors.New(errors.CodeInternal, "payment gateway required")
	}
	return &service{
		tx:           tx,
		paymentRepo:  paymentRepo,
		creditRepo:   creditRepo,
		invoiceRepo:  invoiceRepo,
		residentRepo: residentRepo,
		gateway:      gateway,
		metrics:      paymentMetrics,
		now:          time.Now,
	}, nil
}

// Charge draws the resident's credit first, authorizes the remainder against
// the gateway, applies the tendered amount across invoices, and floats any
// leftover forward as credit. The gateway call happens outside the
// transaction; the credit draw is recomputed under a row lock afterwards, and
// a mismatch with the authorized amount aborts the charge instead of settling
// a stale figure.
func (s *service) Charge(ctx context.Context, input ChargeInput) (*ChargeResult, error) {
	result, err := s.charge(ctx, input)
	s.recordOutcome(err, result)
	return result, err
}

func (s *service) charge(ctx context.Context, input ChargeInput) (*ChargeResult, error) {
	if input.ResidentID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "resident id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, errors.New(errors.CodeValidation, "Amount must be > 0")
	}
	amount := input.Amount.Round(2)

	if err := validateAllocationRequests(input.Allocations, amount); err != nil {
		return nil, err
	}
	autoAllocate := input.AutoAllocate == nil || *input.AutoAllocate

	if _, err := s.residentRepo.FindByID(ctx, input.ResidentID); err != nil {
		if db.IsNotFound(err) {
			return nil, errors.New(errors.CodeNotFound, "resident not found")
		}
		return nil, err
	}

	// Lazy credit-account creation is the one write allowed to survive a
	// decline: the row is zero-valued and idempotent.
	account, err := s.creditRepo.FindOrCreate(ctx, input.ResidentID)
	if err != nil {
		return nil, err
	}

	creditUsed := decimal.Min(account.Balance, amount).Round(2)
	chargeAmount := amount.Sub(creditUsed).Round(2)

	var authz *Authorization
	method := enums.PaymentMethodCredit
	if chargeAmount.IsPositive() {
		method = enums.PaymentMethodCard
		var card Card
		if input.Card != nil {
			card = *input.Card
		}
		authz, err = s.gateway.Authorize(ctx, card, chargeAmount)
		if err != nil {
			return nil, err
		}
	}

	var result ChargeResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		creditRepo := s.creditRepo.WithTx(tx)
		invoiceRepo := s.invoiceRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)

		account, err := creditRepo.FindForUpdate(ctx, input.ResidentID)
		if err != nil {
			return err
		}

		// Recompute the draw under the lock. If a concurrent charge changed
		// the balance since authorization, the authorized figure is stale.
		lockedUsed := decimal.Min(account.Balance, amount).Round(2)
		lockedCharge := amount.Sub(lockedUsed).Round(2)
		if !lockedCharge.Equal(chargeAmount) {
			return errors.New(errors.CodeConflict, "credit balance changed during authorization, retry the charge")
		}
		creditUsed = lockedUsed

		applied := decimal.Zero
		var allocations []models.PaymentAllocation

		record := func(invoice *models.Invoice, requested decimal.Decimal) error {
			slice := invoices.ApplyAmount(invoice, requested)
			if !slice.IsPositive() {
				return nil
			}
			if err := invoiceRepo.Save(ctx, invoice); err != nil {
				return err
			}
			allocations = append(allocations, models.PaymentAllocation{
				InvoiceID: invoice.ID,
				Amount:    slice,
			})
			applied = applied.Add(slice).Round(2)
			return nil
		}

		switch {
		case len(input.Allocations) > 0:
			targets := make([]*models.Invoice, 0, len(input.Allocations))
			var ownErr error
			for _, req := range input.Allocations {
				invoice, err := invoiceRepo.FindForUpdate(ctx, req.InvoiceID)
				if err != nil {
					if db.IsNotFound(err) {
						ownErr = multierr.Append(ownErr, fmt.Errorf("invoice %s not found", req.InvoiceID))
						continue
					}
					return err
				}
				if invoice.ResidentID != input.ResidentID {
					ownErr = multierr.Append(ownErr, fmt.Errorf("invoice %s does not belong to the paying resident", req.InvoiceID))
					continue
				}
				targets = append(targets, invoice)
			}
			// The allocation list is accepted or rejected wholesale.
			if ownErr != nil {
				return errors.Wrap(errors.CodeValidation, ownErr, "invalid allocations")
			}
			for i, invoice := range targets {
				if err := record(invoice, input.Allocations[i].Amount); err != nil {
					return err
				}
			}

		case autoAllocate:
			open, err := invoiceRepo.ListOpenForUpdate(ctx, input.ResidentID)
			if err != nil {
				return err
			}
			remaining := amount
			for i := range open {
				if !remaining.IsPositive() {
					break
				}
				before := applied
				if err := record(&open[i], remaining); err != nil {
					return err
				}
				remaining = remaining.Sub(applied.Sub(before)).Round(2)
			}
		}

		// Credit settlement: spend the draw, then float any unapplied
		// remainder of the tendered amount forward as credit.
		account.Balance = account.Balance.Sub(creditUsed).Round(2)
		leftover := amount.Sub(applied).Round(2)
		if leftover.IsPositive() {
			account.Balance = account.Balance.Add(leftover).Round(2)
		}
		if err := creditRepo.Save(ctx, account); err != nil {
			return err
		}

		payment := &models.Payment{
			ResidentID:    input.ResidentID,
			Amount:        amount,
			AppliedAmount: applied,
			CreditUsed:    creditUsed,
			Method:        method,
			Status:        enums.PaymentStatusPosted,
			ReceiptNo:     NewReceiptNo(s.now()),
			Allocations:   allocations,
		}
		if authz != nil {
			payment.MaskedPan = &authz.MaskedPan
			payment.GatewayRef = &authz.Ref
		}
		if err := paymentRepo.Create(ctx, payment); err != nil {
			return err
		}

		result = ChargeResult{
			Payment:          payment,
			Applied:          applied,
			CreditUsed:       creditUsed,
			NewCreditBalance: account.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) FindByID(ctx context.Context, paymentID uuid.UUID, actor Actor) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "payment id is required")
	}
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, errors.New(errors.CodeNotFound, "payment not found")
		}
		return nil, err
	}
	if err := authorizeActor(payment, actor); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) ListByResident(ctx context.Context, residentID uuid.UUID, params pagination.Params) ([]models.Payment, string, error) {
	if residentID == uuid.Nil {
		return nil, "", errors.New(errors.CodeValidation, "resident id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", errors.Wrap(errors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list, err := s.paymentRepo.ListByResident(ctx, residentID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(list) > limit {
		list = list[:limit]
		last := list[len(list)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, next, nil
}

func validateAllocationRequests(allocs []AllocationRequest, amount decimal.Decimal) error {
	if len(allocs) == 0 {
		return nil
	}
	var verr error
	total := decimal.Zero
	seen := map[uuid.UUID]bool{}
	for i, req := range allocs {
		if req.InvoiceID == uuid.Nil {
			verr = multierr.Append(verr, fmt.Errorf("allocation %d: invoice id is required", i))
		}
		if !req.Amount.IsPositive() {
			verr = multierr.Append(verr, fmt.Errorf("allocation %d: amount must be > 0", i))
		}
		if seen[req.InvoiceID] {
			verr = multierr.Append(verr, fmt.Errorf("allocation %d: duplicate invoice %s", i, req.InvoiceID))
		}
		seen[req.InvoiceID] = true
		total = total.Add(req.Amount)
	}
	if verr != nil {
		return errors.Wrap(errors.CodeValidation, verr, "invalid allocations")
	}
	if total.Round(2).GreaterThan(amount) {
		return errors.New(errors.CodeValidation, "allocations exceed the tendered amount")
	}
	return nil
}

func authorizeActor(payment *models.Payment, actor Actor) error {
	if actor.Role == enums.ActorRoleResident && payment.ResidentID != actor.ResidentID {
		return errors.New(errors.CodeForbidden, "payment belongs to another resident")
	}
	return nil
}

func (s *service) recordOutcome(err error, result *ChargeResult) {
	if err == nil {
		s.metrics.IncCharge(metrics.OutcomePosted)
		if result != nil {
			s.metrics.ObservePosted(result.Applied, result.CreditUsed, len(result.Payment.Allocations))
		}
		return
	}
	switch code := errors.As(err); {
	case code == nil:
		s.metrics.IncCharge(metrics.OutcomeRejected)
	case code.Code() == errors.CodeDeclined:
		s.metrics.IncCharge(metrics.OutcomeDeclined)
	case code.Code() == errors.CodeConflict:
		s.metrics.IncCharge(metrics.OutcomeConflict)
	default:
		s.metrics.IncCharge(metrics.OutcomeRejected)
	}
}
