package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rushela/Smart-Waste-Management-System-sub000/api/responses"
	"github.com/rushela/Smart-Waste-Management-System-sub000/api/validators"
	paymentsvc "github.com/rushela/Smart-Waste-Management-System-sub000/internal/payments"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
	pkgerrors "github.com/rushela/Smart-Waste-Management-System-sub000/pkg/errors"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/logger"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/pagination"
)

// ChargePayment posts a charge against a resident account.
func ChargePayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload chargeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		residentID, err := resolveTargetResident(actor, payload.ResidentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Charge(r.Context(), payload.toInput(residentID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newChargeResponse(result))
	}
}

// ConfirmPayment moves a posted payment to its terminal paid or failed state.
func ConfirmPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParsePaymentStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		payment, err := svc.Confirm(r.Context(), paymentID, actor, status, payload.GatewayRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// VoidPayment cancels a payment and reverses its financial effect.
func VoidPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		var payload voidRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Void(r.Context(), paymentID, actor, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// GetPayment returns one payment with its allocations.
func GetPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		payment, err := svc.FindByID(r.Context(), paymentID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// ListPayments returns the resident's payment history, newest first.
func ListPayments(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		residentID, err := residentFromQuery(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, nextCursor, err := svc.ListByResident(r.Context(), residentID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]paymentResponse, 0, len(list))
		for i := range list {
			items = append(items, newPaymentResponse(&list[i]))
		}
		responses.WriteSuccess(w, paymentListResponse{Items: items, NextCursor: nextCursor})
	}
}

type paymentListResponse struct {
	Items      []paymentResponse `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

func residentFromQuery(r *http.Request, actor paymentsvc.Actor) (uuid.UUID, error) {
	raw := r.URL.Query().Get("resident_id")
	if raw == "" {
		return actor.ResidentID, nil
	}
	requested, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid resident id")
	}
	return resolveTargetResident(actor, &requested)
}

type chargeRequest struct {
	ResidentID   *uuid.UUID                     `json:"resident_id"`
	Amount       decimal.Decimal                `json:"amount" validate:"required"`
	Card         *paymentsvc.Card               `json:"card"`
	Allocations  []paymentsvc.AllocationRequest `json:"allocations" validate:"omitempty,dive"`
	AutoAllocate *bool                          `json:"auto_allocate"`
}

func (p chargeRequest) toInput(residentID uuid.UUID) paymentsvc.ChargeInput {
	return paymentsvc.ChargeInput{
		ResidentID:   residentID,
		Amount:       p.Amount,
		Card:         p.Card,
		Allocations:  p.Allocations,
		AutoAllocate: p.AutoAllocate,
	}
}

type confirmRequest struct {
	Status     string  `json:"status" validate:"required,oneof=paid failed"`
	GatewayRef *string `json:"gateway_ref"`
}

type voidRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type chargeResponse struct {
	Payment          paymentResponse `json:"payment"`
	Applied          decimal.Decimal `json:"applied"`
	CreditUsed       decimal.Decimal `json:"credit_used"`
	NewCreditBalance decimal.Decimal `json:"new_credit_balance"`
}

func newChargeResponse(result *paymentsvc.ChargeResult) chargeResponse {
	return chargeResponse{
		Payment:          newPaymentResponse(result.Payment),
		Applied:          result.Applied,
		CreditUsed:       result.CreditUsed,
		NewCreditBalance: result.NewCreditBalance,
	}
}

type paymentResponse struct {
	ID            uuid.UUID            `json:"id"`
	ResidentID    uuid.UUID            `json:"resident_id"`
	Amount        decimal.Decimal      `json:"amount"`
	AppliedAmount decimal.Decimal      `json:"applied_amount"`
	CreditUsed    decimal.Decimal      `json:"credit_used"`
	Method        string               `json:"method"`
	MaskedPan     *string              `json:"masked_pan,omitempty"`
	Status        string               `json:"status"`
	ReceiptNo     string               `json:"receipt_no"`
	GatewayRef    *string              `json:"gateway_ref,omitempty"`
	Voided        bool                 `json:"voided"`
	VoidReason    *string              `json:"void_reason,omitempty"`
	VoidedAt      *time.Time           `json:"voided_at,omitempty"`
	PaidAt        *time.Time           `json:"paid_at,omitempty"`
	Allocations   []allocationResponse `json:"allocations"`
	CreatedAt     time.Time            `json:"created_at"`
}

type allocationResponse struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func newPaymentResponse(payment *models.Payment) paymentResponse {
	allocations := make([]allocationResponse, 0, len(payment.Allocations))
	for _, alloc := range payment.Allocations {
		allocations = append(allocations, allocationResponse{InvoiceID: alloc.InvoiceID, Amount: alloc.Amount})
	}
	return paymentResponse{
		ID:            payment.ID,
		ResidentID:    payment.ResidentID,
		Amount:        payment.Amount,
		AppliedAmount: payment.AppliedAmount,
		CreditUsed:    payment.CreditUsed,
		Method:        string(payment.Method),
		MaskedPan:     payment.MaskedPan,
		Status:        string(payment.Status),
		ReceiptNo:     payment.ReceiptNo,
		GatewayRef:    payment.GatewayRef,
		Voided:        payment.Voided,
		VoidReason:    payment.VoidReason,
		VoidedAt:      payment.VoidedAt,
		PaidAt:        payment.PaidAt,
		Allocations:   allocations,
		CreatedAt:     payment.CreatedAt,
	}
}
