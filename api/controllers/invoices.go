package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rushela/Smart-Waste-Management-System-sub000/api/responses"
	"github.com/rushela/Smart-Waste-Management-System-sub000/api/validators"
	invoicesvc "github.com/rushela/Smart-Waste-Management-System-sub000/internal/invoices"
	residentsvc "github.com/rushela/Smart-Waste-Management-System-sub000/internal/residents"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
	pkgerrors "github.com/rushela/Smart-Waste-Management-System-sub000/pkg/errors"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/logger"
)

// CreateInvoice bills a resident. Admin-only; the route enforces the role.
func CreateInvoice(invoiceRepo invoicesvc.Repository, residentRepo residentsvc.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if invoiceRepo == nil || residentRepo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice repositories unavailable"))
			return
		}

		var payload createInvoiceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount := payload.Amount.Round(2)
		if !amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Amount must be > 0"))
			return
		}

		if _, err := residentRepo.FindByID(r.Context(), payload.ResidentID); err != nil {
			if db.IsNotFound(err) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "resident not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load resident"))
			return
		}

		invoice := &models.Invoice{
			ResidentID:  payload.ResidentID,
			Amount:      amount,
			Balance:     amount,
			Status:      enums.InvoiceStatusOpen,
			Description: payload.Description,
		}
		if err := invoiceRepo.Create(r.Context(), invoice); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice"))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newInvoiceResponse(invoice))
	}
}

// ListInvoices returns a resident's invoices, oldest first.
func ListInvoices(invoiceRepo invoicesvc.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if invoiceRepo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice repository unavailable"))
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

		list, err := invoiceRepo.ListByResident(r.Context(), residentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices"))
			return
		}

		items := make([]invoiceResponse, 0, len(list))
		for i := range list {
			items = append(items, newInvoiceResponse(&list[i]))
		}
		responses.WriteSuccess(w, items)
	}
}

type createInvoiceRequest struct {
	ResidentID  uuid.UUID       `json:"resident_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Description *string         `json:"description"`
}

type invoiceResponse struct {
	ID          uuid.UUID       `json:"id"`
	ResidentID  uuid.UUID       `json:"resident_id"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	Status      string          `json:"status"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func newInvoiceResponse(invoice *models.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:          invoice.ID,
		ResidentID:  invoice.ResidentID,
		Amount:      invoice.Amount,
		Balance:     invoice.Balance,
		Status:      string(invoice.Status),
		Description: invoice.Description,
		CreatedAt:   invoice.CreatedAt,
	}
}
