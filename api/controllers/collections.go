package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rushela/Smart-Waste-Management-System-sub000/api/responses"
	"github.com/rushela/Smart-Waste-Management-System-sub000/api/validators"
	collectionsvc "github.com/rushela/Smart-Waste-Management-System-sub000/internal/collections"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
	pkgerrors "github.com/rushela/Smart-Waste-Management-System-sub000/pkg/errors"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/logger"
)

// RecordCollection registers a pickup report and applies its reward or charge.
func RecordCollection(svc collectionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "collection service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordCollectionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(actor.ResidentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Record(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCollectionResultResponse(result))
	}
}

// AmendCollection corrects a recorded event and re-applies its effect.
func AmendCollection(svc collectionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "collection service unavailable"))
			return
		}

		eventID, err := uuid.Parse(chi.URLParam(r, "eventId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}

		var payload amendCollectionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		changes, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Amend(r.Context(), eventID, changes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCollectionResultResponse(result))
	}
}

// RetractCollection removes an event and rolls back its account effect.
func RetractCollection(svc collectionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "collection service unavailable"))
			return
		}

		eventID, err := uuid.Parse(chi.URLParam(r, "eventId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}

		result, err := svc.Retract(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, retractCollectionResponse{
			Resident: result.Resident,
			Bin:      newBinSnapshotResponse(result.Bin),
		})
	}
}

// ListCollections returns a resident's collection history.
func ListCollections(svc collectionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "collection service unavailable"))
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

		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByResident(r.Context(), residentID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]collectionEventResponse, 0, len(list))
		for i := range list {
			items = append(items, newCollectionEventResponse(&list[i]))
		}
		responses.WriteSuccess(w, items)
	}
}

type recordCollectionRequest struct {
	BinID     uuid.UUID       `json:"bin_id" validate:"required"`
	WasteType string          `json:"waste_type" validate:"required,oneof=recyclable non_recyclable"`
	WeightKg  decimal.Decimal `json:"weight_kg"`
	Status    string          `json:"status" validate:"omitempty,oneof=collected partial not_collected"`
	Notes     *string         `json:"notes"`
}

func (p recordCollectionRequest) toInput(workerID uuid.UUID) (collectionsvc.RecordInput, error) {
	wasteType, err := enums.ParseWasteType(p.WasteType)
	if err != nil {
		return collectionsvc.RecordInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid waste type")
	}
	input := collectionsvc.RecordInput{
		BinID:     p.BinID,
		WasteType: wasteType,
		WeightKg:  p.WeightKg,
		Notes:     p.Notes,
		WorkerID:  &workerID,
	}
	if p.Status != "" {
		status, err := enums.ParseCollectionStatus(p.Status)
		if err != nil {
			return collectionsvc.RecordInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid collection status")
		}
		input.Status = status
	}
	return input, nil
}

type amendCollectionRequest struct {
	WasteType *string          `json:"waste_type" validate:"omitempty,oneof=recyclable non_recyclable"`
	WeightKg  *decimal.Decimal `json:"weight_kg"`
	Status    *string          `json:"status" validate:"omitempty,oneof=collected partial not_collected"`
	Notes     *string          `json:"notes"`
}

func (p amendCollectionRequest) toInput() (collectionsvc.AmendInput, error) {
	changes := collectionsvc.AmendInput{
		WeightKg: p.WeightKg,
		Notes:    p.Notes,
	}
	if p.WasteType != nil {
		wasteType, err := enums.ParseWasteType(*p.WasteType)
		if err != nil {
			return collectionsvc.AmendInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid waste type")
		}
		changes.WasteType = &wasteType
	}
	if p.Status != nil {
		status, err := enums.ParseCollectionStatus(*p.Status)
		if err != nil {
			return collectionsvc.AmendInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid collection status")
		}
		changes.Status = &status
	}
	return changes, nil
}

type collectionResultResponse struct {
	Event    collectionEventResponse        `json:"event"`
	Resident collectionsvc.ResidentSnapshot `json:"resident"`
	Bin      binSnapshotResponse            `json:"bin"`
}

type retractCollectionResponse struct {
	Resident collectionsvc.ResidentSnapshot `json:"resident"`
	Bin      binSnapshotResponse            `json:"bin"`
}

type binSnapshotResponse struct {
	Status         string     `json:"status"`
	LastCollection *time.Time `json:"last_collection,omitempty"`
}

func newBinSnapshotResponse(snapshot collectionsvc.BinSnapshot) binSnapshotResponse {
	return binSnapshotResponse{
		Status:         string(snapshot.Status),
		LastCollection: snapshot.LastCollection,
	}
}

func newCollectionResultResponse(result *collectionsvc.Result) collectionResultResponse {
	return collectionResultResponse{
		Event:    newCollectionEventResponse(result.Event),
		Resident: result.Resident,
		Bin:      newBinSnapshotResponse(result.Bin),
	}
}

type collectionEventResponse struct {
	ID                uuid.UUID       `json:"id"`
	BinID             uuid.UUID       `json:"bin_id"`
	ResidentID        uuid.UUID       `json:"resident_id"`
	WorkerID          *uuid.UUID      `json:"worker_id,omitempty"`
	WasteType         string          `json:"waste_type"`
	WeightKg          decimal.Decimal `json:"weight_kg"`
	Status            string          `json:"status"`
	StarPointsAwarded int             `json:"star_points_awarded"`
	PaymentAmount     decimal.Decimal `json:"payment_amount"`
	Notes             *string         `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func newCollectionEventResponse(event *models.CollectionEvent) collectionEventResponse {
	return collectionEventResponse{
		ID:                event.ID,
		BinID:             event.BinID,
		ResidentID:        event.ResidentID,
		WorkerID:          event.WorkerID,
		WasteType:         string(event.WasteType),
		WeightKg:          event.WeightKg,
		Status:            string(event.Status),
		StarPointsAwarded: event.StarPointsAwarded,
		PaymentAmount:     event.PaymentAmount,
		Notes:             event.Notes,
		CreatedAt:         event.CreatedAt,
	}
}
