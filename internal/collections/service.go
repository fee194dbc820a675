package collections

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/bins"
	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/residents"
	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/rewards"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies and reverses the reward-or-charge effect of collection
// events on resident accounts. Every operation keeps the event record and the
// account mutation in one transaction.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*Result, error)
	Amend(ctx context.Context, eventID uuid.UUID, changes AmendInput) (*Result, error)
	Retract(ctx context.Context, eventID uuid.UUID) (*RetractResult, error)
	ListByResident(ctx context.Context, residentID uuid.UUID, limit int) ([]models.CollectionEvent, error)
}

type service struct {
	tx           txRunner
	eventRepo    Repository
	binRepo      bins.Repository
	residentRepo residents.Repository
	rates        rewards.Rates
	now          func() time.Time
}

// RecordInput captures a worker's pickup report for one bin.
type RecordInput struct {
	BinID     uuid.UUID
	WasteType enums.WasteType
	WeightKg  decimal.Decimal
	Status    enums.CollectionStatus
	Notes     *string
	WorkerID  *uuid.UUID
}

// AmendInput carries the corrected fields for a recorded event. Nil fields
// keep their current value.
type AmendInput struct {
	WasteType *enums.WasteType
	WeightKg  *decimal.Decimal
	Status    *enums.CollectionStatus
	Notes     *string
}

// ResidentSnapshot is the account state after an operation.
type ResidentSnapshot struct {
	StarPoints         int             `json:"star_points"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
}

// BinSnapshot is the bin state after an operation.
type BinSnapshot struct {
	Status         enums.BinStatus `json:"status"`
	LastCollection *time.Time      `json:"last_collection,omitempty"`
}

// Result bundles the persisted event with the updated account and bin state.
type Result struct {
	Event    *models.CollectionEvent
	Resident ResidentSnapshot
	Bin      BinSnapshot
}

// RetractResult reports the account state after an event is removed.
type RetractResult struct {
	Resident ResidentSnapshot
	Bin      BinSnapshot
}

// NewService wires a collection ledger service.
func NewService(tx txRunner, eventRepo Repository, binRepo bins.Repository, residentRepo residents.Repository, rates rewards.Rates) (Service, error) {
	if tx == nil {
		return nil, errors.New(errors.CodeInternal, "transaction runner required")
	}
	if eventRepo == nil || binRepo == nil || residentRepo == nil {
		return nil, errors.New(errors.CodeInternal, "collection repositories required")
	}
	return &service{
		tx:           tx,
		eventRepo:    eventRepo,
		binRepo:      binRepo,
		residentRepo: residentRepo,
		rates:        rates,
		now:          time.Now,
	}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*Result, error) {
	if input.BinID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "bin id is required")
	}
	if !input.WasteType.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid waste type")
	}
	if input.WeightKg.IsNegative() {
		return nil, errors.New(errors.CodeValidation, "weight must not be negative")
	}
	if input.Status == "" {
		input.Status = enums.CollectionStatusCollected
	}
	if !input.Status.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid collection status")
	}

	reward, err := rewards.Compute(s.rates, input.WeightKg, input.WasteType, input.Status)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "computing reward")
	}

	var result Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		eventRepo := s.eventRepo.WithTx(tx)
		binRepo := s.binRepo.WithTx(tx)
		residentRepo := s.residentRepo.WithTx(tx)

		bin, err := binRepo.FindByID(ctx, input.BinID)
		if err != nil {
			if db.IsNotFound(err) {
				return errors.New(errors.CodeNotFound, "bin not found")
			}
			return err
		}
		if bin.ResidentID == nil {
			return errors.New(errors.CodeStateConflict, "bin is not assigned to a resident")
		}

		resident, err := residentRepo.FindForUpdate(ctx, *bin.ResidentID)
		if err != nil {
			if db.IsNotFound(err) {
				return errors.New(errors.CodeNotFound, "resident not found")
			}
			return err
		}

		residents.ApplyContribution(resident, reward.StarPoints, reward.Charge)
		if err := residentRepo.Save(ctx, resident); err != nil {
			return err
		}

		event := &models.CollectionEvent{
			BinID:             bin.ID,
			ResidentID:        resident.ID,
			WorkerID:          input.WorkerID,
			WasteType:         input.WasteType,
			WeightKg:          input.WeightKg,
			Status:            input.Status,
			StarPointsAwarded: reward.StarPoints,
			PaymentAmount:     reward.Charge,
			Notes:             input.Notes,
		}
		if err := eventRepo.Create(ctx, event); err != nil {
			return err
		}

		binStatus := input.Status.BinStatus()
		lastCollection := s.collectionTime(input.Status)
		if err := binRepo.UpdateStatus(ctx, bin.ID, binStatus, lastCollection); err != nil {
			return err
		}
		if lastCollection == nil {
			lastCollection = bin.LastCollection
		}

		result = Result{
			Event:    event,
			Resident: snapshotResident(resident),
			Bin:      BinSnapshot{Status: binStatus, LastCollection: lastCollection},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Amend reverses the event's previously applied amounts, applies the field
// changes, recomputes the reward, and re-applies it. The reverse-then-reapply
// sequence is mandatory: applying a delta would double-count when the waste
// type flips between rewarding and charging.
func (s *service) Amend(ctx context.Context, eventID uuid.UUID, changes AmendInput) (*Result, error) {
	if eventID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "event id is required")
	}
	if changes.WasteType != nil && !changes.WasteType.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid waste type")
	}
	if changes.WeightKg != nil && changes.WeightKg.IsNegative() {
		return nil, errors.New(errors.CodeValidation, "weight must not be negative")
	}
	if changes.Status != nil && !changes.Status.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid collection status")
	}

	var result Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		eventRepo := s.eventRepo.WithTx(tx)
		binRepo := s.binRepo.WithTx(tx)
		residentRepo := s.residentRepo.WithTx(tx)

		event, err := eventRepo.FindByID(ctx, eventID)
		if err != nil {
			if db.IsNotFound(err) {
				return errors.New(errors.CodeNotFound, "collection event not found")
			}
			return err
		}

		resident, err := residentRepo.FindForUpdate(ctx, event.ResidentID)
		if err != nil {
			if db.IsNotFound(err) {
				return errors.New(errors.CodeNotFound, "resident not found")
			}
			return err
		}

		residents.ReverseContribution(resident, event.StarPointsAwarded, event.PaymentAmount)

		if changes.WasteType != nil {
			event.WasteType = *changes.WasteType
		}
		if changes.WeightKg != nil {
			event.WeightKg = *changes.WeightKg
		}
		if changes.Status != nil {
			event.Status = *changes.Status
		}
		if changes.Notes != nil {
			event.Notes = changes.Notes
		}

		reward, err := rewards.Compute(s.rates, event.WeightKg, event.WasteType, event.Status)
		if err != nil {
			return errors.Wrap(errors.CodeValidation, err, "recomputing reward")
		}

		residents.ApplyContribution(resident, reward.StarPoints, reward.Charge)
		event.StarPointsAwarded = reward.StarPoints
		event.PaymentAmount = reward.Charge

		if err := residentRepo.Save(ctx, resident); err != nil {
			return err
		}
		if err := eventRepo.Save(ctx, event); err != nil {
			return err
		}

		binStatus := event.Status.BinStatus()
		lastCollection := s.collectionTime(event.Status)
		if err := binRepo.UpdateStatus(ctx, event.BinID, binStatus, lastCollection); err != nil {
			return err
		}

		result = Result{
			Event:    event,
			Resident: snapshotResident(resident),
			Bin:      BinSnapshot{Status: binStatus, LastCollection: lastCollection},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Retract removes an erroneously recorded event, reversing its effect on the
// resident account (clamped at zero) and resetting the bin to pending.
func (s *service) Retract(ctx context.Context, eventID uuid.UUID) (*RetractResult, error) {
	if eventID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "event id is required")
	}

	var result RetractResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		eventRepo := s.eventRepo.WithTx(tx)
		binRepo := s.binRepo.WithTx(tx)
		residentRepo := s.residentRepo.WithTx(tx)

		event, err := eventRepo.FindByID(ctx, eventID)
		if err != nil {
			if db.IsNotFound(err) {
				return errors.New(errors.CodeNotFound, "collection event not found")
			}
			return err
		}

		resident, err := residentRepo.FindForUpdate(ctx, event.ResidentID)
		if err != nil {
			if db.IsNotFound(err) {
				return errors.New(errors.CodeNotFound, "resident not found")
			}
			return err
		}

		residents.ReverseContribution(resident, event.StarPointsAwarded, event.PaymentAmount)
		if err := residentRepo.Save(ctx, resident); err != nil {
			return err
		}
		if err := eventRepo.Delete(ctx, event.ID); err != nil {
			return err
		}
		if err := binRepo.UpdateStatus(ctx, event.BinID, enums.BinStatusPending, nil); err != nil {
			return err
		}

		result = RetractResult{
			Resident: snapshotResident(resident),
			Bin:      BinSnapshot{Status: enums.BinStatusPending},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) ListByResident(ctx context.Context, residentID uuid.UUID, limit int) ([]models.CollectionEvent, error) {
	if residentID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "resident id is required")
	}
	return s.eventRepo.ListByResident(ctx, residentID, limit)
}

// collectionTime stamps the bin only when waste actually left it.
func (s *service) collectionTime(status enums.CollectionStatus) *time.Time {
	if status == enums.CollectionStatusNotCollected {
		return nil
	}
	now := s.now()
	return &now
}

func snapshotResident(resident *models.Resident) ResidentSnapshot {
	return ResidentSnapshot{
		StarPoints:         resident.StarPoints,
		OutstandingBalance: resident.OutstandingBalance,
	}
}
