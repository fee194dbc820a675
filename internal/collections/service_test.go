package collections

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/bins"
	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/residents"
	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/rewards"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/errors"
)

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeBinRepo struct {
	bin           *models.Bin
	updatedStatus *enums.BinStatus
	updatedAt     *time.Time
}

func (f *fakeBinRepo) WithTx(tx *gorm.DB) bins.Repository { return f }

func (f *fakeBinRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Bin, error) {
	if f.bin == nil || f.bin.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.bin, nil
}

func (f *fakeBinRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.BinStatus, lastCollection *time.Time) error {
	f.updatedStatus = &status
	f.updatedAt = lastCollection
	f.bin.Status = status
	if lastCollection != nil {
		f.bin.LastCollection = lastCollection
	}
	return nil
}

type fakeResidentRepo struct {
	resident *models.Resident
	saved    bool
}

func (f *fakeResidentRepo) WithTx(tx *gorm.DB) residents.Repository { return f }

func (f *fakeResidentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Resident, error) {
	return f.FindForUpdate(ctx, id)
}

func (f *fakeResidentRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Resident, error) {
	if f.resident == nil || f.resident.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.resident, nil
}

func (f *fakeResidentRepo) Save(ctx context.Context, resident *models.Resident) error {
	f.saved = true
	return nil
}

type fakeEventRepo struct {
	events map[uuid.UUID]*models.CollectionEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[uuid.UUID]*models.CollectionEvent{}}
}

func (f *fakeEventRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeEventRepo) Create(ctx context.Context, event *models.CollectionEvent) error {
	event.ID = uuid.New()
	f.events[event.ID] = event
	return nil
}

func (f *fakeEventRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.CollectionEvent, error) {
	event, ok := f.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return event, nil
}

func (f *fakeEventRepo) Save(ctx context.Context, event *models.CollectionEvent) error {
	f.events[event.ID] = event
	return nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.events, id)
	return nil
}

func (f *fakeEventRepo) ListByResident(ctx context.Context, residentID uuid.UUID, limit int) ([]models.CollectionEvent, error) {
	var out []models.CollectionEvent
	for _, e := range f.events {
		if e.ResidentID == residentID {
			out = append(out, *e)
		}
	}
	return out, nil
}

type harness struct {
	svc       Service
	events    *fakeEventRepo
	binRepo   *fakeBinRepo
	residents *fakeResidentRepo
	resident  *models.Resident
	bin       *models.Bin
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	resident := &models.Resident{
		ID:                 uuid.New(),
		Name:               "Test Resident",
		StarPoints:         0,
		OutstandingBalance: decimal.Zero,
	}
	bin := &models.Bin{
		ID:         uuid.New(),
		ResidentID: &resident.ID,
		Label:      "B-01",
		Status:     enums.BinStatusPending,
	}

	events := newFakeEventRepo()
	binRepo := &fakeBinRepo{bin: bin}
	residentRepo := &fakeResidentRepo{resident: resident}

	rates := rewards.Rates{
		StarPointsPerKg: decimal.NewFromInt(10),
		ChargePerKg:     decimal.NewFromInt(5),
	}
	svc, err := NewService(fakeTx{}, events, binRepo, residentRepo, rates)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return &harness{
		svc:       svc,
		events:    events,
		binRepo:   binRepo,
		residents: residentRepo,
		resident:  resident,
		bin:       bin,
	}
}

func TestService_RecordRecyclable(t *testing.T) {
	h := newHarness(t)

	got, err := h.svc.Record(context.Background(), RecordInput{
		BinID:     h.bin.ID,
		WasteType: enums.WasteTypeRecyclable,
		WeightKg:  decimal.NewFromInt(3),
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}

	if got.Event.StarPointsAwarded != 30 {
		t.Fatalf("expected 30 points awarded, got %d", got.Event.StarPointsAwarded)
	}
	if !got.Event.PaymentAmount.IsZero() {
		t.Fatalf("recyclable must not charge, got %s", got.Event.PaymentAmount)
	}
	if got.Resident.StarPoints != 30 {
		t.Fatalf("expected resident at 30 points, got %d", got.Resident.StarPoints)
	}
	if got.Bin.Status != enums.BinStatusEmptied {
		t.Fatalf("expected bin emptied, got %s", got.Bin.Status)
	}
	if got.Bin.LastCollection == nil {
		t.Fatal("expected last collection to be stamped")
	}
	if len(h.events.events) != 1 {
		t.Fatalf("expected one persisted event, got %d", len(h.events.events))
	}
}

func TestService_RecordNonRecyclableCharges(t *testing.T) {
	h := newHarness(t)

	got, err := h.svc.Record(context.Background(), RecordInput{
		BinID:     h.bin.ID,
		WasteType: enums.WasteTypeNonRecyclable,
		WeightKg:  decimal.RequireFromString("2.333"),
		Status:    enums.CollectionStatusPartial,
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}

	want := decimal.RequireFromString("11.67")
	if !got.Event.PaymentAmount.Equal(want) {
		t.Fatalf("expected charge %s, got %s", want, got.Event.PaymentAmount)
	}
	if !got.Resident.OutstandingBalance.Equal(want) {
		t.Fatalf("expected balance %s, got %s", want, got.Resident.OutstandingBalance)
	}
	if got.Bin.Status != enums.BinStatusPartial {
		t.Fatalf("expected bin partial, got %s", got.Bin.Status)
	}
}

func TestService_RecordNotCollected(t *testing.T) {
	h := newHarness(t)

	got, err := h.svc.Record(context.Background(), RecordInput{
		BinID:     h.bin.ID,
		WasteType: enums.WasteTypeRecyclable,
		WeightKg:  decimal.NewFromInt(5),
		Status:    enums.CollectionStatusNotCollected,
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}

	if got.Resident.StarPoints != 0 || !got.Resident.OutstandingBalance.IsZero() {
		t.Fatalf("not_collected must not change the account: %+v", got.Resident)
	}
	if got.Bin.Status != enums.BinStatusNotCollected {
		t.Fatalf("expected bin not_collected, got %s", got.Bin.Status)
	}
	if h.binRepo.updatedAt != nil {
		t.Fatal("last collection must not be stamped for a missed pickup")
	}
}

func TestService_RecordValidation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name  string
		input RecordInput
	}{
		{"missing bin id", RecordInput{WasteType: enums.WasteTypeRecyclable, WeightKg: decimal.NewFromInt(1)}},
		{"invalid waste type", RecordInput{BinID: h.bin.ID, WasteType: enums.WasteType("organic"), WeightKg: decimal.NewFromInt(1)}},
		{"negative weight", RecordInput{BinID: h.bin.ID, WasteType: enums.WasteTypeRecyclable, WeightKg: decimal.NewFromInt(-1)}},
		{"invalid status", RecordInput{BinID: h.bin.ID, WasteType: enums.WasteTypeRecyclable, WeightKg: decimal.NewFromInt(1), Status: enums.CollectionStatus("skipped")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Record(context.Background(), tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if appErr := errors.As(err); appErr == nil || appErr.Code() != errors.CodeValidation {
				t.Fatalf("expected validation code, got %v", err)
			}
		})
	}
}

func TestService_RecordUnknownBin(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Record(context.Background(), RecordInput{
		BinID:     uuid.New(),
		WasteType: enums.WasteTypeRecyclable,
		WeightKg:  decimal.NewFromInt(1),
	})
	if appErr := errors.As(err); appErr == nil || appErr.Code() != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_RecordUnassignedBin(t *testing.T) {
	h := newHarness(t)
	h.bin.ResidentID = nil

	_, err := h.svc.Record(context.Background(), RecordInput{
		BinID:     h.bin.ID,
		WasteType: enums.WasteTypeRecyclable,
		WeightKg:  decimal.NewFromInt(1),
	})
	if appErr := errors.As(err); appErr == nil || appErr.Code() != errors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestService_AmendWasteTypeFlipDoesNotDoubleCount(t *testing.T) {
	h := newHarness(t)

	recorded, err := h.svc.Record(context.Background(), RecordInput{
		BinID:     h.bin.ID,
		WasteType: enums.WasteTypeRecyclable,
		WeightKg:  decimal.NewFromInt(3),
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}

	newType := enums.WasteTypeNonRecyclable
	got, err := h.svc.Amend(context.Background(), recorded.Event.ID, AmendInput{WasteType: &newType})
	if err != nil {
		t.Fatalf("Amend error: %v", err)
	}

	if got.Resident.StarPoints != 0 {
		t.Fatalf("old points must be reversed, got %d", got.Resident.StarPoints)
	}
	want := decimal.NewFromInt(15)
	if !got.Resident.OutstandingBalance.Equal(want) {
		t.Fatalf("expected balance %s, got %s", want, got.Resident.OutstandingBalance)
	}
	if got.Event.StarPointsAwarded != 0 || !got.Event.PaymentAmount.Equal(want) {
		t.Fatalf("event amounts not updated: %+v", got.Event)
	}
}

func TestService_AmendWeight(t *testing.T) {
	h := newHarness(t)

	recorded, err := h.svc.Record(context.Background(), RecordInput{
		BinID:     h.bin.ID,
		WasteType: enums.WasteTypeRecyclable,
		WeightKg:  decimal.NewFromInt(3),
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}

	newWeight := decimal.NewFromInt(5)
	got, err := h.svc.Amend(context.Background(), recorded.Event.ID, AmendInput{WeightKg: &newWeight})
	if err != nil {
		t.Fatalf("Amend error: %v", err)
	}
	if got.Resident.StarPoints != 50 {
		t.Fatalf("expected 50 points after amend, got %d", got.Resident.StarPoints)
	}
}

func TestService_AmendUnknownEvent(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Amend(context.Background(), uuid.New(), AmendInput{})
	if appErr := errors.As(err); appErr == nil || appErr.Code() != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_RetractReversesAndClamps(t *testing.T) {
	h := newHarness(t)

	recorded, err := h.svc.Record(context.Background(), RecordInput{
		BinID:     h.bin.ID,
		WasteType: enums.WasteTypeNonRecyclable,
		WeightKg:  decimal.NewFromInt(4),
	})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}

	// Independent payment activity already reduced the balance below the
	// event's charge; the reversal must clamp at zero rather than go negative.
	h.resident.OutstandingBalance = decimal.NewFromInt(5)

	got, err := h.svc.Retract(context.Background(), recorded.Event.ID)
	if err != nil {
		t.Fatalf("Retract error: %v", err)
	}

	if !got.Resident.OutstandingBalance.IsZero() {
		t.Fatalf("expected clamped zero balance, got %s", got.Resident.OutstandingBalance)
	}
	if got.Bin.Status != enums.BinStatusPending {
		t.Fatalf("expected bin reset to pending, got %s", got.Bin.Status)
	}
	if len(h.events.events) != 0 {
		t.Fatalf("expected event removed, still have %d", len(h.events.events))
	}
}
