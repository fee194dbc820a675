package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/invoices"
	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/residents"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/db/models"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/errors"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/pagination"
)

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeResidentRepo struct {
	resident *models.Resident
}

func (f *fakeResidentRepo) WithTx(tx *gorm.DB) residents.Repository { return f }

func (f *fakeResidentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Resident, error) {
	if f.resident == nil || f.resident.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.resident, nil
}

func (f *fakeResidentRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Resident, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeResidentRepo) Save(ctx context.Context, resident *models.Resident) error {
	return nil
}

type fakeCreditRepo struct {
	account *models.CreditAccount
	created bool
}

func (f *fakeCreditRepo) WithTx(tx *gorm.DB) CreditRepository { return f }

func (f *fakeCreditRepo) FindOrCreate(ctx context.Context, residentID uuid.UUID) (*models.CreditAccount, error) {
	if f.account == nil {
		f.account = &models.CreditAccount{
			ID:         uuid.New(),
			ResidentID: residentID,
			Balance:    decimal.Zero,
		}
		f.created = true
	}
	return f.account, nil
}

func (f *fakeCreditRepo) FindForUpdate(ctx context.Context, residentID uuid.UUID) (*models.CreditAccount, error) {
	if f.account == nil || f.account.ResidentID != residentID {
		return nil, gorm.ErrRecordNotFound
	}
	return f.account, nil
}

func (f *fakeCreditRepo) Save(ctx context.Context, account *models.CreditAccount) error {
	f.account = account
	return nil
}

type fakeInvoiceRepo struct {
	invoices []*models.Invoice
}

func (f *fakeInvoiceRepo) WithTx(tx *gorm.DB) invoices.Repository { return f }

func (f *fakeInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	invoice.ID = uuid.New()
	f.invoices = append(f.invoices, invoice)
	return nil
}

func (f *fakeInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	for _, inv := range f.invoices {
		if inv.ID == id {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeInvoiceRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeInvoiceRepo) ListOpenForUpdate(ctx context.Context, residentID uuid.UUID) ([]models.Invoice, error) {
	var open []models.Invoice
	for _, inv := range f.invoices {
		if inv.ResidentID == residentID && inv.Status != enums.InvoiceStatusPaid {
			open = append(open, *inv)
		}
	}
	for i := 1; i < len(open); i++ {
		for j := i; j > 0 && open[j].CreatedAt.Before(open[j-1].CreatedAt); j-- {
			open[j], open[j-1] = open[j-1], open[j]
		}
	}
	return open, nil
}

func (f *fakeInvoiceRepo) ListByResident(ctx context.Context, residentID uuid.UUID) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, inv := range f.invoices {
		if inv.ResidentID == residentID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvoiceRepo) Save(ctx context.Context, invoice *models.Invoice) error {
	for _, inv := range f.invoices {
		if inv.ID == invoice.ID {
			*inv = *invoice
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakePaymentRepo struct {
	payments map[uuid.UUID]*models.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[uuid.UUID]*models.Payment{}}
}

func (f *fakePaymentRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakePaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	payment.ID = uuid.New()
	for i := range payment.Allocations {
		payment.Allocations[i].ID = uuid.New()
		payment.Allocations[i].PaymentID = payment.ID
	}
	f.payments[payment.ID] = payment
	return nil
}

func (f *fakePaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, ok := f.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return payment, nil
}

func (f *fakePaymentRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return f.FindByID(ctx, id)
}

func (f *fakePaymentRepo) Save(ctx context.Context, payment *models.Payment) error {
	f.payments[payment.ID] = payment
	return nil
}

func (f *fakePaymentRepo) ListByResident(ctx context.Context, residentID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.payments {
		if p.ResidentID != residentID {
			continue
		}
		if cursor != nil && !p.CreatedAt.Before(cursor.CreatedAt) {
			continue
		}
		out = append(out, *p)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.After(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// spyGateway records the authorized amount and can inject failures or side
// effects between authorization and settlement.
type spyGateway struct {
	lastAmount  *decimal.Decimal
	err         error
	onAuthorize func()
	calls       int
}

func (s *spyGateway) Authorize(ctx context.Context, card Card, amount decimal.Decimal) (*Authorization, error) {
	s.calls++
	s.lastAmount = &amount
	if s.onAuthorize != nil {
		s.onAuthorize()
	}
	if s.err != nil {
		return nil, s.err
	}
	masked := MaskPan(card.Number)
	return &Authorization{Ref: "sim-test", MaskedPan: masked}, nil
}

type paymentHarness struct {
	svc        Service
	resident   *models.Resident
	creditRepo *fakeCreditRepo
	invoiceRpo *fakeInvoiceRepo
	payRepo    *fakePaymentRepo
	gateway    *spyGateway
}

func newPaymentHarness(t *testing.T, creditBalance string) *paymentHarness {
	t.Helper()

	resident := &models.Resident{ID: uuid.New(), Name: "Payer"}
	creditRepo := &fakeCreditRepo{}
	if creditBalance != "" {
		creditRepo.account = &models.CreditAccount{
			ID:         uuid.New(),
			ResidentID: resident.ID,
			Balance:    decimal.RequireFromString(creditBalance),
		}
	}
	invoiceRepo := &fakeInvoiceRepo{}
	paymentRepo := newFakePaymentRepo()
	gateway := &spyGateway{}

	svc, err := NewService(fakeTx{}, paymentRepo, creditRepo, invoiceRepo, &fakeResidentRepo{resident: resident}, gateway, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return &paymentHarness{
		svc:        svc,
		resident:   resident,
		creditRepo: creditRepo,
		invoiceRpo: invoiceRepo,
		payRepo:    paymentRepo,
		gateway:    gateway,
	}
}

func (h *paymentHarness) addInvoice(balance string, createdAt time.Time) *models.Invoice {
	amt := decimal.RequireFromString(balance)
	inv := &models.Invoice{
		ID:         uuid.New(),
		ResidentID: h.resident.ID,
		Amount:     amt,
		Balance:    amt,
		Status:     enums.InvoiceStatusOpen,
		CreatedAt:  createdAt,
	}
	h.invoiceRpo.invoices = append(h.invoiceRpo.invoices, inv)
	return inv
}

func validCard() *Card {
	return &Card{Number: "4242424242424242", CVV: "123"}
}

func TestService_ChargeFIFOAllocation(t *testing.T) {
	h := newPaymentHarness(t, "")
	base := time.Now().Add(-time.Hour)
	inv1 := h.addInvoice("30", base)
	inv2 := h.addInvoice("50", base.Add(time.Minute))
	inv3 := h.addInvoice("20", base.Add(2*time.Minute))

	got, err := h.svc.Charge(context.Background(), ChargeInput{
		ResidentID: h.resident.ID,
		Amount:     decimal.NewFromInt(60),
		Card:       validCard(),
	})
	if err != nil {
		t.Fatalf("Charge error: %v", err)
	}

	if !got.Applied.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected applied 60, got %s", got.Applied)
	}
	allocs := got.Payment.Allocations
	if len(allocs) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocs))
	}
	if allocs[0].InvoiceID != inv1.ID || !allocs[0].Amount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected 30 to oldest invoice, got %s to %s", allocs[0].Amount, allocs[0].InvoiceID)
	}
	if allocs[1].InvoiceID != inv2.ID || !allocs[1].Amount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected 30 to second invoice, got %s to %s", allocs[1].Amount, allocs[1].InvoiceID)
	}
	if inv1.Status != enums.InvoiceStatusPaid {
		t.Fatalf("oldest invoice should be paid, got %s", inv1.Status)
	}
	if inv2.Status != enums.InvoiceStatusPartial || !inv2.Balance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("second invoice should be partial with 20 left, got %s/%s", inv2.Status, inv2.Balance)
	}
	if inv3.Status != enums.InvoiceStatusOpen || !inv3.Balance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("newest invoice must be untouched, got %s/%s", inv3.Status, inv3.Balance)
	}
	if got.Payment.Status != enums.PaymentStatusPosted {
		t.Fatalf("expected posted payment, got %s", got.Payment.Status)
	}
	if got.Payment.ReceiptNo == "" {
		t.Fatal("expected a receipt number")
	}
}

func TestService_ChargeCreditFirstDraw(t *testing.T) {
	h := newPaymentHarness(t, "40")
	h.addInvoice("100", time.Now())

	got, err := h.svc.Charge(context.Background(), ChargeInput{
		ResidentID: h.resident.ID,
		Amount:     decimal.NewFromInt(100),
		Card:       validCard(),
	})
	if err != nil {
		t.Fatalf("Charge error: %v", err)
	}

	if !got.CreditUsed.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected creditUsed 40, got %s", got.CreditUsed)
	}
	if h.gateway.lastAmount == nil || !h.gateway.lastAmount.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("gateway must be charged the remainder 60, got %v", h.gateway.lastAmount)
	}
	if !got.NewCreditBalance.IsZero() {
		t.Fatalf("expected credit drained to zero, got %s", got.NewCreditBalance)
	}
	if got.Payment.Method != enums.PaymentMethodCard {
		t.Fatalf("expected card method, got %s", got.Payment.Method)
	}
}

func TestService_ChargeLeftoverFloatsForward(t *testing.T) {
	h := newPaymentHarness(t, "")
	h.addInvoice("70", time.Now())

	got, err := h.svc.Charge(context.Background(), ChargeInput{
		ResidentID: h.resident.ID,
		Amount:     decimal.NewFromInt(100),
		Card:       validCard(),
	})
	if err != nil {
		t.Fatalf("Charge error: %v", err)
	}

	if !got.Applied.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected applied 70, got %s", got.Applied)
	}
	if !got.NewCreditBalance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("leftover 30 must float forward as credit, got %s", got.NewCreditBalance)
	}
}

func TestService_ChargeFullyFromCredit(t *testing.T) {
	h := newPaymentHarness(t, "100")
	h.addInvoice("50", time.Now())

	got, err := h.svc.Charge(context.Background(), ChargeInput{
		ResidentID: h.resident.ID,
		Amount:     decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("Charge error: %v", err)
	}

	if h.gateway.calls != 0 {
		t.Fatalf("gateway must not be called for a credit-covered charge, got %d calls", h.gateway.calls)
	}
	if got.Payment.Method != enums.PaymentMethodCredit {
		t.Fatalf("expected credit method, got %s", got.Payment.Method)
	}
	if !got.NewCreditBalance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected credit 50 after draw, got %s", got.NewCreditBalance)
	}
	if got.Payment.MaskedPan != nil {
		t.Fatal("credit payments carry no card metadata")
	}
}

func TestService_ChargeDeclineLeavesNoTrace(t *testing.T) {
	h := newPaymentHarness(t, "40")
	inv := h.addInvoice("100", time.Now())
	h.gateway.err = errors.New(errors.CodeDeclined, "Mock decline")

	_, err := h.svc.Charge(context.Background(), ChargeInput{
		ResidentID: h.resident.ID,
		Amount:     decimal.NewFromInt(100),
		Card:       validCard(),
	})
	if appErr := errors.As(err); appErr == nil || appErr.Code() != errors.CodeDeclined {
		t.Fatalf("expected declined, got %v", err)
	}

	if !h.creditRepo.account.Balance.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("credit must be untouched on decline, got %s", h.creditRepo.account.Balance)
	}
	if !inv.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("invoice must be untouched on decline, got %s", inv.Balance)
	}
	if len(h.payRepo.payments) != 0 {
		t.Fatalf("no payment record on decline, got %d", len(h.payRepo.payments))
	}
}

func TestService_ChargeDeclineStillCreatesCreditRow(t *testing.T) {
	h := newPaymentHarness(t, "")
	h.gateway.err = errors.New(errors.CodeDeclined, "Mock decline")

	_, err := h.svc.Charge(context.Background(), ChargeInput{
		ResidentID: h.resident.ID,
		Amount:     decimal.NewFromInt(10),
		Card:       validCard(),
	})
	if appErr := errors.As(err); appErr == nil || appErr.Code() != errors.CodeDeclined {
		t.Fatalf("expected declined, got %v", err)
	}

	// The lazily created zero-balance row is the accepted pre-decline write.
	if !h.creditRepo.created {
		t.Fatal("expected credit account to be created before the decline")
	}
	if !h.creditRepo.account.Balance.IsZero() {
		t.Fatalf("created credit row must be zero-valued, got %s", h.creditRepo.account.Balance)
	}
}

func TestService_ChargeValidation(t *testing.T) {
	h := newPaymentHarness(t, "")

	cases := []struct {
		name  string
		input ChargeInput
	}{
		{"missing resident", ChargeInput{Amount: decimal.NewFromInt(10)}},
		{"zero amount", ChargeInput{ResidentID: h.resident.ID, Amount: decimal.Zero}},
		{"negative amount", ChargeInput{ResidentID: h.resident.ID, Amount: decimal.NewFromInt(-5)}},
		{"allocation without invoice", ChargeInput{
			ResidentID:  h.resident.ID,
			Amount:      decimal.NewFromInt(10),
			Allocations: []AllocationRequest{{Amount: decimal.NewFromInt(10)}},
		}},
		{"allocations exceed amount", ChargeInput{
			ResidentID:  h.resident.ID,
			Amount:      decimal.NewFromInt(10),
			Allocations: []AllocationRequest{{InvoiceID: uuid.New(), Amount: decimal.NewFromInt(20)}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Charge(context.Background(), tc.input)
			if appErr := errors.As(err); appErr == nil || appErr.Code() != errors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_ChargeUnknownResident(t *testing.T) {
	h := newPaymentHarness(t, "")

	_, err := h.svc.Charge(context.Background(), ChargeInput{
		ResidentID: uuid.New(),
		Amount:     decimal.NewFromInt(10),
		Card:       validCard(),
	})
	if appErr := errors.As(err); appErr == nil || appErr.Code() != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_ChargeRejectsForeignInvoiceWholesale(t *testing.T) {
	h := newPaymentHarness(t, "")
	mine := h.addInvoice("50", time.Now())
	foreign := &models.Invoice{
		ID:         uuid.New(),
		ResidentID: uuid.New(),
		Amount:     decimal.NewFromInt(40),
		Balance:    decimal.NewFromInt(40),
		Status:     enums.InvoiceStatusOpen,
	}
	h.invoiceRpo.invoices = append(h.invoiceRpo.invoices, foreign)

	_, err := h.svc.Charge(context.Background(), ChargeInput{
		ResidentID: h.resident.ID,
		Amount:     decimal.NewFromInt(60),
		Card:       validCard(),
		Allocations: []AllocationRequest{
			{InvoiceID: mine.ID, Amount: decimal.NewFromInt(20)},
			{InvoiceID: foreign.ID, Amount: decimal.NewFromInt(40)},
		},
	})
	if appErr := errors.As(err); appErr == nil || appErr.Code() != errors.CodeValidation {
		t.Fatalf("expected wholesale validation rejection, got %v", err)
	}
	if !mine.Balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("valid entry must not be applied when the list is rejected, got %s", mine.Balance)
	}
}

func TestService_ChargeExplicitAllocationClamps(t *testing.T) {
	h := newPaymentHarness(t, "")
	inv := h.addInvoice("30", time.Now())

	got, err := h.svc.Charge(context.Background(), ChargeInput{
		ResidentID:  h.resident.ID,
		Amount:      decimal.NewFromInt(50),
		Card:        validCard(),
		Allocations: []AllocationRequest{{InvoiceID: inv.ID, Amount: decimal.NewFromInt(50)}},
	})
	if err != nil {
		t.Fatalf("Charge error: %v", err)
	}

	if !got.Applied.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("allocation must clamp to invoice balance, applied %s", got.Applied)
	}
	if !got.NewCreditBalance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unapplied remainder must become credit, got %s", got.NewCreditBalance)
	}
	if inv.Status != enums.InvoiceStatusPaid {
		t.Fatalf("expected invoice paid, got %s", inv.Status)
	}
}

func TestService_ChargeConflictWhenCreditMovesDuringAuthorization(t *testing.T) {
	h := newPaymentHarness(t, "0")
	h.addInvoice("100", time.Now())
	h.gateway.onAuthorize = func() {
		// A concurrent charge floats credit in after authorization started.
		h.creditRepo.account.Balance = decimal.NewFromInt(40)
	}

	_, err := h.svc.Charge(context.Background(), ChargeInput{
		ResidentID: h.resident.ID,
		Amount:     decimal.NewFromInt(100),
		Card:       validCard(),
	})
	if appErr := errors.As(err); appErr == nil || appErr.Code() != errors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(h.payRepo.payments) != 0 {
		t.Fatal("conflicted charge must not post a payment")
	}
}

func TestService_ChargeNoAutoAllocateLeavesInvoicesAlone(t *testing.T) {
	h := newPaymentHarness(t, "")
	inv := h.addInvoice("80", time.Now())
	off := false

	got, err := h.svc.Charge(context.Background(), ChargeInput{
		ResidentID:   h.resident.ID,
		Amount:       decimal.NewFromInt(50),
		Card:         validCard(),
		AutoAllocate: &off,
	})
	if err != nil {
		t.Fatalf("Charge error: %v", err)
	}

	if !got.Applied.IsZero() {
		t.Fatalf("nothing should be applied, got %s", got.Applied)
	}
	if !inv.Balance.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("invoice must be untouched, got %s", inv.Balance)
	}
	if !got.NewCreditBalance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("whole amount floats to credit, got %s", got.NewCreditBalance)
	}
}

func TestService_ListByResidentPagination(t *testing.T) {
	h := newPaymentHarness(t, "")
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		id := uuid.New()
		h.payRepo.payments[id] = &models.Payment{
			ID:         id,
			ResidentID: h.resident.ID,
			Amount:     decimal.NewFromInt(int64(i + 1)),
			Status:     enums.PaymentStatusPosted,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
	}

	first, next, err := h.svc.ListByResident(context.Background(), h.resident.ID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("ListByResident error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 payments got %d", len(first))
	}
	if next == "" {
		t.Fatal("expected a next cursor")
	}
	if first[0].CreatedAt.Before(first[1].CreatedAt) {
		t.Fatal("expected newest-first ordering")
	}

	second, _, err := h.svc.ListByResident(context.Background(), h.resident.ID, pagination.Params{Limit: 2, Cursor: next})
	if err != nil {
		t.Fatalf("ListByResident page 2 error: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("expected 2 payments on second page got %d", len(second))
	}
	for _, p := range second {
		if !p.CreatedAt.Before(first[1].CreatedAt) {
			t.Fatal("second page overlaps the first")
		}
	}
}

func TestService_ListByResidentRejectsBadCursor(t *testing.T) {
	h := newPaymentHarness(t, "")
	_, _, err := h.svc.ListByResident(context.Background(), h.resident.ID, pagination.Params{Cursor: "not-base64!"})
	if typed := errors.As(err); typed == nil || typed.Code() != errors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
