package services

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"donation-api/internal/apperrors"
	"donation-api/internal/database"
	"donation-api/internal/models"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []TransactionEvent
}

func (r *recordingNotifier) TransactionChanged(_ context.Context, event TransactionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	svc       *TransactionService
	store     *database.TransactionStore
	notifier  *recordingNotifier
	clock     time.Time
	north     models.School
	south     models.School
	ministry  models.GovernBody
	laptop    models.Equipment
	projector models.Equipment
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := database.NewTestDB(t)
	ctx := context.Background()

	h := &harness{
		store:    database.NewTransactionStore(db),
		notifier: &recordingNotifier{},
		clock:    time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC),
	}
	dirStore := database.NewDirectoryStore(db)
	directory := NewDirectoryService(dirStore)

	h.north = models.School{Name: "North High", Code: "NH", ContactEmail: "north@example.org"}
	h.south = models.School{Name: "South Primary", Code: "SP", ContactEmail: "south@example.org"}
	h.ministry = models.GovernBody{Name: "Ministry of Education", Region: "Central"}
	h.laptop = models.Equipment{Name: "Laptop", Category: "computing"}
	h.projector = models.Equipment{Name: "Projector", Category: "av"}
	for _, s := range []*models.School{&h.north, &h.south} {
		if err := directory.CreateSchool(ctx, s); err != nil {
			t.Fatalf("CreateSchool: %v", err)
		}
	}
	if err := directory.CreateGovernBody(ctx, &h.ministry); err != nil {
		t.Fatalf("CreateGovernBody: %v", err)
	}
	for _, e := range []*models.Equipment{&h.laptop, &h.projector} {
		if err := directory.CreateEquipment(ctx, e); err != nil {
			t.Fatalf("CreateEquipment: %v", err)
		}
	}

	now := func() time.Time { return h.clock }
	ids := NewDBSequence(db, "ETX")
	ids.now = now
	h.svc = NewTransactionService(h.store, directory, ids, h.notifier, TransactionServiceConfig{
		DefaultPageSize: 2,
		MaxPageSize:     5,
		Now:             now,
	})
	return h
}

func (h *harness) rentalInput() CreateInput {
	return CreateInput{
		ProviderID:      h.north.ID,
		ProviderKind:    models.ProviderSchool,
		RecipientID:     h.south.ID,
		TransactionKind: models.KindRental,
		Items:           []ItemInput{{EquipmentID: h.laptop.ID, Quantity: 2, Condition: "good"}},
		Rental:          &RentalInput{StartDate: "2025-01-01", ReturnDueDate: "2025-01-10"},
	}
}

func (h *harness) permanentInput() CreateInput {
	return CreateInput{
		ProviderID:      h.ministry.ID,
		ProviderKind:    models.ProviderGoverningBody,
		RecipientID:     h.south.ID,
		TransactionKind: models.KindPermanent,
		Items:           []ItemInput{{EquipmentID: h.projector.ID, Quantity: 1, Condition: "new"}},
	}
}

func assertCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()
	if got := apperrors.GetCode(err); got != want {
		t.Fatalf("expected %s, got %v", want, err)
	}
}

func statusPtr(s models.TransactionStatus) *models.TransactionStatus { return &s }
func strPtr(s string) *string                                        { return &s }

func TestCreateRentalTransaction(t *testing.T) {
	h := newHarness(t)

	txn, err := h.svc.Create(context.Background(), h.rentalInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if txn.ID != "ETX-2025-000001" {
		t.Errorf("unexpected id %s", txn.ID)
	}
	if txn.Status != models.StatusPending {
		t.Errorf("expected pending, got %s", txn.Status)
	}
	if !txn.HasRentalDetails() {
		t.Fatal("rental details missing")
	}
	if !txn.RentalStartDate.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start %v", txn.RentalStartDate)
	}
	if txn.ApprovedAt != nil || txn.ApprovedBy != nil {
		t.Error("approval metadata should be absent")
	}
	if len(txn.Items) != 1 || txn.Items[0].Equipment == nil || txn.Items[0].Equipment.Name != "Laptop" {
		t.Errorf("items not resolved: %+v", txn.Items)
	}
	if txn.Provider == nil || txn.Provider.Name != "North High" {
		t.Errorf("provider not resolved: %+v", txn.Provider)
	}
	if txn.Recipient == nil || txn.Recipient.Name != "South Primary" {
		t.Errorf("recipient not resolved: %+v", txn.Recipient)
	}

	second, err := h.svc.Create(context.Background(), h.permanentInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if second.ID != "ETX-2025-000002" {
		t.Errorf("unexpected id %s", second.ID)
	}
	if second.Provider == nil || second.Provider.Kind != models.ProviderGoverningBody || second.Provider.Name != "Ministry of Education" {
		t.Errorf("governing body provider not resolved: %+v", second.Provider)
	}
	if second.HasRentalDetails() {
		t.Error("permanent transaction should not carry rental details")
	}

	history, err := h.svc.History(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].FromStatus != "" || history[0].ToStatus != models.StatusPending {
		t.Errorf("unexpected creation history %+v", history)
	}
	if got := h.notifier.types(); len(got) != 2 || got[0] != EventTransactionCreated {
		t.Errorf("unexpected events %v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		mutate func(in *CreateInput)
		code   apperrors.Code
		kind   apperrors.Kind
	}{
		{"empty items", func(in *CreateInput) { in.Items = nil }, apperrors.CodeMissingFields, apperrors.KindValidation},
		{"missing provider", func(in *CreateInput) { in.ProviderID = 0 }, apperrors.CodeMissingFields, apperrors.KindValidation},
		{"bad provider kind", func(in *CreateInput) { in.ProviderKind = "donor" }, apperrors.CodeInvalidProviderKind, apperrors.KindValidation},
		{"bad kind", func(in *CreateInput) { in.TransactionKind = "loan" }, apperrors.CodeInvalidKind, apperrors.KindValidation},
		{"zero quantity", func(in *CreateInput) { in.Items[0].Quantity = 0 }, apperrors.CodeInvalidItem, apperrors.KindValidation},
		{"missing condition", func(in *CreateInput) { in.Items[0].Condition = " " }, apperrors.CodeInvalidItem, apperrors.KindValidation},
		{"missing rental details", func(in *CreateInput) { in.Rental = nil }, apperrors.CodeInvalidRentalDates, apperrors.KindValidation},
		{"due equals start", func(in *CreateInput) { in.Rental.ReturnDueDate = "2025-01-01" }, apperrors.CodeInvalidRentalDates, apperrors.KindValidation},
		{"due before start", func(in *CreateInput) { in.Rental.ReturnDueDate = "2024-12-31" }, apperrors.CodeInvalidRentalDates, apperrors.KindValidation},
		{"unparseable date", func(in *CreateInput) { in.Rental.StartDate = "first of january" }, apperrors.CodeInvalidRentalDates, apperrors.KindValidation},
		{"returned date on create", func(in *CreateInput) { in.Rental.ReturnedDate = "2025-01-10" }, apperrors.CodeInvalidRentalDates, apperrors.KindValidation},
		{"same school", func(in *CreateInput) { in.RecipientID = in.ProviderID }, apperrors.CodeSameSchool, apperrors.KindValidation},
		{"unknown provider", func(in *CreateInput) { in.ProviderID = 999 }, apperrors.CodeProviderNotFound, apperrors.KindNotFound},
		{"unknown recipient", func(in *CreateInput) { in.RecipientID = 999 }, apperrors.CodeRecipientNotFound, apperrors.KindNotFound},
		{"unknown equipment", func(in *CreateInput) { in.Items[0].EquipmentID = 999 }, apperrors.CodeEquipmentNotFound, apperrors.KindNotFound},
		{"governing body not a school", func(in *CreateInput) {
			in.ProviderKind = models.ProviderGoverningBody
			in.ProviderID = h.north.ID + 100
		}, apperrors.CodeProviderNotFound, apperrors.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := h.rentalInput()
			tt.mutate(&in)
			_, err := h.svc.Create(context.Background(), in)
			assertCode(t, err, tt.code)
			if kind := apperrors.KindOf(err); kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, kind)
			}
		})
	}

	list, err := h.svc.List(context.Background(), ListInput{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.Total != 0 {
		t.Errorf("failed creations persisted %d transactions", list.Total)
	}
}

func TestCreateNotFoundNamesReference(t *testing.T) {
	h := newHarness(t)
	in := h.rentalInput()
	in.Items = append(in.Items, ItemInput{EquipmentID: 4242, Quantity: 1, Condition: "fair"})

	_, err := h.svc.Create(context.Background(), in)
	e, ok := apperrors.As(err)
	if !ok || e.Code != apperrors.CodeEquipmentNotFound {
		t.Fatalf("expected equipment not found, got %v", err)
	}
	if e.Metadata["id"] != "4242" {
		t.Errorf("offending reference not named: %v", e.Metadata)
	}
}

func TestCreatePermanentIgnoresRentalDetails(t *testing.T) {
	h := newHarness(t)
	in := h.permanentInput()
	in.Rental = &RentalInput{StartDate: "2025-02-01", ReturnDueDate: "2025-01-01"}

	txn, err := h.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if txn.RentalStartDate != nil || txn.RentalReturnDueDate != nil {
		t.Error("rental details should be ignored for permanent transactions")
	}
}

func TestApproveAndReturnRental(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, err := h.svc.Create(ctx, h.rentalInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	h.clock = h.clock.Add(time.Hour)
	approved, err := h.svc.Update(ctx, created.ID, UpdateInput{
		Status:     statusPtr(models.StatusApproved),
		ApprovedBy: strPtr("U1"),
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.StatusApproved {
		t.Errorf("expected approved, got %s", approved.Status)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != "U1" {
		t.Errorf("unexpected approver %v", approved.ApprovedBy)
	}
	if approved.ApprovedAt == nil || !approved.ApprovedAt.Equal(h.clock) {
		t.Errorf("unexpected approvedAt %v", approved.ApprovedAt)
	}

	refetched, err := h.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if refetched.Status != models.StatusApproved || refetched.ApprovedAt == nil {
		t.Errorf("approval not persisted: %+v", refetched)
	}

	h.clock = h.clock.Add(24 * time.Hour)
	returned, err := h.svc.Update(ctx, created.ID, UpdateInput{Status: statusPtr(models.StatusReturned)})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if returned.RentalReturnedDate == nil || !returned.RentalReturnedDate.Equal(h.clock) {
		t.Errorf("returned date = %v, want %v", returned.RentalReturnedDate, h.clock)
	}
	if !returned.RentalStartDate.Equal(*created.RentalStartDate) || !returned.RentalReturnDueDate.Equal(*created.RentalReturnDueDate) {
		t.Error("rental period changed on return")
	}

	history, err := h.svc.History(ctx, created.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	want := []models.TransactionStatus{models.StatusPending, models.StatusApproved, models.StatusReturned}
	if len(history) != len(want) {
		t.Fatalf("expected %d history entries, got %d", len(want), len(history))
	}
	for i, entry := range history {
		if entry.ToStatus != want[i] {
			t.Errorf("history[%d] = %s, want %s", i, entry.ToStatus, want[i])
		}
	}
	if history[1].ChangedBy != "U1" {
		t.Errorf("approval history should record approver, got %q", history[1].ChangedBy)
	}
}

func TestInvalidTransitionLeavesStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, _ := h.svc.Create(ctx, h.permanentInput())
	if _, err := h.svc.Update(ctx, created.ID, UpdateInput{Status: statusPtr(models.StatusApproved), ApprovedBy: strPtr("U1")}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	tests := []struct {
		target models.TransactionStatus
		code   apperrors.Code
	}{
		{models.StatusPending, apperrors.CodeInvalidStatusTransition},
		{models.StatusRejected, apperrors.CodeInvalidStatusTransition},
		{models.StatusReturned, apperrors.CodeReturnRequiresRental},
	}
	for _, tt := range tests {
		_, err := h.svc.Update(ctx, created.ID, UpdateInput{Status: statusPtr(tt.target)})
		assertCode(t, err, tt.code)
		if apperrors.KindOf(err) != apperrors.KindStateTransition {
			t.Errorf("%s: expected state transition kind, got %s", tt.target, apperrors.KindOf(err))
		}
	}

	got, _ := h.svc.Get(ctx, created.ID)
	if got.Status != models.StatusApproved {
		t.Errorf("status changed to %s", got.Status)
	}

	completed, err := h.svc.Update(ctx, created.ID, UpdateInput{Status: statusPtr(models.StatusCompleted)})
	if err != nil || completed.Status != models.StatusCompleted {
		t.Fatalf("complete: %v", err)
	}
	_, err = h.svc.Update(ctx, created.ID, UpdateInput{Status: statusPtr(models.StatusCancelled)})
	assertCode(t, err, apperrors.CodeInvalidStatusTransition)
}

func TestApproveRequiresApprover(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, _ := h.svc.Create(ctx, h.rentalInput())

	_, err := h.svc.Update(ctx, created.ID, UpdateInput{Status: statusPtr(models.StatusApproved)})
	assertCode(t, err, apperrors.CodeApproverRequired)

	got, _ := h.svc.Get(ctx, created.ID)
	if got.Status != models.StatusPending {
		t.Errorf("status changed to %s", got.Status)
	}
}

func TestImmutableFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, _ := h.svc.Create(ctx, h.rentalInput())

	other := h.south.ID
	_, err := h.svc.Update(ctx, created.ID, UpdateInput{ProviderID: &other})
	assertCode(t, err, apperrors.CodeImmutableField)
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict kind, got %s", apperrors.KindOf(err))
	}

	kind := models.KindPermanent
	_, err = h.svc.Update(ctx, created.ID, UpdateInput{TransactionKind: &kind})
	assertCode(t, err, apperrors.CodeImmutableField)

	same := h.north.ID
	if _, err := h.svc.Update(ctx, created.ID, UpdateInput{ProviderID: &same, Notes: strPtr("checked")}); err != nil {
		t.Fatalf("unchanged provider should be accepted: %v", err)
	}

	got, _ := h.svc.Get(ctx, created.ID)
	if got.ProviderID != h.north.ID || got.TransactionKind != models.KindRental {
		t.Errorf("immutable fields changed: %+v", got)
	}
	if got.Notes != "checked" {
		t.Errorf("notes not updated: %q", got.Notes)
	}
}

func TestEditsOnlyWhilePending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, _ := h.svc.Create(ctx, h.rentalInput())

	edited, err := h.svc.Update(ctx, created.ID, UpdateInput{
		Items: []ItemInput{
			{EquipmentID: h.projector.ID, Quantity: 1, Condition: "fair"},
			{EquipmentID: h.laptop.ID, Quantity: 3, Condition: "good"},
		},
		Rental: &RentalInput{ReturnDueDate: "2025-01-20"},
		Terms:  strPtr("return cleaned"),
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if len(edited.Items) != 2 || edited.Items[0].EquipmentID != h.projector.ID {
		t.Errorf("items not replaced: %+v", edited.Items)
	}
	if !edited.RentalReturnDueDate.Equal(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("due date not updated: %v", edited.RentalReturnDueDate)
	}
	if !edited.RentalStartDate.Equal(*created.RentalStartDate) {
		t.Error("start date should be kept")
	}

	_, err = h.svc.Update(ctx, created.ID, UpdateInput{Rental: &RentalInput{StartDate: "2025-02-01"}})
	assertCode(t, err, apperrors.CodeInvalidRentalDates)

	_, err = h.svc.Update(ctx, created.ID, UpdateInput{Items: []ItemInput{}})
	assertCode(t, err, apperrors.CodeMissingFields)

	if _, err := h.svc.Update(ctx, created.ID, UpdateInput{Status: statusPtr(models.StatusApproved), ApprovedBy: strPtr("U1")}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err = h.svc.Update(ctx, created.ID, UpdateInput{Terms: strPtr("late change")})
	assertCode(t, err, apperrors.CodeNotEditable)

	if _, err := h.svc.Update(ctx, created.ID, UpdateInput{Notes: strPtr("picked up")}); err != nil {
		t.Errorf("notes should be editable after approval: %v", err)
	}
}

func TestReturnedDateRequiresReturn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, _ := h.svc.Create(ctx, h.rentalInput())

	_, err := h.svc.Update(ctx, created.ID, UpdateInput{Rental: &RentalInput{ReturnedDate: "2025-01-08"}})
	assertCode(t, err, apperrors.CodeInvalidRentalDates)

	h.svc.Update(ctx, created.ID, UpdateInput{Status: statusPtr(models.StatusApproved), ApprovedBy: strPtr("U1")})
	returned, err := h.svc.Update(ctx, created.ID, UpdateInput{
		Status: statusPtr(models.StatusReturned),
		Rental: &RentalInput{ReturnedDate: "2025-01-08"},
	})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if !returned.RentalReturnedDate.Equal(time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected returned date %v", returned.RentalReturnedDate)
	}
}

func TestSameStatusIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pending, _ := h.svc.Create(ctx, h.rentalInput())
	_, err := h.svc.Update(ctx, pending.ID, UpdateInput{Status: statusPtr(models.StatusPending)})
	assertCode(t, err, apperrors.CodeInvalidStatusTransition)

	cancelled, _ := h.svc.Create(ctx, h.permanentInput())
	if _, err := h.svc.Update(ctx, cancelled.ID, UpdateInput{Status: statusPtr(models.StatusCancelled)}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	before, _ := h.svc.Get(ctx, cancelled.ID)

	_, err = h.svc.Update(ctx, cancelled.ID, UpdateInput{
		Status: statusPtr(models.StatusCancelled),
		Notes:  strPtr("again"),
	})
	assertCode(t, err, apperrors.CodeInvalidStatusTransition)
	if appErr, ok := apperrors.As(err); ok {
		if appErr.Metadata["FromStatus"] != "cancelled" || appErr.Metadata["ToStatus"] != "cancelled" {
			t.Errorf("unexpected metadata %v", appErr.Metadata)
		}
	}

	after, _ := h.svc.Get(ctx, cancelled.ID)
	if after.Notes == "again" || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("rejected update changed the record: notes %q, updated %v -> %v",
			after.Notes, before.UpdatedAt, after.UpdatedAt)
	}
	history, _ := h.svc.History(ctx, cancelled.ID)
	if len(history) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(history))
	}
}

func TestDeleteOnlyPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pending, _ := h.svc.Create(ctx, h.rentalInput())
	approved, _ := h.svc.Create(ctx, h.permanentInput())
	h.svc.Update(ctx, approved.ID, UpdateInput{Status: statusPtr(models.StatusApproved), ApprovedBy: strPtr("U1")})

	err := h.svc.Delete(ctx, approved.ID)
	assertCode(t, err, apperrors.CodeOnlyPendingDeletable)
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict kind, got %s", apperrors.KindOf(err))
	}
	if _, err := h.svc.Get(ctx, approved.ID); err != nil {
		t.Errorf("approved transaction should remain retrievable: %v", err)
	}

	if err := h.svc.Delete(ctx, pending.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = h.svc.Get(ctx, pending.ID)
	assertCode(t, err, apperrors.CodeTransactionNotFound)

	err = h.svc.Delete(ctx, "ETX-2025-999999")
	assertCode(t, err, apperrors.CodeTransactionNotFound)
}

func TestUpdateMissingTransaction(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Update(context.Background(), "ETX-2025-999999", UpdateInput{Status: statusPtr(models.StatusCancelled)})
	assertCode(t, err, apperrors.CodeTransactionNotFound)
}

func TestConcurrentTransitionsOneWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, err := h.svc.Create(ctx, h.rentalInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	targets := []UpdateInput{
		{Status: statusPtr(models.StatusApproved), ApprovedBy: strPtr("U1")},
		{Status: statusPtr(models.StatusRejected)},
	}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, in := range targets {
		wg.Add(1)
		go func(i int, in UpdateInput) {
			defer wg.Done()
			_, errs[i] = h.svc.Update(ctx, created.ID, in)
		}(i, in)
	}
	wg.Wait()

	var winner models.TransactionStatus
	succeeded := 0
	for i, err := range errs {
		if err == nil {
			succeeded++
			winner = *targets[i].Status
			continue
		}
		if apperrors.KindOf(err) != apperrors.KindStateTransition {
			t.Errorf("loser should see a state transition error, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one winner, got %d", succeeded)
	}

	got, _ := h.svc.Get(ctx, created.ID)
	if got.Status != winner {
		t.Errorf("persisted status %s, winner %s", got.Status, winner)
	}
	history, _ := h.svc.History(ctx, created.ID)
	if len(history) != 2 {
		t.Errorf("expected creation plus one transition in history, got %d", len(history))
	}
}

func TestListPaginationAndFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		h.clock = h.clock.Add(time.Minute)
		if _, err := h.svc.Create(ctx, h.rentalInput()); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	h.clock = h.clock.Add(time.Minute)
	permanent, _ := h.svc.Create(ctx, h.permanentInput())

	page, err := h.svc.List(ctx, ListInput{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 4 || page.Limit != 2 || page.Page != 1 || page.TotalPages != 2 || len(page.Items) != 2 {
		t.Errorf("unexpected first page %+v", page)
	}
	if page.Items[0].ID != permanent.ID {
		t.Errorf("expected newest first, got %s", page.Items[0].ID)
	}
	if page.Items[0].Provider == nil || page.Items[0].Provider.Name != "Ministry of Education" {
		t.Errorf("provider not resolved in list: %+v", page.Items[0].Provider)
	}

	clamped, _ := h.svc.List(ctx, ListInput{Limit: 50, Page: -3})
	if clamped.Limit != 5 || clamped.Page != 1 || len(clamped.Items) != 4 {
		t.Errorf("unexpected clamped page %+v", clamped)
	}

	byProvider, _ := h.svc.List(ctx, ListInput{Filter: database.TransactionFilter{ProviderKind: models.ProviderGoverningBody}})
	if byProvider.Total != 1 {
		t.Errorf("provider kind filter: expected 1, got %d", byProvider.Total)
	}

	dueFrom := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
	byDue, _ := h.svc.List(ctx, ListInput{Filter: database.TransactionFilter{DueFrom: &dueFrom}, Limit: 5})
	if byDue.Total != 3 {
		t.Errorf("due date filter: expected 3, got %d", byDue.Total)
	}

	empty, _ := h.svc.List(ctx, ListInput{Filter: database.TransactionFilter{Status: models.StatusReturned}})
	if empty.Total != 0 || empty.Items == nil || empty.TotalPages != 0 {
		t.Errorf("unexpected empty page %+v", empty)
	}
}

type listRecorder struct {
	TransactionRepository
	filter database.TransactionFilter
}

func (r *listRecorder) List(ctx context.Context, f database.TransactionFilter) ([]models.Transaction, int64, error) {
	r.filter = f
	return r.TransactionRepository.List(ctx, f)
}

func TestListClampsHugePage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.svc.Create(ctx, h.rentalInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := &listRecorder{TransactionRepository: h.store}
	h.svc.repo = rec

	for _, limit := range []int{1, 5} {
		result, err := h.svc.List(ctx, ListInput{Page: math.MaxInt, Limit: limit})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if rec.filter.Offset < 0 || rec.filter.Offset > math.MaxInt32 {
			t.Errorf("limit %d: offset out of range: %d", limit, rec.filter.Offset)
		}
		if result.Total != 1 || len(result.Items) != 0 || result.Page < 1 {
			t.Errorf("limit %d: unexpected page %+v", limit, result)
		}
	}
}
