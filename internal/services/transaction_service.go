package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"donation-api/internal/apperrors"
	"donation-api/internal/database"
	"donation-api/internal/models"
	"donation-api/pkg/logging"

	"github.com/google/uuid"
)

// TransactionRepository persists transactions.
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction, history *models.TransactionStatusHistory) error
	Get(ctx context.Context, id string) (*models.Transaction, error)
	ApplyUpdate(ctx context.Context, upd database.TransactionUpdate) error
	DeleteIfStatus(ctx context.Context, id string, status models.TransactionStatus) error
	List(ctx context.Context, filter database.TransactionFilter) ([]models.Transaction, int64, error)
	History(ctx context.Context, id string) ([]models.TransactionStatusHistory, error)
}

// ItemInput is one requested line of equipment.
type ItemInput struct {
	EquipmentID uint
	Quantity    int
	Condition   string
	Notes       string
}

// RentalInput carries rental dates as submitted, RFC3339 or YYYY-MM-DD.
type RentalInput struct {
	StartDate     string
	ReturnDueDate string
	ReturnedDate  string
}

// CreateInput describes a new transaction request.
type CreateInput struct {
	ProviderID         uint
	ProviderKind       models.ProviderKind
	RecipientID        uint
	TransactionKind    models.TransactionKind
	Items              []ItemInput
	Rental             *RentalInput
	Notes              string
	Terms              string
	EquipmentRequestID string
	CreatedBy          string
}

// UpdateInput is a partial update. Nil fields are left untouched.
type UpdateInput struct {
	ProviderID      *uint
	ProviderKind    *models.ProviderKind
	RecipientID     *uint
	TransactionKind *models.TransactionKind

	Status     *models.TransactionStatus
	ApprovedBy *string

	Items  []ItemInput
	Rental *RentalInput
	Notes  *string
	Terms  *string

	ChangedBy string
	Note      string
}

// ListInput selects a page of transactions.
type ListInput struct {
	Filter database.TransactionFilter
	Page   int
	Limit  int
}

// ListResult is one page of transactions with page metadata.
type ListResult struct {
	Items      []models.Transaction `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"totalPages"`
}

// TransactionServiceConfig tunes the transaction service.
type TransactionServiceConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	Now             func() time.Time
}

// TransactionService validates and applies equipment transaction changes
type TransactionService struct {
	repo      TransactionRepository
	directory Directory
	ids       IDGenerator
	notifier  Notifier

	defaultPageSize int
	maxPageSize     int
	now             func() time.Time
}

// NewTransactionService creates a new transaction service
func NewTransactionService(repo TransactionRepository, directory Directory, ids IDGenerator, notifier Notifier, cfg TransactionServiceConfig) *TransactionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 10
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	return &TransactionService{
		repo:            repo,
		directory:       directory,
		ids:             ids,
		notifier:        notifier,
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
		now:             cfg.Now,
	}
}

// Create validates a request and persists it as a pending transaction
func (s *TransactionService) Create(ctx context.Context, in CreateInput) (*models.Transaction, error) {
	if err := checkRequired(in); err != nil {
		return nil, err
	}
	if in.ProviderKind != models.ProviderSchool && in.ProviderKind != models.ProviderGoverningBody {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidProviderKind,
			fmt.Sprintf("providerKind must be %q or %q", models.ProviderSchool, models.ProviderGoverningBody),
			map[string]string{"field": "providerKind", "value": string(in.ProviderKind)})
	}
	if in.TransactionKind != models.KindRental && in.TransactionKind != models.KindPermanent {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidKind,
			fmt.Sprintf("transactionKind must be %q or %q", models.KindRental, models.KindPermanent),
			map[string]string{"field": "transactionKind", "value": string(in.TransactionKind)})
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	var start, due *time.Time
	if in.TransactionKind == models.KindRental {
		if in.Rental == nil {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidRentalDates,
				"rentalDetails are required for rental transactions",
				map[string]string{"field": "rentalDetails"})
		}
		if in.Rental.ReturnedDate != "" {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidRentalDates,
				"returnedDate can only be supplied when returning a transaction",
				map[string]string{"field": "rentalDetails.returnedDate"})
		}
		var err error
		if start, due, err = parseRentalPeriod(in.Rental.StartDate, in.Rental.ReturnDueDate); err != nil {
			return nil, err
		}
	}

	if in.ProviderKind == models.ProviderSchool && in.ProviderID == in.RecipientID {
		return nil, apperrors.WithMetadata(apperrors.CodeSameSchool,
			"provider and recipient must be different schools",
			map[string]string{"provider": fmt.Sprint(in.ProviderID), "recipient": fmt.Sprint(in.RecipientID)})
	}

	if _, err := s.resolveProvider(ctx, in.ProviderID, in.ProviderKind); err != nil {
		return nil, err
	}
	if _, err := s.directory.ResolveSchool(ctx, in.RecipientID); err != nil {
		return nil, recode(err, apperrors.CodeRecipientNotFound, "recipient", in.RecipientID)
	}
	if err := s.resolveItems(ctx, in.Items); err != nil {
		return nil, err
	}

	id, err := s.ids.Next(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to allocate transaction id", err)
	}

	createdAt := s.now().UTC()
	txn := &models.Transaction{
		ID:                  id,
		ProviderID:          in.ProviderID,
		ProviderKind:        in.ProviderKind,
		RecipientID:         in.RecipientID,
		TransactionKind:     in.TransactionKind,
		Status:              models.StatusPending,
		Items:               buildItems(in.Items),
		RentalStartDate:     start,
		RentalReturnDueDate: due,
		Notes:               in.Notes,
		Terms:               in.Terms,
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
	}
	if ref := strings.TrimSpace(in.EquipmentRequestID); ref != "" {
		txn.EquipmentRequestID = &ref
	}

	history := &models.TransactionStatusHistory{
		ID:            uuid.NewString(),
		TransactionID: id,
		ToStatus:      models.StatusPending,
		ChangedBy:     in.CreatedBy,
		ChangedAt:     createdAt,
	}
	if err := s.repo.Create(ctx, txn, history); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to create transaction", err)
	}

	logging.Infof("Transaction created - id: %s, kind: %s, provider: %s/%d, recipient: %d",
		id, txn.TransactionKind, txn.ProviderKind, txn.ProviderID, txn.RecipientID)

	created, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.TransactionChanged(ctx, TransactionEvent{
		Type:        EventTransactionCreated,
		Transaction: created,
		ToStatus:    models.StatusPending,
		ChangedBy:   in.CreatedBy,
		OccurredAt:  createdAt,
	})
	return created, nil
}

func checkRequired(in CreateInput) error {
	var missing []string
	if in.ProviderID == 0 {
		missing = append(missing, "provider")
	}
	if in.ProviderKind == "" {
		missing = append(missing, "providerKind")
	}
	if in.RecipientID == 0 {
		missing = append(missing, "recipient")
	}
	if in.TransactionKind == "" {
		missing = append(missing, "transactionKind")
	}
	if len(in.Items) == 0 {
		missing = append(missing, "items")
	}
	if len(missing) == 0 {
		return nil
	}
	return apperrors.WithMetadata(apperrors.CodeMissingFields,
		"missing required fields: "+strings.Join(missing, ", "),
		map[string]string{"fields": strings.Join(missing, ",")})
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return apperrors.WithMetadata(apperrors.CodeMissingFields,
			"at least one item is required", map[string]string{"fields": "items"})
	}
	for i, item := range items {
		field := ""
		switch {
		case item.EquipmentID == 0:
			field = "equipment"
		case item.Quantity < 1:
			field = "quantity"
		case strings.TrimSpace(item.Condition) == "":
			field = "condition"
		default:
			continue
		}
		return apperrors.WithMetadata(apperrors.CodeInvalidItem,
			fmt.Sprintf("item %d: invalid %s", i, field),
			map[string]string{"index": fmt.Sprint(i), "field": field})
	}
	return nil
}

func buildItems(items []ItemInput) []models.TransactionItem {
	out := make([]models.TransactionItem, len(items))
	for i, item := range items {
		out[i] = models.TransactionItem{
			Position:    i,
			EquipmentID: item.EquipmentID,
			Quantity:    item.Quantity,
			Condition:   strings.TrimSpace(item.Condition),
			Notes:       item.Notes,
		}
	}
	return out
}

func (s *TransactionService) resolveItems(ctx context.Context, items []ItemInput) error {
	for _, item := range items {
		if _, err := s.directory.ResolveEquipment(ctx, item.EquipmentID); err != nil {
			return recode(err, apperrors.CodeEquipmentNotFound, "equipment", item.EquipmentID)
		}
	}
	return nil
}

func (s *TransactionService) resolveProvider(ctx context.Context, id uint, kind models.ProviderKind) (*models.Party, error) {
	switch kind {
	case models.ProviderGoverningBody:
		body, err := s.directory.ResolveGovernBody(ctx, id)
		if err != nil {
			return nil, recode(err, apperrors.CodeProviderNotFound, "provider", id)
		}
		return &models.Party{ID: body.ID, Kind: kind, Name: body.Name, ContactEmail: body.ContactEmail}, nil
	default:
		school, err := s.directory.ResolveSchool(ctx, id)
		if err != nil {
			return nil, recode(err, apperrors.CodeProviderNotFound, "provider", id)
		}
		return &models.Party{ID: school.ID, Kind: kind, Name: school.Name, ContactEmail: school.ContactEmail}, nil
	}
}

// recode names the offending reference on a directory not-found error.
func recode(err error, code apperrors.Code, field string, id uint) error {
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		return &apperrors.Error{
			Code:     code,
			Message:  fmt.Sprintf("%s %d not found", field, id),
			Metadata: map[string]string{"field": field, "id": fmt.Sprint(id)},
			Cause:    err,
		}
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Wrap(apperrors.CodeStoreFailure, "failed to resolve "+field, err)
}

// Get returns a transaction with its provider, recipient and equipment resolved
func (s *TransactionService) Get(ctx context.Context, id string) (*models.Transaction, error) {
	txn, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.loadError(id, err)
	}
	s.attachProvider(ctx, txn)
	return txn, nil
}

func (s *TransactionService) loadError(id string, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.WithMetadata(apperrors.CodeTransactionNotFound,
			fmt.Sprintf("transaction %s not found", id),
			map[string]string{"id": id})
	}
	return apperrors.Wrap(apperrors.CodeStoreFailure, "failed to load transaction", err)
}

func (s *TransactionService) attachProvider(ctx context.Context, txn *models.Transaction) {
	party, err := s.resolveProvider(ctx, txn.ProviderID, txn.ProviderKind)
	if err != nil {
		logging.Warnf("Provider not resolved for transaction %s: %v", txn.ID, err)
		party = &models.Party{ID: txn.ProviderID, Kind: txn.ProviderKind}
	}
	txn.Provider = party
}

// Update applies immutable-field checks, pending-only edits, note changes and an
// optional status transition as one conditional write
func (s *TransactionService) Update(ctx context.Context, id string, in UpdateInput) (*models.Transaction, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.loadError(id, err)
	}

	if err := checkImmutable(current, in); err != nil {
		return nil, err
	}

	updated := *current
	var items []models.TransactionItem

	editing := in.Items != nil || in.Terms != nil ||
		(in.Rental != nil && (in.Rental.StartDate != "" || in.Rental.ReturnDueDate != ""))
	if editing && current.Status != models.StatusPending {
		return nil, apperrors.WithMetadata(apperrors.CodeNotEditable,
			fmt.Sprintf("transaction %s can only be edited while pending", id),
			map[string]string{"status": string(current.Status)})
	}

	if in.Items != nil {
		if err := validateItems(in.Items); err != nil {
			return nil, err
		}
		if err := s.resolveItems(ctx, in.Items); err != nil {
			return nil, err
		}
		items = buildItems(in.Items)
	}
	if in.Terms != nil {
		updated.Terms = *in.Terms
	}
	if in.Notes != nil {
		updated.Notes = *in.Notes
	}
	if in.Rental != nil && current.TransactionKind == models.KindRental &&
		(in.Rental.StartDate != "" || in.Rental.ReturnDueDate != "") {
		startRaw, dueRaw := in.Rental.StartDate, in.Rental.ReturnDueDate
		if startRaw == "" && current.RentalStartDate != nil {
			startRaw = current.RentalStartDate.Format(time.RFC3339)
		}
		if dueRaw == "" && current.RentalReturnDueDate != nil {
			dueRaw = current.RentalReturnDueDate.Format(time.RFC3339)
		}
		start, due, err := parseRentalPeriod(startRaw, dueRaw)
		if err != nil {
			return nil, err
		}
		updated.RentalStartDate, updated.RentalReturnDueDate = start, due
	}

	var returnedDate *time.Time
	if in.Rental != nil && in.Rental.ReturnedDate != "" {
		if in.Status == nil || *in.Status != models.StatusReturned || current.Status == models.StatusReturned {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidRentalDates,
				"returnedDate can only be supplied when returning a transaction",
				map[string]string{"field": "rentalDetails.returnedDate"})
		}
		parsed, err := ParseDate(in.Rental.ReturnedDate)
		if err != nil {
			return nil, invalidDate("rentalDetails.returnedDate", in.Rental.ReturnedDate)
		}
		returnedDate = &parsed
	}

	var history *models.TransactionStatusHistory
	if in.Status != nil {
		approvedBy := ""
		if in.ApprovedBy != nil {
			approvedBy = *in.ApprovedBy
		}
		transitioned, err := TransitionTransaction(updated, TransitionRequest{
			Target:       *in.Status,
			ApprovedBy:   approvedBy,
			ReturnedDate: returnedDate,
		}, s.now)
		if err != nil {
			return nil, err
		}
		updated = transitioned

		changedBy := in.ChangedBy
		if changedBy == "" && updated.Status == models.StatusApproved && updated.ApprovedBy != nil {
			changedBy = *updated.ApprovedBy
		}
		history = &models.TransactionStatusHistory{
			ID:            uuid.NewString(),
			TransactionID: id,
			FromStatus:    current.Status,
			ToStatus:      updated.Status,
			ChangedBy:     changedBy,
			Note:          in.Note,
			ChangedAt:     updated.UpdatedAt,
		}
	}
	updated.UpdatedAt = s.now().UTC()

	err = s.repo.ApplyUpdate(ctx, database.TransactionUpdate{
		Transaction:    &updated,
		ExpectedStatus: current.Status,
		Items:          items,
		History:        history,
	})
	if err != nil {
		return nil, s.updateError(ctx, id, current.Status, in.Status, err)
	}

	result, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if history != nil {
		logging.Infof("Transaction status changed - id: %s, %s -> %s", id, history.FromStatus, history.ToStatus)
		s.notifier.TransactionChanged(ctx, TransactionEvent{
			Type:        EventTransactionStatusChanged,
			Transaction: result,
			FromStatus:  history.FromStatus,
			ToStatus:    history.ToStatus,
			ChangedBy:   history.ChangedBy,
			OccurredAt:  history.ChangedAt,
		})
	}
	return result, nil
}

// updateError translates a failed conditional write. A status conflict means a
// concurrent writer moved the transaction first.
func (s *TransactionService) updateError(ctx context.Context, id string, expected models.TransactionStatus, target *models.TransactionStatus, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return s.loadError(id, err)
	}
	if !errors.Is(err, database.ErrStatusConflict) {
		return apperrors.Wrap(apperrors.CodeStoreFailure, "failed to update transaction", err)
	}

	latest := expected
	if txn, getErr := s.repo.Get(ctx, id); getErr == nil {
		latest = txn.Status
	}
	if target == nil {
		return apperrors.WithMetadata(apperrors.CodeNotEditable,
			fmt.Sprintf("transaction %s changed status to %s concurrently", id, latest),
			map[string]string{"status": string(latest)})
	}
	return invalidTransition(latest, *target)
}

func checkImmutable(current *models.Transaction, in UpdateInput) error {
	var field string
	switch {
	case in.ProviderID != nil && *in.ProviderID != current.ProviderID:
		field = "provider"
	case in.ProviderKind != nil && *in.ProviderKind != current.ProviderKind:
		field = "providerKind"
	case in.RecipientID != nil && *in.RecipientID != current.RecipientID:
		field = "recipient"
	case in.TransactionKind != nil && *in.TransactionKind != current.TransactionKind:
		field = "transactionKind"
	default:
		return nil
	}
	return apperrors.WithMetadata(apperrors.CodeImmutableField,
		fmt.Sprintf("%s cannot be changed after creation", field),
		map[string]string{"field": field})
}

// Delete removes a transaction while it is still pending
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return s.loadError(id, err)
	}

	err = s.repo.DeleteIfStatus(ctx, id, models.StatusPending)
	if errors.Is(err, database.ErrStatusConflict) {
		status := current.Status
		if latest, getErr := s.repo.Get(ctx, id); getErr == nil {
			status = latest.Status
		}
		return apperrors.WithMetadata(apperrors.CodeOnlyPendingDeletable,
			"only pending transactions can be deleted",
			map[string]string{"status": string(status)})
	}
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return s.loadError(id, err)
		}
		return apperrors.Wrap(apperrors.CodeStoreFailure, "failed to delete transaction", err)
	}

	logging.Infof("Transaction deleted - id: %s", id)
	s.notifier.TransactionChanged(ctx, TransactionEvent{
		Type:        EventTransactionDeleted,
		Transaction: current,
		FromStatus:  current.Status,
		OccurredAt:  s.now().UTC(),
	})
	return nil
}

// maxListOffset bounds (page-1)*limit so a huge page number cannot overflow.
const maxListOffset = math.MaxInt32

// List returns one page of transactions matching the filter
func (s *TransactionService) List(ctx context.Context, in ListInput) (*ListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	if maxPage := maxListOffset/limit + 1; page > maxPage {
		page = maxPage
	}

	filter := in.Filter
	filter.Offset = (page - 1) * limit
	filter.Limit = limit

	txns, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to list transactions", err)
	}
	for i := range txns {
		s.attachProvider(ctx, &txns[i])
	}
	if txns == nil {
		txns = []models.Transaction{}
	}

	return &ListResult{
		Items:      txns,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// History returns the status history of a transaction, oldest first
func (s *TransactionService) History(ctx context.Context, id string) ([]models.TransactionStatusHistory, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, s.loadError(id, err)
	}
	entries, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to load status history", err)
	}
	if entries == nil {
		entries = []models.TransactionStatusHistory{}
	}
	return entries, nil
}
