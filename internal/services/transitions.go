package services

import (
	"fmt"
	"strings"
	"time"

	"donation-api/internal/apperrors"
	"donation-api/internal/models"
)

// allowedTransitions lists every status a transaction may move to from a given status.
// Statuses without an entry are terminal.
var allowedTransitions = map[models.TransactionStatus][]models.TransactionStatus{
	models.StatusPending: {
		models.StatusApproved,
		models.StatusRejected,
		models.StatusCancelled,
	},
	models.StatusApproved: {
		models.StatusCompleted,
		models.StatusCancelled,
		models.StatusReturned,
	},
}

// IsKnownStatus reports whether status is one of the lifecycle statuses.
func IsKnownStatus(status models.TransactionStatus) bool {
	switch status {
	case models.StatusPending, models.StatusApproved, models.StatusRejected,
		models.StatusCompleted, models.StatusCancelled, models.StatusReturned:
		return true
	}
	return false
}

// CanTransition reports whether the status table permits from -> to.
// Returns are further restricted to rentals by TransitionTransaction.
func CanTransition(from, to models.TransactionStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionRequest carries the fields a status change may use.
type TransitionRequest struct {
	Target       models.TransactionStatus
	ApprovedBy   string
	ReturnedDate *time.Time
}

// TransitionTransaction applies a status transition and its side effects to a copy of txn.
func TransitionTransaction(txn models.Transaction, req TransitionRequest, now func() time.Time) (models.Transaction, error) {
	if now == nil {
		now = time.Now
	}
	if !IsKnownStatus(req.Target) {
		return models.Transaction{}, apperrors.WithMetadata(
			apperrors.CodeValidation,
			fmt.Sprintf("unknown status %q", req.Target),
			map[string]string{"field": "status", "value": string(req.Target)},
		)
	}
	if !CanTransition(txn.Status, req.Target) {
		return models.Transaction{}, invalidTransition(txn.Status, req.Target)
	}

	updated := txn
	changedAt := now().UTC()
	updated.Status = req.Target
	updated.UpdatedAt = changedAt

	switch req.Target {
	case models.StatusApproved:
		approver := strings.TrimSpace(req.ApprovedBy)
		if approver == "" && txn.ApprovedBy == nil {
			return models.Transaction{}, apperrors.WithMetadata(
				apperrors.CodeApproverRequired,
				"approvedBy is required to approve a transaction",
				map[string]string{"FromStatus": string(txn.Status), "ToStatus": string(req.Target)},
			)
		}
		if approver != "" {
			updated.ApprovedBy = &approver
		}
		if updated.ApprovedAt == nil {
			updated.ApprovedAt = &changedAt
		}

	case models.StatusReturned:
		if txn.TransactionKind != models.KindRental {
			return models.Transaction{}, apperrors.WithMetadata(
				apperrors.CodeReturnRequiresRental,
				"only rental transactions can be returned",
				map[string]string{
					"FromStatus":      string(txn.Status),
					"ToStatus":        string(req.Target),
					"transactionKind": string(txn.TransactionKind),
				},
			)
		}
		returned := changedAt
		if req.ReturnedDate != nil {
			returned = req.ReturnedDate.UTC()
		}
		if txn.RentalStartDate != nil && returned.Before(*txn.RentalStartDate) {
			return models.Transaction{}, apperrors.WithMetadata(
				apperrors.CodeInvalidRentalDates,
				"returnedDate cannot be before startDate",
				map[string]string{"field": "rentalDetails.returnedDate"},
			)
		}
		updated.RentalReturnedDate = &returned
	}

	return updated, nil
}

func invalidTransition(from, to models.TransactionStatus) error {
	return apperrors.WithMetadata(
		apperrors.CodeInvalidStatusTransition,
		fmt.Sprintf("status transition not allowed: %s -> %s", from, to),
		map[string]string{"FromStatus": string(from), "ToStatus": string(to)},
	)
}
