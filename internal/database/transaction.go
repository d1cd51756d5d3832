package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"donation-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransactionStore persists transactions, their items and status history
type TransactionStore struct {
	db *gorm.DB
}

// NewTransactionStore creates a new transaction store
func NewTransactionStore(db *gorm.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// TransactionFilter selects transactions for listing
type TransactionFilter struct {
	ProviderID      uint
	ProviderKind    models.ProviderKind
	RecipientID     uint
	Status          models.TransactionStatus
	TransactionKind models.TransactionKind
	EquipmentID     uint
	StartFrom       *time.Time
	StartTo         *time.Time
	DueFrom         *time.Time
	DueTo           *time.Time

	Offset int
	Limit  int
}

// TransactionUpdate is a conditional write of a transaction's mutable state.
// Items replace the stored items when non-nil. History is appended when non-nil.
type TransactionUpdate struct {
	Transaction    *models.Transaction
	ExpectedStatus models.TransactionStatus
	Items          []models.TransactionItem
	History        *models.TransactionStatusHistory
}

// Create inserts a transaction with its items and initial history entry in one database transaction
func (s *TransactionStore) Create(ctx context.Context, txn *models.Transaction, history *models.TransactionStatusHistory) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(txn).Error; err != nil {
			return fmt.Errorf("inserting transaction: %w", err)
		}

		if err := insertItems(tx, txn.ID, txn.Items); err != nil {
			return err
		}

		if history != nil {
			if err := tx.Create(history).Error; err != nil {
				return fmt.Errorf("inserting status history: %w", err)
			}
		}
		return nil
	})
}

func insertItems(tx *gorm.DB, transactionID string, items []models.TransactionItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.TransactionItem, len(items))
	for i, item := range items {
		item.ID = 0
		item.TransactionID = transactionID
		item.Position = i
		item.Equipment = nil
		rows[i] = item
	}
	if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		return fmt.Errorf("inserting transaction items: %w", err)
	}
	return nil
}

// Get returns a transaction with items, equipment and recipient loaded
func (s *TransactionStore) Get(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	err := withAssociations(s.db.WithContext(ctx)).Where("id = ?", id).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return &txn, nil
}

func withAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Items.Equipment", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		Preload("Recipient", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		})
}

// ApplyUpdate writes the mutable fields of a transaction only if its stored status
// still equals the expected status. Items and history are written in the same
// database transaction. Returns ErrStatusConflict when the status moved, ErrNotFound
// when the transaction does not exist.
func (s *TransactionStore) ApplyUpdate(ctx context.Context, upd TransactionUpdate) error {
	t := upd.Transaction
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", t.ID, upd.ExpectedStatus).
			Updates(map[string]interface{}{
				"status":                 t.Status,
				"rental_start_date":      t.RentalStartDate,
				"rental_return_due_date": t.RentalReturnDueDate,
				"rental_returned_date":   t.RentalReturnedDate,
				"approved_by":            t.ApprovedBy,
				"approved_at":            t.ApprovedAt,
				"notes":                  t.Notes,
				"terms":                  t.Terms,
				"updated_at":             t.UpdatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("updating transaction: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Transaction{}).Where("id = ?", t.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("checking transaction: %w", err)
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrStatusConflict
		}

		if upd.Items != nil {
			if err := tx.Where("transaction_id = ?", t.ID).Delete(&models.TransactionItem{}).Error; err != nil {
				return fmt.Errorf("removing transaction items: %w", err)
			}
			if err := insertItems(tx, t.ID, upd.Items); err != nil {
				return err
			}
		}

		if upd.History != nil {
			if err := tx.Create(upd.History).Error; err != nil {
				return fmt.Errorf("inserting status history: %w", err)
			}
		}
		return nil
	})
}

// DeleteIfStatus removes a transaction, its items and history only if its status
// equals the given status. Returns ErrStatusConflict when it does not.
func (s *TransactionStore) DeleteIfStatus(ctx context.Context, id string, status models.TransactionStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND status = ?", id, status).Delete(&models.Transaction{})
		if result.Error != nil {
			return fmt.Errorf("deleting transaction: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Transaction{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("checking transaction: %w", err)
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrStatusConflict
		}

		if err := tx.Where("transaction_id = ?", id).Delete(&models.TransactionItem{}).Error; err != nil {
			return fmt.Errorf("deleting transaction items: %w", err)
		}
		if err := tx.Where("transaction_id = ?", id).Delete(&models.TransactionStatusHistory{}).Error; err != nil {
			return fmt.Errorf("deleting status history: %w", err)
		}
		return nil
	})
}

// List returns one page of transactions matching the filter, newest first, and the total match count
func (s *TransactionStore) List(ctx context.Context, f TransactionFilter) ([]models.Transaction, int64, error) {
	base := applyFilter(s.db.WithContext(ctx).Model(&models.Transaction{}), s.db, f)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting transactions: %w", err)
	}

	var txns []models.Transaction
	query := withAssociations(base.Session(&gorm.Session{})).
		Order("created_at DESC").
		Order("id DESC").
		Offset(f.Offset)
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if err := query.Find(&txns).Error; err != nil {
		return nil, 0, fmt.Errorf("listing transactions: %w", err)
	}
	return txns, total, nil
}

func applyFilter(q *gorm.DB, root *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.ProviderID > 0 {
		q = q.Where("provider_id = ?", f.ProviderID)
	}
	if f.ProviderKind != "" {
		q = q.Where("provider_kind = ?", f.ProviderKind)
	}
	if f.RecipientID > 0 {
		q = q.Where("recipient_id = ?", f.RecipientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TransactionKind != "" {
		q = q.Where("transaction_kind = ?", f.TransactionKind)
	}
	if f.EquipmentID > 0 {
		q = q.Where("id IN (?)", root.Model(&models.TransactionItem{}).
			Select("transaction_id").
			Where("equipment_id = ?", f.EquipmentID))
	}
	if f.StartFrom != nil {
		q = q.Where("rental_start_date >= ?", *f.StartFrom)
	}
	if f.StartTo != nil {
		q = q.Where("rental_start_date <= ?", *f.StartTo)
	}
	if f.DueFrom != nil {
		q = q.Where("rental_return_due_date >= ?", *f.DueFrom)
	}
	if f.DueTo != nil {
		q = q.Where("rental_return_due_date <= ?", *f.DueTo)
	}
	return q
}

// History returns the status history of a transaction, oldest first
func (s *TransactionStore) History(ctx context.Context, id string) ([]models.TransactionStatusHistory, error) {
	var entries []models.TransactionStatusHistory
	err := s.db.WithContext(ctx).
		Where("transaction_id = ?", id).
		Order("changed_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("getting status history: %w", err)
	}
	return entries, nil
}
