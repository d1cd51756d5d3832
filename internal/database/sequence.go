package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"donation-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NextSequenceValue increments the named counter and returns its new value
func NextSequenceValue(ctx context.Context, db *gorm.DB, name string) (int64, error) {
	var seq models.Sequence
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Sequence{Name: name}).Error; err != nil {
			return fmt.Errorf("creating sequence %s: %w", name, err)
		}

		if err := tx.Model(&models.Sequence{}).
			Where("name = ?", name).
			UpdateColumn("value", gorm.Expr("value + ?", 1)).Error; err != nil {
			return fmt.Errorf("incrementing sequence %s: %w", name, err)
		}

		return tx.Where("name = ?", name).First(&seq).Error
	})
	if err != nil {
		return 0, err
	}
	return seq.Value, nil
}

// CurrentSequenceValue returns the named counter, 0 when it has never been used
func CurrentSequenceValue(ctx context.Context, db *gorm.DB, name string) (int64, error) {
	var seqs []models.Sequence
	if err := db.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&seqs).Error; err != nil {
		return 0, fmt.Errorf("reading sequence %s: %w", name, err)
	}
	if len(seqs) == 0 {
		return 0, nil
	}
	return seqs[0].Value, nil
}

// RaiseSequenceValue moves the named counter up to floor. A larger value is kept.
func RaiseSequenceValue(ctx context.Context, db *gorm.DB, name string, floor int64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Sequence{Name: name}).Error; err != nil {
			return fmt.Errorf("creating sequence %s: %w", name, err)
		}
		if err := tx.Model(&models.Sequence{}).
			Where("name = ? AND value < ?", name, floor).
			UpdateColumn("value", floor).Error; err != nil {
			return fmt.Errorf("raising sequence %s: %w", name, err)
		}
		return nil
	})
}

// HighestTransactionSequence returns the largest sequence number found in stored
// transaction IDs of the form <prefix>-<year>-<seq>, 0 when there are none
func HighestTransactionSequence(ctx context.Context, db *gorm.DB, prefix string) (int64, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id LIKE ?", prefix+"-%").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("reading transaction ids: %w", err)
	}

	var highest int64
	for _, id := range ids {
		i := strings.LastIndex(id, "-")
		if i < 0 {
			continue
		}
		seq, err := strconv.ParseInt(id[i+1:], 10, 64)
		if err != nil {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}
	return highest, nil
}
