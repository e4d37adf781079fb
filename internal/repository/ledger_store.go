// Package repository holds the persistence contracts the import pipeline and
// the dashboard read and write through.
package repository

import (
	"context"
	"errors"
	"fmt"

	"smartspend/internal/models"

	"gorm.io/gorm"
)

// ErrStorage wraps every failure reported by the underlying store.
var ErrStorage = errors.New("storage error")

// LedgerStore is the narrow view of the ledger used by imports and the dashboard.
type LedgerStore interface {
	// FindCategoriesByUser returns the user's categories in creation order.
	FindCategoriesByUser(ctx context.Context, userID string) ([]models.Category, error)
	// CreateTransaction persists one transaction as an independent write.
	CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	// FindTransactionsByUser returns every transaction owned by the user.
	FindTransactionsByUser(ctx context.Context, userID string) ([]models.Transaction, error)
}

type gormLedgerStore struct {
	db *gorm.DB
}

// NewLedgerStore creates a LedgerStore backed by gorm.
func NewLedgerStore(db *gorm.DB) LedgerStore {
	return &gormLedgerStore{db: db}
}

func (s *gormLedgerStore) FindCategoriesByUser(ctx context.Context, userID string) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&categories).Error; err != nil {
		return nil, storageError("find categories", err)
	}
	return categories, nil
}

func (s *gormLedgerStore) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		return nil, storageError("create transaction", err)
	}
	return tx, nil
}

func (s *gormLedgerStore) FindTransactionsByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&transactions).Error; err != nil {
		return nil, storageError("find transactions", err)
	}
	return transactions, nil
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
