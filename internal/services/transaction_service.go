package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "smartspend/internal/errors"
	"smartspend/internal/models"
	"smartspend/internal/pagination"
)

// transactionService handles interactive transaction CRUD.
type transactionService struct {
	db              *gorm.DB
	categoryService CategoryServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, categoryService CategoryServicer) TransactionServicer {
	return &transactionService{
		db:              db,
		categoryService: categoryService,
	}
}

// CreateTransaction records a transaction entered by the user. Unlike CSV
// imports, the amount must be strictly positive.
func (s *transactionService) CreateTransaction(
	userID string,
	categoryID *string,
	transactionType models.TransactionType,
	amount decimal.Decimal,
	description string,
	notes *string,
	date time.Time,
) (*models.Transaction, error) {
	if !transactionType.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if !amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}

	// Default date to now if not provided
	if date.IsZero() {
		date = time.Now()
	}

	if err := s.checkCategory(userID, categoryID, transactionType); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		UserID:      userID,
		CategoryID:  categoryID,
		Type:        transactionType,
		Amount:      amount,
		Description: description,
		Notes:       notes,
		Date:        date,
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// checkCategory verifies that the category, when set, belongs to the user and
// has the same kind as the transaction.
func (s *transactionService) checkCategory(userID string, categoryID *string, transactionType models.TransactionType) error {
	if categoryID == nil {
		return nil
	}
	category, err := s.categoryService.GetCategoryByID(userID, *categoryID)
	if err != nil {
		return err
	}
	if string(category.Type) != string(transactionType) {
		return apperrors.ErrCategoryTypeMismatch
	}
	return nil
}

// GetUserTransactions retrieves a paginated, filtered list of the user's transactions, newest first.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Preload("Category").
		Order("date DESC, created_at DESC, id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Category").
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction applies a partial update with the same rules as creation.
func (s *transactionService) UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	if update.Type != nil {
		if !update.Type.Valid() {
			return nil, apperrors.ErrInvalidTransactionType
		}
		transaction.Type = *update.Type
	}
	if update.Amount != nil {
		if !update.Amount.IsPositive() {
			return nil, apperrors.ErrInvalidAmount
		}
		transaction.Amount = *update.Amount
	}
	if update.Description != nil {
		description := strings.TrimSpace(*update.Description)
		if description == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "description cannot be empty")
		}
		transaction.Description = description
	}
	if update.Notes != nil {
		transaction.Notes = update.Notes
	}
	if update.Date != nil {
		transaction.Date = *update.Date
	}
	switch {
	case update.ClearCategory:
		transaction.CategoryID = nil
	case update.CategoryID != nil:
		categoryID := *update.CategoryID
		transaction.CategoryID = &categoryID
	}
	// The preloaded association would otherwise overwrite category_id on save.
	transaction.Category = nil

	if err := s.checkCategory(userID, transaction.CategoryID, transaction.Type); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"type":        transaction.Type,
		"amount":      transaction.Amount,
		"description": transaction.Description,
		"notes":       transaction.Notes,
		"date":        transaction.Date,
		"category_id": transaction.CategoryID,
	}
	if err := s.db.Model(transaction).Omit(clause.Associations).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetTransactionByID(userID, transactionID)
}

// DeleteTransaction deletes a transaction owned by the user.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
