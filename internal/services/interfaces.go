package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"smartspend/internal/ingest"
	"smartspend/internal/models"
	"smartspend/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	DeleteUser(id string) error
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name string, categoryType models.CategoryType, description, icon, color string) (*models.Category, error)
	GetUserCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetUserCategoriesByType(userID string, categoryType models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID, name, description, icon, color string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *string
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
}

// TransactionUpdate carries the fields of a partial transaction update.
// Nil fields are left unchanged; ClearCategory removes the category.
type TransactionUpdate struct {
	CategoryID    *string
	ClearCategory bool
	Type          *models.TransactionType
	Amount        *decimal.Decimal
	Description   *string
	Notes         *string
	Date          *time.Time
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID string, categoryID *string, transactionType models.TransactionType, amount decimal.Decimal, description string, notes *string, date time.Time) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
}

// DashboardSummary contains the aggregate figures shown on the dashboard.
type DashboardSummary struct {
	TotalBalance       decimal.Decimal      `json:"total_balance"`
	TotalIncome        decimal.Decimal      `json:"total_income"`
	TotalExpenses      decimal.Decimal      `json:"total_expenses"`
	RecentTransactions []models.Transaction `json:"recent_transactions"`
}

// DashboardServicer defines the contract for dashboard aggregation.
type DashboardServicer interface {
	Summarize(ctx context.Context, userID string) (*DashboardSummary, error)
}

// ImportFailure is a draft that reached persistence and could not be saved.
// Row is the 1-based position of the draft in the batch.
type ImportFailure struct {
	Row    int
	Draft  ingest.Draft
	Reason string
	Err    error
}

// UnmatchedCategory is a category label that matched none of the user's
// categories of the same kind. Suggestion is the closest existing name, if any.
type UnmatchedCategory struct {
	Label      string                 `json:"label"`
	Kind       models.TransactionType `json:"type"`
	Rows       int                    `json:"rows"`
	Suggestion *string                `json:"suggestion,omitempty"`
}

// ImportOutcome summarizes one import. SuccessCount+len(Failures) always
// equals TotalRowsParsed. Rejections lists rows dropped during ingestion;
// they are not part of TotalRowsParsed.
type ImportOutcome struct {
	TotalRowsParsed     int
	SuccessCount        int
	Failures            []ImportFailure
	StorageLocation     string
	Imported            []models.Transaction
	UnmatchedCategories []UnmatchedCategory
	Rejections          []ingest.Rejection
	RowsRead            int
}

// ImportServicer defines the contract for bulk CSV imports.
type ImportServicer interface {
	ImportBatch(ctx context.Context, userID string, drafts []ingest.Draft) (*ImportOutcome, error)
	ImportCSV(ctx context.Context, userID, filename string, data []byte) (*ImportOutcome, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Record(ctx context.Context, entry AuditEntry)
	GetUserActivity(ctx context.Context, userID string, action *models.AuditAction, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}
