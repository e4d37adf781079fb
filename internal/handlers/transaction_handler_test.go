package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "smartspend/internal/errors"
	"smartspend/internal/models"
	"smartspend/internal/pagination"
	"smartspend/internal/services"
)

const testTransactionID = "0190f4c2-0000-7000-8000-0000000000d1"

// --- mock transaction service ---

type mockTransactionService struct {
	createTransactionFn   func(userID string, categoryID *string, txType models.TransactionType, amount decimal.Decimal, description string, notes *string, date time.Time) (*models.Transaction, error)
	getUserTransactionsFn func(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getTransactionByIDFn  func(userID, transactionID string) (*models.Transaction, error)
	updateTransactionFn   func(userID, transactionID string, update services.TransactionUpdate) (*models.Transaction, error)
	deleteTransactionFn   func(userID, transactionID string) error
}

func (m *mockTransactionService) CreateTransaction(userID string, categoryID *string, txType models.TransactionType, amount decimal.Decimal, description string, notes *string, date time.Time) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(userID, categoryID, txType, amount, description, notes, date)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getUserTransactionsFn != nil {
		return m.getUserTransactionsFn(userID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(userID, transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) UpdateTransaction(userID, transactionID string, update services.TransactionUpdate) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(userID, transactionID, update)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(userID, transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(userID, transactionID)
	}
	return nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/transactions", handler.CreateTransaction)
	auth.GET("/transactions", handler.GetUserTransactions)
	auth.GET("/transactions/:id", handler.GetTransactionByID)
	auth.PUT("/transactions/:id", handler.UpdateTransaction)
	auth.DELETE("/transactions/:id", handler.DeleteTransaction)
	return r
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var (
			gotAmount decimal.Decimal
			gotDate   time.Time
			gotCat    *string
			gotNotes  *string
		)
		txSvc := &mockTransactionService{
			createTransactionFn: func(userID string, categoryID *string, txType models.TransactionType, amount decimal.Decimal, description string, notes *string, date time.Time) (*models.Transaction, error) {
				gotAmount, gotDate, gotCat, gotNotes = amount, date, categoryID, notes
				return &models.Transaction{
					Base:        models.Base{ID: testTransactionID},
					UserID:      userID,
					CategoryID:  categoryID,
					Type:        txType,
					Amount:      amount,
					Description: description,
					Date:        date,
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, audit))

		rec := doRequest(r, "POST", "/transactions",
			`{"category_id":"`+testCategoryID+`","type":"expense","amount":"120.50","description":"Grocery","notes":"weekly","date":"2025-03-15"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !gotAmount.Equal(decimal.RequireFromString("120.50")) {
			t.Errorf("expected amount 120.50, got %s", gotAmount)
		}
		if want := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC); !gotDate.Equal(want) {
			t.Errorf("expected date %s, got %s", want, gotDate)
		}
		if gotCat == nil || *gotCat != testCategoryID {
			t.Errorf("expected category %s, got %v", testCategoryID, gotCat)
		}
		if gotNotes == nil || *gotNotes != "weekly" {
			t.Errorf("expected notes, got %v", gotNotes)
		}
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if tx["amount"] != "120.5" {
			t.Errorf("expected amount encoded as string 120.5, got %v", tx["amount"])
		}
		if got := audit.actions(); len(got) != 1 || got[0] != "CREATE_TRANSACTION" {
			t.Errorf("expected CREATE_TRANSACTION audit entry, got %v", got)
		}
	})

	t.Run("accepts numeric amount and defaults date", func(t *testing.T) {
		var gotDate time.Time
		txSvc := &mockTransactionService{
			createTransactionFn: func(_ string, _ *string, _ models.TransactionType, _ decimal.Decimal, _ string, _ *string, date time.Time) (*models.Transaction, error) {
				gotDate = date
				return &models.Transaction{Base: models.Base{ID: testTransactionID}}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		before := time.Now().Add(-time.Second)
		rec := doRequest(r, "POST", "/transactions", `{"type":"income","amount":3000,"description":"Salary"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotDate.Before(before) {
			t.Errorf("expected date to default to now, got %s", gotDate)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing type", `{"amount":"10","description":"x"}`},
		{"invalid type", `{"type":"transfer","amount":"10","description":"x"}`},
		{"missing description", `{"type":"expense","amount":"10"}`},
		{"malformed category id", `{"type":"expense","amount":"10","description":"x","category_id":"7"}`},
		{"malformed amount", `{"type":"expense","amount":"ten","description":"x"}`},
		{"malformed date", `{"type":"expense","amount":"10","description":"x","date":"15/03/2025"}`},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

			rec := doRequest(r, "POST", "/transactions", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}

	t.Run("maps service validation errors", func(t *testing.T) {
		txSvc := &mockTransactionService{
			createTransactionFn: func(_ string, _ *string, _ models.TransactionType, _ decimal.Decimal, _ string, _ *string, _ time.Time) (*models.Transaction, error) {
				return nil, apperrors.ErrInvalidAmount
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/transactions", `{"type":"expense","amount":"0","description":"x"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_AMOUNT")
	})
}

func TestTransactionHandler_GetUserTransactions(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		var got services.TransactionFilter
		txSvc := &mockTransactionService{
			getUserTransactionsFn: func(_ string, _ pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
				got = filter
				resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions?from_date=2025-03-01&to_date=2025-03-31T23:59:59Z&type=expense&category_id="+testCategoryID+"&min_amount=10.5&max_amount=200", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.FromDate == nil || got.ToDate == nil {
			t.Fatal("expected date range")
		}
		if got.Type == nil || *got.Type != models.TransactionTypeExpense {
			t.Errorf("expected expense filter, got %v", got.Type)
		}
		if got.CategoryID == nil || *got.CategoryID != testCategoryID {
			t.Errorf("expected category filter, got %v", got.CategoryID)
		}
		if got.MinAmount == nil || got.MinAmount.String() != "10.5" {
			t.Errorf("expected min 10.5, got %v", got.MinAmount)
		}
		if got.MaxAmount == nil || got.MaxAmount.String() != "200" {
			t.Errorf("expected max 200, got %v", got.MaxAmount)
		}
	})

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"bad type", "type=transfer", "INVALID_TRANSACTION_TYPE"},
		{"bad date", "from_date=yesterday", "INVALID_INPUT"},
		{"bad category", "category_id=12", "INVALID_INPUT"},
		{"bad amount", "min_amount=abc", "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

			rec := doRequest(r, "GET", "/transactions?"+tt.query, "")

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), tt.code)
		})
	}
}

func TestTransactionHandler_GetTransactionByID(t *testing.T) {
	t.Run("returns 404 when missing", func(t *testing.T) {
		txSvc := &mockTransactionService{
			getTransactionByIDFn: func(_, _ string) (*models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})

	t.Run("returns 400 on malformed id", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/transactions/abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	t.Run("builds partial update", func(t *testing.T) {
		var got services.TransactionUpdate
		txSvc := &mockTransactionService{
			updateTransactionFn: func(_, transactionID string, update services.TransactionUpdate) (*models.Transaction, error) {
				got = update
				return &models.Transaction{Base: models.Base{ID: transactionID}}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, audit))

		rec := doRequest(r, "PUT", "/transactions/"+testTransactionID, `{"amount":"99.99","date":"2025-04-01"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Amount == nil || !got.Amount.Equal(decimal.RequireFromString("99.99")) {
			t.Errorf("expected amount 99.99, got %v", got.Amount)
		}
		if got.Date == nil {
			t.Error("expected date to be set")
		}
		if got.Type != nil || got.Description != nil || got.CategoryID != nil || got.ClearCategory {
			t.Errorf("unexpected fields in update: %+v", got)
		}
		if got := audit.actions(); len(got) != 1 || got[0] != "UPDATE_TRANSACTION" {
			t.Errorf("expected UPDATE_TRANSACTION audit entry, got %v", got)
		}
	})

	t.Run("empty category clears it", func(t *testing.T) {
		var got services.TransactionUpdate
		txSvc := &mockTransactionService{
			updateTransactionFn: func(_, _ string, update services.TransactionUpdate) (*models.Transaction, error) {
				got = update
				return &models.Transaction{}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/transactions/"+testTransactionID, `{"category_id":""}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !got.ClearCategory || got.CategoryID != nil {
			t.Errorf("expected ClearCategory, got %+v", got)
		}
	})

	t.Run("returns 400 on category type mismatch", func(t *testing.T) {
		txSvc := &mockTransactionService{
			updateTransactionFn: func(_, _ string, _ services.TransactionUpdate) (*models.Transaction, error) {
				return nil, apperrors.ErrCategoryTypeMismatch
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txSvc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/transactions/"+testTransactionID, `{"category_id":"`+testCategoryID+`"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_TYPE_MISMATCH")
	})
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, audit))

		rec := doRequest(r, "DELETE", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := audit.actions(); len(got) != 1 || got[0] != "DELETE_TRANSACTION" {
			t.Errorf("expected DELETE_TRANSACTION audit entry, got %v", got)
		}
	})
}
