package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "smartspend/internal/errors"
	"smartspend/internal/ingest"
	"smartspend/internal/models"
	"smartspend/internal/services"
)

type mockImportService struct {
	importBatchFn func(ctx context.Context, userID string, drafts []ingest.Draft) (*services.ImportOutcome, error)
	importCSVFn   func(ctx context.Context, userID, filename string, data []byte) (*services.ImportOutcome, error)
}

func (m *mockImportService) ImportBatch(ctx context.Context, userID string, drafts []ingest.Draft) (*services.ImportOutcome, error) {
	if m.importBatchFn != nil {
		return m.importBatchFn(ctx, userID, drafts)
	}
	return &services.ImportOutcome{}, nil
}

func (m *mockImportService) ImportCSV(ctx context.Context, userID, filename string, data []byte) (*services.ImportOutcome, error) {
	if m.importCSVFn != nil {
		return m.importCSVFn(ctx, userID, filename, data)
	}
	return &services.ImportOutcome{}, nil
}

var _ services.ImportServicer = (*mockImportService)(nil)

func setupImportRouter(handler *ImportHandler) *gin.Engine {
	r := gin.New()
	r.POST("/transactions/import", injectUserID(testUserID), handler.ImportCSV)
	return r
}

// uploadRequest builds a multipart request with one file part.
func uploadRequest(t *testing.T, field, filename, contentType, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/transactions/import", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

const handlerCSV = "description,amount,type,date\nGrocery,120.50,expense,2025-03-15\n"

func TestImportHandler_ImportCSV(t *testing.T) {
	t.Run("returns summary on success", func(t *testing.T) {
		var gotName string
		var gotData []byte
		svc := &mockImportService{
			importCSVFn: func(_ context.Context, userID, filename string, data []byte) (*services.ImportOutcome, error) {
				if userID != testUserID {
					t.Errorf("expected user %s, got %s", testUserID, userID)
				}
				gotName, gotData = filename, data
				suggestion := "Food"
				return &services.ImportOutcome{
					TotalRowsParsed: 3,
					SuccessCount:    2,
					Failures: []services.ImportFailure{{
						Row:    2,
						Draft:  ingest.Draft{Description: "Rent", Amount: decimal.RequireFromString("900"), Kind: models.TransactionTypeExpense},
						Reason: "failed to save transaction",
					}},
					StorageLocation: "gs://uploads/u/1-march.csv",
					Rejections:      []ingest.Rejection{{Line: 4, Reason: ingest.InvalidAmount, Detail: `amount "x" is not a number`}},
					UnmatchedCategories: []services.UnmatchedCategory{
						{Label: "food", Kind: models.TransactionTypeExpense, Rows: 1, Suggestion: &suggestion},
					},
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupImportRouter(NewImportHandler(svc, audit, 1024))

		rec := serve(r, uploadRequest(t, "csvFile", "march.csv", "text/csv", handlerCSV))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotName != "march.csv" || string(gotData) != handlerCSV {
			t.Errorf("unexpected upload passed to service: %q %q", gotName, gotData)
		}

		result := parseJSON(t, rec)
		if result["imported"] != float64(2) || result["failed"] != float64(1) || result["total_rows"] != float64(3) {
			t.Errorf("unexpected counts: %v", result)
		}
		if result["message"] != "Imported 2 of 3 transactions" {
			t.Errorf("unexpected message %v", result["message"])
		}
		if result["storage_location"] != "gs://uploads/u/1-march.csv" {
			t.Errorf("unexpected storage location %v", result["storage_location"])
		}
		errs := result["errors"].([]interface{})
		if len(errs) != 1 {
			t.Fatalf("expected 1 row error, got %d", len(errs))
		}
		rowErr := errs[0].(map[string]interface{})
		if rowErr["row"] != float64(2) || rowErr["description"] != "Rent" || rowErr["reason"] != "failed to save transaction" {
			t.Errorf("unexpected row error %v", rowErr)
		}
		skipped := result["skipped_rows"].([]interface{})
		if len(skipped) != 1 || skipped[0].(map[string]interface{})["reason"] != "invalid_amount" {
			t.Errorf("unexpected skipped rows %v", skipped)
		}
		unmatched := result["unmatched_categories"].([]interface{})
		if len(unmatched) != 1 || unmatched[0].(map[string]interface{})["suggestion"] != "Food" {
			t.Errorf("unexpected unmatched categories %v", unmatched)
		}

		if len(audit.entries) != 1 || audit.entries[0].Action != models.AuditImportTransactions {
			t.Fatalf("expected IMPORT_TRANSACTIONS audit entry, got %v", audit.actions())
		}
		if audit.entries[0].Changes["imported"] != 2 {
			t.Errorf("expected audited import count, got %v", audit.entries[0].Changes)
		}
		if audit.entries[0].IPAddress == "" {
			t.Error("expected client IP on audit entry")
		}
	})

	t.Run("accepts text/csv without extension", func(t *testing.T) {
		r := setupImportRouter(NewImportHandler(&mockImportService{}, &mockAuditService{}, 1024))

		rec := serve(r, uploadRequest(t, "csvFile", "export", "text/csv; charset=utf-8", handlerCSV))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if errs, ok := result["errors"].([]interface{}); !ok || len(errs) != 0 {
			t.Errorf("expected empty errors list, got %v", result["errors"])
		}
	})

	t.Run("returns 400 when file is missing", func(t *testing.T) {
		r := setupImportRouter(NewImportHandler(&mockImportService{}, &mockAuditService{}, 1024))

		rec := serve(r, uploadRequest(t, "other", "march.csv", "text/csv", handlerCSV))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "MISSING_FILE")
	})

	t.Run("returns 400 on wrong file type", func(t *testing.T) {
		r := setupImportRouter(NewImportHandler(&mockImportService{}, &mockAuditService{}, 1024))

		rec := serve(r, uploadRequest(t, "csvFile", "report.pdf", "application/pdf", handlerCSV))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_FILE_TYPE")
	})

	t.Run("returns 413 on oversized file", func(t *testing.T) {
		called := false
		svc := &mockImportService{
			importCSVFn: func(context.Context, string, string, []byte) (*services.ImportOutcome, error) {
				called = true
				return &services.ImportOutcome{}, nil
			},
		}
		r := setupImportRouter(NewImportHandler(svc, &mockAuditService{}, 16))

		rec := serve(r, uploadRequest(t, "csvFile", "big.csv", "text/csv", strings.Repeat("a", 64)))

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "FILE_TOO_LARGE")
		if called {
			t.Error("service must not see oversized uploads")
		}
	})

	t.Run("returns 400 when no rows are valid", func(t *testing.T) {
		svc := &mockImportService{
			importCSVFn: func(context.Context, string, string, []byte) (*services.ImportOutcome, error) {
				return nil, apperrors.ErrNoValidRows
			},
		}
		audit := &mockAuditService{}
		r := setupImportRouter(NewImportHandler(svc, audit, 1024))

		rec := serve(r, uploadRequest(t, "csvFile", "bad.csv", "text/csv", handlerCSV))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "NO_VALID_ROWS")
		if msg := result["error"].(map[string]interface{})["message"]; msg != "No valid transactions found in CSV" {
			t.Errorf("unexpected message %v", msg)
		}
		if len(audit.entries) != 0 {
			t.Error("failed imports must not be audited")
		}
	})

	t.Run("returns 400 on malformed csv", func(t *testing.T) {
		svc := &mockImportService{
			importCSVFn: func(context.Context, string, string, []byte) (*services.ImportOutcome, error) {
				return nil, apperrors.ErrMalformedCSV
			},
		}
		r := setupImportRouter(NewImportHandler(svc, &mockAuditService{}, 1024))

		rec := serve(r, uploadRequest(t, "csvFile", "bad.csv", "text/csv", "\"unterminated"))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "MALFORMED_CSV")
	})
}
