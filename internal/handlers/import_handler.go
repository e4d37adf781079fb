package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "smartspend/internal/errors"
	"smartspend/internal/ingest"
	"smartspend/internal/models"
	"smartspend/internal/services"
)

const (
	// csvFormField is the multipart field carrying the upload.
	csvFormField = "csvFile"
	// multipartOverhead is the allowance for multipart framing on top of the file limit.
	multipartOverhead = 64 * 1024
)

// ImportHandler handles CSV uploads.
type ImportHandler struct {
	importService services.ImportServicer
	auditService  services.AuditServicer
	maxBytes      int64
}

// NewImportHandler creates a new ImportHandler accepting files up to maxBytes.
func NewImportHandler(importService services.ImportServicer, auditService services.AuditServicer, maxBytes int64) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = ingest.DefaultMaxBytes
	}
	return &ImportHandler{importService: importService, auditService: auditService, maxBytes: maxBytes}
}

// ImportRowError is a row that validated but could not be saved. Row is its
// 1-based position among the valid rows.
type ImportRowError struct {
	Row         int    `json:"row"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

// ImportResponse summarizes one CSV upload.
type ImportResponse struct {
	Message             string                       `json:"message"`
	Imported            int                          `json:"imported"`
	Failed              int                          `json:"failed"`
	TotalRows           int                          `json:"total_rows"`
	SkippedRows         []ingest.Rejection           `json:"skipped_rows"`
	StorageLocation     string                       `json:"storage_location,omitempty"`
	Errors              []ImportRowError             `json:"errors"`
	UnmatchedCategories []services.UnmatchedCategory `json:"unmatched_categories"`
}

func newImportResponse(outcome *services.ImportOutcome) ImportResponse {
	resp := ImportResponse{
		Message:             fmt.Sprintf("Imported %d of %d transactions", outcome.SuccessCount, outcome.TotalRowsParsed),
		Imported:            outcome.SuccessCount,
		Failed:              len(outcome.Failures),
		TotalRows:           outcome.TotalRowsParsed,
		SkippedRows:         outcome.Rejections,
		StorageLocation:     outcome.StorageLocation,
		Errors:              make([]ImportRowError, 0, len(outcome.Failures)),
		UnmatchedCategories: outcome.UnmatchedCategories,
	}
	for _, f := range outcome.Failures {
		resp.Errors = append(resp.Errors, ImportRowError{Row: f.Row, Description: f.Draft.Description, Reason: f.Reason})
	}
	if resp.SkippedRows == nil {
		resp.SkippedRows = []ingest.Rejection{}
	}
	if resp.UnmatchedCategories == nil {
		resp.UnmatchedCategories = []services.UnmatchedCategory{}
	}
	return resp
}

// ImportCSV handles bulk import from a CSV file
// @Summary     Import transactions from CSV
// @Description Upload a CSV with description, amount, type and date columns (notes and category optional).
// @Description Invalid rows are skipped; rows that fail to save are reported individually.
// @Tags        transactions
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       csvFile formData file true "CSV file"
// @Success     200 {object} ImportResponse "Import summary"
// @Failure     400 {object} ErrorResponse "Missing file, wrong type, malformed CSV or no valid rows"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     413 {object} ErrorResponse "File too large"
// @Failure     429 {object} ErrorResponse "Too many uploads"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/import [post]
func (h *ImportHandler) ImportCSV(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	fileHeader, err := c.FormFile(csvFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondWithError(c, apperrors.ErrFileTooLarge)
			return
		}
		respondWithError(c, apperrors.ErrMissingFile)
		return
	}

	if !isCSVUpload(fileHeader) {
		respondWithError(c, apperrors.ErrInvalidFileType)
		return
	}
	if fileHeader.Size > h.maxBytes {
		respondWithError(c, apperrors.ErrFileTooLarge)
		return
	}

	data, err := readUpload(fileHeader, h.maxBytes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	outcome, err := h.importService.ImportCSV(c.Request.Context(), userID, fileHeader.Filename, data)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, services.AuditEntry{
		UserID:   userID,
		Action:   models.AuditImportTransactions,
		Resource: models.ResourceTransaction,
		Changes: map[string]interface{}{
			"filename": fileHeader.Filename,
			"imported": outcome.SuccessCount,
			"failed":   len(outcome.Failures),
			"skipped":  len(outcome.Rejections),
		},
	})

	c.JSON(http.StatusOK, newImportResponse(outcome))
}

func isCSVUpload(fh *multipart.FileHeader) bool {
	if strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	return err == nil && mediaType == "text/csv"
}

func readUpload(fh *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, apperrors.ErrFileTooLarge
	}
	return data, nil
}
