package services

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	apperrors "smartspend/internal/errors"
	"smartspend/internal/logger"
	"smartspend/internal/models"
	"smartspend/internal/pagination"
)

// AuditEntry describes one audited operation before it is stored.
type AuditEntry struct {
	UserID     string
	Action     models.AuditAction
	Resource   string
	ResourceID string
	IPAddress  string
	Changes    map[string]interface{}
}

// auditService stores audit entries and lists a user's activity.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Record stores entry. Failures are logged and never reach the caller, and
// the write outlives a cancelled request.
func (s *auditService) Record(ctx context.Context, entry AuditEntry) {
	log := logger.Get()

	row := &models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.Resource,
		ResourceID:   entry.ResourceID,
		IPAddress:    entry.IPAddress,
	}
	if len(entry.Changes) > 0 {
		data, err := json.Marshal(entry.Changes)
		if err != nil {
			log.Warnw("dropping unencodable audit changes", "action", entry.Action, "error", err)
		} else {
			row.Changes = string(data)
		}
	}

	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(row).Error; err != nil {
		log.Errorw("failed to record audit entry",
			"error", err,
			"user_id", entry.UserID,
			"action", entry.Action,
			"resource_type", entry.Resource,
			"resource_id", entry.ResourceID,
		)
	}
}

// GetUserActivity lists the user's audit entries, newest first, optionally
// restricted to one action.
func (s *auditService) GetUserActivity(ctx context.Context, userID string, action *models.AuditAction, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.AuditLog{}).Where("user_id = ?", userID)
	if action != nil {
		base = base.Where("action = ?", *action)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var entries []models.AuditLog
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC, id DESC").
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, total)
	return &result, nil
}
