package models

// AuditAction names an audited user operation.
type AuditAction string

const (
	AuditRegister           AuditAction = "REGISTER"
	AuditLogin              AuditAction = "LOGIN"
	AuditDeleteAccount      AuditAction = "DELETE_ACCOUNT"
	AuditCreateCategory     AuditAction = "CREATE_CATEGORY"
	AuditUpdateCategory     AuditAction = "UPDATE_CATEGORY"
	AuditDeleteCategory     AuditAction = "DELETE_CATEGORY"
	AuditCreateTransaction  AuditAction = "CREATE_TRANSACTION"
	AuditUpdateTransaction  AuditAction = "UPDATE_TRANSACTION"
	AuditDeleteTransaction  AuditAction = "DELETE_TRANSACTION"
	AuditImportTransactions AuditAction = "IMPORT_TRANSACTIONS"
)

// Valid reports whether a is one of the known actions.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditRegister, AuditLogin, AuditDeleteAccount,
		AuditCreateCategory, AuditUpdateCategory, AuditDeleteCategory,
		AuditCreateTransaction, AuditUpdateTransaction, AuditDeleteTransaction,
		AuditImportTransactions:
		return true
	}
	return false
}

// Audited resource types.
const (
	ResourceUser        = "user"
	ResourceCategory    = "category"
	ResourceTransaction = "transaction"
)

// AuditLog is an append-only record of one user operation. Changes holds a
// JSON object with the operation's notable fields.
type AuditLog struct {
	Base
	UserID       string      `gorm:"type:uuid;not null;index" json:"user_id"`
	Action       AuditAction `gorm:"not null" json:"action"`
	ResourceType string      `gorm:"not null" json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	IPAddress    string      `json:"-"`
	Changes      string      `json:"changes,omitempty"`
}
