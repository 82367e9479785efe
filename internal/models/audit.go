package models

import (
	"encoding/json"
	"time"
)

const (
	AuditActionLogin          = "LOGIN"
	AuditActionCreate         = "CREATE"
	AuditActionUpdate         = "UPDATE"
	AuditActionDelete         = "DELETE"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionBackupImport   = "BACKUP_IMPORT"
	AuditActionBackupExport   = "BACKUP_EXPORT"
	AuditActionSettingsUpdate = "SETTINGS_UPDATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	UserID     *string         `db:"user_id" json:"user_id,omitempty"`
	UserName   *string         `db:"user_name" json:"user_name,omitempty"`
	Action     string          `db:"action" json:"action"`
	Resource   string          `db:"resource" json:"resource"`
	ResourceID *string         `db:"resource_id" json:"resource_id,omitempty"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	IPAddress  string          `db:"ip_address" json:"ip_address"`
	UserAgent  string          `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// AuditFilter narrows the audit log viewer.
type AuditFilter struct {
	UserID   string
	Resource string
	Action   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
