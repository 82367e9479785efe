package models

import (
	"encoding/json"
	"time"
)

// BackupFormatVersion is written into every backup document.
const BackupFormatVersion = "1.0"

// BackupDocument is the JSON envelope produced by export and accepted by import.
type BackupDocument struct {
	Version    string                     `json:"version"`
	ExportedAt time.Time                  `json:"exported_at"`
	Data       map[string]json.RawMessage `json:"data"`
}

// BackupFile describes a stored scheduled backup.
type BackupFile struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RestoreSummary reports rows restored per table.
type RestoreSummary struct {
	Version string         `json:"version"`
	Tables  map[string]int `json:"tables"`
}
