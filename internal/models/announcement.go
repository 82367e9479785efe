package models

import "time"

// AnnouncementType categorises announcements on the console.
type AnnouncementType string

const (
	AnnouncementTypeInformation AnnouncementType = "information"
	AnnouncementTypeUrgent      AnnouncementType = "urgent"
	AnnouncementTypeEvent       AnnouncementType = "événement"
	AnnouncementTypeOpenSession AnnouncementType = "session ouverte"
)

// Announcement represents a persisted announcement row.
type Announcement struct {
	ID             string           `db:"id" json:"id"`
	Title          string           `db:"title" json:"title"`
	Content        string           `db:"content" json:"content"`
	Type           AnnouncementType `db:"type" json:"type"`
	TargetAudience string           `db:"target_audience" json:"target_audience"`
	PublishDate    time.Time        `db:"publish_date" json:"publish_date"`
	ExpiryDate     *time.Time       `db:"expiry_date" json:"expiry_date,omitempty"`
	Published      bool             `db:"published" json:"published"`
	CreatedBy      *string          `db:"created_by" json:"created_by,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// AnnouncementFilter allows listing announcements.
type AnnouncementFilter struct {
	Type       AnnouncementType
	ActiveOnly bool
	At         time.Time
	Page       int
	PageSize   int
}
