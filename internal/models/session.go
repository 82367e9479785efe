package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SessionStatus tracks whether a session is upcoming, running or over.
type SessionStatus string

const (
	SessionStatusUpcoming SessionStatus = "à venir"
	SessionStatusRunning  SessionStatus = "en cours"
	SessionStatusFinished SessionStatus = "terminée"
)

// ScheduleSlot is a weekly time slot, times formatted HH:MM.
type ScheduleSlot struct {
	Day       string `json:"day" validate:"required,oneof=lundi mardi mercredi jeudi vendredi samedi dimanche"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" validate:"required,datetime=15:04"`
}

// ClockMinutes converts an H:MM or HH:MM time of day to minutes after midnight.
func ClockMinutes(value string) (int, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// Minutes returns the slot bounds in minutes after midnight; ok is false when either is malformed.
func (s ScheduleSlot) Minutes() (start, end int, ok bool) {
	start, okStart := ClockMinutes(s.StartTime)
	end, okEnd := ClockMinutes(s.EndTime)
	return start, end, okStart && okEnd
}

// Normalized returns the slot with zero-padded HH:MM times.
func (s ScheduleSlot) Normalized() ScheduleSlot {
	if start, end, ok := s.Minutes(); ok {
		s.StartTime = fmt.Sprintf("%02d:%02d", start/60, start%60)
		s.EndTime = fmt.Sprintf("%02d:%02d", end/60, end%60)
	}
	return s
}

// Overlaps reports whether two slots share a day and intersect in time.
func (s ScheduleSlot) Overlaps(other ScheduleSlot) bool {
	if s.Day != other.Day {
		return false
	}
	aStart, aEnd, okA := s.Minutes()
	bStart, bEnd, okB := other.Minutes()
	if !okA || !okB {
		return false
	}
	return aStart < bEnd && bStart < aEnd
}

// Schedule is stored as a JSONB array.
type Schedule []ScheduleSlot

// Value implements driver.Valuer.
func (s Schedule) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *Schedule) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = Schedule{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported schedule type %T", src)
	}
	return json.Unmarshal(raw, s)
}

// Session is a scheduled offering of a module.
type Session struct {
	ID        string        `db:"id" json:"id"`
	ModuleID  string        `db:"module_id" json:"module_id"`
	TeacherID *string       `db:"teacher_id" json:"teacher_id,omitempty"`
	Room      string        `db:"room" json:"room"`
	Schedule  Schedule      `db:"schedule" json:"schedule"`
	StartDate time.Time     `db:"start_date" json:"start_date"`
	EndDate   time.Time     `db:"end_date" json:"end_date"`
	Capacity  int           `db:"capacity" json:"capacity"`
	Status    SessionStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// SessionDetail enriches Session with module, formation and teacher labels.
type SessionDetail struct {
	Session
	ModuleTitle    string  `db:"module_title" json:"module_title"`
	FormationID    string  `db:"formation_id" json:"formation_id"`
	FormationTitle string  `db:"formation_title" json:"formation_title"`
	TeacherName    *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// SessionFilter defines list filters for sessions.
type SessionFilter struct {
	ModuleID  string
	TeacherID string
	Room      string
	Statuses  []SessionStatus
	Page      int
	PageSize  int
}

// WeekDays lists schedule day names in display order, Monday first.
var WeekDays = []string{"lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi", "dimanche"}

// DayName returns the schedule day name of t.
func DayName(t time.Time) string {
	return WeekDays[(int(t.Weekday())+6)%7]
}
