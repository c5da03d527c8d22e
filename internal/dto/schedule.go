package dto

import (
	"time"

	"github.com/noah-isme/sma-room-schedule/internal/models"
)

// Index states reported by the status endpoint.
const (
	IndexStateUnloaded = "unloaded"
	IndexStateLoaded   = "loaded"
)

// ReloadRequest asks for the index to be rebuilt. An empty Source uses the configured name.
type ReloadRequest struct {
	Source string `json:"source" mapstructure:"source" validate:"omitempty,max=255"`
	Reason string `json:"reason" mapstructure:"reason" validate:"omitempty,max=255"`
}

// ReloadResult describes a completed reload.
type ReloadResult struct {
	Source       string        `json:"source"`
	Provider     string        `json:"provider"`
	Rooms        int           `json:"rooms"`
	RowsIndexed  int           `json:"rows_indexed"`
	RowsSkipped  int           `json:"rows_skipped"`
	Fingerprint  string        `json:"fingerprint"`
	Changed      bool          `json:"changed"`
	Shared       bool          `json:"shared"`
	Duration     time.Duration `json:"-"`
	DurationMs   int64         `json:"duration_ms"`
	LoadedAt     time.Time     `json:"loaded_at"`
	CatalogRooms int           `json:"catalog_rooms"`
}

// ReloadJob acknowledges an asynchronous reload.
type ReloadJob struct {
	JobID      string    `json:"job_id"`
	Source     string    `json:"source"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// IndexStatus reports the lifecycle state of the schedule index.
type IndexStatus struct {
	State       string     `json:"state"`
	Source      string     `json:"source,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	Rooms       int        `json:"rooms"`
	RowsIndexed int        `json:"rows_indexed"`
	RowsSkipped int        `json:"rows_skipped"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	LoadedAt    *time.Time `json:"loaded_at,omitempty"`
}

// RoomVisibility pairs a room with whether the active filters show it.
type RoomVisibility struct {
	Room    string `json:"room"`
	Visible bool   `json:"visible"`
}

// RoomStats carries both tallies of a room.
type RoomStats struct {
	Room            string         `json:"room"`
	Specializations map[string]int `json:"specializations"`
	Transports      map[string]int `json:"transports"`
}

// StudentSchedule lists the hours a student attends.
type StudentSchedule struct {
	Student string   `json:"student"`
	Hours   []string `json:"hours"`
}

// FilteredStudents is the attendance of a room under a set of criteria.
type FilteredStudents struct {
	Room     string                  `json:"room"`
	Criteria models.FilterCriteria   `json:"criteria"`
	Students []models.HourAttendance `json:"students"`
}

// UploadSourceRequest stores a new timetable CSV under a logical name.
type UploadSourceRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
	Reload  bool   `json:"reload"`
}

// UploadSourceResult reports a stored upload and the optional reload that followed it.
type UploadSourceResult struct {
	Source models.ScheduleSource `json:"source"`
	Reload *ReloadResult         `json:"reload,omitempty"`
}

// FilterEvent is a visibility update pushed over the filter stream.
type FilterEvent struct {
	Criteria    models.FilterCriteria `json:"criteria"`
	Visibility  map[string]bool       `json:"visibility"`
	Fingerprint string                `json:"fingerprint"`
	Error       string                `json:"error,omitempty"`
}
