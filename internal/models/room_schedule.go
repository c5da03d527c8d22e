package models

import (
	"strconv"
	"strings"
)

// ScheduleRecord is one accepted timetable row.
type ScheduleRecord struct {
	Line           int      `json:"line"`
	Student        string   `json:"student"`
	Rooms          []string `json:"rooms"`
	Transport      string   `json:"transport"`
	Specialization string   `json:"specialization"`
}

// StudentAttendance places a student in a room for one hour slot.
type StudentAttendance struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Transport      string `json:"transport"`
}

// RoomSchedule aggregates attendance and tallies for one physical room.
type RoomSchedule struct {
	Name                string                         `json:"name"`
	Label               string                         `json:"label,omitempty"`
	StudentsByHour      map[string][]StudentAttendance `json:"students_by_hour"`
	TransportStats      map[string]int                 `json:"transport_stats"`
	SpecializationStats map[string]int                 `json:"specialization_stats"`
	Capacity            int                            `json:"capacity"`
}

// HourAttendance is a StudentAttendance with its hour label attached.
type HourAttendance struct {
	Hour string `json:"hour"`
	StudentAttendance
}

// FilterCriteria narrows the rooms and students shown. Empty fields match everything.
type FilterCriteria struct {
	Time           string `json:"time" form:"time" mapstructure:"time" validate:"omitempty,hourlabel"`
	Specialization string `json:"specialization" form:"specialization" mapstructure:"specialization" validate:"omitempty,max=128"`
	Transport      string `json:"transport" form:"transport" mapstructure:"transport" validate:"omitempty,max=128"`
}

// AllOption is the dropdown entry meaning "no filter".
const AllOption = "All"

// Normalize trims the fields and folds the "All" option into the empty wildcard.
func (f FilterCriteria) Normalize() FilterCriteria {
	norm := func(v string) string {
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, AllOption) {
			return ""
		}
		return v
	}
	return FilterCriteria{
		Time:           norm(f.Time),
		Specialization: norm(f.Specialization),
		Transport:      norm(f.Transport),
	}
}

// IsEmpty reports whether no criterion is active.
func (f FilterCriteria) IsEmpty() bool {
	return f.Time == "" && f.Specialization == "" && f.Transport == ""
}

// Key is a stable string form used for cache keys. Each part is quoted so values containing the
// separator cannot collide.
func (f FilterCriteria) Key() string {
	return strconv.Quote(f.Time) + "|" + strconv.Quote(f.Specialization) + "|" + strconv.Quote(f.Transport)
}

// HourCount is the number of students in a room for one hour.
type HourCount struct {
	Hour     string `json:"hour"`
	Students int    `json:"students"`
}

// RoomSummary is the info-panel view of a room.
type RoomSummary struct {
	Room          string      `json:"room"`
	Label         string      `json:"label,omitempty"`
	Hours         []HourCount `json:"hours"`
	TotalStudents int         `json:"total_students"`
	Capacity      int         `json:"capacity"`
	Text          string      `json:"text"`
}

// FilterOptions lists the values the presentation layer offers in its dropdowns.
type FilterOptions struct {
	Hours           []string `json:"hours"`
	Specializations []string `json:"specializations"`
	Transports      []string `json:"transports"`
}

// RoomCatalogEntry carries optional per-room metadata from the room catalog.
type RoomCatalogEntry struct {
	Name     string `yaml:"name" json:"name"`
	Label    string `yaml:"label" json:"label,omitempty"`
	Capacity int    `yaml:"capacity" json:"capacity"`
}
