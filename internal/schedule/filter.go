package schedule

import "github.com/noah-isme/sma-room-schedule/internal/models"

// Matches reports whether a room passes the filter. Active criteria are combined with AND and
// each is checked against the room as a whole: the hour bucket must be non-empty, and the
// specialization and transport tallies must be positive. With no active criteria every room
// matches, including one that has no schedule.
func Matches(room *models.RoomSchedule, criteria models.FilterCriteria) bool {
	if criteria.IsEmpty() {
		return true
	}
	if room == nil {
		return false
	}
	if criteria.Time != "" && len(room.StudentsByHour[criteria.Time]) == 0 {
		return false
	}
	if criteria.Specialization != "" && room.SpecializationStats[criteria.Specialization] <= 0 {
		return false
	}
	if criteria.Transport != "" && room.TransportStats[criteria.Transport] <= 0 {
		return false
	}
	return true
}

// MatchesStudent applies the same criteria to a single attendance entry.
func MatchesStudent(hour string, student models.StudentAttendance, criteria models.FilterCriteria) bool {
	return (criteria.Time == "" || criteria.Time == hour) &&
		(criteria.Specialization == "" || criteria.Specialization == student.Specialization) &&
		(criteria.Transport == "" || criteria.Transport == student.Transport)
}
