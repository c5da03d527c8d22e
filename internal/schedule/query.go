package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/noah-isme/sma-room-schedule/internal/models"
)

// Loaded reports whether x holds a built index.
func (x *Index) Loaded() bool { return x != nil }

// RoomInfo returns a copy of the room's schedule.
func (x *Index) RoomInfo(name string) (models.RoomSchedule, bool) {
	rs := x.lookup(name)
	if rs == nil {
		return models.RoomSchedule{}, false
	}
	return copyRoom(rs), true
}

// StudentSchedule lists the hour labels a student attends. It is never nil.
func (x *Index) StudentSchedule(name string) []string {
	if x == nil {
		return []string{}
	}
	hours := append([]string{}, x.students[strings.TrimSpace(name)]...)
	SortHours(hours)
	return hours
}

// StudentsBySpecialization returns the room's specialization tally. It is never nil.
func (x *Index) StudentsBySpecialization(room string) map[string]int {
	rs := x.lookup(room)
	if rs == nil {
		return map[string]int{}
	}
	return lo.Assign(rs.SpecializationStats)
}

// StudentsByTransport returns the room's transport tally. It is never nil.
func (x *Index) StudentsByTransport(room string) map[string]int {
	rs := x.lookup(room)
	if rs == nil {
		return map[string]int{}
	}
	return lo.Assign(rs.TransportStats)
}

// Rooms lists room names in sorted order.
func (x *Index) Rooms() []string {
	if x == nil {
		return []string{}
	}
	names := lo.Keys(x.rooms)
	sort.Strings(names)
	return names
}

// Matches applies Matches to a room by name. Unknown rooms match only an empty filter.
func (x *Index) Matches(room string, criteria models.FilterCriteria) bool {
	return Matches(x.lookup(room), criteria)
}

// Visibility evaluates the filter for every room.
func (x *Index) Visibility(criteria models.FilterCriteria) map[string]bool {
	visible := make(map[string]bool)
	if x == nil {
		return visible
	}
	for name, rs := range x.rooms {
		visible[name] = Matches(rs, criteria)
	}
	return visible
}

// FilteredStudents lists the room's attendance entries that match criteria, hours in natural
// order and row order within an hour.
func (x *Index) FilteredStudents(room string, criteria models.FilterCriteria) []models.HourAttendance {
	out := []models.HourAttendance{}
	rs := x.lookup(room)
	if rs == nil {
		return out
	}
	hours := lo.Keys(rs.StudentsByHour)
	SortHours(hours)
	for _, hour := range hours {
		for _, s := range rs.StudentsByHour[hour] {
			if MatchesStudent(hour, s, criteria) {
				out = append(out, models.HourAttendance{Hour: hour, StudentAttendance: s})
			}
		}
	}
	return out
}

// Summary renders the info-panel view of a room.
func (x *Index) Summary(room string) (models.RoomSummary, bool) {
	rs := x.lookup(room)
	if rs == nil {
		return models.RoomSummary{}, false
	}

	hours := lo.Keys(rs.StudentsByHour)
	SortHours(hours)
	distinct := make(map[string]struct{})
	summary := models.RoomSummary{
		Room:     rs.Name,
		Label:    rs.Label,
		Hours:    make([]models.HourCount, 0, len(hours)),
		Capacity: rs.Capacity,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Room: %s\n", rs.Name)
	if rs.Label != "" {
		fmt.Fprintf(&b, "%s\n", rs.Label)
	}
	b.WriteString("\nStudents per hour:\n")
	for _, hour := range hours {
		students := rs.StudentsByHour[hour]
		summary.Hours = append(summary.Hours, models.HourCount{Hour: hour, Students: len(students)})
		fmt.Fprintf(&b, "%s: %d students\n", hour, len(students))
		for _, s := range students {
			distinct[s.Name] = struct{}{}
		}
	}
	summary.TotalStudents = len(distinct)
	fmt.Fprintf(&b, "\nTotal students: %d\nCapacity: %d\n", summary.TotalStudents, summary.Capacity)
	summary.Text = b.String()

	return summary, true
}

// Options lists hour labels and the distinct specializations and transports seen in valid rows.
func (x *Index) Options() models.FilterOptions {
	if x == nil {
		return models.FilterOptions{
			Hours:           DefaultLayout().HourLabels(),
			Specializations: []string{},
			Transports:      []string{},
		}
	}
	return models.FilterOptions{
		Hours:           x.layout.HourLabels(),
		Specializations: append([]string{}, x.specializations...),
		Transports:      append([]string{}, x.transports...),
	}
}

// RoomCount is the number of indexed rooms.
func (x *Index) RoomCount() int {
	if x == nil {
		return 0
	}
	return len(x.rooms)
}

// RowsIndexed is the number of accepted data rows.
func (x *Index) RowsIndexed() int {
	if x == nil {
		return 0
	}
	return x.rowsIndexed
}

// RowsSkipped is the number of malformed rows dropped while parsing.
func (x *Index) RowsSkipped() int {
	if x == nil {
		return 0
	}
	return x.rowsSkipped
}

// Fingerprint is the xxhash of the source text, zero for indexes built from records.
func (x *Index) Fingerprint() uint64 {
	if x == nil {
		return 0
	}
	return x.fingerprint
}

func (x *Index) lookup(name string) *models.RoomSchedule {
	if x == nil {
		return nil
	}
	return x.rooms[strings.TrimSpace(name)]
}

func copyRoom(rs *models.RoomSchedule) models.RoomSchedule {
	out := *rs
	out.StudentsByHour = make(map[string][]models.StudentAttendance, len(rs.StudentsByHour))
	for hour, students := range rs.StudentsByHour {
		out.StudentsByHour[hour] = append([]models.StudentAttendance(nil), students...)
	}
	out.TransportStats = lo.Assign(rs.TransportStats)
	out.SpecializationStats = lo.Assign(rs.SpecializationStats)
	return out
}
