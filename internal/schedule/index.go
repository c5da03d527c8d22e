package schedule

import (
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-room-schedule/internal/models"
)

// Options configures index construction.
type Options struct {
	Layout          Layout
	DefaultCapacity int
	// Catalog overrides capacity and label for known rooms.
	Catalog map[string]models.RoomCatalogEntry
	Logger  *zap.Logger
}

func (o Options) withDefaults() Options {
	o.Layout = o.Layout.withDefaults()
	if o.DefaultCapacity <= 0 {
		o.DefaultCapacity = DefaultCapacity
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Index is the room → hour → students lookup built from one timetable. It is immutable once
// built; every accessor returns copies, so an *Index may be shared by concurrent readers.
// A nil *Index is the unloaded state and answers every query with empty defaults.
type Index struct {
	layout          Layout
	rooms           map[string]*models.RoomSchedule
	students        map[string][]string
	specializations []string
	transports      []string
	rowsIndexed     int
	rowsSkipped     int
	fingerprint     uint64
}

// Load parses text and builds an index from it.
func Load(text string, opts Options) *Index {
	opts = opts.withDefaults()
	parsed := NewParser(opts.Layout, opts.Logger).Parse(text)

	idx := Build(parsed.Records, opts)
	idx.rowsSkipped = len(parsed.Skipped)
	idx.fingerprint = xxhash.Sum64String(text)

	opts.Logger.Info("schedule index built",
		zap.Int("rooms", len(idx.rooms)),
		zap.Int("rows_indexed", idx.rowsIndexed),
		zap.Int("rows_skipped", idx.rowsSkipped),
		zap.Uint64("fingerprint", idx.fingerprint),
	)
	return idx
}

// Build indexes already parsed records. Records are applied in order, so each hour bucket keeps
// the row order of the source.
func Build(records []models.ScheduleRecord, opts Options) *Index {
	opts = opts.withDefaults()
	idx := &Index{
		layout:   opts.Layout,
		rooms:    make(map[string]*models.RoomSchedule),
		students: make(map[string][]string),
	}

	specializations := make(map[string]struct{})
	transports := make(map[string]struct{})

	for _, rec := range records {
		idx.rowsIndexed++
		if rec.Specialization != "" {
			specializations[rec.Specialization] = struct{}{}
		}
		if rec.Transport != "" {
			transports[rec.Transport] = struct{}{}
		}

		for slot, room := range rec.Rooms {
			if room == "" || slot >= opts.Layout.Slots {
				continue
			}
			hour := opts.Layout.HourLabel(slot)
			rs := idx.room(room, opts)
			rs.StudentsByHour[hour] = append(rs.StudentsByHour[hour], models.StudentAttendance{
				Name:           rec.Student,
				Specialization: rec.Specialization,
				Transport:      rec.Transport,
			})
			tally(rs.TransportStats, rec.Transport)
			tally(rs.SpecializationStats, rec.Specialization)

			if rec.Student != "" && !lo.Contains(idx.students[rec.Student], hour) {
				idx.students[rec.Student] = append(idx.students[rec.Student], hour)
			}
		}
	}

	idx.specializations = sortedKeys(specializations)
	idx.transports = sortedKeys(transports)
	return idx
}

func (x *Index) room(name string, opts Options) *models.RoomSchedule {
	if rs, ok := x.rooms[name]; ok {
		return rs
	}
	rs := &models.RoomSchedule{
		Name:                name,
		StudentsByHour:      make(map[string][]models.StudentAttendance),
		TransportStats:      make(map[string]int),
		SpecializationStats: make(map[string]int),
		Capacity:            opts.DefaultCapacity,
	}
	if entry, ok := opts.Catalog[name]; ok {
		rs.Label = entry.Label
		if entry.Capacity > 0 {
			rs.Capacity = entry.Capacity
		}
	}
	x.rooms[name] = rs
	return rs
}

func tally(stats map[string]int, key string) {
	if key == "" {
		return
	}
	stats[key]++
}

func sortedKeys(set map[string]struct{}) []string {
	keys := lo.Keys(set)
	sort.Strings(keys)
	return keys
}
