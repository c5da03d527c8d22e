package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Column positions in the timetable export.
const (
	ColumnStudent        = 0
	ColumnFirstSlot      = 2
	ColumnTransport      = 9
	ColumnSpecialization = 12
)

const (
	DefaultBaseHour  = 13
	DefaultSlots     = 5
	DefaultMinFields = ColumnSpecialization + 1
	DefaultCapacity  = 30

	maxSlots = ColumnTransport - ColumnFirstSlot
)

// Layout describes the hour window of a timetable export. Slot i is read from column
// ColumnFirstSlot+i and labelled BaseHour+i followed by "h".
type Layout struct {
	BaseHour  int
	Slots     int
	MinFields int
}

// DefaultLayout is the 13h..17h window with 13 required fields.
func DefaultLayout() Layout {
	return Layout{BaseHour: DefaultBaseHour, Slots: DefaultSlots, MinFields: DefaultMinFields}
}

func (l Layout) withDefaults() Layout {
	if l.BaseHour <= 0 {
		l.BaseHour = DefaultBaseHour
	}
	if l.Slots <= 0 {
		l.Slots = DefaultSlots
	}
	if l.Slots > maxSlots {
		l.Slots = maxSlots
	}
	if l.MinFields < DefaultMinFields {
		l.MinFields = DefaultMinFields
	}
	return l
}

// HourLabel returns the label of the slot at offset, e.g. "13h".
func (l Layout) HourLabel(offset int) string {
	return fmt.Sprintf("%dh", l.BaseHour+offset)
}

// HourLabels lists every slot label in order.
func (l Layout) HourLabels() []string {
	labels := make([]string, 0, l.Slots)
	for i := 0; i < l.Slots; i++ {
		labels = append(labels, l.HourLabel(i))
	}
	return labels
}

// SortHours orders hour labels by their numeric value ("9h" before "13h"); labels without a
// numeric prefix sort after numeric ones, lexically.
func SortHours(labels []string) {
	sort.SliceStable(labels, func(i, j int) bool {
		a, aok := hourValue(labels[i])
		b, bok := hourValue(labels[j])
		switch {
		case aok && bok && a != b:
			return a < b
		case aok != bok:
			return aok
		default:
			return labels[i] < labels[j]
		}
	})
}

func hourValue(label string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(label), "h"))
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsHourLabel reports whether s has the "<hour>h" form of a slot label, with hour in 0..23.
func IsHourLabel(s string) bool {
	if !strings.HasSuffix(s, "h") {
		return false
	}
	n, ok := hourValue(s)
	return ok && n >= 0 && n <= 23
}
