package schedule

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-room-schedule/internal/models"
)

// ErrSourceUnavailable is returned by source providers when no readable CSV exists.
var ErrSourceUnavailable = errors.New("schedule source unavailable")

// ErrMalformedRow matches every *RowError.
var ErrMalformedRow = errors.New("malformed schedule row")

// RowError describes a data row that was skipped for having too few fields.
type RowError struct {
	Line   int
	Fields int
	Want   int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %d fields, want at least %d", e.Line, e.Fields, e.Want)
}

func (e *RowError) Is(target error) bool { return target == ErrMalformedRow }

// ParseResult holds accepted records and the rows that were skipped.
type ParseResult struct {
	Records []models.ScheduleRecord
	Skipped []*RowError
	// DataLines counts non-blank lines after the header.
	DataLines int
}

// Parser turns timetable CSV text into records.
type Parser struct {
	layout Layout
	logger *zap.Logger
}

// NewParser builds a parser for the given layout.
func NewParser(layout Layout, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{layout: layout.withDefaults(), logger: logger}
}

// Parse reads text with a header row. Blank lines are ignored, the first non-blank line is the
// header, and short rows are skipped with a warning carrying their 1-based line number.
func (p *Parser) Parse(text string) ParseResult {
	var result ParseResult

	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r", "")

	header := true
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if header {
			header = false
			continue
		}
		result.DataLines++

		fields := SplitLine(line)
		if len(fields) < p.layout.MinFields {
			rowErr := &RowError{Line: i + 1, Fields: len(fields), Want: p.layout.MinFields}
			result.Skipped = append(result.Skipped, rowErr)
			p.logger.Warn("skipping malformed schedule row",
				zap.Int("line", rowErr.Line),
				zap.Int("fields", rowErr.Fields),
				zap.Int("want", rowErr.Want),
			)
			continue
		}
		result.Records = append(result.Records, p.record(i+1, fields))
	}

	return result
}

func (p *Parser) record(line int, fields []string) models.ScheduleRecord {
	rooms := make([]string, p.layout.Slots)
	copy(rooms, fields[ColumnFirstSlot:ColumnFirstSlot+p.layout.Slots])
	return models.ScheduleRecord{
		Line:           line,
		Student:        fields[ColumnStudent],
		Rooms:          rooms,
		Transport:      fields[ColumnTransport],
		Specialization: fields[ColumnSpecialization],
	}
}

// SplitLine splits on commas that are outside double quotes. Quote characters toggle the quoted
// state and are dropped; every field is trimmed of surrounding whitespace.
func SplitLine(line string) []string {
	fields := make([]string, 0, DefaultMinFields)
	var b strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(b.String()))
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	return append(fields, strings.TrimSpace(b.String()))
}
