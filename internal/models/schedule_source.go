package models

import "time"

// ScheduleSource is an uploaded timetable CSV stored under a logical name.
type ScheduleSource struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Content    string    `db:"content" json:"-"`
	UploadedBy string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
