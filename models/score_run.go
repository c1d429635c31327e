package models

import "time"

// ScoreRun marks a calendar day whose locked predictions have already been
// scored. The scoring endpoint refuses to run twice for the same day, so a
// duplicate cron invocation cannot double-award points.
type ScoreRun struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RunDate   time.Time `gorm:"uniqueIndex;not null" json:"run_date"`
	Processed int       `json:"processed"`
	CreatedAt time.Time `json:"created_at"`
}
