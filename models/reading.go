package models

import (
	"time"
)

// Reading is an archived observation. Capture sessions write flat CSV
// files; the import command folds them into this table for queries
// across sessions.
type Reading struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TimeMs    int64     `gorm:"uniqueIndex:idx_time_site_sensor;not null" json:"time_ms"`
	Site      int       `gorm:"uniqueIndex:idx_time_site_sensor;not null" json:"site"`
	Sensor    string    `gorm:"uniqueIndex:idx_time_site_sensor;not null;size:64" json:"sensor"`
	Value     float64   `gorm:"not null" json:"value"`
	Unit      string    `gorm:"size:16" json:"unit"`
	SourceCSV string    `gorm:"size:255" json:"source_csv"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName customizes the table name
func (Reading) TableName() string {
	return "readings"
}

// NewReading converts a parsed record into its archive row.
func NewReading(r Record, sourceCSV string) Reading {
	return Reading{
		TimeMs:    r.TimeMs,
		Site:      r.Site,
		Sensor:    r.Sensor,
		Value:     r.Value,
		Unit:      r.Unit,
		SourceCSV: sourceCSV,
	}
}

// GetAllModels returns all models for migration
func GetAllModels() []interface{} {
	return []interface{}{
		&Reading{},
	}
}
