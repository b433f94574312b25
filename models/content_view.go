package models

import "time"

// View kinds recorded by the detail view counter.
const (
	KindPost    = "post"
	KindMessage = "message"
)

// ContentView stores aggregated detail views per day for one post or message.
type ContentView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"index:idx_view_day_object,unique;type:date;not null" json:"date"`
	Kind      string    `gorm:"size:16;index:idx_view_day_object,unique;not null" json:"kind"`
	ObjectID  uint      `gorm:"index:idx_view_day_object,unique;not null" json:"object_id"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
