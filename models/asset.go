package models

import "time"

// Asset records an uploaded image on local disk. ExpireAt is set once nothing references
// the file any more; the cleaner removes expired rows and files.
type Asset struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	FilePath    string     `gorm:"size:1024;not null" json:"-"`
	URL         string     `gorm:"size:512;not null;index" json:"url"`
	ContentType string     `gorm:"size:64" json:"content_type"`
	Size        int64      `json:"size"`
	ExpireAt    *time.Time `gorm:"index" json:"expire_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
