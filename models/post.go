package models

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	PostTitleMax    = 128
	PostSubtitleMax = 256
	// PostsPerPage is the page size of every post listing.
	PostsPerPage = 5
)

// Post represents a blog post created by a user.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	Subtitle  string    `gorm:"size:256;not null" json:"subtitle"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	UserID    uint      `gorm:"index;not null" json:"author_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	CreatedOn time.Time `gorm:"autoCreateTime;index;not null" json:"created_on"`
	Image     string    `gorm:"size:512" json:"image,omitempty"`
}

// Path is the canonical API location of the post.
func (p Post) Path() string {
	return fmt.Sprintf("/api/v1/posts/%d", p.ID)
}

func (p Post) String() string {
	return fmt.Sprintf("%s, by %s", p.Title, p.User.Username)
}

// MarshalJSON adds the canonical url to the stored columns.
func (p Post) MarshalJSON() ([]byte, error) {
	type plain Post
	return json.Marshal(struct {
		plain
		URL string `json:"url"`
	}{plain(p), p.Path()})
}
