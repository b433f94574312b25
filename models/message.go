package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageState is the visibility state of a persisted message.
type MessageState string

const (
	MessageActive   MessageState = "active"
	MessageInactive MessageState = "inactive"
)

// MessageTitleMax is the longest accepted message title, in characters.
const MessageTitleMax = 200

// Message is a message board entry. Listings are ordered newest first.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	UserID    uint      `gorm:"index;not null" json:"author_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
}

// State derives the tagged visibility state from the is_active column.
func (m Message) State() MessageState {
	if m.IsActive {
		return MessageActive
	}
	return MessageInactive
}

// Path is the canonical API location of the message.
func (m Message) Path() string {
	return fmt.Sprintf("/api/v1/messages/%d", m.ID)
}

func (m Message) String() string {
	return fmt.Sprintf("%s by %s", m.Title, m.User.Username)
}

// MarshalJSON adds the derived state and url to the stored columns.
func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	return json.Marshal(struct {
		plain
		State MessageState `json:"state"`
		URL   string       `json:"url"`
	}{plain(m), m.State(), m.Path()})
}
