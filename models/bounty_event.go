package models

import "time"

// EventKind names a bounty state transition
type EventKind string

const (
	EventBountyCreated        EventKind = "bounty_created"
	EventBountyDelisted       EventKind = "bounty_delisted"
	EventApplicationSubmitted EventKind = "application_submitted"
	EventApplicationAwarded   EventKind = "application_awarded"
	EventApplicationRejected  EventKind = "application_rejected"
	EventApplicationDenied    EventKind = "application_denied" // negative oracle result
)

// BountyEvent is an outbox row written in the same transaction as the
// transition it describes. The relay publishes rows in ID order.
type BountyEvent struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Kind         EventKind  `gorm:"type:varchar(32);not null;index" json:"kind"`
	BountyID     uint       `gorm:"not null;index" json:"bounty_id"`
	UserID       string     `json:"user_id,omitempty"`
	RequestIndex uint       `json:"request_index,omitempty"`
	Amount       int64      `json:"amount,omitempty"`
	RequestID    string     `json:"request_id,omitempty"`
	Published    bool       `gorm:"not null;default:false;index" json:"published"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
}
