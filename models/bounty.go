package models

import "time"

// Bounty is an admin-defined task that mints RewardAmount credit per award.
// ID is the bounty nonce (1-based, assigned by the database sequence).
type Bounty struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Title        string `gorm:"not null" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	MediaRef     string `gorm:"type:text" json:"media_ref"`
	RewardAmount int64  `gorm:"not null" json:"reward_amount"`
	Infinite     bool   `gorm:"not null" json:"infinite"`
	Quantity     uint   `gorm:"not null;default:0" json:"quantity"` // ignored when Infinite
	Active       bool   `gorm:"not null;index" json:"active"`
	Manual       bool   `gorm:"not null" json:"manual"`             // false = oracle verified
	ExternalRef  string `json:"external_ref,omitempty"`             // passed to the oracle

	// Last pending-request index handed out for this bounty.
	LastRequestIndex uint `gorm:"not null;default:0" json:"-"`

	Timestamps
}

// BountyHolder records an award. A user holds a bounty at most once, ever.
type BountyHolder struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	BountyID  uint      `gorm:"not null;uniqueIndex:idx_bounty_holder" json:"bounty_id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_bounty_holder;index" json:"user_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	AwardedAt time.Time `gorm:"not null" json:"awarded_at"`
}

// BountyApplication exists only while pending; approval, rejection and oracle
// denial hard-delete the row.
type BountyApplication struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	BountyID     uint      `gorm:"not null;uniqueIndex:idx_app_request;uniqueIndex:idx_app_applicant" json:"bounty_id"`
	RequestIndex uint      `gorm:"not null;uniqueIndex:idx_app_request" json:"request_index"`
	Applicant    string    `gorm:"not null;uniqueIndex:idx_app_applicant" json:"applicant"`
	RequestedAt  time.Time `gorm:"not null" json:"requested_at"`
}

// BountyBan blocks re-application after an admin rejection. Expired rows are
// simply ignored.
type BountyBan struct {
	BountyID    uint      `gorm:"primaryKey;autoIncrement:false" json:"bounty_id"`
	UserID      string    `gorm:"primaryKey" json:"user_id"`
	BannedUntil time.Time `gorm:"not null" json:"banned_until"`
}
