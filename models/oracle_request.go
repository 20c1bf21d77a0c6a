// models/oracle_request.go
package models

import "time"

// OracleRequest correlates an oracle request id back to the application that
// triggered it. Fulfilled flips exactly once.
type OracleRequest struct {
	RequestID    string     `gorm:"primaryKey;type:varchar(128)" json:"request_id"`
	BountyID     uint       `gorm:"not null;index" json:"bounty_id"`
	Applicant    string     `gorm:"not null;index" json:"applicant"`
	RequestIndex uint       `gorm:"not null" json:"request_index"`
	ExternalRef  string     `gorm:"not null" json:"external_ref"`
	Fulfilled    bool       `gorm:"not null;default:false;index" json:"fulfilled"`
	Result       bool       `gorm:"not null;default:false" json:"result"`
	FulfilledAt  *time.Time `json:"fulfilled_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
}
