package models

// Role values for Member.Role
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Member is the registry entry and credit account for one user.
// ID is the gateway user id (X-User-ID).
type Member struct {
	ID        string `gorm:"primaryKey;type:varchar(128)" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	TwitterID string `gorm:"index" json:"twitter_id"`
	ImageURL  string `gorm:"type:text" json:"image_url"`
	Role      string `gorm:"type:varchar(16);not null;default:'member'" json:"role"`
	Balance   int64  `gorm:"not null;default:0" json:"balance"`

	Timestamps
}
