package models

// Announcement is a board post. At most one row has Pinned set.
type Announcement struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Title  string `gorm:"not null" json:"title"`
	Body   string `gorm:"type:text" json:"body"`
	Pinned bool   `gorm:"not null;default:false;index" json:"pinned"`

	Timestamps
}
