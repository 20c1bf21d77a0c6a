package models

import "time"

// Item is a catalog entry purchasable with credit
type Item struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"not null" json:"title"`
	Body     string `gorm:"type:text" json:"body"`
	ImageURL string `gorm:"type:text" json:"image_url"`
	Cost     int64  `gorm:"not null" json:"cost"`
	Infinite bool   `gorm:"not null" json:"infinite"`
	Quantity uint   `gorm:"not null;default:0" json:"quantity"`
	Active   bool   `gorm:"not null;index" json:"active"`

	Timestamps
}

// ItemPurchase records a spend against the catalog
type ItemPurchase struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ItemID      uint      `gorm:"not null;index" json:"item_id"`
	BuyerID     string    `gorm:"not null;index" json:"buyer_id"`
	Cost        int64     `gorm:"not null" json:"cost"`
	PurchasedAt time.Time `gorm:"not null" json:"purchased_at"`
}
