package models

import "time"

// Favorite captures the item's price at save time so the client can show
// "price dropped since you saved this".
type Favorite struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	ItemID        int64     `json:"item_id"`
	ItemType      string    `json:"item_type"`
	OriginalPrice float64   `json:"original_price"`
	CreatedAt     time.Time `json:"created_at"`
}
