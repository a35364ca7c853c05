package models

import "time"

type PromotionPackage struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DurationDays int       `json:"duration_days"`
	Price        float64   `json:"price"`
	CreatedAt    time.Time `json:"created_at"`
}

type ListingPromotion struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ItemID    int64     `json:"item_id"`
	ItemType  string    `json:"item_type"`
	PackageID int64     `json:"package_id"`
	Status    string    `json:"status"`
	StartsAt  time.Time `json:"starts_at"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Payment struct {
	ID          int64     `json:"id"`
	PromotionID int64     `json:"promotion_id"`
	UserID      int64     `json:"user_id"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type PromotionDetail struct {
	ListingPromotion
	Payment *Payment `json:"payment,omitempty"`
}
