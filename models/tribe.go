package models

import "time"

// Tribe is a named group of users competing on a shared leaderboard.
type Tribe struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TribeMember links a user to a tribe. Membership is owned elsewhere;
// this service only reads it to scope the member prediction view.
type TribeMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TribeID   uint      `gorm:"index;not null" json:"tribe_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
