package models

import "time"

// Prediction stores one user's directional calls for the tracked tickers.
// True means "closes higher than it opened". At most one row per user is
// active on a given day: resubmissions overwrite the unlocked row in place,
// and a locked row is immutable to its owner.
type Prediction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	AAPL      bool      `gorm:"column:aapl" json:"AAPL"`
	MSFT      bool      `gorm:"column:msft" json:"MSFT"`
	GOOGL     bool      `gorm:"column:googl" json:"GOOGL"`
	Date      time.Time `gorm:"index;not null" json:"date"`
	Locked    bool      `gorm:"default:false;index" json:"locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Call returns the stored direction for one tracked symbol.
func (p *Prediction) Call(symbol string) (bool, bool) {
	switch symbol {
	case "AAPL":
		return p.AAPL, true
	case "MSFT":
		return p.MSFT, true
	case "GOOGL":
		return p.GOOGL, true
	}
	return false, false
}
