package domain

import "time"

// Settings is the immutable commission rate set passed into every calculation.
type Settings struct {
	StandardCommissionCents int64 `json:"standard_commission_cents"`
	SelfCommissionCents     int64 `json:"self_commission_cents"`
	ReferralCommissionCents int64 `json:"referral_commission_cents"`
}

// Validate rejects negative rates.
func (s Settings) Validate() error {
	if s.StandardCommissionCents < 0 || s.SelfCommissionCents < 0 || s.ReferralCommissionCents < 0 {
		return ErrInvalidRate
	}
	return nil
}

// GlobalID is the primary key of the single settings row.
const GlobalID = "global"

// Record is the persisted form of Settings.
type Record struct {
	ID                      string    `gorm:"primaryKey;type:text"`
	StandardCommissionCents int64     `gorm:"column:commission_standard;not null"`
	SelfCommissionCents     int64     `gorm:"column:commission_self;not null"`
	ReferralCommissionCents int64     `gorm:"column:commission_referral;not null"`
	UpdatedAt               time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Record) TableName() string { return "settings" }

func (r Record) Settings() Settings {
	return Settings{
		StandardCommissionCents: r.StandardCommissionCents,
		SelfCommissionCents:     r.SelfCommissionCents,
		ReferralCommissionCents: r.ReferralCommissionCents,
	}
}
