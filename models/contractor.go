package models

import (
	"strings"
	"time"
)

// Badge is a promotional tier applied by an admin.
type Badge string

const (
	BadgeNone     Badge = "none"
	BadgeSilver   Badge = "silver"
	BadgeGold     Badge = "gold"
	BadgePlatinum Badge = "platinum"
	BadgeDiamond  Badge = "diamond"
)

// ParseBadge normalizes a badge label. The second return is false for labels
// outside the known tiers.
func ParseBadge(s string) (Badge, bool) {
	b := Badge(strings.ToLower(strings.TrimSpace(s)))
	if b == "" {
		return BadgeNone, true
	}
	switch b {
	case BadgeNone, BadgeSilver, BadgeGold, BadgePlatinum, BadgeDiamond:
		return b, true
	}
	return "", false
}

// Contractor represents a service provider account
type Contractor struct {
	Base
	Company        string    `json:"company" gorm:"type:varchar(200)"`
	ContactName    string    `json:"contact_name" gorm:"type:varchar(200)"`
	Phone          string    `json:"phone" gorm:"type:varchar(32);index"`
	Email          string    `json:"email" gorm:"type:varchar(255);index"`
	Service        string    `json:"service" gorm:"type:varchar(100);index"`
	Location       string    `json:"location" gorm:"type:varchar(200)"`
	TelegramToken  string    `json:"telegram_token,omitempty" gorm:"type:varchar(255)"`
	TelegramChatID string    `json:"telegram_chat_id,omitempty" gorm:"type:varchar(64)"`
	Verified       bool      `json:"verified" gorm:"default:false"`
	Blocked        bool      `json:"blocked" gorm:"default:false"`
	Badge          Badge     `json:"badge" gorm:"type:varchar(20);default:'none'"`
	PasswordHash   string    `json:"password_hash,omitempty" gorm:"type:varchar(255)"`
	PinHash        string    `json:"pin_hash,omitempty" gorm:"type:varchar(255)"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Contractor) Kind() Kind { return KindContractor }

// TableName specifies the table name for the Contractor model
func (Contractor) TableName() string {
	return "contractors"
}

func (c *Contractor) SetUpdatedAt(t time.Time) { c.UpdatedAt = t }

// HasChannel reports whether the contractor can receive direct notifications.
func (c *Contractor) HasChannel() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// WithoutSecrets returns a copy with credential hashes removed.
func (c Contractor) WithoutSecrets() Contractor {
	c.PasswordHash = ""
	c.PinHash = ""
	return c
}

// Public returns the view shown to anonymous visitors: no hashes, no bot token.
func (c Contractor) Public() Contractor {
	c = c.WithoutSecrets()
	c.TelegramToken = ""
	c.TelegramChatID = ""
	return c
}
