package models

import "time"

// Kind names a record collection. It doubles as the JSON fallback file stem.
type Kind string

const (
	KindService    Kind = "services"
	KindContractor Kind = "contractors"
	KindLead       Kind = "leads"
	KindReview     Kind = "reviews"
	KindMessage    Kind = "messages"
	KindBlock      Kind = "blocks"
	KindAction     Kind = "admin_actions"
	KindSent       Kind = "sent_messages"
)

// Base holds the identity columns shared by every record.
type Base struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (b *Base) GetID() string { return b.ID }

func (b *Base) SetID(id string) { b.ID = id }

func (b *Base) GetCreatedAt() time.Time { return b.CreatedAt }

func (b *Base) SetCreatedAt(t time.Time) { b.CreatedAt = t }
