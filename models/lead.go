package models

import "time"

// LeadSource tags where a lead came from
type LeadSource string

const (
	SourceWeb  LeadSource = "web"
	SourceChat LeadSource = "chat"
)

// LeadStatus is the admin-managed pipeline state of a lead
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusWon       LeadStatus = "won"
	LeadStatusLost      LeadStatus = "lost"
)

// IsValid checks if the lead status is known
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusWon, LeadStatusLost:
		return true
	}
	return false
}

// Lead is a customer's service request. ContractorID is advisory: it is never
// enforced as a foreign key.
type Lead struct {
	Base
	Name         string     `json:"name" gorm:"type:varchar(200);not null"`
	Phone        string     `json:"phone" gorm:"type:varchar(32);not null;index"`
	Email        string     `json:"email,omitempty" gorm:"type:varchar(255)"`
	Service      string     `json:"service" gorm:"type:varchar(200);not null"`
	Message      string     `json:"message,omitempty" gorm:"type:text"`
	ContractorID string     `json:"contractor_id,omitempty" gorm:"type:varchar(64);index"`
	Source       LeadSource `json:"source" gorm:"type:varchar(20);default:'web'"`
	Status       LeadStatus `json:"status" gorm:"type:varchar(20);default:'new'"`
	Notes        string     `json:"notes,omitempty" gorm:"type:text"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Lead) Kind() Kind { return KindLead }

// TableName specifies the table name for the Lead model
func (Lead) TableName() string {
	return "leads"
}

func (l *Lead) SetUpdatedAt(t time.Time) { l.UpdatedAt = t }
