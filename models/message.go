package models

// Message is one entry of the contractor-to-admin chat log
type Message struct {
	Base
	ContractorID string `json:"contractor_id" gorm:"type:varchar(64);index"`
	Body         string `json:"body" gorm:"type:text;not null"`
}

func (Message) Kind() Kind { return KindMessage }

func (Message) TableName() string {
	return "messages"
}
