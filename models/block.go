package models

// Block bars a phone number or email from submitting leads
type Block struct {
	Base
	Phone  string `json:"phone,omitempty" gorm:"type:varchar(32);index"`
	Email  string `json:"email,omitempty" gorm:"type:varchar(255);index"`
	Reason string `json:"reason,omitempty" gorm:"type:text"`
}

func (Block) Kind() Kind { return KindBlock }

func (Block) TableName() string {
	return "blocks"
}
