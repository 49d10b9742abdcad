package models

// AdminAction records one change made from the admin dashboard.
type AdminAction struct {
	Base
	Action   string `json:"action" gorm:"type:varchar(50);index"`
	TargetID string `json:"target_id,omitempty" gorm:"type:varchar(64);index"`
	Actor    string `json:"actor,omitempty" gorm:"type:varchar(255)"`
	Details  string `json:"details,omitempty" gorm:"type:text"`
}

func (AdminAction) Kind() Kind { return KindAction }

func (AdminAction) TableName() string {
	return "admin_actions"
}

// SentMessage is the delivery outcome of one bot notification to one target.
type SentMessage struct {
	Base
	Target  string `json:"target" gorm:"type:varchar(32);index"`
	OK      bool   `json:"ok"`
	Skipped bool   `json:"skipped"`
	Error   string `json:"error,omitempty" gorm:"type:text"`
	Text    string `json:"text" gorm:"type:text"`
}

func (SentMessage) Kind() Kind { return KindSent }

func (SentMessage) TableName() string {
	return "sent_messages"
}
