package models

import "github.com/lib/pq"

// ReviewStatus is the moderation state of a review
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// IsValid checks if the review status is known
func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected:
		return true
	}
	return false
}

// Review is a customer's rating of a contractor
type Review struct {
	Base
	ContractorID string         `json:"contractor_id,omitempty" gorm:"type:varchar(64);index"`
	ReviewerName string         `json:"reviewer_name" gorm:"type:varchar(200)"`
	Rating       int            `json:"rating" gorm:"type:int;check:rating >= 1 AND rating <= 5"`
	Comment      string         `json:"comment" gorm:"type:text"`
	ImageURLs    pq.StringArray `json:"image_urls" gorm:"type:text[]"`
	Status       ReviewStatus   `json:"status" gorm:"type:varchar(20);default:'pending';index"`
}

func (Review) Kind() Kind { return KindReview }

// TableName specifies the table name for the Review model
func (Review) TableName() string {
	return "reviews"
}
