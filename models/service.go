package models

// Service is a catalog entry. It is seeded once and read-only afterwards.
type Service struct {
	Base
	Category      string `json:"category" gorm:"type:varchar(100);index;not null" yaml:"category"`
	Name          string `json:"name" gorm:"type:varchar(200);not null" yaml:"name"`
	Description   string `json:"description" gorm:"type:text" yaml:"description"`
	PriceEstimate string `json:"price_estimate" gorm:"type:varchar(100)" yaml:"price_estimate"`
	Popularity    int    `json:"popularity" gorm:"default:0" yaml:"popularity"`
}

func (Service) Kind() Kind { return KindService }

// TableName specifies the table name for the Service model
func (Service) TableName() string {
	return "services"
}
