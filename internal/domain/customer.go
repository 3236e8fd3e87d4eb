package domain

import "time"

type Customer struct {
	ID          int64     `json:"id,string"`
	Name        string    `gorm:"size:100;index" json:"name"`
	Email       string    `gorm:"size:255;uniqueIndex" json:"email"`
	Password    string    `json:"-"`
	Address     string    `gorm:"size:255" json:"address"`
	PhoneNumber string    `gorm:"size:32" json:"phoneNumber"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (Customer) TableName() string {
	return "customer"
}
