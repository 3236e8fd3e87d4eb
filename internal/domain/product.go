package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultProductImage = "no-image.jpg"
	DefaultCategoryIcon = "Package"
)

type Category struct {
	ID          int64     `json:"id,string"`
	Name        string    `gorm:"size:50;uniqueIndex" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	Icon        string    `gorm:"size:64" json:"icon"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "category"
}

// Product is a sellable catalog item. Stock never goes below zero, the
// check constraint backs up the conditional decrement in the sales engine.
type Product struct {
	ID          int64           `json:"id,string"`
	Name        string          `gorm:"size:100;index" json:"name"`
	Description string          `gorm:"size:500" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	CategoryID  int64           `gorm:"index;not null" json:"categoryId,string"`
	Category    *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Image       string          `gorm:"size:255" json:"image"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "product"
}
