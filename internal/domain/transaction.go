package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
	StatusRefunded  TransactionStatus = "refunded"
)

// ParseTransactionStatus accepts the four lifecycle states, case-insensitive.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch st := TransactionStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusCompleted, StatusCancelled, StatusRefunded:
		return st, nil
	}
	return "", fmt.Errorf("unknown transaction status %q", s)
}

// Transaction is a completed sale. TotalAmount never changes after creation.
type Transaction struct {
	ID              int64             `json:"id,string"`
	CustomerID      int64             `gorm:"index;not null" json:"customerId,string"`
	Customer        *Customer         `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CashierID       *int64            `gorm:"index" json:"cashierId,string,omitempty"`
	Cashier         *SysOpr           `gorm:"foreignKey:CashierID" json:"cashier,omitempty"`
	TransactionDate time.Time         `gorm:"index" json:"transactionDate"`
	TotalAmount     decimal.Decimal   `gorm:"type:decimal(20,2);not null" json:"totalAmount"`
	PaymentAmount   decimal.Decimal   `gorm:"type:decimal(20,2);not null" json:"paymentAmount"`
	ChangeAmount    decimal.Decimal   `gorm:"type:decimal(20,2);not null" json:"changeAmount"`
	Status          TransactionStatus `gorm:"size:20;index;not null" json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// TableName Specify table name
func (Transaction) TableName() string {
	return "pos_transaction"
}

// TransactionDetail is one line of a transaction, immutable once written.
type TransactionDetail struct {
	ID                 int64           `json:"id,string"`
	TransactionID      int64           `gorm:"index;not null" json:"transactionId,string"`
	ProductID          int64           `gorm:"index;not null" json:"productId,string"`
	Product            *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity           int             `gorm:"not null" json:"quantity"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"subtotal"`
	PriceAtTransaction decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"priceAtTransaction"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// TableName Specify table name
func (TransactionDetail) TableName() string {
	return "pos_transaction_detail"
}
