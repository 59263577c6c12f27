package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRequest records the signed field set handed to the gateway.
type PaymentRequest struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	AttemptID  *uuid.UUID      `gorm:"column:attempt_id;type:uuid"`
	OrderID    string          `gorm:"column:order_id;not null"`
	PaymentRef string          `gorm:"column:payment_ref;not null"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Fields     string          `gorm:"column:fields;not null"`
	Signature  string          `gorm:"column:signature;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (PaymentRequest) TableName() string { return "payment_requests" }
