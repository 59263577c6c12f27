package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// CheckoutAttempt journals one pass through the checkout state machine.
type CheckoutAttempt struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SessionID      string              `gorm:"column:session_id;not null"`
	State          enums.CheckoutState `gorm:"column:state;not null"`
	OrderID        *string             `gorm:"column:order_id"`
	OrderNumber    *string             `gorm:"column:order_number"`
	ItemCount      int                 `gorm:"column:item_count;not null"`
	Subtotal       decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingTotal  decimal.Decimal     `gorm:"column:shipping_total;type:numeric(12,2);not null"`
	GrandTotal     decimal.Decimal     `gorm:"column:grand_total;type:numeric(12,2);not null"`
	ShippingOption *string             `gorm:"column:shipping_option"`
	FailureCode    *string             `gorm:"column:failure_code"`
	FailureMessage *string             `gorm:"column:failure_message"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (CheckoutAttempt) TableName() string { return "checkout_attempts" }
