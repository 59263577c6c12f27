package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PaymentCallback stores every gateway landing or notification as received.
type PaymentCallback struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Kind       enums.CallbackKind `gorm:"column:kind;not null"`
	OrderID    *string            `gorm:"column:order_id"`
	Status     *string            `gorm:"column:status"`
	Amount     *string            `gorm:"column:amount"`
	GatewayRef *string            `gorm:"column:gateway_ref"`
	Valid      bool               `gorm:"column:valid;not null"`
	Payload    string             `gorm:"column:payload;not null"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (PaymentCallback) TableName() string { return "payment_callbacks" }
