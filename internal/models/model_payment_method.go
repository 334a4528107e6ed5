package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fatflowers/paygate/pkg/types"
)

// PaymentMethod lists the payment channels the service accepts.
type PaymentMethod struct {
	ID          string                  `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Name        types.PaymentMethodName `gorm:"column:name;type:varchar(32);not null;uniqueIndex" json:"name"`
	DisplayName string                  `gorm:"column:display_name;type:varchar(100);not null" json:"display_name"`
	IsActive    bool                    `gorm:"column:is_active;not null;default:true" json:"is_active"`
	SortOrder   int                     `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	Config      datatypes.JSON          `gorm:"column:config;type:jsonb;default:'{}'" json:"config"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

func (PaymentMethod) TableName() string { return "payment_method" }
