package models

import "time"

type OrderStatus string

const (
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	OrderStatusPaid            OrderStatus = "paid"
)

// Order is the minimal surface of the external order aggregate this core
// touches: the synchronizer moves it from awaiting_payment to paid inside the
// payment-success transaction. Everything else about orders lives elsewhere.
type Order struct {
	ID        string      `gorm:"column:id;primary_key;type:varchar(64)" json:"id"`
	UserID    string      `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Amount    int64       `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Status    OrderStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	PayTime   *time.Time  `gorm:"column:pay_time;default:null" json:"pay_time"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }
