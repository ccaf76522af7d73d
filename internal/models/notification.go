package models

import (
	"github.com/Renal37/marketdesk/internal/utils"
)

type NotificationType string

const (
	NotificationOrderConfirmed NotificationType = "order_confirmed"
	NotificationOrderShipped   NotificationType = "order_shipped"
	NotificationOrderDelivered NotificationType = "order_delivered"
	NotificationOrderCancelled NotificationType = "order_cancelled"
)

type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	OrderID   string            `json:"orderId,omitempty"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Read      bool              `json:"read"`
	CreatedAt utils.RFC3339Date `json:"createdAt"`
}
