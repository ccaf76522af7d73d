package models

import (
	"strings"

	"github.com/Renal37/marketdesk/internal/utils"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// Граф допустимых переходов статусов. Из терминальных статусов
// (delivered, cancelled) переходов нет.
var statusSuccessors = map[OrderStatus][]OrderStatus{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo проверяет, является ли target прямым преемником статуса s.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range statusSuccessors[s] {
		if next == target {
			return true
		}
	}
	return false
}

type Variation struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type LineItem struct {
	ProductID    string     `json:"productId"`
	SellerID     string     `json:"sellerId"`
	ProductName  string     `json:"productName"`
	ProductImage string     `json:"productImage,omitempty"`
	UnitPrice    float64    `json:"unitPrice"`
	Quantity     int        `json:"quantity"`
	Variation    *Variation `json:"variation,omitempty"`
}

func (li LineItem) Total() float64 {
	return li.UnitPrice * float64(li.Quantity)
}

type Buyer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

type Order struct {
	ID            string             `json:"id"`
	Buyer         Buyer              `json:"buyer"`
	Items         []LineItem         `json:"items"`
	Status        OrderStatus        `json:"status"`
	DispatchPhoto string             `json:"dispatchPhoto,omitempty"`
	DispatchNote  string             `json:"dispatchNote,omitempty"`
	DispatchedBy  string             `json:"dispatchedBy,omitempty"`
	CreatedAt     utils.RFC3339Date  `json:"createdAt"`
	ConfirmedAt   *utils.RFC3339Date `json:"confirmedAt,omitempty"`
	DispatchedAt  *utils.RFC3339Date `json:"dispatchedAt,omitempty"`
	DeliveredAt   *utils.RFC3339Date `json:"deliveredAt,omitempty"`
	CancelledAt   *utils.RFC3339Date `json:"cancelledAt,omitempty"`
}

// HasSeller сообщает, принадлежит ли продавцу хотя бы одна позиция заказа.
func (o Order) HasSeller(sellerID string) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// SellerTotal возвращает сумму позиций заказа, принадлежащих продавцу.
func (o Order) SellerTotal(sellerID string) float64 {
	var total float64
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			total += item.Total()
		}
	}
	return total
}

func (o Order) FirstItemName() string {
	if len(o.Items) == 0 {
		return ""
	}
	return o.Items[0].ProductName
}

type OrderFilter struct {
	Status *OrderStatus
	Query  string
}

// Matches проверяет заказ на соответствие фильтру: точное совпадение статуса
// и поиск подстроки без учета регистра по номеру заказа или имени покупателя.
func (f OrderFilter) Matches(o Order) bool {
	if f.Status != nil && o.Status != *f.Status {
		return false
	}

	if f.Query == "" {
		return true
	}

	query := strings.ToLower(f.Query)

	return strings.Contains(strings.ToLower(o.ID), query) ||
		strings.Contains(strings.ToLower(o.Buyer.Name), query)
}

type AdvanceRequest struct {
	Status *OrderStatus `json:"status"`
}

// DispatchPhoto описывает файл, выбранный продавцом в процессе отправки.
type DispatchPhoto struct {
	Name        string
	ContentType string
	Data        []byte
}

type Earnings struct {
	Available float64 `json:"available"`
	Pending   float64 `json:"pending"`
	Lifetime  float64 `json:"lifetime"`
}

type SalesStats struct {
	DeliveredCount int     `json:"deliveredCount"`
	Revenue        float64 `json:"revenue"`
	MonthCount     int     `json:"monthCount"`
	MonthRevenue   float64 `json:"monthRevenue"`
}

type DashboardSummary struct {
	PendingCount int        `json:"pendingCount"`
	Earnings     Earnings   `json:"earnings"`
	Sales        SalesStats `json:"sales"`
	LowStock     []Product  `json:"lowStock"`
	UnreadCount  int        `json:"unreadCount"`
}
