package services

import (
	"context"
	"sync"
	"time"

	"github.com/Renal37/marketdesk/internal/models"
	"github.com/Renal37/marketdesk/internal/utils"
)

// fakeLifecycleGateway записывает вызовы WriteDocument и умеет падать.
type fakeLifecycleGateway struct {
	mu     sync.Mutex
	writes []writeCall
	err    error
}

type writeCall struct {
	collection string
	id         string
	fields     map[string]any
}

func (f *fakeLifecycleGateway) WriteDocument(_ context.Context, collection, id string, fields map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}

	f.writes = append(f.writes, writeCall{collection, id, fields})
	return id, nil
}

func (f *fakeLifecycleGateway) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

// fakeNotifier записывает уведомления о переходах.
type fakeNotifier struct {
	mu    sync.Mutex
	calls []models.OrderStatus
}

func (f *fakeNotifier) NotifyStatusChange(_ context.Context, _ models.Order, status models.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, status)
}

func (f *fakeNotifier) notified() []models.OrderStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderStatus(nil), f.calls...)
}

// fakeAlertSink записывает оповещения о новых заказах.
type fakeAlertSink struct {
	mu     sync.Mutex
	orders []string
}

func (f *fakeAlertSink) NewOrderAlert(order models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order.ID)
	return nil
}

func (f *fakeAlertSink) alerted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.orders...)
}

func testSeller() models.User {
	return models.User{ID: "seller-1", Login: "seller-1", Name: "Seller"}
}

// newTestSession создает сессию с заранее известным набором заказов,
// минуя подписки.
func newTestSession(seller models.User, orders ...models.Order) *Session {
	session := newSession(seller, &fakeAlertSink{})
	session.primed = true

	for _, order := range orders {
		session.orders[order.ID] = order
	}
	session.recomputeSummaryLocked()

	return session
}

func testOrder(id string, status models.OrderStatus, createdAt time.Time) models.Order {
	return models.Order{
		ID:     id,
		Buyer:  models.Buyer{ID: "buyer-1", Name: "Alice"},
		Status: status,
		Items: []models.LineItem{
			{ProductID: "p-1", SellerID: "seller-1", ProductName: "Blue Shirt", UnitPrice: 50, Quantity: 2},
		},
		CreatedAt: utils.NewRFC3339Date(createdAt),
	}
}
