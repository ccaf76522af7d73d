package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Renal37/marketdesk/internal/gateway"
	"github.com/Renal37/marketdesk/internal/models"
)

func orderRecord(order models.Order) gateway.Record {
	return gateway.Record{
		ID:        order.ID,
		CreatedAt: order.CreatedAt.Time,
		Fields:    order.Fields(),
	}
}

func TestReconcileOrdersAlertsOnlyNewPendingOrders(t *testing.T) {
	alert := &fakeAlertSink{}
	session := newSession(testSeller(), alert)
	now := time.Now()

	orderA := testOrder("order-a", models.StatusPending, now)
	orderB := testOrder("order-b", models.StatusConfirmed, now)

	// Первичный снапшот наполняет сессию молча.
	session.reconcileOrders([]gateway.Record{orderRecord(orderA), orderRecord(orderB)})
	assert.Empty(t, alert.alerted())

	// Появившийся pending-заказ вызывает оповещение, ушедший — нет.
	orderC := testOrder("order-c", models.StatusPending, now)
	session.reconcileOrders([]gateway.Record{orderRecord(orderA), orderRecord(orderC)})

	assert.Equal(t, []string{"order-c"}, alert.alerted())

	orders := session.FilteredOrders(models.OrderFilter{})
	require.Len(t, orders, 2)
	_, hasB := session.Order("order-b")
	assert.False(t, hasB)
}

func TestReconcileOrdersIgnoresNewNonPendingOrders(t *testing.T) {
	alert := &fakeAlertSink{}
	session := newSession(testSeller(), alert)
	now := time.Now()

	session.reconcileOrders(nil)
	session.reconcileOrders([]gateway.Record{orderRecord(testOrder("order-a", models.StatusConfirmed, now))})

	assert.Empty(t, alert.alerted())
}

func TestReconcileOrdersFiltersForeignOrders(t *testing.T) {
	session := newSession(testSeller(), &fakeAlertSink{})

	foreign := testOrder("order-x", models.StatusPending, time.Now())
	foreign.Items[0].SellerID = "seller-other"

	session.reconcileOrders([]gateway.Record{
		orderRecord(foreign),
		orderRecord(testOrder("order-mine", models.StatusPending, time.Now())),
	})

	orders := session.FilteredOrders(models.OrderFilter{})
	require.Len(t, orders, 1)
	assert.Equal(t, "order-mine", orders[0].ID)
}

func TestReconcileOrdersKeepsUnconfirmedLocalTransition(t *testing.T) {
	session := newSession(testSeller(), &fakeAlertSink{})
	now := time.Now()

	pending := testOrder("order-1", models.StatusPending, now)
	session.reconcileOrders([]gateway.Record{orderRecord(pending)})

	// Локальный переход еще не дошел до сервера.
	confirmed := pending
	confirmed.Status = models.StatusConfirmed
	session.ApplyOptimistic(confirmed)

	// Снапшот со старым статусом не затирает оптимистичное состояние.
	session.reconcileOrders([]gateway.Record{orderRecord(pending)})

	local, ok := session.Order("order-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusConfirmed, local.Status)
	assert.True(t, session.HasPending("order-1"))

	// Когда сервер догоняет, метка снимается.
	session.reconcileOrders([]gateway.Record{orderRecord(confirmed)})
	assert.False(t, session.HasPending("order-1"))

	local, _ = session.Order("order-1")
	assert.Equal(t, models.StatusConfirmed, local.Status)
}

func TestReconcileOrdersDropsPendingTagForVanishedOrder(t *testing.T) {
	session := newSession(testSeller(), &fakeAlertSink{})

	order := testOrder("order-1", models.StatusPending, time.Now())
	session.reconcileOrders([]gateway.Record{orderRecord(order)})

	confirmed := order
	confirmed.Status = models.StatusConfirmed
	session.ApplyOptimistic(confirmed)

	session.reconcileOrders(nil)

	assert.False(t, session.HasPending("order-1"))
	_, ok := session.Order("order-1")
	assert.False(t, ok)
}

func TestSummaryIsRecomputedOnEveryChange(t *testing.T) {
	session := newSession(testSeller(), &fakeAlertSink{})
	now := time.Now()

	session.reconcileOrders([]gateway.Record{
		orderRecord(testOrder("order-1", models.StatusPending, now)),
		orderRecord(testOrder("order-2", models.StatusDelivered, now)),
	})

	summary := session.Summary()
	assert.Equal(t, 1, summary.PendingCount)
	assert.Equal(t, 100.0, summary.Earnings.Available)

	session.reconcileProducts([]gateway.Record{
		{ID: "p-1", Fields: map[string]any{"sellerId": "seller-1", "name": "Mug", "price": 10.0, "stock": 2}},
		{ID: "p-2", Fields: map[string]any{"sellerId": "seller-other", "name": "Cap", "price": 10.0, "stock": 1}},
	})

	summary = session.Summary()
	require.Len(t, summary.LowStock, 1)
	assert.Equal(t, "Mug", summary.LowStock[0].Name)

	session.setFeed([]models.Notification{{ID: "n-1"}, {ID: "n-2", Read: true}}, 1)
	assert.Equal(t, 1, session.Summary().UnreadCount)
}

func TestSessionCloseRunsUnsubscribes(t *testing.T) {
	session := newSession(testSeller(), &fakeAlertSink{})

	var closed int
	session.unsubs = []gateway.UnsubscribeFunc{
		func() error { closed++; return nil },
		func() error { closed++; return assert.AnError },
		func() error { closed++; return nil },
	}

	err := session.Close()

	// Все подписки снимаются, ошибки собираются вместе.
	assert.Equal(t, 3, closed)
	assert.ErrorIs(t, err, assert.AnError)

	// Повторное закрытие ничего не делает.
	assert.NoError(t, session.Close())
}
