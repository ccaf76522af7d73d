package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Renal37/marketdesk/internal/gateway"
	"github.com/Renal37/marketdesk/internal/models"
	"github.com/Renal37/marketdesk/internal/storage"
)

const (
	snapshotWait = 2 * time.Second
	snapshotTick = 10 * time.Millisecond
)

func newDashboardFixture(t *testing.T) (*DashboardService, *gateway.Memory, *fakeAlertSink) {
	t.Helper()

	documents := gateway.NewMemory()
	notifications := NewNotificationService(documents)
	lifecycle := NewLifecycleService(documents, notifications)
	dispatch := NewDispatchService(storage.NewMemoryStorage(), lifecycle)
	alert := &fakeAlertSink{}

	dashboard := NewDashboardService(context.Background(), documents, lifecycle, dispatch, notifications, alert)
	t.Cleanup(func() {
		require.NoError(t, dashboard.Shutdown())
	})

	return dashboard, documents, alert
}

func seedOrder(t *testing.T, documents *gateway.Memory, order models.Order) {
	t.Helper()

	_, err := documents.WriteDocument(context.Background(), gateway.CollectionOrders, order.ID, order.Fields())
	require.NoError(t, err)
}

func waitForOrderStatus(t *testing.T, dashboard *DashboardService, sellerID, orderID string, status models.OrderStatus) {
	t.Helper()

	require.Eventually(t, func() bool {
		orders, err := dashboard.Orders(context.Background(), sellerID, models.OrderFilter{})
		if err != nil {
			return false
		}
		for _, order := range orders {
			if order.ID == orderID && order.Status == status {
				return true
			}
		}
		return false
	}, snapshotWait, snapshotTick)
}

func TestDashboardOpenIsIdempotent(t *testing.T) {
	dashboard, documents, _ := newDashboardFixture(t)
	ctx := context.Background()
	seller := testSeller()

	seedOrder(t, documents, testOrder("order-1", models.StatusPending, time.Now()))

	require.NoError(t, dashboard.Open(ctx, seller))
	require.NoError(t, dashboard.Open(ctx, seller))

	waitForOrderStatus(t, dashboard, seller.ID, "order-1", models.StatusPending)
}

func TestDashboardRequiresOpenSession(t *testing.T) {
	dashboard, _, _ := newDashboardFixture(t)
	ctx := context.Background()

	_, err := dashboard.Orders(ctx, "seller-1", models.OrderFilter{})
	assert.ErrorIs(t, err, ErrSessionNotOpen)

	_, err = dashboard.Summary(ctx, "seller-1")
	assert.ErrorIs(t, err, ErrSessionNotOpen)

	_, err = dashboard.Advance(ctx, "seller-1", "order-1", models.StatusConfirmed)
	assert.ErrorIs(t, err, ErrSessionNotOpen)
}

func TestDashboardAlertsOnNewPendingOrder(t *testing.T) {
	dashboard, documents, alert := newDashboardFixture(t)
	ctx := context.Background()
	seller := testSeller()

	seedOrder(t, documents, testOrder("order-a", models.StatusPending, time.Now()))

	require.NoError(t, dashboard.Open(ctx, seller))
	waitForOrderStatus(t, dashboard, seller.ID, "order-a", models.StatusPending)

	// Заказы, бывшие в первом снапшоте, оповещений не вызывают.
	assert.Empty(t, alert.alerted())

	seedOrder(t, documents, testOrder("order-c", models.StatusPending, time.Now()))
	waitForOrderStatus(t, dashboard, seller.ID, "order-c", models.StatusPending)

	require.Eventually(t, func() bool {
		return len(alert.alerted()) == 1
	}, snapshotWait, snapshotTick)
	assert.Equal(t, []string{"order-c"}, alert.alerted())
}

// Полный путь заказа: pending → confirmed → out_for_delivery → delivered.
func TestDashboardOrderLifecycle(t *testing.T) {
	dashboard, documents, _ := newDashboardFixture(t)
	ctx := context.Background()
	seller := testSeller()

	seedOrder(t, documents, testOrder("order-1", models.StatusPending, time.Now()))
	require.NoError(t, dashboard.Open(ctx, seller))
	waitForOrderStatus(t, dashboard, seller.ID, "order-1", models.StatusPending)

	summary, err := dashboard.Summary(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PendingCount)
	assert.Equal(t, 0.0, summary.Earnings.Lifetime)

	// Подтверждение: выручка становится ожидаемой, но не доступной.
	confirmed, err := dashboard.Advance(ctx, seller.ID, "order-1", models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	summary, err = dashboard.Summary(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.PendingCount)
	assert.Equal(t, 100.0, summary.Earnings.Pending)
	assert.Equal(t, 0.0, summary.Earnings.Available)

	// Отправка требует фотоподтверждения.
	_, err = dashboard.Advance(ctx, seller.ID, "order-1", models.StatusOutForDelivery)
	assert.ErrorIs(t, err, ErrDispatchRequired)

	require.NoError(t, dashboard.OpenDispatch(ctx, seller.ID, "order-1"))

	dispatched, err := dashboard.SubmitDispatch(ctx, seller.ID, "order-1", jpegPhoto(1024), "Handed to courier")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOutForDelivery, dispatched.Status)
	assert.NotEmpty(t, dispatched.DispatchPhoto)
	assert.Equal(t, "Handed to courier", dispatched.DispatchNote)

	// Доставка: выручка переходит из ожидаемой в доступную.
	delivered, err := dashboard.Advance(ctx, seller.ID, "order-1", models.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, delivered.Status)

	summary, err = dashboard.Summary(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, summary.Earnings.Available)
	assert.Equal(t, 0.0, summary.Earnings.Pending)
	assert.Equal(t, 100.0, summary.Earnings.Lifetime)
	assert.Equal(t, 1, summary.Sales.DeliveredCount)

	// Покупатель получил уведомление о каждом переходе.
	notifications := NewNotificationService(documents)
	feed, err := notifications.Feed(ctx, "buyer-1")
	require.NoError(t, err)
	require.Len(t, feed, 3)

	types := map[models.NotificationType]bool{}
	for _, notification := range feed {
		types[notification.Type] = true
	}
	assert.True(t, types[models.NotificationOrderConfirmed])
	assert.True(t, types[models.NotificationOrderShipped])
	assert.True(t, types[models.NotificationOrderDelivered])

	// Снапшот сервера в итоге сходится с локальным состоянием.
	waitForOrderStatus(t, dashboard, seller.ID, "order-1", models.StatusDelivered)
	require.Eventually(t, func() bool {
		orders, err := dashboard.Orders(context.Background(), seller.ID, models.OrderFilter{})
		if err != nil || len(orders) != 1 {
			return false
		}
		return orders[0].ID == "order-1" && !dashboard.mustSession(t, seller.ID).HasPending("order-1")
	}, snapshotWait, snapshotTick)
}

func TestDashboardCloseReleasesSession(t *testing.T) {
	dashboard, documents, _ := newDashboardFixture(t)
	ctx := context.Background()
	seller := testSeller()

	seedOrder(t, documents, testOrder("order-1", models.StatusPending, time.Now()))
	require.NoError(t, dashboard.Open(ctx, seller))
	waitForOrderStatus(t, dashboard, seller.ID, "order-1", models.StatusPending)

	require.NoError(t, dashboard.Close(seller.ID))

	_, err := dashboard.Orders(ctx, seller.ID, models.OrderFilter{})
	assert.ErrorIs(t, err, ErrSessionNotOpen)

	// Закрытие несуществующей сессии — no-op.
	assert.NoError(t, dashboard.Close(seller.ID))
}

func (d *DashboardService) mustSession(t *testing.T, sellerID string) *Session {
	t.Helper()

	session, err := d.session(sellerID)
	require.NoError(t, err)
	return session
}
