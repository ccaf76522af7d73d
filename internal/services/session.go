package services

import (
	"sync"
	"time"

	"github.com/Renal37/marketdesk/internal/gateway"
	"github.com/Renal37/marketdesk/internal/logger"
	"github.com/Renal37/marketdesk/internal/models"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// AlertSink получает локальные оповещения о новых заказах. Доставка
// best-effort: ошибка логируется и не прерывает сверку снапшота.
type AlertSink interface {
	NewOrderAlert(order models.Order) error
}

// LogAlertSink — приемник по умолчанию, пишет оповещение в лог.
type LogAlertSink struct{}

func (LogAlertSink) NewOrderAlert(order models.Order) error {
	logger.Log.Info("new pending order",
		zap.String("orderID", order.ID),
		zap.String("buyer", order.Buyer.Name),
	)
	return nil
}

// Session — состояние панели одного продавца: его подмножество заказов,
// товары, лента уведомлений и производная сводка. Владеет им только
// сессия; глобального состояния у панели нет.
type Session struct {
	mu     sync.RWMutex
	seller models.User

	orders   map[string]models.Order
	products []models.Product
	feed     []models.Notification
	unread   int
	summary  models.DashboardSummary

	// Незафиксированные оптимистичные переходы: заказ в том виде,
	// который показан продавцу, но еще не подтвержден сервером.
	pending map[string]models.Order

	// primed выставляется после первого снапшота заказов, чтобы
	// первичная загрузка не генерировала оповещения о каждом заказе.
	primed bool

	unsubs []gateway.UnsubscribeFunc
	alert  AlertSink
	now    func() time.Time
}

func newSession(seller models.User, alert AlertSink) *Session {
	if alert == nil {
		alert = LogAlertSink{}
	}

	return &Session{
		seller:  seller,
		orders:  make(map[string]models.Order),
		pending: make(map[string]models.Order),
		alert:   alert,
		now:     time.Now,
	}
}

func (s *Session) SellerID() string {
	return s.seller.ID
}

func (s *Session) Order(orderID string) (models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	return order, ok
}

// FilteredOrders возвращает заказы сессии после фильтра и сортировки.
func (s *Session) FilteredOrders(filter models.OrderFilter) []models.Order {
	s.mu.RLock()
	orders := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, order)
	}
	s.mu.RUnlock()

	return FilterOrders(orders, filter)
}

func (s *Session) Summary() models.DashboardSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.summary
}

func (s *Session) Feed() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feed := make([]models.Notification, len(s.feed))
	copy(feed, s.feed)
	return feed
}

// ApplyOptimistic записывает локальную мутацию до подтверждения сервером
// и помечает её незафиксированной.
func (s *Session) ApplyOptimistic(order models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.ID] = order
	s.pending[order.ID] = order
	s.recomputeSummaryLocked()
}

// ConfirmPending снимает метку после успешной удаленной записи.
func (s *Session) ConfirmPending(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, orderID)
}

// Revert откатывает оптимистичную мутацию к прежнему виду заказа.
func (s *Session) Revert(order models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.ID] = order
	delete(s.pending, order.ID)
	s.recomputeSummaryLocked()
}

// HasPending сообщает, ждет ли заказ подтверждения сервера.
func (s *Session) HasPending(orderID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.pending[orderID]
	return ok
}

// reconcileOrders сверяет очередной снапшот коллекции заказов:
// отбирает заказы с позициями этого продавца, находит новые pending-заказы,
// целиком заменяет хранимое подмножество и накладывает поверх него
// незафиксированные оптимистичные переходы, которые снапшот еще не отразил.
func (s *Session) reconcileOrders(records []gateway.Record) {
	next := make(map[string]models.Order, len(records))
	for _, record := range records {
		order := models.OrderFromRecord(record)
		if order.HasSeller(s.seller.ID) {
			next[order.ID] = order
		}
	}

	var appeared []models.Order

	s.mu.Lock()

	if s.primed {
		for id, order := range next {
			if _, existed := s.orders[id]; !existed && order.Status == models.StatusPending {
				appeared = append(appeared, order)
			}
		}
	}
	s.primed = true

	// Снапшот — последнее слово сервера; затем поверх возвращаются
	// еще не подтвержденные локальные переходы.
	s.orders = next
	for id, optimistic := range s.pending {
		current, ok := next[id]
		if !ok {
			delete(s.pending, id)
			continue
		}
		if current.Status == optimistic.Status {
			// Сервер догнал локальное состояние.
			delete(s.pending, id)
			continue
		}
		s.orders[id] = optimistic
	}

	s.recomputeSummaryLocked()
	s.mu.Unlock()

	for _, order := range appeared {
		if err := s.alert.NewOrderAlert(order); err != nil {
			logger.Log.Warn("new order alert failed",
				zap.String("orderID", order.ID),
				zap.Error(err),
			)
		}
	}
}

func (s *Session) reconcileProducts(records []gateway.Record) {
	products := make([]models.Product, 0, len(records))
	for _, record := range records {
		product := models.ProductFromRecord(record)
		if product.SellerID == s.seller.ID {
			products = append(products, product)
		}
	}

	s.mu.Lock()
	s.products = products
	s.recomputeSummaryLocked()
	s.mu.Unlock()
}

// setFeed принимает свежую ленту уведомлений. Счетчик непрочитанных
// пересчитывается с нуля на каждом снапшоте, а не ведется дельтами.
func (s *Session) setFeed(feed []models.Notification, unread int) {
	s.mu.Lock()
	s.feed = feed
	s.unread = unread
	s.recomputeSummaryLocked()
	s.mu.Unlock()
}

func (s *Session) recomputeSummaryLocked() {
	orders := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, order)
	}

	s.summary = models.DashboardSummary{
		PendingCount: PendingCount(orders),
		Earnings:     EarningsFor(s.seller.ID, orders),
		Sales:        SalesStatsFor(s.seller.ID, orders, s.now()),
		LowStock:     LowStockProducts(s.products),
		UnreadCount:  s.unread,
	}
}

// Close снимает все подписки сессии, собирая их ошибки вместе.
func (s *Session) Close() error {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	var result *multierror.Error
	for _, unsubscribe := range unsubs {
		if err := unsubscribe(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}
