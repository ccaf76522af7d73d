package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Renal37/marketdesk/internal/gateway"
	"github.com/Renal37/marketdesk/internal/logger"
	"github.com/Renal37/marketdesk/internal/models"
	"github.com/Renal37/marketdesk/internal/utils"
	"go.uber.org/zap"
)

// Определяем ошибки движка жизненного цикла заказа
var (
	ErrOrderNotFound     = errors.New("заказ не найден")
	ErrNotOrderSeller    = errors.New("продавец не участвует в заказе")
	ErrIllegalTransition = errors.New("недопустимый переход статуса")
	ErrDispatchRequired  = errors.New("переход в out_for_delivery возможен только через процесс отправки")
	ErrPersistFailed     = errors.New("переход не сохранен на сервере")
)

const (
	lowStockThreshold  = 10
	lowStockDisplayCap = 5
)

// Поле-метка времени, записываемое вместе с каждым переходом.
var transitionTimestamps = map[models.OrderStatus]string{
	models.StatusConfirmed:      "confirmedAt",
	models.StatusOutForDelivery: "dispatchedAt",
	models.StatusDelivered:      "deliveredAt",
	models.StatusCancelled:      "cancelledAt",
}

type lifecycleGateway interface {
	WriteDocument(ctx context.Context, collection, id string, fields map[string]any) (string, error)
}

type statusNotifier interface {
	NotifyStatusChange(ctx context.Context, order models.Order, status models.OrderStatus)
}

// LifecycleService владеет переходами статусов заказа, наблюдаемыми продавцом.
type LifecycleService struct {
	storage  lifecycleGateway
	notifier statusNotifier
	now      func() time.Time
}

func NewLifecycleService(storage lifecycleGateway, notifier statusNotifier) *LifecycleService {
	return &LifecycleService{
		storage:  storage,
		notifier: notifier,
		now:      time.Now,
	}
}

// dispatchAttachment — данные отправки, прикрепляемые к переходу
// confirmed → out_for_delivery той же записью.
type dispatchAttachment struct {
	photoURL string
	note     string
	sellerID string
}

// Advance применяет переход статуса. Переход в out_for_delivery напрямую
// запрещен: он достижим только через процесс отправки (DispatchService).
func (l *LifecycleService) Advance(ctx context.Context, session *Session, orderID string, target models.OrderStatus) (models.Order, error) {
	if !target.Valid() {
		return models.Order{}, ErrIllegalTransition
	}

	if target == models.StatusOutForDelivery {
		return models.Order{}, ErrDispatchRequired
	}

	return l.advance(ctx, session, orderID, target, nil)
}

func (l *LifecycleService) advance(ctx context.Context, session *Session, orderID string, target models.OrderStatus, attachment *dispatchAttachment) (models.Order, error) {
	order, ok := session.Order(orderID)
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}

	if !order.HasSeller(session.SellerID()) {
		return models.Order{}, ErrNotOrderSeller
	}

	// Повторный переход в текущий статус — идемпотентный no-op:
	// ни второй метки времени, ни второго уведомления.
	if order.Status == target {
		return order, nil
	}

	if !order.Status.CanTransitionTo(target) {
		return models.Order{}, ErrIllegalTransition
	}

	now := l.now()
	stamp := utils.NewRFC3339Date(now)

	fields := map[string]any{
		"status":                     string(target),
		transitionTimestamps[target]: now.Format(time.RFC3339),
	}

	updated := order
	switch target {
	case models.StatusConfirmed:
		updated.ConfirmedAt = &stamp
	case models.StatusOutForDelivery:
		updated.DispatchedAt = &stamp
	case models.StatusDelivered:
		updated.DeliveredAt = &stamp
	case models.StatusCancelled:
		updated.CancelledAt = &stamp
	}
	updated.Status = target

	if attachment != nil {
		fields["dispatchPhoto"] = attachment.photoURL
		fields["dispatchedBy"] = attachment.sellerID
		updated.DispatchPhoto = attachment.photoURL
		updated.DispatchedBy = attachment.sellerID

		if attachment.note != "" {
			fields["dispatchNote"] = attachment.note
			updated.DispatchNote = attachment.note
		}
	}

	// Оптимистичная локальная мутация строго до удаленной записи:
	// интерфейс не ждет подтверждения сервера.
	session.ApplyOptimistic(updated)

	if _, err := l.storage.WriteDocument(ctx, gateway.CollectionOrders, orderID, fields); err != nil {
		// Локальное состояние остается видимым, но помеченным
		// неподтвержденным; повтор возможен из нового статуса.
		logger.Log.Error("failed to persist status transition",
			zap.String("orderID", orderID),
			zap.String("status", string(target)),
			zap.Error(err),
		)
		return updated, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	session.ConfirmPending(orderID)

	// Уведомление пишется строго после записи заказа, его сбой
	// перехода не отменяет.
	l.notifier.NotifyStatusChange(ctx, updated, target)

	return updated, nil
}

// Дальше идут чистые функции производных представлений. Они пересчитываются
// целиком на каждой сверке снапшота.

func PendingCount(orders []models.Order) int {
	var count int
	for _, order := range orders {
		if order.Status == models.StatusPending {
			count++
		}
	}
	return count
}

// EarningsFor считает выручку продавца только по его позициям заказа.
// Заказы в статусах pending и cancelled не дают вклада.
func EarningsFor(sellerID string, orders []models.Order) models.Earnings {
	var earnings models.Earnings

	for _, order := range orders {
		total := order.SellerTotal(sellerID)
		if total == 0 {
			continue
		}

		switch order.Status {
		case models.StatusDelivered:
			earnings.Available += total
		case models.StatusConfirmed, models.StatusOutForDelivery:
			earnings.Pending += total
		}
	}

	earnings.Lifetime = earnings.Available + earnings.Pending

	return earnings
}

// SalesStatsFor считает количество и выручку доставленных заказов,
// отдельно выделяя текущий календарный месяц по дате создания заказа.
func SalesStatsFor(sellerID string, orders []models.Order, now time.Time) models.SalesStats {
	var stats models.SalesStats

	for _, order := range orders {
		if order.Status != models.StatusDelivered || !order.HasSeller(sellerID) {
			continue
		}

		total := order.SellerTotal(sellerID)
		stats.DeliveredCount++
		stats.Revenue += total

		createdAt := order.CreatedAt.Time
		if createdAt.Year() == now.Year() && createdAt.Month() == now.Month() {
			stats.MonthCount++
			stats.MonthRevenue += total
		}
	}

	return stats
}

// LowStockProducts возвращает товары с остатком ниже порога: сначала
// закончившиеся, затем заканчивающиеся, не больше lowStockDisplayCap штук.
func LowStockProducts(products []models.Product) []models.Product {
	var outOfStock, lowStock []models.Product

	for _, product := range products {
		switch {
		case product.Stock == 0:
			outOfStock = append(outOfStock, product)
		case product.Stock > 0 && product.Stock < lowStockThreshold:
			lowStock = append(lowStock, product)
		}
	}

	sort.Slice(outOfStock, func(i, j int) bool {
		return outOfStock[i].Name < outOfStock[j].Name
	})
	sort.Slice(lowStock, func(i, j int) bool {
		if lowStock[i].Stock == lowStock[j].Stock {
			return lowStock[i].Name < lowStock[j].Name
		}
		return lowStock[i].Stock < lowStock[j].Stock
	})

	combined := append(outOfStock, lowStock...)
	if len(combined) > lowStockDisplayCap {
		combined = combined[:lowStockDisplayCap]
	}

	return combined
}

// FilterOrders применяет фильтр и сортирует результат по дате создания
// по убыванию.
func FilterOrders(orders []models.Order, filter models.OrderFilter) []models.Order {
	result := make([]models.Order, 0, len(orders))

	for _, order := range orders {
		if filter.Matches(order) {
			result = append(result, order)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Time.Equal(result[j].CreatedAt.Time) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.Time.After(result[j].CreatedAt.Time)
	})

	return result
}
