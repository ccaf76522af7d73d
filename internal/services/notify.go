package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Renal37/marketdesk/internal/gateway"
	"github.com/Renal37/marketdesk/internal/logger"
	"github.com/Renal37/marketdesk/internal/models"
	"github.com/Renal37/marketdesk/internal/utils"
	"go.uber.org/zap"
)

// Определяем ошибки сервиса уведомлений
var (
	ErrNotificationNotFound = errors.New("уведомление не найдено")
	ErrForeignNotification  = errors.New("уведомление принадлежит другому пользователю")
)

const (
	fallbackProductName     = "Your order"
	notificationNameDisplay = 120
)

type notificationTemplate struct {
	kind    models.NotificationType
	title   string
	message string
}

// Шаблоны уведомлений покупателю по целевому статусу. Для pending
// записи нет: создание заказа уведомлений не порождает.
var statusNotificationTable = map[models.OrderStatus]notificationTemplate{
	models.StatusConfirmed: {
		kind:    models.NotificationOrderConfirmed,
		title:   "Order Confirmed!",
		message: "%s has been confirmed by the seller and is being prepared.",
	},
	models.StatusOutForDelivery: {
		kind:    models.NotificationOrderShipped,
		title:   "Order Dispatched!",
		message: "%s is on its way to you.",
	},
	models.StatusDelivered: {
		kind:    models.NotificationOrderDelivered,
		title:   "Order Delivered!",
		message: "%s has been marked as delivered. Please confirm receipt.",
	},
	models.StatusCancelled: {
		kind:    models.NotificationOrderCancelled,
		title:   "Order Cancelled",
		message: "%s has been cancelled by the seller.",
	},
}

type notificationGateway interface {
	GetDocument(ctx context.Context, collection, id string) (*gateway.Record, error)
	QueryDocuments(ctx context.Context, collection string, predicates []gateway.Predicate) ([]gateway.Record, error)
	WriteDocument(ctx context.Context, collection, id string, fields map[string]any) (string, error)
	Subscribe(ctx context.Context, collection string, predicates []gateway.Predicate, onSnapshot gateway.SnapshotFunc) (gateway.UnsubscribeFunc, error)
}

// NotificationService представляет сервис уведомлений покупателей
// о переходах статуса их заказов.
type NotificationService struct {
	storage notificationGateway
}

func NewNotificationService(storage notificationGateway) *NotificationService {
	return &NotificationService{storage: storage}
}

// NotifyStatusChange создает уведомление покупателю о смене статуса.
// Доставка best-effort: сбой записи логируется и не влияет на переход.
func (n *NotificationService) NotifyStatusChange(ctx context.Context, order models.Order, status models.OrderStatus) {
	template, ok := statusNotificationTable[status]
	if !ok {
		return
	}

	productName := utils.SanitizeText(order.FirstItemName(), notificationNameDisplay)
	if productName == "" {
		productName = fallbackProductName
	}

	notification := models.Notification{
		UserID:  order.Buyer.ID,
		OrderID: order.ID,
		Type:    template.kind,
		Title:   template.title,
		Message: fmt.Sprintf(template.message, productName),
	}

	if _, err := n.storage.WriteDocument(ctx, gateway.CollectionNotifications, "", notification.Fields()); err != nil {
		logger.Log.Warn("failed to deliver status notification",
			zap.String("orderID", order.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// Feed возвращает уведомления пользователя, свежие первыми.
func (n *NotificationService) Feed(ctx context.Context, userID string) ([]models.Notification, error) {
	records, err := n.storage.QueryDocuments(ctx, gateway.CollectionNotifications, []gateway.Predicate{
		gateway.Eq("userId", userID),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении уведомлений: %w", err)
	}

	return decodeFeed(records), nil
}

// UnreadCount пересчитывает количество непрочитанных уведомлений с нуля.
func (n *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	feed, err := n.Feed(ctx, userID)
	if err != nil {
		return 0, err
	}

	return countUnread(feed), nil
}

// MarkRead помечает уведомление прочитанным. Повторная пометка — no-op:
// признак прочтения меняется только в одну сторону.
func (n *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	record, err := n.storage.GetDocument(ctx, gateway.CollectionNotifications, notificationID)
	if err != nil {
		return fmt.Errorf("ошибка при поиске уведомления: %w", err)
	}

	if record == nil {
		return ErrNotificationNotFound
	}

	notification := models.NotificationFromRecord(*record)
	if notification.UserID != userID {
		return ErrForeignNotification
	}

	if notification.Read {
		return nil
	}

	if _, err := n.storage.WriteDocument(ctx, gateway.CollectionNotifications, notificationID, map[string]any{"read": true}); err != nil {
		return fmt.Errorf("ошибка при обновлении уведомления: %w", err)
	}

	return nil
}

// SubscribeFeed подписывает на ленту уведомлений пользователя. Обработчик
// получает отсортированную ленту и счетчик непрочитанных на каждом снапшоте.
func (n *NotificationService) SubscribeFeed(ctx context.Context, userID string, onChange func(feed []models.Notification, unread int)) (gateway.UnsubscribeFunc, error) {
	return n.storage.Subscribe(ctx, gateway.CollectionNotifications, []gateway.Predicate{
		gateway.Eq("userId", userID),
	}, func(records []gateway.Record) {
		feed := decodeFeed(records)
		onChange(feed, countUnread(feed))
	})
}

func decodeFeed(records []gateway.Record) []models.Notification {
	feed := make([]models.Notification, 0, len(records))
	for _, record := range records {
		feed = append(feed, models.NotificationFromRecord(record))
	}

	sort.Slice(feed, func(i, j int) bool {
		if feed[i].CreatedAt.Time.Equal(feed[j].CreatedAt.Time) {
			return feed[i].ID > feed[j].ID
		}
		return feed[i].CreatedAt.Time.After(feed[j].CreatedAt.Time)
	})

	return feed
}

func countUnread(feed []models.Notification) int {
	var count int
	for _, notification := range feed {
		if !notification.Read {
			count++
		}
	}
	return count
}
