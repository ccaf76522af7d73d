package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Renal37/marketdesk/internal/gateway"
	"github.com/Renal37/marketdesk/internal/models"
	"github.com/hashicorp/go-multierror"
)

var ErrSessionNotOpen = errors.New("сессия продавца не открыта")

type dashboardGateway interface {
	Subscribe(ctx context.Context, collection string, predicates []gateway.Predicate, onSnapshot gateway.SnapshotFunc) (gateway.UnsubscribeFunc, error)
}

// DashboardService управляет сессиями продавцов: разворачивает живые
// подписки при открытии и сворачивает их при закрытии. Все операции
// панели идут через открытую сессию.
type DashboardService struct {
	// Подписки живут дольше любого HTTP-запроса, поэтому привязаны
	// к базовому контексту процесса, а не к контексту вызова Open.
	baseCtx context.Context

	storage   dashboardGateway
	lifecycle *LifecycleService
	dispatch  *DispatchService
	notifier  *NotificationService
	alert     AlertSink

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewDashboardService(baseCtx context.Context, storage dashboardGateway, lifecycle *LifecycleService, dispatch *DispatchService, notifier *NotificationService, alert AlertSink) *DashboardService {
	return &DashboardService{
		baseCtx:   baseCtx,
		storage:   storage,
		lifecycle: lifecycle,
		dispatch:  dispatch,
		notifier:  notifier,
		alert:     alert,
		sessions:  make(map[string]*Session),
	}
}

// Open разворачивает сессию продавца. Заказы подписываются без серверного
// фильтра: позиции продавца вложены в документ заказа, поэтому его
// подмножество отбирается уже при сверке снапшота.
func (d *DashboardService) Open(ctx context.Context, user models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sessions[user.ID]; ok {
		return nil
	}

	session := newSession(user, d.alert)

	unsubOrders, err := d.storage.Subscribe(d.baseCtx, gateway.CollectionOrders, nil, session.reconcileOrders)
	if err != nil {
		return fmt.Errorf("ошибка при подписке на заказы: %w", err)
	}

	unsubProducts, err := d.storage.Subscribe(d.baseCtx, gateway.CollectionProducts, []gateway.Predicate{
		gateway.Eq("sellerId", user.ID),
	}, session.reconcileProducts)
	if err != nil {
		unsubscribeAll(unsubOrders)
		return fmt.Errorf("ошибка при подписке на товары: %w", err)
	}

	unsubFeed, err := d.notifier.SubscribeFeed(d.baseCtx, user.ID, session.setFeed)
	if err != nil {
		unsubscribeAll(unsubOrders, unsubProducts)
		return fmt.Errorf("ошибка при подписке на уведомления: %w", err)
	}

	session.mu.Lock()
	session.unsubs = []gateway.UnsubscribeFunc{unsubOrders, unsubProducts, unsubFeed}
	session.mu.Unlock()

	d.sessions[user.ID] = session

	return nil
}

func (d *DashboardService) Orders(_ context.Context, sellerID string, filter models.OrderFilter) ([]models.Order, error) {
	session, err := d.session(sellerID)
	if err != nil {
		return nil, err
	}

	return session.FilteredOrders(filter), nil
}

func (d *DashboardService) Summary(_ context.Context, sellerID string) (models.DashboardSummary, error) {
	session, err := d.session(sellerID)
	if err != nil {
		return models.DashboardSummary{}, err
	}

	return session.Summary(), nil
}

func (d *DashboardService) Advance(ctx context.Context, sellerID, orderID string, target models.OrderStatus) (models.Order, error) {
	session, err := d.session(sellerID)
	if err != nil {
		return models.Order{}, err
	}

	return d.lifecycle.Advance(ctx, session, orderID, target)
}

func (d *DashboardService) OpenDispatch(_ context.Context, sellerID, orderID string) error {
	session, err := d.session(sellerID)
	if err != nil {
		return err
	}

	return d.dispatch.Open(session, orderID)
}

func (d *DashboardService) SubmitDispatch(ctx context.Context, sellerID, orderID string, photo models.DispatchPhoto, note string) (models.Order, error) {
	session, err := d.session(sellerID)
	if err != nil {
		return models.Order{}, err
	}

	return d.dispatch.Submit(ctx, session, orderID, photo, note)
}

// Close завершает сессию продавца и снимает её подписки.
func (d *DashboardService) Close(sellerID string) error {
	d.mu.Lock()
	session, ok := d.sessions[sellerID]
	delete(d.sessions, sellerID)
	d.mu.Unlock()

	if !ok {
		return nil
	}

	return session.Close()
}

// Shutdown завершает все открытые сессии, собирая их ошибки вместе.
func (d *DashboardService) Shutdown() error {
	d.mu.Lock()
	sessions := make([]*Session, 0, len(d.sessions))
	for _, session := range d.sessions {
		sessions = append(sessions, session)
	}
	d.sessions = make(map[string]*Session)
	d.mu.Unlock()

	var result *multierror.Error
	for _, session := range sessions {
		if err := session.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func (d *DashboardService) session(sellerID string) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, ok := d.sessions[sellerID]
	if !ok {
		return nil, ErrSessionNotOpen
	}

	return session, nil
}

func unsubscribeAll(unsubs ...gateway.UnsubscribeFunc) {
	for _, unsubscribe := range unsubs {
		_ = unsubscribe()
	}
}
