package database

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Renal37/marketdesk/internal/gateway"
	"github.com/Renal37/marketdesk/internal/logger"
)

const documentsChannel = "documents_changed"

// Subscribe доставляет снапшоты коллекции через LISTEN/NOTIFY: триггер
// на таблице документов шлет имя измененной коллекции, подписка заново
// читает коллекцию и отдает полный снапшот. Первый снапшот доставляется
// сразу после подписки.
func (d *Database) Subscribe(ctx context.Context, collection string, predicates []gateway.Predicate, onSnapshot gateway.SnapshotFunc) (gateway.UnsubscribeFunc, error) {
	// Под уведомления выделяется отдельное соединение: WaitForNotification
	// занимает его до конца подписки.
	conn, err := d.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении соединения для подписки: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+documentsChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("ошибка при подписке на канал: %w", err)
	}

	records, err := d.QueryDocuments(ctx, collection, predicates)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("ошибка при чтении первого снапшота: %w", err)
	}

	onSnapshot(records)

	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer conn.Release()

		for {
			notification, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}

				logger.Log.Error("subscription connection lost",
					zap.String("collection", collection),
					zap.Error(err),
				)
				return
			}

			// Уведомления о чужих коллекциях пропускаются без перечитывания.
			if notification.Payload != collection {
				continue
			}

			records, err := d.QueryDocuments(subCtx, collection, predicates)
			if err != nil {
				logger.Log.Warn("failed to refresh collection snapshot",
					zap.String("collection", collection),
					zap.Error(err),
				)
				continue
			}

			onSnapshot(records)
		}
	}()

	return func() error {
		cancel()
		return nil
	}, nil
}
