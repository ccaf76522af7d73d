package gateway

import (
	"context"
	"errors"
	"time"
)

// Имена коллекций документного шлюза.
const (
	CollectionOrders        = "orders"
	CollectionProducts      = "products"
	CollectionNotifications = "notifications"
	CollectionUsers         = "users"
)

var ErrDuplicateDocument = errors.New("документ уже существует")

// Record представляет документ коллекции. Идентификатор и время создания
// назначаются шлюзом и не входят в поля документа.
type Record struct {
	ID        string
	CreatedAt time.Time
	Fields    map[string]any
}

type Op string

const (
	OpEq  Op = "=="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Predicate описывает условие равенства или диапазона по именованному полю.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

func Where(field string, op Op, value any) Predicate {
	return Predicate{Field: field, Op: op, Value: value}
}

// Matches проверяет документ на соответствие условию. Числа сравниваются
// независимо от конкретного числового типа, строки — лексикографически.
func (p Predicate) Matches(r Record) bool {
	value, ok := r.Fields[p.Field]
	if !ok {
		return false
	}

	if p.Op == OpEq {
		if cmp, comparable := compareValues(value, p.Value); comparable {
			return cmp == 0
		}
		if lhs, lok := value.(bool); lok {
			rhs, rok := p.Value.(bool)
			return rok && lhs == rhs
		}
		return false
	}

	cmp, comparable := compareValues(value, p.Value)
	if !comparable {
		return false
	}

	switch p.Op {
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	}

	return false
}

func compareValues(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		}
		return 0, true
	}

	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// SnapshotFunc получает полный набор подходящих документов при каждом
// изменении коллекции, а не разницу между снапшотами.
type SnapshotFunc func(records []Record)

// UnsubscribeFunc обязана быть вызвана при завершении сессии.
type UnsubscribeFunc func() error

// Gateway — контракт удаленного документного хранилища.
type Gateway interface {
	// GetDocument возвращает nil без ошибки, если документ не найден.
	GetDocument(ctx context.Context, collection, id string) (*Record, error)

	QueryDocuments(ctx context.Context, collection string, predicates []Predicate) ([]Record, error)

	// WriteDocument создает документ (при пустом id) или дописывает поля
	// поверх существующих. Время создания назначает сервер.
	WriteDocument(ctx context.Context, collection, id string, fields map[string]any) (string, error)

	// CreateDocument создает документ только если его еще нет,
	// иначе возвращает ErrDuplicateDocument.
	CreateDocument(ctx context.Context, collection, id string, fields map[string]any) error

	// Subscribe доставляет текущий снапшот сразу после подписки
	// и затем после каждого изменения коллекции.
	Subscribe(ctx context.Context, collection string, predicates []Predicate, onSnapshot SnapshotFunc) (UnsubscribeFunc, error)
}
