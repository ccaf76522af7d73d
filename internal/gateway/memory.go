package gateway

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory — встроенная реализация шлюза. Используется в тестах и как
// запасной вариант при запуске без базы данных.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
	subs        map[int64]*memorySubscription
	nextSubID   int64
	now         func() time.Time
}

type memorySubscription struct {
	collection string
	predicates []Predicate
	// Мейлбокс на один снапшот: медленный подписчик получает самый
	// свежий набор, а не очередь устаревших.
	snapshots chan []Record
	done      chan struct{}
	closeOnce sync.Once
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]Record),
		subs:        make(map[int64]*memorySubscription),
		now:         time.Now,
	}
}

func (m *Memory) GetDocument(_ context.Context, collection, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.collections[collection][id]
	if !ok {
		return nil, nil
	}

	copied := cloneRecord(record)
	return &copied, nil
}

func (m *Memory) QueryDocuments(_ context.Context, collection string, predicates []Predicate) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.queryLocked(collection, predicates), nil
}

func (m *Memory) WriteDocument(_ context.Context, collection, id string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	documents, ok := m.collections[collection]
	if !ok {
		documents = make(map[string]Record)
		m.collections[collection] = documents
	}

	if id == "" {
		id = uuid.NewString()
	}

	record, exists := documents[id]
	if !exists {
		record = Record{ID: id, CreatedAt: m.now(), Fields: make(map[string]any)}
	}

	for key, value := range fields {
		record.Fields[key] = value
	}
	documents[id] = record

	m.broadcastLocked(collection)

	return id, nil
}

func (m *Memory) CreateDocument(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	documents, ok := m.collections[collection]
	if !ok {
		documents = make(map[string]Record)
		m.collections[collection] = documents
	}

	if _, exists := documents[id]; exists {
		return ErrDuplicateDocument
	}

	record := Record{ID: id, CreatedAt: m.now(), Fields: make(map[string]any, len(fields))}
	for key, value := range fields {
		record.Fields[key] = value
	}
	documents[id] = record

	m.broadcastLocked(collection)

	return nil
}

func (m *Memory) Subscribe(_ context.Context, collection string, predicates []Predicate, onSnapshot SnapshotFunc) (UnsubscribeFunc, error) {
	sub := &memorySubscription{
		collection: collection,
		predicates: predicates,
		snapshots:  make(chan []Record, 1),
		done:       make(chan struct{}),
	}

	m.mu.Lock()
	m.nextSubID++
	subID := m.nextSubID
	m.subs[subID] = sub
	// Первичный снапшот доставляется сразу после подписки.
	sub.push(m.queryLocked(collection, predicates))
	m.mu.Unlock()

	go func() {
		for {
			select {
			case snapshot := <-sub.snapshots:
				onSnapshot(snapshot)
			case <-sub.done:
				return
			}
		}
	}()

	unsubscribe := func() error {
		m.mu.Lock()
		delete(m.subs, subID)
		m.mu.Unlock()

		sub.closeOnce.Do(func() {
			close(sub.done)
		})
		return nil
	}

	return unsubscribe, nil
}

func (m *Memory) queryLocked(collection string, predicates []Predicate) []Record {
	result := make([]Record, 0)

	for _, record := range m.collections[collection] {
		matched := true
		for _, predicate := range predicates {
			if !predicate.Matches(record) {
				matched = false
				break
			}
		}
		if matched {
			result = append(result, cloneRecord(record))
		}
	}

	// Стабильный порядок нужен только для воспроизводимости снапшотов,
	// потребители сортируют результат сами.
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result
}

func (m *Memory) broadcastLocked(collection string) {
	for _, sub := range m.subs {
		if sub.collection != collection {
			continue
		}
		sub.push(m.queryLocked(collection, sub.predicates))
	}
}

// push заменяет лежащий в мейлбоксе снапшот свежим.
func (s *memorySubscription) push(snapshot []Record) {
	for {
		select {
		case s.snapshots <- snapshot:
			return
		default:
		}

		select {
		case <-s.snapshots:
		default:
		}
	}
}

func cloneRecord(r Record) Record {
	fields := make(map[string]any, len(r.Fields))
	for key, value := range r.Fields {
		fields[key] = value
	}
	return Record{ID: r.ID, CreatedAt: r.CreatedAt, Fields: fields}
}
