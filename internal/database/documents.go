package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Renal37/marketdesk/internal/gateway"
)

// SQL-запросы для работы с документами
const (
	SelectDocumentQuery = `
		SELECT
			id,
			created_at,
			fields
		FROM
		    documents
		WHERE
		    collection = $1 AND id = $2
	`
	SelectCollectionQuery = `
		SELECT
			id,
			created_at,
			fields
		FROM
		    documents
		WHERE
		    collection = $1
		ORDER BY
		    created_at, id
	`
	UpsertDocumentQuery = `
		INSERT INTO
			documents (collection, id, fields)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
			DO UPDATE SET fields = documents.fields || excluded.fields
	`
	InsertDocumentQuery = `
		INSERT INTO
			documents (collection, id, fields)
		VALUES ($1, $2, $3)
	`
)

// GetDocument возвращает документ коллекции или nil без ошибки, если его нет.
func (d *Database) GetDocument(ctx context.Context, collection, id string) (*gateway.Record, error) {
	record := gateway.Record{}
	var rawFields []byte

	err := d.db.QueryRow(ctx, SelectDocumentQuery, collection, id).
		Scan(&record.ID, &record.CreatedAt, &rawFields)
	if err != nil {
		// Если документ не найден, возвращаем nil без ошибки
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска документа: %w", err)
	}

	if err := json.Unmarshal(rawFields, &record.Fields); err != nil {
		return nil, fmt.Errorf("ошибка разбора полей документа: %w", err)
	}

	return &record, nil
}

// QueryDocuments возвращает документы коллекции, подходящие под все условия.
// Коллекция выбирается целиком одним запросом, условия применяются на месте:
// формы документов в коллекции неоднородны, и jsonb-поля не типизированы.
func (d *Database) QueryDocuments(ctx context.Context, collection string, predicates []gateway.Predicate) ([]gateway.Record, error) {
	rows, err := d.db.Query(ctx, SelectCollectionQuery, collection)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска документов: %w", err)
	}
	defer rows.Close()

	var result []gateway.Record

	// Обрабатываем каждую строку результата
	for rows.Next() {
		var record gateway.Record
		var rawFields []byte

		if err := rows.Scan(&record.ID, &record.CreatedAt, &rawFields); err != nil {
			return nil, fmt.Errorf("ошибка обработки строки с документом: %w", err)
		}

		if err := json.Unmarshal(rawFields, &record.Fields); err != nil {
			return nil, fmt.Errorf("ошибка разбора полей документа: %w", err)
		}

		if matchesAll(record, predicates) {
			result = append(result, record)
		}
	}

	// Проверка на ошибки при итерации по строкам
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации по строкам: %w", err)
	}

	return result, nil
}

// WriteDocument создает документ или дописывает поля поверх существующих.
// При пустом идентификаторе документ получает новый uuid.
func (d *Database) WriteDocument(ctx context.Context, collection, id string, fields map[string]any) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	rawFields, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("ошибка кодирования полей документа: %w", err)
	}

	if _, err := d.db.Exec(ctx, UpsertDocumentQuery, collection, id, rawFields); err != nil {
		return "", fmt.Errorf("ошибка записи документа: %w", err)
	}

	return id, nil
}

// CreateDocument создает документ только если его еще нет.
func (d *Database) CreateDocument(ctx context.Context, collection, id string, fields map[string]any) error {
	rawFields, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("ошибка кодирования полей документа: %w", err)
	}

	if _, err := d.db.Exec(ctx, InsertDocumentQuery, collection, id, rawFields); err != nil {
		var e *pgconn.PgError
		// Нарушение уникальности означает, что документ уже существует
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return gateway.ErrDuplicateDocument
		}
		return fmt.Errorf("ошибка создания документа: %w", err)
	}

	return nil
}

func matchesAll(record gateway.Record, predicates []gateway.Predicate) bool {
	for _, predicate := range predicates {
		if !predicate.Matches(record) {
			return false
		}
	}
	return true
}
