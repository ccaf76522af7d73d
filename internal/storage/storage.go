package storage

import (
	"context"
	"errors"
)

var ErrObjectNotFound = errors.New("объект не найден")

// Handle — непрозрачная ссылка на загруженный объект.
type Handle string

// ObjectStorage — контракт объектного хранилища: загрузка бинарных данных
// и получение ссылки, по которой объект можно прочитать.
type ObjectStorage interface {
	Upload(ctx context.Context, path string, data []byte) (Handle, error)

	RetrievableURL(handle Handle) (string, error)
}
