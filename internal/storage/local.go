package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local хранит объекты на диске под заданным каталогом. Ссылки строятся
// от публичного базового URL, под которым роутер раздает этот каталог.
type Local struct {
	dir     string
	baseURL string
}

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог хранилища: %w", err)
	}

	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) Upload(_ context.Context, path string, data []byte) (Handle, error) {
	cleaned := filepath.Clean("/" + path)

	fullPath := filepath.Join(l.dir, filepath.FromSlash(cleaned))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("не удалось создать каталог объекта: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("не удалось записать объект: %w", err)
	}

	return Handle(strings.TrimPrefix(filepath.ToSlash(cleaned), "/")), nil
}

func (l *Local) RetrievableURL(handle Handle) (string, error) {
	if handle == "" {
		return "", ErrObjectNotFound
	}

	return fmt.Sprintf("%s/%s", l.baseURL, string(handle)), nil
}

// Dir возвращает корневой каталог для раздачи статики.
func (l *Local) Dir() string {
	return l.dir
}
