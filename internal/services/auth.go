package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Renal37/marketdesk/internal/gateway"
	"github.com/Renal37/marketdesk/internal/models"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"
)

// Определение пользовательских ошибок
var (
	ErrUserIsAlreadyRegistered = errors.New("пользователь уже зарегистрирован")
	ErrUserIsNotExist          = errors.New("пользователь не существует")
	ErrPasswordIsIncorrect     = errors.New("пароль неверен")
)

const (
	profileCacheSize = 256
	profileCacheTTL  = 5 * time.Minute
)

// authGateway определяет часть контракта шлюза, нужную аутентификации.
// Идентификатором документа пользователя служит логин, поэтому
// уникальность регистрации обеспечивает create-only запись.
type authGateway interface {
	GetDocument(ctx context.Context, collection, id string) (*gateway.Record, error)
	CreateDocument(ctx context.Context, collection, id string, fields map[string]any) error
}

// AuthService представляет сервис для аутентификации и управления пользователями
type AuthService struct {
	storage authGateway
	cache   *Cache[string, models.User]
	group   singleflight.Group
}

func NewAuthService(storage authGateway) *AuthService {
	return &AuthService{
		storage: storage,
		cache:   NewCache[string, models.User](profileCacheSize, profileCacheTTL),
	}
}

// Register регистрирует нового пользователя
func (auth *AuthService) Register(ctx context.Context, user models.UnknownUser) error {
	if err := validateUser(user); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("ошибка при хэшировании пароля: %w", err)
	}

	name := *user.Login
	if user.Name != nil && *user.Name != "" {
		name = *user.Name
	}

	record := models.User{
		Login: *user.Login,
		Name:  name,
		Hash:  string(hashedPassword),
	}

	if err := auth.storage.CreateDocument(ctx, gateway.CollectionUsers, *user.Login, record.Fields()); err != nil {
		if errors.Is(err, gateway.ErrDuplicateDocument) {
			return ErrUserIsAlreadyRegistered
		}
		return fmt.Errorf("ошибка при создании пользователя: %w", err)
	}

	return nil
}

// Login выполняет аутентификацию пользователя
func (auth *AuthService) Login(ctx context.Context, user models.UnknownUser) error {
	if err := validateUser(user); err != nil {
		return err
	}

	// Хэш читается напрямую, минуя кеш профилей.
	found, err := auth.findUser(ctx, *user.Login)
	if err != nil {
		return err
	}

	if found == nil {
		return ErrUserIsNotExist
	}

	if err := bcrypt.CompareHashAndPassword([]byte(found.Hash), []byte(*user.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordIsIncorrect
		}
		return fmt.Errorf("ошибка при сравнении паролей: %w", err)
	}

	return nil
}

// GetUser возвращает профиль пользователя по логину. Результаты кешируются,
// параллельные промахи по одному логину сводятся в один запрос к шлюзу.
func (auth *AuthService) GetUser(ctx context.Context, login string) (*models.User, error) {
	if cached, ok := auth.cache.Get(login); ok {
		return &cached, nil
	}

	result, err, _ := auth.group.Do(login, func() (interface{}, error) {
		found, err := auth.findUser(ctx, login)
		if err != nil {
			return nil, err
		}

		if found == nil {
			return nil, ErrUserIsNotExist
		}

		auth.cache.Set(login, *found)
		return *found, nil
	})
	if err != nil {
		return nil, err
	}

	user := result.(models.User)
	return &user, nil
}

func (auth *AuthService) findUser(ctx context.Context, login string) (*models.User, error) {
	record, err := auth.storage.GetDocument(ctx, gateway.CollectionUsers, login)
	if err != nil {
		return nil, fmt.Errorf("ошибка при поиске пользователя: %w", err)
	}

	if record == nil {
		return nil, nil
	}

	user := models.UserFromRecord(*record)
	return &user, nil
}

// validateUser проверяет валидность входных данных пользователя
func validateUser(user models.UnknownUser) error {
	if user.Login == nil || *user.Login == "" {
		return errors.New("логин не может быть пустым")
	}
	if user.Password == nil || *user.Password == "" {
		return errors.New("пароль не может быть пустым")
	}
	return nil
}
