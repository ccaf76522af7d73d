package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Renal37/marketdesk/internal/gateway"
	"github.com/Renal37/marketdesk/internal/models"
)

func strPtr(s string) *string {
	return &s
}

func TestRegister(t *testing.T) {
	documents := gateway.NewMemory()
	auth := NewAuthService(documents)
	ctx := context.Background()

	user := models.UnknownUser{Login: strPtr("alice"), Password: strPtr("secret"), Name: strPtr("Alice")}

	require.NoError(t, auth.Register(ctx, user))

	// Логин служит идентификатором документа, повтор невозможен.
	err := auth.Register(ctx, user)
	assert.ErrorIs(t, err, ErrUserIsAlreadyRegistered)

	// Пароль хранится только в виде хэша.
	record, err := documents.GetDocument(ctx, gateway.CollectionUsers, "alice")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.NotContains(t, record.Fields, "password")
	assert.NotEqual(t, "secret", record.Fields["hash"])
}

func TestRegisterValidation(t *testing.T) {
	auth := NewAuthService(gateway.NewMemory())
	ctx := context.Background()

	assert.Error(t, auth.Register(ctx, models.UnknownUser{Password: strPtr("secret")}))
	assert.Error(t, auth.Register(ctx, models.UnknownUser{Login: strPtr("alice")}))
	assert.Error(t, auth.Register(ctx, models.UnknownUser{Login: strPtr(""), Password: strPtr("secret")}))
}

func TestLogin(t *testing.T) {
	documents := gateway.NewMemory()
	auth := NewAuthService(documents)
	ctx := context.Background()

	require.NoError(t, auth.Register(ctx, models.UnknownUser{Login: strPtr("alice"), Password: strPtr("secret")}))

	t.Run("Should login with the correct password", func(t *testing.T) {
		assert.NoError(t, auth.Login(ctx, models.UnknownUser{Login: strPtr("alice"), Password: strPtr("secret")}))
	})

	t.Run("Should reject a wrong password", func(t *testing.T) {
		err := auth.Login(ctx, models.UnknownUser{Login: strPtr("alice"), Password: strPtr("wrong")})
		assert.ErrorIs(t, err, ErrPasswordIsIncorrect)
	})

	t.Run("Should reject an unknown login", func(t *testing.T) {
		err := auth.Login(ctx, models.UnknownUser{Login: strPtr("bob"), Password: strPtr("secret")})
		assert.ErrorIs(t, err, ErrUserIsNotExist)
	})
}

func TestGetUser(t *testing.T) {
	documents := gateway.NewMemory()
	auth := NewAuthService(documents)
	ctx := context.Background()

	require.NoError(t, auth.Register(ctx, models.UnknownUser{Login: strPtr("alice"), Password: strPtr("secret"), Name: strPtr("Alice")}))

	user, err := auth.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Login)
	assert.Equal(t, "Alice", user.Name)

	// Повторный запрос обслуживается из кеша.
	cached, err := auth.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, cached.ID)

	_, err = auth.GetUser(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserIsNotExist)
}

func TestRegisterDefaultsNameToLogin(t *testing.T) {
	documents := gateway.NewMemory()
	auth := NewAuthService(documents)
	ctx := context.Background()

	require.NoError(t, auth.Register(ctx, models.UnknownUser{Login: strPtr("alice"), Password: strPtr("secret")}))

	user, err := auth.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)
}
