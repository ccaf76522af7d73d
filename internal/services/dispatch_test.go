package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Renal37/marketdesk/internal/models"
	"github.com/Renal37/marketdesk/internal/storage"
)

// Минимальный валидный JPEG-заголовок, чтобы сниффер типа узнал картинку.
func jpegPhoto(size int) models.DispatchPhoto {
	data := bytes.Repeat([]byte{0x42}, size)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0})

	return models.DispatchPhoto{
		Name: "proof.jpg",
		Data: data,
	}
}

func newDispatchFixture(storageErr error) (*DispatchService, *storage.Memory, *fakeLifecycleGateway, *fakeNotifier) {
	objects := storage.NewMemoryStorage()
	gatewayFake := &fakeLifecycleGateway{err: storageErr}
	notifier := &fakeNotifier{}
	lifecycle := NewLifecycleService(gatewayFake, notifier)

	return NewDispatchService(objects, lifecycle), objects, gatewayFake, notifier
}

func TestOpenDispatch(t *testing.T) {
	dispatch, _, _, _ := newDispatchFixture(nil)
	now := time.Now()

	testCases := []struct {
		testName    string
		order       models.Order
		orderID     string
		expectedErr error
	}{
		{
			testName: "Should open dispatch for a confirmed order",
			order:    testOrder("order-1", models.StatusConfirmed, now),
			orderID:  "order-1",
		},
		{
			testName:    "Should reject dispatch for a pending order",
			order:       testOrder("order-1", models.StatusPending, now),
			orderID:     "order-1",
			expectedErr: ErrDispatchUnavailable,
		},
		{
			testName:    "Should reject dispatch for a delivered order",
			order:       testOrder("order-1", models.StatusDelivered, now),
			orderID:     "order-1",
			expectedErr: ErrDispatchUnavailable,
		},
		{
			testName:    "Should reject dispatch for an unknown order",
			order:       testOrder("order-1", models.StatusConfirmed, now),
			orderID:     "order-missing",
			expectedErr: ErrOrderNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.testName, func(t *testing.T) {
			session := newTestSession(testSeller(), tc.order)

			err := dispatch.Open(session, tc.orderID)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSubmitDispatchValidatesPhotoBeforeUpload(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		testName    string
		photo       models.DispatchPhoto
		expectedErr error
	}{
		{
			testName:    "Should reject an empty photo",
			photo:       models.DispatchPhoto{Name: "proof.jpg"},
			expectedErr: ErrPhotoEmpty,
		},
		{
			testName:    "Should reject a photo over 5 MiB",
			photo:       jpegPhoto(5<<20 + 1),
			expectedErr: ErrPhotoTooLarge,
		},
		{
			testName: "Should reject a file that is not an image",
			photo: models.DispatchPhoto{
				Name: "proof.pdf",
				Data: []byte("%PDF-1.4 not really a photo"),
			},
			expectedErr: ErrPhotoNotImage,
		},
		{
			testName: "Should trust the declared image content type",
			photo: models.DispatchPhoto{
				Name:        "proof.bin",
				ContentType: "application/octet-stream",
				Data:        jpegPhoto(64).Data,
			},
			expectedErr: ErrPhotoNotImage,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.testName, func(t *testing.T) {
			dispatch, objects, gatewayFake, _ := newDispatchFixture(nil)
			session := newTestSession(testSeller(), testOrder("order-1", models.StatusConfirmed, now))

			_, err := dispatch.Submit(context.Background(), session, "order-1", tc.photo, "")

			assert.ErrorIs(t, err, tc.expectedErr)
			// До валидного фото ни загрузок, ни записей быть не должно.
			assert.Zero(t, objects.Uploads())
			assert.Zero(t, gatewayFake.writeCount())
		})
	}
}

func TestSubmitDispatch(t *testing.T) {
	dispatch, objects, gatewayFake, notifier := newDispatchFixture(nil)
	session := newTestSession(testSeller(), testOrder("order-1", models.StatusConfirmed, time.Now()))

	note := "  Left at the\x00 door  "

	updated, err := dispatch.Submit(context.Background(), session, "order-1", jpegPhoto(1024), note)

	require.NoError(t, err)
	assert.Equal(t, models.StatusOutForDelivery, updated.Status)
	assert.Equal(t, 1, objects.Uploads())
	assert.Equal(t, "seller-1", updated.DispatchedBy)
	assert.NotNil(t, updated.DispatchedAt)

	// Ссылка указывает в каталог продавца и заказа.
	assert.True(t, strings.HasPrefix(updated.DispatchPhoto, "https://storage.local/dispatch/seller-1/order-1/"), updated.DispatchPhoto)
	assert.True(t, strings.HasSuffix(updated.DispatchPhoto, ".jpg"))

	// Заметка очищается от управляющих символов и краевых пробелов.
	assert.Equal(t, "Left at the door", updated.DispatchNote)

	// Статус, фото и заметка уходят одной записью.
	require.Equal(t, 1, gatewayFake.writeCount())
	fields := gatewayFake.writes[0].fields
	assert.Equal(t, "out_for_delivery", fields["status"])
	assert.Equal(t, updated.DispatchPhoto, fields["dispatchPhoto"])
	assert.Equal(t, "Left at the door", fields["dispatchNote"])
	assert.Contains(t, fields, "dispatchedAt")

	assert.Equal(t, []models.OrderStatus{models.StatusOutForDelivery}, notifier.notified())
	assert.False(t, session.HasPending("order-1"))
}

func TestSubmitDispatchRevertsOnWriteFailure(t *testing.T) {
	dispatch, objects, _, notifier := newDispatchFixture(errors.New("connection reset"))
	session := newTestSession(testSeller(), testOrder("order-1", models.StatusConfirmed, time.Now()))

	_, err := dispatch.Submit(context.Background(), session, "order-1", jpegPhoto(1024), "")

	assert.ErrorIs(t, err, ErrPersistFailed)

	// Заказ возвращается в confirmed и готов к повторной отправке,
	// загруженный файл остается сиротой.
	local, ok := session.Order("order-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusConfirmed, local.Status)
	assert.False(t, session.HasPending("order-1"))
	assert.Equal(t, 1, objects.Uploads())
	assert.Empty(t, notifier.notified())

	assert.NoError(t, dispatch.Open(session, "order-1"))
}
