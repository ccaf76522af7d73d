package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Renal37/marketdesk/internal/logger"
	"github.com/Renal37/marketdesk/internal/models"
	"github.com/Renal37/marketdesk/internal/storage"
	"github.com/Renal37/marketdesk/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Определяем ошибки процесса отправки
var (
	ErrDispatchUnavailable = errors.New("отправка доступна только для подтвержденного заказа")
	ErrPhotoEmpty          = errors.New("файл с фото пуст")
	ErrPhotoTooLarge       = errors.New("фото больше допустимых 5 МиБ")
	ErrPhotoNotImage       = errors.New("файл не является изображением")
	ErrUploadFailed        = errors.New("не удалось загрузить фото отправки")
)

const (
	maxDispatchPhotoSize  = 5 << 20
	maxDispatchNoteLength = 500
)

// DispatchService — процесс, требующий фотоподтверждения перед переходом
// confirmed → out_for_delivery. Фото загружается первым; переход считается
// состоявшимся только после успешной записи заказа. Осиротевший файл после
// неудачной записи — допустимые издержки, заказ остается повторяемым.
type DispatchService struct {
	storage   storage.ObjectStorage
	lifecycle *LifecycleService
}

func NewDispatchService(objectStorage storage.ObjectStorage, lifecycle *LifecycleService) *DispatchService {
	return &DispatchService{
		storage:   objectStorage,
		lifecycle: lifecycle,
	}
}

// Open проверяет, что процесс отправки можно начать для заказа:
// заказ существует, принадлежит продавцу и находится в статусе confirmed.
func (d *DispatchService) Open(session *Session, orderID string) error {
	order, ok := session.Order(orderID)
	if !ok {
		return ErrOrderNotFound
	}

	if !order.HasSeller(session.SellerID()) {
		return ErrNotOrderSeller
	}

	if order.Status != models.StatusConfirmed {
		return ErrDispatchUnavailable
	}

	return nil
}

// Submit выполняет отправку: валидация файла до каких-либо сетевых
// вызовов, загрузка в хранилище, затем единая запись заказа со статусом,
// ссылкой на фото и заметкой.
func (d *DispatchService) Submit(ctx context.Context, session *Session, orderID string, photo models.DispatchPhoto, note string) (models.Order, error) {
	// Состояние могло измениться между открытием процесса и отправкой,
	// поэтому условия открытия проверяются заново.
	if err := d.Open(session, orderID); err != nil {
		return models.Order{}, err
	}

	if err := validatePhoto(photo); err != nil {
		return models.Order{}, err
	}

	note = utils.SanitizeText(note, maxDispatchNoteLength)

	previous, _ := session.Order(orderID)

	path := fmt.Sprintf("dispatch/%s/%s/%s%s", session.SellerID(), orderID, uuid.NewString(), photoExtension(photo))

	handle, err := d.storage.Upload(ctx, path, photo.Data)
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	photoURL, err := d.storage.RetrievableURL(handle)
	if err != nil {
		return models.Order{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	if !utils.ValidateURL(photoURL) {
		return models.Order{}, fmt.Errorf("%w: хранилище вернуло некорректную ссылку %q", ErrUploadFailed, photoURL)
	}

	updated, err := d.lifecycle.advance(ctx, session, orderID, models.StatusOutForDelivery, &dispatchAttachment{
		photoURL: photoURL,
		note:     note,
		sellerID: session.SellerID(),
	})
	if err != nil {
		// Заказ остается в confirmed и может быть отправлен повторно;
		// загруженный файл остается сиротой.
		session.Revert(previous)
		logger.Log.Warn("dispatch commit failed, uploaded photo orphaned",
			zap.String("orderID", orderID),
			zap.String("path", path),
			zap.Error(err),
		)
		return models.Order{}, err
	}

	return updated, nil
}

func validatePhoto(photo models.DispatchPhoto) error {
	if len(photo.Data) == 0 {
		return ErrPhotoEmpty
	}

	if len(photo.Data) > maxDispatchPhotoSize {
		return ErrPhotoTooLarge
	}

	contentType := photo.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(photo.Data)
	}

	if !strings.HasPrefix(contentType, "image/") {
		return ErrPhotoNotImage
	}

	return nil
}

func photoExtension(photo models.DispatchPhoto) string {
	if ext := strings.ToLower(filepath.Ext(photo.Name)); ext != "" {
		return ext
	}

	switch photo.ContentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
