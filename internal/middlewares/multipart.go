package middlewares

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Renal37/marketdesk/internal/models"
)

type parsedDispatchDataFieldType string

const parsedDispatchDataField parsedDispatchDataFieldType = "parsedDispatchDataField"

// Тело запроса отправки ограничивается с запасом над лимитом фото,
// чтобы превышение лимита отклонял сервис, а не транспорт.
const maxDispatchFormSize = 8 << 20

// DispatchForm — разобранная multipart-форма отправки заказа.
type DispatchForm struct {
	Photo models.DispatchPhoto
	Note  string
}

// DispatchFormMiddleware разбирает multipart-форму с полями photo и note
// и передает её в контексте запроса.
func DispatchFormMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			http.Error(w, "Content-Type is not multipart/form-data", http.StatusUnsupportedMediaType)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxDispatchFormSize)

		if err := r.ParseMultipartForm(maxDispatchFormSize); err != nil {
			http.Error(w, fmt.Sprintf("Error occurred during parsing the form: %s", err.Error()), http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("photo")
		if err != nil {
			http.Error(w, "Form field photo is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, fmt.Sprintf("Error occurred during reading the photo: %s", err.Error()), http.StatusBadRequest)
			return
		}

		form := DispatchForm{
			Photo: models.DispatchPhoto{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			},
			Note: r.FormValue("note"),
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), parsedDispatchDataField, form)))
	})
}

// GetParsedDispatchForm извлекает форму отправки из контекста запроса.
func GetParsedDispatchForm(w http.ResponseWriter, r *http.Request) (DispatchForm, bool) {
	form, ok := r.Context().Value(parsedDispatchDataField).(DispatchForm)

	if !ok {
		http.Error(w, "Could not retrieve data from context", http.StatusInternalServerError)
		return DispatchForm{}, false
	}

	return form, true
}
