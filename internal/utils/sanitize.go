package utils

import (
	"math"
	"net/url"
	"strings"
	"unicode"
)

// SanitizeText подготавливает недоверенный текст к сохранению:
// удаляет управляющие символы (кроме перевода строки), обрезает
// пробелы по краям и ограничивает длину в рунах.
func SanitizeText(s string, limit int) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if r == '\n' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			continue
		}
		b.WriteRune(r)
	}

	cleaned := strings.TrimSpace(b.String())

	if limit > 0 {
		runes := []rune(cleaned)
		if len(runes) > limit {
			cleaned = strings.TrimSpace(string(runes[:limit]))
		}
	}

	return cleaned
}

// ValidateURL принимает только абсолютные http/https ссылки.
func ValidateURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func ValidatePrice(price float64) bool {
	return price > 0 && !math.IsInf(price, 0) && !math.IsNaN(price)
}

func ValidateQuantity(quantity int) bool {
	return quantity > 0
}
