package utils

import (
	"errors"
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone converts a user-entered phone number to E.164. Numbers without
// an international prefix get defaultCountryCode (digits only, e.g. "39").
// An empty input stays empty.
func NormalizePhone(phone, defaultCountryCode string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}

	international := strings.HasPrefix(phone, "+") || strings.HasPrefix(phone, "00")
	digits := nonDigits.ReplaceAllString(phone, "")
	if strings.HasPrefix(phone, "00") {
		digits = strings.TrimPrefix(digits, "00")
	}
	if !international {
		digits = defaultCountryCode + strings.TrimLeft(digits, "0")
	}

	// E.164 allows at most 15 digits; anything under 8 is not a dialable number.
	if len(digits) < 8 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}
	return "+" + digits, nil
}
