// Package validation содержит функции валидации входных данных.
package validation

import (
	"time"
	"unicode"
)

// DateLayout задаёт формат дат, принимаемых API.
const DateLayout = "2006-01-02"

// ParseDate разбирает дату в формате YYYY-MM-DD.
func ParseDate(value string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsValidDateRange проверяет, что начало периода не позже его конца.
func IsValidDateRange(from, to time.Time) bool {
	return !from.After(to)
}

// IsValidRegistrationNumber проверяет регистрационный номер студента:
// заглавные буквы, цифры и дефисы, от 5 до 20 символов.
func IsValidRegistrationNumber(number string) bool {
	if len(number) < 5 || len(number) > 20 {
		return false
	}

	for _, ch := range number {
		if !unicode.IsUpper(ch) && !unicode.IsDigit(ch) && ch != '-' {
			return false
		}
	}

	return true
}

// IsValidAmount проверяет денежную сумму в рупиях: положительная,
// не точнее одной пайсы.
func IsValidAmount(amount float64) bool {
	if amount <= 0 {
		return false
	}
	paise := amount * 100
	return paise == float64(int64(paise))
}
