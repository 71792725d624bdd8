package checkout

import "strings"

const (
	maxCardNumberDigits = 16
	maxCVVDigits        = 4
	cardGroupSize       = 4
)

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatCardNumber keeps the first 16 digits of value and groups them by four.
// Formatting an already formatted number returns it unchanged.
func FormatCardNumber(value string) string {
	digits := digitsOnly(value)
	if len(digits) > maxCardNumberDigits {
		digits = digits[:maxCardNumberDigits]
	}

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && i%cardGroupSize == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func SanitizeCVV(value string) string {
	digits := digitsOnly(value)
	if len(digits) > maxCVVDigits {
		digits = digits[:maxCVVDigits]
	}
	return digits
}

// MaskCardNumber hides everything but the last four digits.
func MaskCardNumber(value string) string {
	digits := digitsOnly(value)
	if len(digits) <= cardGroupSize {
		return digits
	}
	return strings.Repeat("*", len(digits)-cardGroupSize) + digits[len(digits)-cardGroupSize:]
}
