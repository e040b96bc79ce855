// Package validation содержит проверки входных данных координатора обменов.
package validation

// MaxAmountBTC — максимальное количество BTC в одном заказе.
const MaxAmountBTC = 100.0

// IsValidAmount проверяет количество BTC для заказа на обмен.
func IsValidAmount(amount float64) bool {
	return amount > 0 && amount <= MaxAmountBTC
}

// CodeLength — длина генерируемого атрибуционного кода.
const CodeLength = 12

// IsValidCode проверяет формат атрибуционного кода: непустая строка
// из латинских букв и цифр разумной длины.
func IsValidCode(code string) bool {
	if len(code) == 0 || len(code) > 64 {
		return false
	}
	for _, c := range code {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
