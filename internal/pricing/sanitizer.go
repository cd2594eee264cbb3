// Package pricing содержит политику округления цен филиала.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Rounding: политика округления ожидаемых сумм.
type Rounding string

const (
	// RoundingExact оставляет значение как есть.
	RoundingExact Rounding = "exact"
	// RoundingDown округляет вниз до шага.
	RoundingDown Rounding = "round-down"
	// RoundingUp округляет вверх до шага.
	RoundingUp Rounding = "round-up"
)

// Increment: шаг округления в денежных единицах.
const Increment = 10

var increment = decimal.NewFromInt(Increment)

// ParseRounding разбирает название политики из конфигурации.
func ParseRounding(value string) (Rounding, error) {
	switch Rounding(strings.ToLower(strings.TrimSpace(value))) {
	case "", RoundingExact:
		return RoundingExact, nil
	case RoundingDown, "down", "rounddown":
		return RoundingDown, nil
	case RoundingUp, "up", "roundup":
		return RoundingUp, nil
	default:
		return "", fmt.Errorf("unsupported price rounding %q (use exact|round-down|round-up)", value)
	}
}

// Sanitizer приводит ожидаемые суммы к политике филиала. Все «ожидаемые»
// значения в валидаторах проходят через Sanitize, присланные клиентом не проходят.
type Sanitizer struct {
	rounding Rounding
}

// NewSanitizer создаёт sanitizer с фиксированной политикой.
func NewSanitizer(rounding Rounding) Sanitizer {
	return Sanitizer{rounding: rounding}
}

// Rounding возвращает политику sanitizer.
func (s Sanitizer) Rounding() Rounding {
	return s.rounding
}

// Sanitize применяет политику округления. Функция чистая и идемпотентная.
func (s Sanitizer) Sanitize(price decimal.Decimal) decimal.Decimal {
	switch s.rounding {
	case RoundingDown:
		return roundDown(price)
	case RoundingUp:
		return roundUp(price)
	default:
		return price
	}
}

func roundDown(price decimal.Decimal) decimal.Decimal {
	return price.Div(increment).Floor().Mul(increment)
}

// roundUp: кратные шагу значения не меняются, иначе floor(x/10)*10 + 10.
func roundUp(price decimal.Decimal) decimal.Decimal {
	down := roundDown(price)
	if down.Equal(price) {
		return price
	}
	return down.Add(increment)
}

// Round округляет до целых денежных единиц (половина округляется от нуля).
func Round(value decimal.Decimal) decimal.Decimal {
	return value.Round(0)
}
