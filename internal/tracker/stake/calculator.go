package stake

import (
	"errors"
	"math"
)

var ErrInvalidInput = errors.New("stake: total and odds must be positive")

// Compute divide o valor alvo da aposta pela odd do lado e devolve o stake em
// centavos. No modo padrão o resultado sobe pro próximo real inteiro, pra
// garantir que stake * odds cubra o valor alvo; com exact=true fica o valor
// em centavos arredondado.
func Compute(totalCents int64, odds float64, exact bool) (int64, error) {
	if totalCents <= 0 || odds <= 0 {
		return 0, ErrInvalidInput
	}

	raw := float64(totalCents) / odds
	if exact {
		return int64(math.Round(raw)), nil
	}
	return int64(math.Ceil(raw/100.0)) * 100, nil
}
