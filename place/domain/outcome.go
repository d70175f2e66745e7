package domain

import "time"

// Outcome é o estado terminal de uma requisição no engine.
type Outcome uint8

const (
	OutcomeRejected Outcome = iota + 1
	OutcomeColorSet
	OutcomeCooldownBlocked
	OutcomeNoopBlocked
	OutcomePlaced
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeColorSet:
		return "color-set"
	case OutcomeCooldownBlocked:
		return "cooldown"
	case OutcomeNoopBlocked:
		return "noop"
	case OutcomePlaced:
		return "placed"
	}
	return "unknown"
}

// Outcomes lista todos os outcomes válidos, na ordem do enum.
var Outcomes = []Outcome{
	OutcomeRejected,
	OutcomeColorSet,
	OutcomeCooldownBlocked,
	OutcomeNoopBlocked,
	OutcomePlaced,
}

// ParseOutcome é o inverso de String.
func ParseOutcome(s string) (Outcome, bool) {
	for _, o := range Outcomes {
		if o.String() == s {
			return o, true
		}
	}
	return 0, false
}

// Decision é a resposta da regra de cooldown.
type Decision struct {
	Allowed bool
	// RetryAfter é quanto falta para a próxima colocação permitida.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
