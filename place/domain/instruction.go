package domain

import (
	"errors"
	"strconv"
)

// ErrInvalidInstruction indica um comando malformado. Não é erro de servidor:
// o engine traduz para OutcomeRejected.
var ErrInvalidInstruction = errors.New("invalid instruction")

type InstructionKind uint8

const (
	KindPlaceAt InstructionKind = iota + 1
	KindSetColor
)

// Instruction é o comando já interpretado.
// Para KindPlaceAt valem Col/Row; para KindSetColor vale Color.
type Instruction struct {
	Kind  InstructionKind
	Col   int
	Row   int
	Color RGB
}

// ParseInstruction interpreta um comando cru para um canvas de lado `side`.
//
//   - "p<índice>": índice decimal em [0, side²), linear por linha a partir do topo esquerdo
//   - "c<rrggbb>": exatamente 6 dígitos hexadecimais
//
// Qualquer outra coisa devolve ErrInvalidInstruction.
func ParseInstruction(raw string, side int) (Instruction, error) {
	if raw == "" || side <= 0 {
		return Instruction{}, ErrInvalidInstruction
	}

	params := raw[1:]
	switch raw[0] {
	case 'p':
		idx, ok := parseIndex(params)
		if !ok || idx >= side*side {
			return Instruction{}, ErrInvalidInstruction
		}
		return Instruction{Kind: KindPlaceAt, Col: idx % side, Row: idx / side}, nil
	case 'c':
		c, ok := ParseHexRGB(params)
		if !ok {
			return Instruction{}, ErrInvalidInstruction
		}
		return Instruction{Kind: KindSetColor, Color: c}, nil
	}
	return Instruction{}, ErrInvalidInstruction
}

// parseIndex aceita só dígitos ASCII (sem sinal, sem espaços).
func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// overflow
		return 0, false
	}
	return v, true
}
