package domain

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// RGB é uma cor opaca de 8 bits por canal.
type RGB struct {
	R, G, B uint8
}

// Black é a cor inicial do canvas e a cor padrão de um cliente novo.
var Black = RGB{}

// ParseHexRGB aceita exatamente 6 dígitos hexadecimais (maiúsculos ou minúsculos).
func ParseHexRGB(s string) (RGB, bool) {
	if len(s) != 6 {
		return RGB{}, false
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: b[0], G: b[1], B: b[2]}, true
}

// Hex devolve a cor como "rrggbb".
func (c RGB) Hex() string {
	return hex.EncodeToString([]byte{c.R, c.G, c.B})
}

// String usa o formato "r,g,b", o mesmo gravado nos arquivos de cliente.
func (c RGB) String() string {
	return strconv.Itoa(int(c.R)) + "," + strconv.Itoa(int(c.G)) + "," + strconv.Itoa(int(c.B))
}

// ParseTriple lê o formato "r,g,b" de String.
func ParseTriple(s string) (RGB, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return RGB{}, fmt.Errorf("invalid color %q", s)
	}
	var ch [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
		ch[i] = uint8(v)
	}
	return RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
}

// NRGBA converte para o modelo usado pelo canvas (alpha sempre 255).
func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// FromColor descarta o alpha de qualquer color.Color.
func FromColor(c color.Color) RGB {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{R: n.R, G: n.G, B: n.B}
}
