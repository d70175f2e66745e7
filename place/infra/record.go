package infra

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pixelplace/place/domain"
)

// encodeRecord usa o layout "r,g,b;segundos" (segundos Unix com fração).
func encodeRecord(rec domain.ClientRecord) string {
	return rec.Color.String() + ";" + formatUnix(rec.LastPlacement)
}

// decodeRecord aceita também registros sem timestamp (tratados como epoch).
func decodeRecord(s string) (domain.ClientRecord, error) {
	rec := domain.DefaultClientRecord()
	parts := strings.SplitN(strings.TrimSpace(s), ";", 2)

	c, err := domain.ParseTriple(parts[0])
	if err != nil {
		return rec, err
	}
	rec.Color = c

	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		t, err := parseUnix(parts[1])
		if err != nil {
			return rec, err
		}
		rec.LastPlacement = t
	}
	return rec, nil
}

func formatUnix(t time.Time) string {
	return fmt.Sprintf("%d.%09d", t.Unix(), t.Nanosecond())
}

// parseUnix lê "1700000000", "1700000000.5" ou "1700000000.123456789" sem
// passar por float64 (que perderia os nanossegundos).
func parseUnix(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	secPart, fracPart, _ := strings.Cut(s, ".")

	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}

	var nsec int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		for _, r := range fracPart {
			if r < '0' || r > '9' {
				return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
			}
		}
		fracPart += strings.Repeat("0", 9-len(fracPart))
		nsec, _ = strconv.ParseInt(fracPart, 10, 64)
	}
	return time.Unix(sec, nsec).UTC(), nil
}

// validClientID evita que um id vire caminho de arquivo arbitrário.
func validClientID(id domain.ClientID) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range string(id) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
