package place

import (
	"net"
	"net/http"
	"strings"

	"pixelplace/place/domain"
)

// KeyFunc extrai o endereço do cliente da requisição.
type KeyFunc func(r *http.Request) string

// DefaultKeyFunc usa o host de RemoteAddr. Com trustXFF, usa o primeiro IP
// do X-Forwarded-For (ligue só atrás de um proxy confiável).
func DefaultKeyFunc(trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// clientID pseudonimiza o endereço; o endereço cru nunca sai deste pacote.
func clientID(keyFn KeyFunc, r *http.Request) domain.ClientID {
	return domain.Identify(keyFn(r))
}
