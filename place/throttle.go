package place

import (
	"net/http"
	"time"

	"pixelplace/place/application"
	"pixelplace/place/domain"
	"pixelplace/place/infra"
)

type ThrottleOptions struct {
	Store        domain.LimiterStore
	KeyFn        KeyFunc
	RejectStatus int
	RetryAfter   time.Duration
	// AddHeaders expõe X-RateLimit-RPS / X-RateLimit-Burst quando o store os conhece.
	AddHeaders bool
	// Fallback, se definido, atende a requisição barrada no lugar do erro
	// (Retry-After já vem preenchido).
	Fallback http.Handler
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

// ThrottleMiddleware barra flood de requisições por cliente (429 + Retry-After).
// A chave é o id pseudonimizado, o mesmo usado pelo cooldown.
func ThrottleMiddleware(opts ThrottleOptions) func(next http.Handler) http.Handler {
	if opts.Store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(false)
	}

	svc := application.Throttle{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.AddHeaders {
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
					w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
				}
			}

			dec := svc.Decide(clientID(opts.KeyFn, r))
			if !dec.Allowed {
				w.Header().Set("Retry-After", formatInt(retryAfterSeconds(dec.RetryAfter)))
				if opts.Fallback != nil {
					opts.Fallback.ServeHTTP(w, r)
					return
				}
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
}

// ConcurrencyMiddleware limita requisições simultâneas (503 quando não há vaga).
// Max <= 0 desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	svc := application.Slots{
		Pool:           infra.NewRequestSlots(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
