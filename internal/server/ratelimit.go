package server

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// AgentRateLimiter держит по лимитеру на агента. Защищает точку подачи
// предложений от бурстов одного агента; дневные квоты бизнес-уровня
// живут отдельно, в QuotaGate.
type AgentRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewAgentRateLimiter(perSec float64, burst int) *AgentRateLimiter {
	if perSec <= 0 {
		perSec = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &AgentRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSec),
		burst:    burst,
	}
}

func (l *AgentRateLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// Middleware отсекает бурсты по заголовку X-Agent-ID (fallback — адрес клиента).
func (l *AgentRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Agent-ID")
		if key == "" {
			key = r.RemoteAddr
		}

		if !l.limiterFor(key).Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
