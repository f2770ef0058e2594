package notify

import (
	"sync"
	"time"
)

// RateLimiter ограничивает частоту отправок на пару (канал, получатель)
// скользящим окном: история отправок хранится списком отметок времени
// и чистится от устаревших при каждой проверке.
type RateLimiter struct {
	mu      sync.Mutex
	history map[string][]time.Time

	limit  int
	window time.Duration

	now func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		history: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow отвечает, разрешена ли отправка, и при разрешении учитывает ее
// в истории. Отказ не доходит до внешнего провайдера.
func (r *RateLimiter) Allow(channel, recipient string) bool {
	key := channel + ":" + recipient
	current := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	recent := r.history[key][:0]
	for _, sent := range r.history[key] {
		if current.Sub(sent) < r.window {
			recent = append(recent, sent)
		}
	}

	if len(recent) >= r.limit {
		r.history[key] = recent
		return false
	}

	r.history[key] = append(recent, current)
	return true
}
