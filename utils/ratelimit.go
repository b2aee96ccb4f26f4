package utils

import (
	"sync"
	"time"
)

// RateLimiter ограничивает частоту запросов скользящим окном по ключу клиента
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Limit возвращает максимальное число запросов в окне
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// prune удаляет запросы вне окна; вызывается под блокировкой
func (rl *RateLimiter) prune(key string, now time.Time) []time.Time {
	windowStart := now.Add(-rl.window)
	requests := rl.requests[key]
	i := 0
	for i < len(requests) && !requests[i].After(windowStart) {
		i++
	}
	requests = requests[i:]
	if len(requests) == 0 {
		delete(rl.requests, key)
		return nil
	}
	rl.requests[key] = requests
	return requests
}

// Allow проверяет, разрешен ли запрос, и возвращает остаток и момент сброса окна
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	requests := rl.prune(key, now)

	if len(requests) >= rl.limit {
		if len(requests) == 0 {
			return false, 0, now.Add(rl.window)
		}
		return false, 0, requests[0].Add(rl.window)
	}

	requests = append(requests, now)
	rl.requests[key] = requests
	return true, rl.limit - len(requests), requests[0].Add(rl.window)
}

// Reset сбрасывает счетчик для ключа
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.requests, key)
}

// Cleanup удаляет ключи без запросов в текущем окне
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key := range rl.requests {
		rl.prune(key, now)
	}
}
