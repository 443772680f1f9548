package outbox

import (
	"math/rand/v2"
	"time"
)

// Backoff вычисляет задержку перед повторной отправкой failed-элемента:
// экспоненциальный рост base * 2^(attempt-1) с верхней границей и джиттером,
// чтобы после восстановления сети клиенты не ломились на сервер одновременно.
type Backoff struct {
	Base   time.Duration // Base задержка первой повторной попытки
	Cap    time.Duration // Cap верхняя граница задержки
	Jitter float64       // Jitter доля случайного разброса (0.2 = ±20%)
}

// DefaultBackoff параметры повторных попыток по умолчанию
var DefaultBackoff = Backoff{
	Base:   2 * time.Second,
	Cap:    5 * time.Minute,
	Jitter: 0.2,
}

// Delay returns the delay before retry attempt number attempt (1-based)
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := b.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= b.Cap {
			delay = b.Cap
			break
		}
	}
	if delay > b.Cap {
		delay = b.Cap
	}

	if b.Jitter > 0 {
		// Случайный сдвиг в диапазоне [-Jitter, +Jitter]
		shift := (rand.Float64()*2 - 1) * b.Jitter
		delay = time.Duration(float64(delay) * (1 + shift))
	}

	return delay
}
