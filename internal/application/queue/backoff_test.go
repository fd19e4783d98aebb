package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// El backoff es monótono no decreciente en los reintentos y queda topado en el
// máximo configurado.
func TestRetryDelay_MonotonoYTopado(t *testing.T) {
	base, max := 2*time.Second, 30*time.Second

	assert.Equal(t, time.Duration(0), RetryDelay(0, base, max))
	assert.Equal(t, 2*time.Second, RetryDelay(1, base, max))
	assert.Equal(t, 4*time.Second, RetryDelay(2, base, max))
	assert.Equal(t, 16*time.Second, RetryDelay(4, base, max))
	assert.Equal(t, max, RetryDelay(5, base, max))

	anterior := time.Duration(0)
	for r := 1; r <= 100; r++ {
		d := RetryDelay(r, base, max)
		assert.GreaterOrEqual(t, d, anterior, "reintento %d", r)
		assert.LessOrEqual(t, d, max)
		anterior = d
	}
}

// contra desborde: con cientos de reintentos el delay sigue siendo el máximo,
// nunca negativo
func TestRetryDelay_SinDesborde(t *testing.T) {
	d := RetryDelay(500, 2*time.Second, 30*time.Second)
	assert.Equal(t, 30*time.Second, d)
}

// El jitter agrega a lo sumo 10%: el delay efectivo nunca excede max*1.1.
func TestConJitter_HastaDiezPorCiento(t *testing.T) {
	base := 30 * time.Second
	for i := 0; i < 200; i++ {
		d := conJitter(base)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/10)
	}
	assert.Equal(t, time.Duration(0), conJitter(0))
}
