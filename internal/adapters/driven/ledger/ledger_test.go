package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/leafstream/internal/core/domain"
)

func TestSignature_Format(t *testing.T) {
	sig := domain.Signature("pa-demo", "pa-demo:flower-001", 24.5, "2026-08-29T10:00:00Z")
	assert.Equal(t, "pa-demo|pa-demo:flower-001|24.50|2026-08-29T10:00:00Z", sig)
}

func TestObserve_IdempotentDedup(t *testing.T) {
	l := New()
	sig := domain.Signature("pa-demo", "pa-demo:flower-001", 24.5, "2026-08-29T10:00:00Z")

	// First call inserts, second call detects.
	assert.False(t, l.Observe(sig))
	assert.True(t, l.Observe(sig))
}

func TestSeen_DoesNotInsert(t *testing.T) {
	l := New()
	sig := domain.Signature("pa-demo", "pa-demo:flower-001", 24.5, "2026-08-29T10:00:00Z")

	assert.False(t, l.Seen(sig))
	// Querying must not mark; a failed save is retried next cycle.
	assert.False(t, l.Seen(sig))

	l.Mark(sig)
	assert.True(t, l.Seen(sig))
}

func TestSignature_DistinguishesAmountAndTimestamp(t *testing.T) {
	l := New()

	require.False(t, l.Observe(domain.Signature("s", "p", 10.0, "2026-08-29T10:00:00Z")))
	assert.False(t, l.Observe(domain.Signature("s", "p", 10.01, "2026-08-29T10:00:00Z")))
	assert.False(t, l.Observe(domain.Signature("s", "p", 10.0, "2026-08-29T10:00:01Z")))
	assert.Equal(t, 3, l.Len())
}

func TestObserve_ConcurrentSingleWinner(t *testing.T) {
	l := New()
	sig := domain.Signature("pa-demo", "pa-demo:flower-001", 24.5, "2026-08-29T10:00:00Z")

	const loops = 64
	var wg sync.WaitGroup
	inserted := make(chan struct{}, loops)

	for range loops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !l.Observe(sig) {
				inserted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(inserted)

	assert.Len(t, inserted, 1, "exactly one goroutine should win the insert")
}
