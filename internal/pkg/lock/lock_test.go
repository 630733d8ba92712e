package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestKeyedLock_SerializesReadModifyWrite checks that concurrent joins on the
// same chat never observe a stale player count.
func TestKeyedLock_SerializesReadModifyWrite(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		workers := rapid.IntRange(2, 30).Draw(t, "workers")
		chats := rapid.IntRange(1, 4).Draw(t, "chats")

		kl := NewKeyedLock()
		counts := make([]int, chats)

		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func(i int) {
				defer wg.Done()
				chat := i % chats
				err := kl.WithLock(context.Background(), int64(chat), time.Second, func() error {
					n := counts[chat]
					time.Sleep(time.Microsecond)
					counts[chat] = n + 1
					return nil
				})
				if err != nil {
					panic(err)
				}
			}(i)
		}
		wg.Wait()

		total := 0
		for _, c := range counts {
			total += c
		}
		if total != workers {
			t.Fatalf("lost updates: want %d, got %d", workers, total)
		}
		if kl.size() != 0 {
			t.Fatalf("lock entries leaked: %d", kl.size())
		}
	})
}

func TestKeyedLock_Timeout(t *testing.T) {
	kl := NewKeyedLock()
	require.True(t, kl.TryLock(1))
	assert.True(t, kl.IsLocked(1))

	err := kl.WithLock(context.Background(), 1, 10*time.Millisecond, func() error {
		t.Fatal("must not run while the key is held")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)

	// Other keys are independent.
	ran := false
	require.NoError(t, kl.WithLock(context.Background(), 2, 10*time.Millisecond, func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)

	kl.Unlock(1)
	assert.False(t, kl.IsLocked(1))
	assert.Equal(t, 0, kl.size())
}

func TestKeyedLock_CancelledContext(t *testing.T) {
	kl := NewKeyedLock()
	require.True(t, kl.TryLock(1))
	defer kl.Unlock(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := kl.WithLock(ctx, 1, time.Second, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeyedLock_UnlockUnheldIsNoop(t *testing.T) {
	kl := NewKeyedLock()
	kl.Unlock(5)
	assert.True(t, kl.TryLock(5))
	assert.False(t, kl.TryLock(5))
	kl.Unlock(5)
	assert.Equal(t, 0, kl.size())
}
