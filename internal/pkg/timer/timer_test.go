package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Fires(t *testing.T) {
	r := NewRegistry()
	fired := make(chan string, 1)

	r.Arm(1, "round-a", 5*time.Millisecond, func(id string) { fired <- id })

	round, ok := r.Pending(1)
	require.True(t, ok)
	assert.Equal(t, "round-a", round)

	select {
	case id := <-fired:
		assert.Equal(t, "round-a", id)
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	_, ok = r.Pending(1)
	assert.False(t, ok)
}

func TestRegistry_Cancel(t *testing.T) {
	r := NewRegistry()
	var calls int32

	r.Arm(1, "round-a", 20*time.Millisecond, func(string) { atomic.AddInt32(&calls, 1) })
	assert.True(t, r.Cancel(1))
	assert.False(t, r.Cancel(1))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestRegistry_RearmReplaces(t *testing.T) {
	r := NewRegistry()
	fired := make(chan string, 2)

	r.Arm(1, "old", 10*time.Millisecond, func(id string) { fired <- id })
	r.Arm(1, "new", 10*time.Millisecond, func(id string) { fired <- id })

	select {
	case id := <-fired:
		assert.Equal(t, "new", id)
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	select {
	case id := <-fired:
		t.Fatalf("replaced timer fired for %s", id)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestRegistry_ChatsIndependent(t *testing.T) {
	r := NewRegistry()
	fired := make(chan int64, 2)

	r.Arm(1, "a", 10*time.Millisecond, func(string) { fired <- 1 })
	r.Arm(2, "b", 10*time.Millisecond, func(string) { fired <- 2 })
	r.Cancel(1)

	select {
	case chat := <-fired:
		assert.Equal(t, int64(2), chat)
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	r.Stop()
}
