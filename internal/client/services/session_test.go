package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_NewSessionIsTracked(t *testing.T) {
	m := NewSessionManager(time.Hour)

	id := m.NewSession("n1")
	got, ok := m.Get("n1")
	require.True(t, ok)
	assert.Equal(t, id, got)

	m.ClearSession("n1")
	_, ok = m.Get("n1")
	assert.False(t, ok)
}

func TestSessionManager_IDsStrictlyIncrease(t *testing.T) {
	m := NewSessionManager(time.Hour)
	fixed := time.UnixMilli(1_700_000_000_000)
	m.now = func() time.Time { return fixed }

	a := m.NewID()
	b := m.NewID()
	c := m.NewSession("n")
	assert.Equal(t, "1700000000000", a)
	assert.Equal(t, "1700000000001", b)
	assert.Equal(t, "1700000000002", c)
}

func TestSessionManager_ConcurrentIDsUnique(t *testing.T) {
	m := NewSessionManager(time.Hour)

	var mu sync.Mutex
	seen := map[string]struct{}{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := m.NewID()
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

func TestKeyedMutex_SerialisesSameKey(t *testing.T) {
	k := newKeyedMutex()

	var (
		wg      sync.WaitGroup
		active  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("note")
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, k.locks)
}
