package keylock_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/resource-allocations-go/allocation/keylock"
)

func Test_Keyed_SerializesHoldersOfTheSameKey(t *testing.T) {
	// setup
	locker := keylock.NewKeyed()
	var inside, maxInside int32
	var wg sync.WaitGroup

	// act
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locker.Lock("resource-1")
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				current := atomic.LoadInt32(&maxInside)
				if n <= current || atomic.CompareAndSwapInt32(&maxInside, current, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	// assert
	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, locker.Len(), "released keys must be removed")
}

func Test_Keyed_DoesNotBlockDifferentKeys(t *testing.T) {
	// setup
	locker := keylock.NewKeyed()
	unlockA := locker.Lock("a")
	defer unlockA()

	// act
	acquired := make(chan struct{})
	go func() {
		unlockB := locker.Lock("b")
		unlockB()
		close(acquired)
	}()

	// assert
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key was blocked")
	}
	assert.Equal(t, 1, locker.Len())
}

func Test_Keyed_UnlockIsIdempotent(t *testing.T) {
	locker := keylock.NewKeyed()

	unlock := locker.Lock("a")
	unlock()
	unlock()

	assert.Equal(t, 0, locker.Len())

	// the key must still be lockable after a double unlock
	unlock = locker.Lock("a")
	unlock()
}

func Test_Global_SerializesDifferentKeys(t *testing.T) {
	// setup
	locker := keylock.NewGlobal()
	unlockA := locker.Lock("a")

	// act
	acquired := make(chan struct{})
	go func() {
		unlockB := locker.Lock("b")
		unlockB()
		close(acquired)
	}()

	// assert
	select {
	case <-acquired:
		t.Fatal("global lock let a second key in")
	case <-time.After(20 * time.Millisecond):
	}

	unlockA()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("global lock was not released")
	}
}
