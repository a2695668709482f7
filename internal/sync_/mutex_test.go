package sync_

import (
	"sync"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

// Verify that intended interfaces are implemented
var _ Mutexer[int] = NewMutexed(123)

func TestSimple(t *testing.T) {
	assert := assert_.New(t)
	m := NewMutexed(123)
	assert.Equal(123, m.Get())
	m.Set(456)
	assert.Equal(456, m.Get())
	assert.NoError(m.Locked(func(v *int) error {
		*v++
		return nil
	}))
	assert.Equal(457, m.Get())
}

func TestRace(t *testing.T) {
	assert := assert_.New(t)
	m := NewMutexed(0)
	start := make(chan struct{})
	wg := sync.WaitGroup{}

	// Increment by 2500 with 50 goroutines in parallel
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
				_ = m.Locked(func(v *int) error {
					*v++
					return nil
				})
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(2500, m.Get())
}
