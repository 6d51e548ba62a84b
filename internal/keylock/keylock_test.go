package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockerSerialisesSameKey(t *testing.T) {
	l := New()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Do("expert-a", func() error {
				v := counter
				v++
				counter = v
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, l.Len())
}

func TestLockerIndependentKeys(t *testing.T) {
	l := New()
	unlockA := l.Lock("a")
	done := make(chan struct{})

	go func() {
		unlockB := l.Lock("b")
		unlockB()
		close(done)
	}()

	<-done
	assert.Equal(t, 1, l.Len())
	unlockA()
	assert.Equal(t, 0, l.Len())
}
