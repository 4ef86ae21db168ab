package keylock

import (
	"sync"
	"testing"
)

func TestDo_SerializesSameKey(t *testing.T) {
	kl := New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Do("user-1", func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("expected 100, got %d", counter)
	}
}

func TestDo_IndependentKeys(t *testing.T) {
	kl := New()

	kl.Lock("a")
	done := make(chan struct{})
	go func() {
		kl.Do("b", func() error { return nil })
		close(done)
	}()
	<-done // must not deadlock while "a" is held
	kl.Unlock("a")
}
