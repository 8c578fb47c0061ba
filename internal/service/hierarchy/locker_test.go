package hierarchy

import (
	"sync"
	"testing"
)

func TestAccountLockerSerializesPerAccount(t *testing.T) {
	locker := NewAccountLocker()

	const workers = 8
	const iterations = 200
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				unlock := locker.Lock("acct-1")
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	if counter != workers*iterations {
		t.Errorf("counter = %d, want %d (mutations interleaved)", counter, workers*iterations)
	}
}

func TestAccountLockerIndependentAccounts(t *testing.T) {
	locker := NewAccountLocker()

	unlockA := locker.Lock("acct-a")
	defer unlockA()

	// locking a different account must not block
	done := make(chan struct{})
	go func() {
		unlockB := locker.Lock("acct-b")
		unlockB()
		close(done)
	}()
	<-done
}
