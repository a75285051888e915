package blocker

import (
	"sync"
	"testing"
)

func TestReleaseIsOneShot(t *testing.T) {
	r := NewRelease()
	if r.Released() {
		t.Fatalf("new signal should not be released")
	}
	if !r.Release() {
		t.Fatalf("first Release should report that it fired")
	}
	if r.Release() {
		t.Fatalf("second Release should be a no-op")
	}
	if !r.Released() {
		t.Fatalf("signal should stay released")
	}
}

func TestReleaseConcurrent(t *testing.T) {
	r := NewRelease()
	var wg sync.WaitGroup
	var mu sync.Mutex
	fired := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Release() {
				mu.Lock()
				fired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if fired != 1 {
		t.Fatalf("signal fired %d times, want 1", fired)
	}
}

func TestBlockerFollowsSignal(t *testing.T) {
	b, sig := New()
	if b.State() != Pending {
		t.Fatalf("State = %v, want pending", b.State())
	}
	sig.Release()
	if b.State() != Released {
		t.Fatalf("State = %v, want released", b.State())
	}
	if b.Signal() != sig {
		t.Fatalf("Signal should return the backing release")
	}
}

func TestNilReleaseCountsAsReleased(t *testing.T) {
	var r *Release
	if !r.Released() {
		t.Fatalf("nil release should read as released")
	}
	if r.Release() {
		t.Fatalf("nil release cannot fire")
	}
}
