package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/1broseidon/tilewm/internal/clock"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/platform"
	"github.com/1broseidon/tilewm/internal/shell"
)

type flakyBackend struct {
	*platform.Memory
	err   error
	panic bool
}

func (b *flakyBackend) Outputs() ([]platform.OutputInfo, error) {
	if b.panic {
		panic("backend exploded")
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.Memory.Outputs()
}

func TestReconcilerKickRunsPass(t *testing.T) {
	sh, mem, m := newMirror(t)
	r := NewReconciler(ReconcilerConfig{Interval: time.Hour}, m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	mem.Open(platform.Toplevel{ID: 8, Bounds: geom.Rect{Width: 100, Height: 100}})
	r.Kick()
	r.Kick()

	deadline := time.After(2 * time.Second)
	for r.Passes() == 0 {
		select {
		case <-deadline:
			t.Fatalf("kick did not trigger a pass")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if _, err := sh.Window(8); err != nil {
		t.Fatalf("window not mirrored after kick: %v", err)
	}
}

func TestReconcilerSurvivesFailures(t *testing.T) {
	sh := shell.New(shell.Options{Clock: clock.Fake(time.Unix(0, 0))})
	backend := &flakyBackend{Memory: platform.NewMemory(dp1), err: errors.New("display gone")}
	r := NewReconciler(ReconcilerConfig{}, NewMirror(sh, backend, nil))

	r.ReconcileNow()
	if !r.failing {
		t.Fatalf("error should mark the reconciler failing")
	}

	backend.err, backend.panic = nil, true
	r.ReconcileNow()
	if !r.failing || r.lastFail == nil {
		t.Fatalf("panic should be reported as a failure")
	}

	backend.panic = false
	r.ReconcileNow()
	if r.failing {
		t.Fatalf("successful pass should clear the failure")
	}
	if r.Passes() != 3 {
		t.Fatalf("Passes = %d, want 3", r.Passes())
	}
	if len(sh.Status().Outputs) != 1 {
		t.Fatalf("outputs should be mirrored after recovery")
	}
}
