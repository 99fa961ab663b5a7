package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modgrid/internal/loader"
	"github.com/vk/modgrid/internal/registry"
	"github.com/vk/modgrid/internal/testutil"
	"github.com/vk/modgrid/internal/unit"
)

// fakeWatcher feeds scripted events into a reloader.
type fakeWatcher struct {
	ch chan Event
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{ch: make(chan Event, 32)}
}

func (f *fakeWatcher) Events() <-chan Event { return f.ch }
func (f *fakeWatcher) Close() error {
	close(f.ch)
	return nil
}

type fixture struct {
	watcher  *fakeWatcher
	reg      *registry.Registry
	loader   *loader.Loader
	counters *testutil.Counters
	cancel   context.CancelFunc
	done     chan struct{}
}

// newFixture loads one fake unit named "echo" from a fake descriptor path
// and starts a reloader with a short debounce window.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.New(nil)
	counters := testutil.RegisterFake(reg, "echo", testutil.FakeConfig{})
	l := loader.New(reg, nil, unit.Options{Timeout: 2 * time.Second, RetryAttempts: 1})

	spec := &unit.Spec{Name: "echo", Enabled: true, Source: "/units/echo.unit.hcl"}
	res := l.Load(context.Background(), spec)
	require.True(t, res.Success)

	f := &fixture{
		watcher:  newFakeWatcher(),
		reg:      reg,
		loader:   l,
		counters: counters,
		done:     make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	r := NewReloader(f.watcher, l, reg, 30*time.Millisecond)
	go func() {
		defer close(f.done)
		r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-f.done
	})
	return f
}

func TestBurstOfChangesTriggersSingleReload(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 5; i++ {
		f.watcher.ch <- Event{Path: "/units/echo.unit.hcl", Op: Change}
	}

	require.Eventually(t, func() bool {
		return f.counters.Constructed.Load() == 2
	}, time.Second, 5*time.Millisecond, "burst should collapse into one reload")

	// Give a stray second reload time to show up; it must not.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), f.counters.Constructed.Load())
	assert.Equal(t, int32(1), f.counters.Unloaded.Load())
	assert.True(t, f.reg.IsLoaded("echo"))
}

func TestSeparateBurstsReloadSeparately(t *testing.T) {
	f := newFixture(t)

	f.watcher.ch <- Event{Path: "/units/echo.unit.hcl", Op: Change}
	require.Eventually(t, func() bool {
		return f.counters.Constructed.Load() == 2
	}, time.Second, 5*time.Millisecond)

	f.watcher.ch <- Event{Path: "/units/echo.unit.hcl", Op: Change}
	require.Eventually(t, func() bool {
		return f.counters.Constructed.Load() == 3
	}, time.Second, 5*time.Millisecond)
}

func TestUnknownPathIsIgnored(t *testing.T) {
	f := newFixture(t)

	f.watcher.ch <- Event{Path: "/units/stranger.unit.hcl", Op: Change}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), f.counters.Constructed.Load())
}

func TestRemovalDoesNotUnload(t *testing.T) {
	f := newFixture(t)

	f.watcher.ch <- Event{Path: "/units/echo.unit.hcl", Op: Remove}

	time.Sleep(100 * time.Millisecond)
	assert.True(t, f.reg.IsLoaded("echo"))
	assert.Equal(t, int32(0), f.counters.Unloaded.Load())
}

func TestRunStopsWhenWatcherCloses(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.watcher.Close())

	select {
	case <-f.done:
	case <-time.After(time.Second):
		t.Fatal("reloader kept running after watcher closed")
	}
}

func TestCancellationDropsArmedTimer(t *testing.T) {
	f := newFixture(t)

	f.watcher.ch <- Event{Path: "/units/echo.unit.hcl", Op: Change}
	f.cancel()
	<-f.done

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), f.counters.Constructed.Load())
}
