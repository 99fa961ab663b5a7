package loader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modgrid/internal/bus"
	"github.com/vk/modgrid/internal/registry"
	"github.com/vk/modgrid/internal/testutil"
	"github.com/vk/modgrid/internal/unit"
)

func newTestLoader(opts unit.Options) (*Loader, *registry.Registry, *bus.Memory) {
	notifier := bus.NewMemory()
	reg := registry.New(notifier)
	return New(reg, notifier, opts), reg, notifier
}

func fastOptions() unit.Options {
	return unit.Options{
		Parallel:       true,
		MaxConcurrency: 4,
		Timeout:        2 * time.Second,
		RetryAttempts:  1,
		RetryDelay:     10 * time.Millisecond,
	}
}

func spec(name string, deps ...string) *unit.Spec {
	return &unit.Spec{Name: name, Dependencies: deps, Enabled: true}
}

func TestLoadSuccess(t *testing.T) {
	l, reg, _ := newTestLoader(fastOptions())
	counters := testutil.RegisterFake(reg, "a", testutil.FakeConfig{Capabilities: []string{"ping"}})

	res := l.Load(context.Background(), spec("a"))

	require.True(t, res.Success)
	require.NotNil(t, res.Instance)
	assert.Equal(t, int32(1), counters.Constructed.Load())
	assert.Equal(t, int32(1), counters.Loaded.Load())
	assert.True(t, reg.IsLoaded("a"))
	require.NotNil(t, res.Metadata)
	assert.Equal(t, "0.0.0-test", res.Metadata.Version)

	st, ok := reg.Stats("a")
	require.True(t, ok)
	assert.True(t, st.Loaded)
	assert.Equal(t, 1, st.FunctionCount)
}

func TestLoadAlreadyLoadedIsIdempotent(t *testing.T) {
	l, reg, _ := newTestLoader(fastOptions())
	counters := testutil.RegisterFake(reg, "a", testutil.FakeConfig{})

	first := l.Load(context.Background(), spec("a"))
	second := l.Load(context.Background(), spec("a"))

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, int32(1), counters.Constructed.Load())
	assert.Zero(t, second.LoadTime)
	assert.Same(t, first.Instance, second.Instance)
}

func TestConcurrentLoadsShareOneInstantiation(t *testing.T) {
	l, reg, _ := newTestLoader(fastOptions())
	counters := testutil.RegisterFake(reg, "a", testutil.FakeConfig{
		LoadDelay: 50 * time.Millisecond,
	})

	const callers = 16
	results := make([]*unit.LoadResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = l.Load(context.Background(), spec("a"))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), counters.Constructed.Load())
	for _, res := range results {
		require.True(t, res.Success)
		assert.Same(t, results[0].Instance, res.Instance)
	}
}

func TestLoadMissingDependencyFails(t *testing.T) {
	l, reg, _ := newTestLoader(fastOptions())
	testutil.RegisterFake(reg, "a", testutil.FakeConfig{})

	res := l.Load(context.Background(), spec("a", "nonexistent"))

	require.False(t, res.Success)
	var depErr *unit.MissingDependencyError
	require.ErrorAs(t, res.Err, &depErr)
	assert.Equal(t, "nonexistent", depErr.Dependency)
	assert.False(t, reg.IsLoaded("a"))
}

func TestLoadUnknownFactoryFails(t *testing.T) {
	l, _, _ := newTestLoader(fastOptions())

	res := l.Load(context.Background(), spec("ghost"))

	require.False(t, res.Success)
	var instErr *unit.InstantiationError
	require.ErrorAs(t, res.Err, &instErr)
}

func TestLoadInitializationErrorIsCaptured(t *testing.T) {
	l, reg, _ := newTestLoader(fastOptions())
	testutil.RegisterFake(reg, "a", testutil.FakeConfig{FailLoadAlways: true})

	res := l.Load(context.Background(), spec("a"))

	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, testutil.ErrFakeLoad)
	assert.False(t, reg.IsLoaded("a"))
}

func TestLoadInitializationPanicIsRecovered(t *testing.T) {
	l, reg, _ := newTestLoader(fastOptions())
	testutil.RegisterFake(reg, "a", testutil.FakeConfig{PanicOnLoad: true})

	res := l.Load(context.Background(), spec("a"))

	require.False(t, res.Success)
	assert.Contains(t, res.Err.Error(), "panicked")
	assert.False(t, reg.IsLoaded("a"))
}

func TestLoadFactoryPanicIsRecovered(t *testing.T) {
	l, reg, _ := newTestLoader(fastOptions())
	testutil.RegisterFake(reg, "a", testutil.FakeConfig{PanicOnConstruct: true})

	res := l.Load(context.Background(), spec("a"))

	require.False(t, res.Success)
	var instErr *unit.InstantiationError
	require.ErrorAs(t, res.Err, &instErr)
}

func TestLoadTimesOutSlowInitialization(t *testing.T) {
	opts := fastOptions()
	opts.Timeout = 30 * time.Millisecond
	l, reg, _ := newTestLoader(opts)
	testutil.RegisterFake(reg, "a", testutil.FakeConfig{LoadDelay: time.Second})

	res := l.Load(context.Background(), spec("a"))

	require.False(t, res.Success)
	var toErr *unit.TimeoutError
	require.ErrorAs(t, res.Err, &toErr)
	assert.False(t, reg.IsLoaded("a"))
}

func TestLoadSpecTimeoutOverridesOptions(t *testing.T) {
	opts := fastOptions()
	opts.Timeout = time.Hour
	l, reg, _ := newTestLoader(opts)
	testutil.RegisterFake(reg, "a", testutil.FakeConfig{LoadDelay: time.Second})

	s := spec("a")
	s.Timeout = 30 * time.Millisecond
	res := l.Load(context.Background(), s)

	require.False(t, res.Success)
	var toErr *unit.TimeoutError
	require.ErrorAs(t, res.Err, &toErr)
	assert.Equal(t, 30*time.Millisecond, toErr.Timeout)
}

func TestLoadRetriesTransientFailures(t *testing.T) {
	opts := fastOptions()
	opts.RetryAttempts = 3
	l, reg, _ := newTestLoader(opts)
	testutil.RegisterFake(reg, "a", testutil.FakeConfig{FailLoadAttempts: 2})

	res := l.Load(context.Background(), spec("a"))

	require.True(t, res.Success)
	assert.True(t, reg.IsLoaded("a"))
}

func TestLoadRetriesExhausted(t *testing.T) {
	opts := fastOptions()
	opts.RetryAttempts = 2
	l, reg, _ := newTestLoader(opts)
	testutil.RegisterFake(reg, "a", testutil.FakeConfig{FailLoadAttempts: 10})

	res := l.Load(context.Background(), spec("a"))

	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, testutil.ErrFakeLoad)
}

func TestSandboxProbeConstructsThrowawayFirst(t *testing.T) {
	opts := fastOptions()
	opts.Sandbox = true
	l, reg, _ := newTestLoader(opts)
	counters := testutil.RegisterFake(reg, "a", testutil.FakeConfig{})

	res := l.Load(context.Background(), spec("a"))

	require.True(t, res.Success)
	// One construction for the probe, one for the real instance.
	assert.Equal(t, int32(2), counters.Constructed.Load())
	// The probe instance is torn down without ever being initialized.
	assert.Equal(t, int32(1), counters.Loaded.Load())
	assert.Equal(t, int32(1), counters.Unloaded.Load())
}

func TestSandboxProbeFailureAbortsLoad(t *testing.T) {
	opts := fastOptions()
	opts.Sandbox = true
	l, reg, _ := newTestLoader(opts)
	testutil.RegisterFake(reg, "a", testutil.FakeConfig{PanicOnConstruct: true})

	res := l.Load(context.Background(), spec("a"))

	require.False(t, res.Success)
	var instErr *unit.InstantiationError
	require.ErrorAs(t, res.Err, &instErr)
	assert.False(t, reg.IsLoaded("a"))
}

func TestLoadPublishesLifecycleEvents(t *testing.T) {
	l, reg, notifier := newTestLoader(fastOptions())
	testutil.RegisterFake(reg, "good", testutil.FakeConfig{})
	testutil.RegisterFake(reg, "bad", testutil.FakeConfig{FailLoadAlways: true})

	loadedCh, cancelLoaded := notifier.Subscribe(bus.UnitLoaded)
	defer cancelLoaded()
	failedCh, cancelFailed := notifier.Subscribe(bus.UnitLoadFailed)
	defer cancelFailed()

	require.True(t, l.Load(context.Background(), spec("good")).Success)
	require.False(t, l.Load(context.Background(), spec("bad")).Success)

	select {
	case ev := <-loadedCh:
		assert.Equal(t, "good", ev.Unit)
	case <-time.After(time.Second):
		t.Fatal("missing unit-loaded event")
	}
	select {
	case ev := <-failedCh:
		assert.Equal(t, "bad", ev.Unit)
		assert.NotEmpty(t, ev.Error)
	case <-time.After(time.Second):
		t.Fatal("missing unit-load-failed event")
	}
}
