package loader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modgrid/internal/testutil"
)

func TestReloadPreservesIdentityAndRefreshesBookkeeping(t *testing.T) {
	l, reg, _ := newTestLoader(fastOptions())
	counters := testutil.RegisterFake(reg, "a", testutil.FakeConfig{
		Capabilities: []string{"ping", "status"},
	})

	require.True(t, l.Load(context.Background(), spec("a")).Success)
	statsBefore, ok := reg.Stats("a")
	require.True(t, ok)
	assert.True(t, statsBefore.LastReload.IsZero())

	res, err := l.Reload(context.Background(), "a", ReloadOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)

	// Same registry key, fresh instance.
	assert.True(t, reg.IsLoaded("a"))
	assert.Equal(t, int32(2), counters.Constructed.Load())

	statsAfter, ok := reg.Stats("a")
	require.True(t, ok)
	assert.False(t, statsAfter.LastReload.IsZero())
	assert.Equal(t, 2, statsAfter.FunctionCount)

	// Capabilities are re-registered from the fresh instance.
	caps := reg.Capabilities()
	require.Len(t, caps["a"], 2)
}

func TestReloadPreservesState(t *testing.T) {
	l, reg, _ := newTestLoader(fastOptions())
	testutil.RegisterFake(reg, "a", testutil.FakeConfig{})

	first := l.Load(context.Background(), spec("a"))
	require.True(t, first.Success)

	fake := first.Instance.(*testutil.FakeUnit)
	fake.Put("greeting", "hello")

	res, err := l.Reload(context.Background(), "a", ReloadOptions{PreserveState: true})
	require.NoError(t, err)
	require.True(t, res.Success)

	reloaded := res.Instance.(*testutil.FakeUnit)
	require.NotSame(t, fake, reloaded)
	got, ok := reloaded.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "hello", got)
}

func TestReloadWithoutPreserveDropsState(t *testing.T) {
	l, reg, _ := newTestLoader(fastOptions())
	testutil.RegisterFake(reg, "a", testutil.FakeConfig{})

	first := l.Load(context.Background(), spec("a"))
	require.True(t, first.Success)
	first.Instance.(*testutil.FakeUnit).Put("greeting", "hello")

	res, err := l.Reload(context.Background(), "a", ReloadOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)

	_, ok := res.Instance.(*testutil.FakeUnit).Get("greeting")
	assert.False(t, ok)
}

func TestReloadNotLoadedErrors(t *testing.T) {
	l, _, _ := newTestLoader(fastOptions())

	_, err := l.Reload(context.Background(), "ghost", ReloadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not loaded")
}

func TestReloadWorksWithLoadedDependents(t *testing.T) {
	// Reload skips the dependency check: a unit with dependents can be
	// reloaded in place.
	l, reg, _ := newTestLoader(fastOptions())
	testutil.RegisterFake(reg, "base", testutil.FakeConfig{})
	testutil.RegisterFake(reg, "child", testutil.FakeConfig{})

	require.True(t, l.Load(context.Background(), spec("base")).Success)
	require.True(t, l.Load(context.Background(), spec("child", "base")).Success)

	res, err := l.Reload(context.Background(), "base", ReloadOptions{PreserveState: true})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, reg.IsLoaded("base"))
	assert.True(t, reg.IsLoaded("child"))
}

func TestReloadUpdatesLoadTimeQuickly(t *testing.T) {
	l, reg, _ := newTestLoader(fastOptions())
	testutil.RegisterFake(reg, "a", testutil.FakeConfig{LoadDelay: 20 * time.Millisecond})

	require.True(t, l.Load(context.Background(), spec("a")).Success)

	res, err := l.Reload(context.Background(), "a", ReloadOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)

	st, ok := reg.Stats("a")
	require.True(t, ok)
	assert.GreaterOrEqual(t, st.LoadTime, 20*time.Millisecond)
}
