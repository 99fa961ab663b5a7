package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modgrid/internal/testutil"
)

func testConfig(unitsPath string) *Config {
	cfg, err := NewConfig(Config{
		UnitsPath:      unitsPath,
		LogLevel:       "debug",
		LogFormat:      "text",
		MaxConcurrency: 4,
		Timeout:        2 * time.Second,
		RetryAttempts:  1,
	})
	if err != nil {
		panic(err)
	}
	return cfg
}

func TestNewConfigRequiresUnitsPath(t *testing.T) {
	t.Parallel()

	_, err := NewConfig(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UnitsPath")
}

func TestNewConfigRejectsNegativeValues(t *testing.T) {
	t.Parallel()

	_, err := NewConfig(Config{UnitsPath: "units", MaxConcurrency: -1})
	require.Error(t, err)

	_, err = NewConfig(Config{UnitsPath: "units", RetryAttempts: -1})
	require.Error(t, err)
}

func TestNewAppRejectsInvalidRedisURL(t *testing.T) {
	t.Parallel()

	cfg := testConfig("units")
	cfg.RedisURL = "not a url"

	_, err := NewApp(&testutil.SafeBuffer{}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestAppRunLoadsDescriptorTree(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, map[string]string{
		"base.unit.hcl": `
			unit "base" {
				path = "fake"
			}
		`,
		"echo.unit.hcl": `
			unit "echo" {
				path         = "fake"
				dependencies = ["base"]
			}
		`,
	})

	mod := testutil.NewFakeModule("fake", testutil.FakeConfig{})
	logBuffer := &testutil.SafeBuffer{}

	testApp, err := NewApp(logBuffer, testConfig(root), mod)
	require.NoError(t, err)
	defer testApp.Close()

	require.NoError(t, testApp.Run(context.Background()))

	assert.True(t, testApp.Registry().IsLoaded("base"))
	assert.True(t, testApp.Registry().IsLoaded("echo"))
	assert.Equal(t, int32(2), mod.Counters.Constructed.Load())
	assert.Contains(t, logBuffer.String(), "Units online")
}

func TestAppRunReportsLoadFailures(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, map[string]string{
		"broken.unit.hcl": `
			unit "broken" {
				path = "fake"
			}
		`,
	})

	mod := testutil.NewFakeModule("fake", testutil.FakeConfig{FailLoadAlways: true})
	logBuffer := &testutil.SafeBuffer{}

	testApp, err := NewApp(logBuffer, testConfig(root), mod)
	require.NoError(t, err)
	defer testApp.Close()

	// Individual unit failures never fail the run.
	require.NoError(t, testApp.Run(context.Background()))
	assert.False(t, testApp.Registry().IsLoaded("broken"))
	assert.Contains(t, logBuffer.String(), "Unit failed to load")
}

func TestAppRunFailsOnDependencyCycle(t *testing.T) {
	t.Parallel()

	root := testutil.WriteTree(t, map[string]string{
		"cycle.unit.hcl": `
			unit "a" {
				path         = "fake"
				dependencies = ["b"]
			}

			unit "b" {
				path         = "fake"
				dependencies = ["a"]
			}
		`,
	})

	mod := testutil.NewFakeModule("fake", testutil.FakeConfig{})
	testApp, err := NewApp(&testutil.SafeBuffer{}, testConfig(root), mod)
	require.NoError(t, err)
	defer testApp.Close()

	require.Error(t, testApp.Run(context.Background()))
	assert.Equal(t, int32(0), mod.Counters.Constructed.Load())
}
