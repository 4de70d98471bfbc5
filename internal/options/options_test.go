package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	limit int
	name  string
	calls []string
}

func withLimit(limit int) Option[*testConfig] {
	return New(func(c *testConfig) error {
		if limit <= 0 {
			return errors.New("limit must be positive")
		}
		c.limit = limit
		c.calls = append(c.calls, "limit")

		return nil
	})
}

func withName(name string) Option[*testConfig] {
	return NoError(func(c *testConfig) {
		c.name = name
		c.calls = append(c.calls, "name")
	})
}

func TestApply(t *testing.T) {
	cfg := &testConfig{}

	err := Apply(cfg, withLimit(10), withName("device"))
	require.NoError(t, err)
	require.Equal(t, 10, cfg.limit)
	require.Equal(t, "device", cfg.name)
	require.Equal(t, []string{"limit", "name"}, cfg.calls)
}

func TestApplyStopsAtFirstError(t *testing.T) {
	cfg := &testConfig{}

	err := Apply(cfg, withName("a"), withLimit(0), withName("b"))
	require.EqualError(t, err, "limit must be positive")
	require.Equal(t, "a", cfg.name, "options after the failure are not applied")
	require.Equal(t, []string{"name"}, cfg.calls)
}

func TestApplySkipsNil(t *testing.T) {
	cfg := &testConfig{}

	var opt Option[*testConfig]
	require.NoError(t, Apply(cfg, opt, withName("x"), nil))
	require.Equal(t, "x", cfg.name)
}

func TestApplyEmpty(t *testing.T) {
	cfg := &testConfig{}
	require.NoError(t, Apply(cfg))
	require.Empty(t, cfg.calls)
}
