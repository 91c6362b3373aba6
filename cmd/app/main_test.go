package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegimeModel/internal/domain/errs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRun_MissingAPIKeyIsConfigurationError(t *testing.T) {
	t.Setenv("FMP_API_KEY", "")
	path := writeConfig(t, `
data:
  symbol: SPY
  start_date: "2020-01-01"
  end_date: "2020-12-31"
  raw_data_path: data/raw/SPY.csv
`)

	err := run(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, "ERR_API_KEY_MISSING", errs.CodeOf(err))
	assert.Equal(t, 2, exitCode(err))
}

func TestRun_BadConfig(t *testing.T) {
	err := run(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))

	path := writeConfig(t, "data:\n  symbol: SPY\n")
	assert.Equal(t, 2, exitCode(run(context.Background(), path)))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(errs.Model("ERR_DEGENERATE", "collapsed")))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 2, exitCode(errs.Configuration("ERR_X", "bad")))
}
