package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, b []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(b), &m))
	return m
}

func TestFieldsAndChildLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.InfoLevel).With(String("run_id", "r1"))

	l.Info("Stage finished",
		String("stage", "features"),
		Int("rows", 460),
		Float64("ll", -12.5),
		Bool("converged", true),
		Duration("took", 1500*time.Millisecond),
		Time("from", time.Date(2020, 1, 2, 15, 0, 0, 0, time.UTC)),
		Strings("symbols", []string{"SPY", "QQQ"}),
		Error(errors.New("boom")),
	)

	m := decodeLine(t, buf.Bytes())
	assert.Equal(t, "info", m["level"])
	assert.Equal(t, "Stage finished", m["message"])
	assert.Equal(t, "r1", m["run_id"])
	assert.Equal(t, "features", m["stage"])
	assert.Equal(t, float64(460), m["rows"])
	assert.Equal(t, -12.5, m["ll"])
	assert.Equal(t, true, m["converged"])
	assert.Equal(t, float64(1500), m["took"])
	assert.Equal(t, "2020-01-02", m["from"])
	assert.Equal(t, "SPY, QQQ", m["symbols"])
	assert.Equal(t, "boom", m["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, zerolog.InfoLevel)
	l.Debug("EM iteration", Int("iter", 1))
	assert.Zero(t, buf.Len())

	l.Warn("Report publish failed")
	assert.Equal(t, "warn", decodeLine(t, buf.Bytes())["level"])
}

func TestNew(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)

	l, err := New(&Config{Level: "DEBUG", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	Nop().Info("discarded")
}
