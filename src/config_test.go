package orbserve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoad(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "orbserve.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
segger:
  host: debugger.local
  port: 19021
tpiu:
  channels: "1,2"
orbflow: true
listen_port: 4443
metrics_port: 9102
interval_ms: 1000
verbosity: 3
`), 0644))

	var options = DefaultOptions()
	require.NoError(t, ConfigLoad(path, options))

	assert.True(t, options.Segger)
	assert.Equal(t, "debugger.local", options.SeggerHost)
	assert.Equal(t, 19021, options.SeggerPort)
	assert.True(t, options.UseTPIU)
	assert.Equal(t, "1,2", options.ChannelList)
	assert.True(t, options.Orbflow)
	assert.Equal(t, 4443, options.ListenPort)
	assert.Equal(t, 9102, options.MetricsPort)
	assert.Equal(t, 1000, options.IntervalReportTime)
	assert.Equal(t, 3, options.Verbosity)
}

func TestConfigLoadDefaultsSurvive(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "orbserve.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval_ms: 500\n"), 0644))

	var options = DefaultOptions()
	require.NoError(t, ConfigLoad(path, options))

	assert.Equal(t, SEGGER_HOST, options.SeggerHost)
	assert.Equal(t, SEGGER_PORT, options.SeggerPort)
	assert.Equal(t, NWCLIENT_SERVER_PORT, options.ListenPort)
	assert.Equal(t, 500, options.IntervalReportTime)
}

func TestConfigLoadErrors(t *testing.T) {
	var options = DefaultOptions()

	var missingErr = ConfigLoad(filepath.Join(t.TempDir(), "nope.yaml"), options)
	assert.ErrorIs(t, missingErr, ErrBadOptions)

	var path = filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0644))
	var parseErr = ConfigLoad(path, options)
	assert.ErrorIs(t, parseErr, ErrBadOptions)
}
