//go:build unit || !integration

package flags

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bacalhau-project/tiercache/cmd/util/output"
	"github.com/bacalhau-project/tiercache/pkg/logger"
)

func TestTTLFlag(t *testing.T) {
	var ttl time.Duration
	flag := TTLFlag(&ttl)
	assert.Equal(t, "", flag.String())
	assert.Equal(t, "duration", flag.Type())

	require.NoError(t, flag.Set("90s"))
	assert.Equal(t, 90*time.Second, ttl)
	assert.Equal(t, "1m30s", flag.String())

	assert.Error(t, flag.Set("0s"))
	assert.Error(t, flag.Set("-1m"))
	assert.Error(t, flag.Set("soon"))
	assert.Equal(t, 90*time.Second, ttl, "a rejected value leaves the flag unchanged")
}

func TestLoggingFlag(t *testing.T) {
	mode := logger.LogModeDefault
	flag := LoggingFlag(&mode)

	require.NoError(t, flag.Set("JSON"))
	assert.Equal(t, logger.LogModeJSON, mode)
	assert.Error(t, flag.Set("xml"))
}

func TestLogLevelFlag(t *testing.T) {
	var level string
	flag := LogLevelFlag(&level)

	require.NoError(t, flag.Set("debug"))
	assert.Equal(t, "debug", flag.String())
	assert.Error(t, flag.Set("loud"))
}

func TestOutputFormatFlag(t *testing.T) {
	format := output.TableFormat
	flag := OutputFormatFlag(&format)

	require.NoError(t, flag.Set("yaml"))
	assert.Equal(t, output.YAMLFormat, format)
	assert.Error(t, flag.Set("xml"))
}
