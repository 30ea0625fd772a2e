package logging_test

import (
	"testing"

	"github.com/Almirante-Ming/Rose/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := logging.New("production", "warn", "stderr")

	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = logging.New("development", "", "")

	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = logging.New("development", "loud", "")

	require.ErrorContains(t, err, "failed to parse log level")
}
