package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithModuleSafeBeforeInit(t *testing.T) {
	log := WithModule("early")
	require.NotNil(t, log)

	// Must not panic even though Init has not run.
	log.Info("message before init")
}

func TestInitAcceptsLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "not-a-level"} {
		require.NoError(t, Init(level), "level %q", level)
	}

	require.NotNil(t, WithModule("configured"))
}
