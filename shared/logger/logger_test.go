package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"hotel/config"
	"hotel/shared/constant"
	"hotel/shared/logger"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restore puts the global logger state back after a test mutates it.
func restore(t *testing.T) {
	t.Helper()

	originalLogger := log.Logger
	originalLevel := zerolog.GlobalLevel()
	originalTimeFormat := zerolog.TimeFieldFormat

	t.Cleanup(func() {
		log.Logger = originalLogger
		zerolog.SetGlobalLevel(originalLevel)
		zerolog.TimeFieldFormat = originalTimeFormat
	})
}

func TestInitLogger(t *testing.T) {
	restore(t)

	logger.InitLogger()

	assert.Equal(t, zerolog.TimeFormatUnix, zerolog.TimeFieldFormat)
	assert.Equal(t, zerolog.TraceLevel, zerolog.GlobalLevel())
}

func TestErrorWithStack(t *testing.T) {
	restore(t)

	var buf bytes.Buffer
	log.Logger = log.Output(&buf)

	logger.ErrorWithStack(errors.New("booking tx failed"))

	assert.Contains(t, buf.String(), "booking tx failed")
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		logLevel      string
		expectedLevel zerolog.Level
	}{
		{logLevel: "trace", expectedLevel: zerolog.TraceLevel},
		{logLevel: "debug", expectedLevel: zerolog.DebugLevel},
		{logLevel: "info", expectedLevel: zerolog.InfoLevel},
		{logLevel: "warn", expectedLevel: zerolog.WarnLevel},
		{logLevel: "error", expectedLevel: zerolog.ErrorLevel},
		{logLevel: "disabled", expectedLevel: zerolog.Disabled},
		{logLevel: "invalid_level", expectedLevel: zerolog.TraceLevel},
		{logLevel: "", expectedLevel: zerolog.TraceLevel},
	}

	for _, tt := range tests {
		t.Run("level "+tt.logLevel, func(t *testing.T) {
			restore(t)

			var buf bytes.Buffer
			log.Logger = log.Output(&buf)

			cfg := &config.Config{}
			cfg.Server.LogLevel = tt.logLevel

			logger.SetLogLevelTo(cfg, &buf)

			assert.Equal(t, tt.expectedLevel, zerolog.GlobalLevel())
		})
	}
}

func TestSetLogLevel_ProductionWritesJSON(t *testing.T) {
	restore(t)

	var buf bytes.Buffer

	cfg := &config.Config{}
	cfg.Server.Env = constant.ServerEnvProduction
	cfg.Server.LogLevel = "info"
	cfg.App.Name = "hotel"

	logger.SetLogLevelTo(cfg, &buf)
	buf.Reset()

	log.Info().Int64("booking_id", 7).Msg("booking cancelled")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "hotel", line["app"])
	assert.Equal(t, "booking cancelled", line["message"])
	assert.EqualValues(t, 7, line["booking_id"])
	assert.Contains(t, line, "time")
}
