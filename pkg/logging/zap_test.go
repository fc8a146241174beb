package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level logging.Level) (*ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewFromZap(zap.New(core), level), logs
}

func TestZapLoggerLevels(t *testing.T) {
	l, logs := newObserved(logging.InfoLevel)

	l.Debug("hidden")
	l.Info("shown", logging.Fields{"samples": 1024})
	l.Warn("careful")

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, "shown", entries[0].Message)
	assert.Equal(t, int64(1024), entries[0].ContextMap()["samples"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)

	l.SetLevel(logging.DebugLevel)
	l.Debug("now visible")
	assert.Equal(t, 1, logs.FilterMessage("now visible").Len())
}

func TestZapLoggerError(t *testing.T) {
	l, logs := newObserved(logging.InfoLevel)

	l.Error(errors.New("disk full"), "Failed to save model", logging.Fields{
		"path":  "rf_model.json",
		"cause": errors.New("quota"),
	})

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "disk full", ctx["error"])
	assert.Equal(t, "quota", ctx["cause"])
	assert.Equal(t, "rf_model.json", ctx["path"])
}

func TestZapLoggerWithFields(t *testing.T) {
	l, logs := newObserved(logging.InfoLevel)

	child := l.WithFields(logging.Fields{"component": "dataset_builder"})
	child.Info("Dataset built")

	ctx := context.WithValue(context.Background(), ContextFieldsKey, logging.Fields{"run_id": "abc"})
	l.WithContext(ctx).Info("Training started")
	l.WithContext(context.Background()).Info("plain")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "dataset_builder", entries[0].ContextMap()["component"])
	assert.Equal(t, "abc", entries[1].ContextMap()["run_id"])
	assert.Empty(t, entries[2].ContextMap())

	// derived loggers share the level
	l.SetLevel(logging.ErrorLevel)
	child.Info("suppressed")
	assert.Equal(t, 3, logs.Len())
}

func TestInstallRoutesGlobalLogging(t *testing.T) {
	l, logs := newObserved(logging.InfoLevel)
	Install(l)
	t.Cleanup(func() { logging.SetGlobalLogger(logging.NewDefaultLogger()) })

	logging.WithFields(logging.Fields{"component": "classifier_factory"}).Info("Trained model loaded")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "classifier_factory", logs.All()[0].ContextMap()["component"])
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "vibration-monitor.log")
	noColor := false

	l, err := New(Options{Level: logging.InfoLevel, File: path, MaxSizeMB: 1, Color: &noColor})
	require.NoError(t, err)

	l.Info("Analysis complete", logging.Fields{"files": 2})
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Analysis complete"`)
	assert.Contains(t, string(data), `"files":2`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logging.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, logging.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, logging.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, logging.InfoLevel, ParseLevel(""))
	assert.Equal(t, logging.InfoLevel, ParseLevel("chatty"))
}
