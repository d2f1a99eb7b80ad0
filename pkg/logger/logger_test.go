package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithoutContext(t *testing.T) {
	for _, tc := range []struct {
		name          string
		expectedLevel zapcore.Level
	}{
		{name: "Info", expectedLevel: zapcore.InfoLevel},
		{name: "Debug", expectedLevel: zapcore.DebugLevel},
		{name: "Warn", expectedLevel: zapcore.WarnLevel},
		{name: "Error", expectedLevel: zapcore.ErrorLevel},
	} {
		t.Run(tc.name, func(t *testing.T) {
			observerLogger, logs := observer.New(zap.DebugLevel)
			dut := ZapLogger{zap.New(observerLogger)}
			const testMessage = "ABC"
			switch tc.name {
			case "Info":
				dut.Info(testMessage)
			case "Debug":
				dut.Debug(testMessage)
			case "Warn":
				dut.Warn(testMessage)
			case "Error":
				dut.Error(testMessage)
			default:
				t.Errorf("%s: Unknown name", tc.name)
			}
			require.Equal(t, 1, logs.Len())

			actualMessage := logs.All()[0]
			require.Equal(t, testMessage, actualMessage.Message)
			require.Empty(t, actualMessage.ContextMap())
			require.Equal(t, tc.expectedLevel, actualMessage.Level)
		})
	}
}

func TestWithContext(t *testing.T) {
	ctx := WithFingerprint(WithRequestID(context.Background(), "01HREQ"), "00ff00ff00ff00ff")

	for _, tc := range []struct {
		name          string
		expectedLevel zapcore.Level
	}{
		{name: "InfoWithContext", expectedLevel: zapcore.InfoLevel},
		{name: "DebugWithContext", expectedLevel: zapcore.DebugLevel},
		{name: "WarnWithContext", expectedLevel: zapcore.WarnLevel},
		{name: "ErrorWithContext", expectedLevel: zapcore.ErrorLevel},
	} {
		t.Run(tc.name, func(t *testing.T) {
			observerLogger, logs := observer.New(zap.DebugLevel)
			dut := ZapLogger{zap.New(observerLogger)}
			const testMessage = "ABC"
			switch tc.name {
			case "InfoWithContext":
				dut.InfoWithContext(ctx, testMessage, zap.Int("nodes", 3))
			case "DebugWithContext":
				dut.DebugWithContext(ctx, testMessage, zap.Int("nodes", 3))
			case "WarnWithContext":
				dut.WarnWithContext(ctx, testMessage, zap.Int("nodes", 3))
			case "ErrorWithContext":
				dut.ErrorWithContext(ctx, testMessage, zap.Int("nodes", 3))
			default:
				t.Errorf("%s: Unknown name", tc.name)
			}
			require.Equal(t, 1, logs.Len())

			actualMessage := logs.All()[0]
			require.Equal(t, testMessage, actualMessage.Message)
			require.Equal(t, map[string]interface{}{
				"nodes":       int64(3),
				"request_id":  "01HREQ",
				"fingerprint": "00ff00ff00ff00ff",
			}, actualMessage.ContextMap())
			require.Equal(t, tc.expectedLevel, actualMessage.Level)
		})
	}
}

func TestContextWithoutValues(t *testing.T) {
	observerLogger, logs := observer.New(zap.DebugLevel)
	dut := ZapLogger{zap.New(observerLogger)}

	dut.InfoWithContext(context.Background(), "ABC")

	require.Equal(t, 1, logs.Len())
	require.Empty(t, logs.All()[0].ContextMap())

	_, ok := RequestIDFromContext(context.Background())
	require.False(t, ok)
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "panic", "fatal", "none"} {
		for _, format := range []string{"text", "json"} {
			t.Run(format+"/"+level, func(t *testing.T) {
				l, err := NewLogger(format, level)
				require.NoError(t, err)
				require.NotNil(t, l)
			})
		}
	}

	_, err := NewLogger("json", "verbose")
	require.ErrorContains(t, err, "unknown log level")
}
