package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldmap/internal/config"
	"goldmap/internal/logging"
)

func TestConsoleLoggerRendersSubjectAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	require.NoError(t, err)

	ctx := logging.WithRunID(context.Background(), "0123456789abcdef")
	logger = logging.NewComponentLogger(logging.WithContext(ctx, logger), "resolve")
	logger.Info("match found",
		logging.Int(logging.FieldCompanyID, 12),
		logging.String("match_method", "exact_ticker"),
		logging.Float64("confidence_score", 100),
	)
	logger.Debug("suppressed at info level")

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	out := string(content)

	assert.Contains(t, out, "INFO [resolve] run 01234567 · company #12 – match found")
	assert.Contains(t, out, "    - Method: exact_ticker")
	assert.Contains(t, out, "    - Confidence: 100")
	assert.NotContains(t, out, ".go:", "info lines carry no caller")
	assert.NotContains(t, out, "suppressed")
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", OutputPaths: []string{logPath}})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("fetch failed", logging.String(logging.FieldExternalID, "77"))

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "warn", record["level"])
	assert.Equal(t, "fetch failed", record["msg"])
	assert.Equal(t, "77", record["external_id"])
	assert.Contains(t, record, "ts")
}

func TestLogFileIsTruncatedAndCapturesDebug(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "logs", "mapping_log.txt")
	console := filepath.Join(dir, "console.log")

	first, err := logging.New(logging.Options{Level: "info", OutputPaths: []string{console}, FilePath: logFile})
	require.NoError(t, err)
	first.Info("first run")

	second, err := logging.New(logging.Options{Level: "info", OutputPaths: []string{console}, FilePath: logFile})
	require.NoError(t, err)
	second.Debug("second run detail")

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "first run")
	assert.Contains(t, string(content), "second run detail")

	consoleContent, err := os.ReadFile(console)
	require.NoError(t, err)
	assert.NotContains(t, string(consoleContent), "second run detail")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := logging.New(logging.Options{Format: "xml"})
	assert.ErrorContains(t, err, "unsupported value")
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogFile = filepath.Join(t.TempDir(), "mapping_log.txt")

	logger, err := logging.NewFromConfig(&cfg)
	require.NoError(t, err)
	logger.Debug("debug message")

	_, err = os.Stat(cfg.Paths.LogFile)
	assert.NoError(t, err)
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WarnWithContext(logger, "cache unreadable", "cache_load_failed",
		logging.String(logging.FieldImpact, "starting with an empty cache"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "cache_load_failed", record[logging.FieldEventType])
	assert.Equal(t, "check logs for details", record[logging.FieldErrorHint])
	assert.Equal(t, "starting with an empty cache", record[logging.FieldImpact])
}

func TestWithContextWithoutRunID(t *testing.T) {
	base := logging.NewNop()
	assert.Same(t, base, logging.WithContext(context.Background(), base))

	_, ok := logging.RunIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestTeeHandlerFansOutByLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(logging.TeeHandler(infoHandler, nil, debugHandler))
	logger.Debug("detail")
	logger.Info("summary")

	assert.NotContains(t, infoBuf.String(), "detail")
	assert.Contains(t, infoBuf.String(), "summary")
	assert.Contains(t, debugBuf.String(), "detail")
	assert.Contains(t, debugBuf.String(), "summary")

	_, ok := logging.TeeHandler(nil, nil).(logging.NoopHandler)
	assert.True(t, ok)
}
