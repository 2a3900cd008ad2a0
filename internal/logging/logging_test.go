package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDefaultLogDir(t *testing.T) {
	dir := DefaultLogDir()
	if dir == "" {
		t.Error("DefaultLogDir returned empty string")
	}
	if !strings.Contains(dir, ".paymentsmcp") || !strings.Contains(dir, "logs") {
		t.Errorf("DefaultLogDir should contain .paymentsmcp/logs, got: %s", dir)
	}
}

func TestDefaultLogPath(t *testing.T) {
	if filepath.Base(DefaultLogPath()) != "server.log" {
		t.Errorf("DefaultLogPath should end with server.log, got: %s", DefaultLogPath())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got: %s", cfg.Level)
	}
	if cfg.FilePath != "" {
		t.Errorf("expected no log file by default, got: %s", cfg.FilePath)
	}
	if !cfg.WriteToStderr {
		t.Error("expected WriteToStderr to be true")
	}
}

func TestDebugConfig(t *testing.T) {
	cfg := DebugConfig()

	if cfg.Level != "debug" {
		t.Errorf("expected level 'debug', got: %s", cfg.Level)
	}
	if cfg.FilePath != DefaultLogPath() {
		t.Errorf("expected default log path, got: %s", cfg.FilePath)
	}
}

func TestNewHandler_WritesTypeAndMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelDebug))

	logger.Info("Found 2 payments with done=true", slog.Int("count", 2))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if record["type"] != "info" {
		t.Errorf("expected type=info, got: %v", record["type"])
	}
	if record["message"] != "Found 2 payments with done=true" {
		t.Errorf("unexpected message: %v", record["message"])
	}
	if _, ok := record["level"]; ok {
		t.Error("level key should be renamed to type")
	}
	if _, ok := record["msg"]; ok {
		t.Error("msg key should be renamed to message")
	}
	if record["count"] != float64(2) {
		t.Errorf("expected count attribute, got: %v", record["count"])
	}
}

func TestNewHandler_ErrorType(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo))

	logger.Error("MongoDB Error", slog.String("error", "connection refused"))
	logger.Debug("filtered out")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one line, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"type":"error"`) {
		t.Errorf("expected type=error, got: %s", lines[0])
	}
	if !strings.Contains(lines[0], `"error":"connection refused"`) {
		t.Errorf("expected error attribute, got: %s", lines[0])
	}
}

func TestSetup_FileOnly(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	logger, cleanup, err := Setup(Config{
		Level:    "debug",
		FilePath: logPath,
	})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Debug("debug message")
	logger.Info("info message")
	cleanup()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), `"message":"debug message"`) {
		t.Errorf("log file missing debug record: %s", content)
	}
	if !strings.Contains(string(content), `"type":"info"`) {
		t.Errorf("log file missing info record: %s", content)
	}
}

func TestSetup_CustomStderr(t *testing.T) {
	var buf bytes.Buffer

	logger, cleanup, err := Setup(Config{Level: "info", WriteToStderr: true, Stderr: &buf})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer cleanup()

	logger.Error("Configuration error", slog.String("error", "bad yaml"))

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("stderr record is not JSON: %q", buf.String())
	}
	if record["type"] != "error" || record["message"] != "Configuration error" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestSetupMCPMode_InstallsJSONDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	cleanup, err := SetupMCPMode(&buf, "info", "")
	if err != nil {
		t.Fatalf("SetupMCPMode failed: %v", err)
	}
	defer cleanup()

	slog.Debug("hidden")
	slog.Warn("stdin is a terminal")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %q", buf.String())
	}
	if !strings.Contains(lines[0], `"type":"warn"`) {
		t.Errorf("expected warn record, got %s", lines[0])
	}
}

func TestBootstrap_WritesJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Bootstrap(&buf)
	slog.Error("Configuration error")

	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"type":"error"`) {
		t.Errorf("expected a JSON error record, got %q", buf.String())
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LevelFromString(tt.input); got != tt.expected {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFindLogFile_ExplicitPath(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "explicit.log")
	if err := os.WriteFile(logPath, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindLogFile(logPath)
	if err != nil {
		t.Fatalf("FindLogFile failed: %v", err)
	}
	if got != logPath {
		t.Errorf("expected %s, got %s", logPath, got)
	}
}

func TestFindLogFile_ExplicitMissing(t *testing.T) {
	_, err := FindLogFile(filepath.Join(t.TempDir(), "missing.log"))
	if err == nil {
		t.Error("expected error for missing explicit path")
	}
}

// ============================================================================
// Viewer Tests
// ============================================================================

func TestViewer_ParseLine_ValidJSON(t *testing.T) {
	v := NewViewer(ViewerConfig{}, nil)

	entry := v.parseLine(`{"time":"2026-01-02T15:04:05.123Z","type":"info","message":"Found 3 payments","count":3}`)

	if !entry.IsValid {
		t.Fatal("expected valid entry")
	}
	if entry.Type != "info" || entry.Message != "Found 3 payments" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Attrs["count"] != float64(3) {
		t.Errorf("expected count attribute, got: %v", entry.Attrs)
	}
	if entry.Time.IsZero() {
		t.Error("expected parsed time")
	}
}

func TestViewer_ParseLine_InvalidJSON(t *testing.T) {
	v := NewViewer(ViewerConfig{}, nil)

	entry := v.parseLine("not json")

	if entry.IsValid {
		t.Error("expected invalid entry")
	}
	if v.FormatEntry(entry) != "not json" {
		t.Errorf("invalid entries should render raw, got: %s", v.FormatEntry(entry))
	}
}

func TestViewer_MatchesFilter(t *testing.T) {
	v := NewViewer(ViewerConfig{Type: "warn", Pattern: regexp.MustCompile("Mongo")}, nil)

	tests := []struct {
		line string
		want bool
	}{
		{`{"type":"error","message":"MongoDB Error"}`, true},
		{`{"type":"info","message":"MongoDB connected"}`, false},
		{`{"type":"error","message":"other failure"}`, false},
	}

	for _, tt := range tests {
		if got := v.matchesFilter(v.parseLine(tt.line)); got != tt.want {
			t.Errorf("matchesFilter(%s) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestViewer_FormatEntry_NoColor(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, nil)
	entry := LogEntry{
		Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Type:    "error",
		Message: "MongoDB Error",
		Attrs:   map[string]any{"error": "boom", "attempt": 1},
		IsValid: true,
	}

	got := v.FormatEntry(entry)

	want := "15:04:05.000 ERROR MongoDB Error attempt=1 error=boom"
	if got != want {
		t.Errorf("FormatEntry = %q, want %q", got, want)
	}
}

func TestViewer_Tail(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "tail.log")
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf(`{"type":"info","message":"line %d"}`, i))
	}
	if err := os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	v := NewViewer(ViewerConfig{NoColor: true}, &out)
	entries, err := v.Tail(logPath, 3)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "line 7" || entries[2].Message != "line 9" {
		t.Errorf("unexpected tail window: %+v", entries)
	}

	v.Print(entries)
	if !strings.Contains(out.String(), "line 9") {
		t.Errorf("Print output missing entry: %s", out.String())
	}
}

func TestViewer_Tail_NonexistentFile(t *testing.T) {
	v := NewViewer(ViewerConfig{}, nil)
	if _, err := v.Tail(filepath.Join(t.TempDir(), "nope.log"), 10); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestViewer_Follow(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "follow.log")
	if err := os.WriteFile(logPath, []byte(`{"type":"info","message":"old"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v := NewViewer(ViewerConfig{}, nil)
	entries := make(chan LogEntry, 4)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, logPath, entries) }()

	// Give Follow time to seek to the end.
	time.Sleep(200 * time.Millisecond)

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString(`{"type":"info","message":"new"}` + "\n")
	_ = f.Close()

	select {
	case entry := <-entries:
		if entry.Message != "new" {
			t.Errorf("expected only the new entry, got: %s", entry.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not deliver the appended entry")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Follow returned error: %v", err)
	}
}

// ============================================================================
// Writer Rotation Tests
// ============================================================================

func TestRotatingWriter_Rotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "rotate.log")

	w, err := NewRotatingWriter(logPath, 0, 3) // 0 MB rotates on every write
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer w.Close()

	data := bytes.Repeat([]byte("x"), 2048)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("main log file should exist")
	}
	if _, err := os.Stat(logPath + ".1"); os.IsNotExist(err) {
		t.Error("rotated file .1 should exist")
	}
}

func TestRotatingWriter_MaxFilesLimit(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "maxfiles.log")

	w, err := NewRotatingWriter(logPath, 0, 2)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer w.Close()

	data := bytes.Repeat([]byte("y"), 1024)
	for i := 0; i < 5; i++ {
		_, _ = w.Write(data)
	}

	if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
		t.Error("rotated file .3 should not exist (beyond maxFiles)")
	}
}

func TestRotatingWriter_SyncAndClose(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "sync.log")

	w, err := NewRotatingWriter(logPath, 1, 3)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}

	if _, err := w.Write([]byte("test data to sync\n")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.Sync(); err != nil {
		t.Errorf("sync failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second close should be a no-op: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(content), "test data to sync") {
		t.Error("synced data should be readable")
	}
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "concurrent.log")

	w, err := NewRotatingWriter(logPath, 10, 3)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer w.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = w.Write([]byte(fmt.Sprintf(`{"id":%d,"iter":%d,"message":"test"}`+"\n", id, j)))
			}
		}(i)
	}
	wg.Wait()

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("log file should exist: %v", err)
	}
	if info.Size() == 0 {
		t.Error("log file should have content")
	}
}
