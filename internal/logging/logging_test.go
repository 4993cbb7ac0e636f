package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestRedactAnyMasksSecrets(t *testing.T) {
	payload := map[string]any{
		"email":    "user@example.com",
		"password": "hunter2-long",
		"nested": map[string]any{
			"auth-token": "eyJhbGciOiJIUzI1NiJ9.payload.sig1234",
		},
		"list": []any{map[string]any{"api_key": "sk-ant-abcd"}},
	}
	out := RedactAny(payload).(map[string]any)
	if out["email"] != "user@example.com" {
		t.Fatalf("expected email untouched, got %v", out["email"])
	}
	if out["password"] != "****long" {
		t.Fatalf("expected masked password, got %v", out["password"])
	}
	nested := out["nested"].(map[string]any)
	if nested["auth-token"] != "****1234" {
		t.Fatalf("expected masked token, got %v", nested["auth-token"])
	}
	list := out["list"].([]any)
	if list[0].(map[string]any)["api_key"] != "****abcd" {
		t.Fatalf("expected masked api key, got %v", list[0])
	}
}

func TestRedactValueBearer(t *testing.T) {
	if got := RedactValue("Bearer abcdefgh"); got != "Bearer ****efgh" {
		t.Fatalf("unexpected bearer redaction %q", got)
	}
	if got := RedactValue("abc"); got != "****" {
		t.Fatalf("expected short values fully masked, got %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", input, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected unknown level error")
	}
}

func TestNewFileLoggerWritesJSON(t *testing.T) {
	dir := t.TempDir()
	fl, err := NewFileLogger(dir, slog.LevelInfo, false)
	if err != nil {
		t.Fatalf("new file logger: %v", err)
	}
	fl.Logger.Info("server.started", "addr", ":3000")
	fl.Logger.Debug("server.noise")
	if err := fl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(fl.Path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d: %s", len(lines), data)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["msg"] != "server.started" || record["addr"] != ":3000" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestFileLoggerMasksSensitiveAttrs(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), slog.LevelInfo, false)
	if err != nil {
		t.Fatalf("new file logger: %v", err)
	}
	fl.Logger.Info("auth.attempt",
		"email", "user@example.com",
		"password", "hunter2-long",
		"headers", map[string]string{"Authorization": "Bearer abcdefgh"},
	)
	if err := fl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(fl.Path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "hunter2") || strings.Contains(string(data), "abcdefgh") {
		t.Fatalf("secret leaked into log: %s", data)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["password"] != "****long" || record["email"] != "user@example.com" {
		t.Fatalf("unexpected record %v", record)
	}
	headers := record["headers"].(map[string]any)
	if headers["Authorization"] != "Bearer ****efgh" {
		t.Fatalf("expected masked header, got %v", headers)
	}
}
