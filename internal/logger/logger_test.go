package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/routinely/internal/constants"
)

func TestInit(t *testing.T) {
	t.Setenv(constants.LogLevelEnvVar, "")
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { Logger = nil }()

	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}
	if got := Logger.GetLevel(); got != log.InfoLevel {
		t.Errorf("level = %v, want info", got)
	}

	Info("Visibility override created", "routine", "r-1")
	if _, err := os.Stat(Path(configDir)); err != nil {
		t.Errorf("Log file was not created: %v", err)
	}
}

func TestInitDebugMode(t *testing.T) {
	if err := Init(Config{Debug: true, Level: "error", ConfigDir: t.TempDir()}); err != nil {
		t.Fatalf("Failed to initialize logger in debug mode: %v", err)
	}
	defer func() { Logger = nil }()

	if got := Logger.GetLevel(); got != log.DebugLevel {
		t.Errorf("level = %v, want debug", got)
	}
}

func TestPath(t *testing.T) {
	want := filepath.Join("/tmp/cfg", "logs", "routinely.log")
	if got := Path("/tmp/cfg"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestResolveLevel(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		env     string
		want    log.Level
		wantErr bool
	}{
		{"default", Config{}, "", log.InfoLevel, false},
		{"debug flag wins", Config{Debug: true, Level: "error"}, "warn", log.DebugLevel, false},
		{"explicit level", Config{Level: "warn"}, "", log.WarnLevel, false},
		{"explicit beats env", Config{Level: "error"}, "debug", log.ErrorLevel, false},
		{"env level", Config{}, "DEBUG", log.DebugLevel, false},
		{"unknown level", Config{Level: "chatty"}, "", log.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(constants.LogLevelEnvVar, tt.env)
			got, err := ResolveLevel(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	Logger = nil

	// None of these may panic.
	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")
	With("routine", "r-1").Info("Test entry message")
}

func TestInitWithInvalidDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if err := Init(Config{ConfigDir: blocker}); err == nil {
		t.Error("expected an error when the config dir is a file")
	}
}

func TestUseWriter(t *testing.T) {
	var buf bytes.Buffer
	UseWriter(&buf, log.DebugLevel)
	defer func() { Logger = nil }()

	Warn("condition check failed closed", "check", "chk-1", "kind", "dangling_reference")

	out := buf.String()
	if !strings.Contains(out, "condition check failed closed") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "chk-1") {
		t.Errorf("expected keyvals in output, got %q", out)
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	UseWriter(&buf, log.InfoLevel)
	defer func() { Logger = nil }()

	entry := With("routine", "r-morning")
	entry.Info("Visibility override created", "minutes", 30)
	entry.Debug("below the level")

	out := buf.String()
	for _, want := range []string{"Visibility override created", "routine=r-morning", "minutes=30"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got %q", want, out)
		}
	}
	if strings.Contains(out, "below the level") {
		t.Errorf("debug line written at info level: %q", out)
	}
}
