package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	logger := New("debug")
	assert.NotNil(t, logger)
}

func TestNewWithConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid text stdout",
			cfg: Config{
				Level:  "debug",
				Format: "text",
				Output: "stdout",
			},
		},
		{
			name: "json format with stderr",
			cfg: Config{
				Level:  "info",
				Format: "json",
				Output: "stderr",
			},
		},
		{
			name: "trace level defaults",
			cfg: Config{
				Level: "trace",
			},
		},
		{
			name: "empty config uses defaults",
			cfg:  Config{},
		},
		{
			name:    "invalid level",
			cfg:     Config{Level: "bogus"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			cfg:     Config{Format: "xml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewWithConfig(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewWithConfig_FileOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	logger, err := NewWithConfig(Config{Level: "info", Format: "text", Output: path})
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Logf("INFO hello file output")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file output")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "empty is valid", cfg: Config{}},
		{name: "valid level and format", cfg: Config{Level: "warn", Format: "json"}},
		{name: "invalid level", cfg: Config{Level: "shout"}, wantErr: true},
		{name: "invalid format", cfg: Config{Format: "yaml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGetOutputWriter(t *testing.T) {
	t.Run("empty defaults to stdout", func(t *testing.T) {
		w, err := getOutputWriter("")
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, w)
	})

	t.Run("stdout", func(t *testing.T) {
		w, err := getOutputWriter("stdout")
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, w)
	})

	t.Run("stderr", func(t *testing.T) {
		w, err := getOutputWriter("stderr")
		require.NoError(t, err)
		assert.Equal(t, os.Stderr, w)
	})

	t.Run("file path", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "writer.log")
		w, err := getOutputWriter(path)
		require.NoError(t, err)
		require.NotNil(t, w)
		if closer, ok := w.(interface{ Close() error }); ok {
			defer closer.Close()
		}
	})
}

func TestJSONFormat(t *testing.T) {
	logger, err := NewWithConfig(Config{Level: "info", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestCreateJSONHandler(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{name: "debug level", level: "debug"},
		{name: "warn level", level: "warn"},
		{name: "error level", level: "error"},
		{name: "default to info", level: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := createJSONHandler(tt.level, &buf)
			require.NotNil(t, handler)

			logger := slog.New(handler)
			logger.Info("hello", "key", "value")

			var decoded map[string]any
			require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
			assert.Equal(t, "hello", decoded["msg"])
		})
	}
}

func TestContains(t *testing.T) {
	assert.True(t, contains([]string{"a", "b"}, "b"))
	assert.False(t, contains([]string{"a", "b"}, "c"))
}

func TestOutputCaseInsensitive(t *testing.T) {
	w, err := getOutputWriter("STDERR")
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, w)
}

func TestLevelAndFormatCaseInsensitive(t *testing.T) {
	logger, err := NewWithConfig(Config{Level: "DEBUG", Format: "JSON", Output: "stdout"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestFormatDefaultsToText(t *testing.T) {
	logger, err := NewWithConfig(Config{Level: "info", Output: "stdout"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestOutputPathMustBeWritable(t *testing.T) {
	_, err := getOutputWriter(filepath.Join(string(os.PathSeparator), "no-such-dir-xyz", "a.log"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to open log file"))
}
