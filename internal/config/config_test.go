package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(&cfg))
	assert.Equal(t, LanguageAuto, cfg.Language)
	assert.Equal(t, []string{OutputCursor}, cfg.OutputModes)
	assert.Equal(t, 1, cfg.MaxRetry)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"backend":      func(c *Config) { c.TranscriberBackend = "azure" },
		"model size":   func(c *Config) { c.LocalModelSize = "huge" },
		"device":       func(c *Config) { c.LocalDevice = "tpu" },
		"mode":         func(c *Config) { c.Mode = "podcast" },
		"output":       func(c *Config) { c.OutputModes = []string{"cursor", "file"} },
		"transparency": func(c *Config) { c.Transparency = 0.05 },
		"max retry":    func(c *Config) { c.MaxRetry = 0 },
		"codec":        func(c *Config) { c.UploadCodec = "wma" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, Validate(&cfg))
		})
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"transcriber_backend":"local","local_model_size":"small","output_modes":["clipboard"]}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.TranscriberBackend)
	assert.Equal(t, "small", cfg.LocalModelSize)
	assert.Equal(t, []string{OutputClipboard}, cfg.OutputModes)
	// untouched keys keep defaults
	assert.Equal(t, "whisper-1", cfg.RemoteModel)
}

func TestSaveDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, SaveDefault(path))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OUTPUT_MODE", "cursor,clipboard")
	t.Setenv("DICTATE_REPORT_DIR", "")
	os.Unsetenv("DICTATE_REPORT_DIR")
	t.Setenv("LOCAL_MODEL_SIZE", "")
	os.Unsetenv("LOCAL_MODEL_SIZE")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LOCAL_MODEL_SIZE=medium\n"), 0644))

	cfg := DefaultConfig()
	cfg.ReportDir = "reports"
	require.NoError(t, ApplyEnv(&cfg, envFile, filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, "sk-env", cfg.OpenAIAPIKey)
	assert.Equal(t, []string{"cursor", "clipboard"}, cfg.OutputModes)
	assert.Equal(t, "medium", cfg.LocalModelSize)
	assert.Equal(t, "reports", cfg.ReportDir, "unset variables must not clobber existing values")
}

func TestApplyFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fv := BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"-backend", "local", "-output", "clipboard, cursor", "-append-enter", "-max-retry", "3"}))
	assert.True(t, fv.AnySet())

	cfg := DefaultConfig()
	ApplyFlags(&cfg, fv)
	assert.Equal(t, BackendLocal, cfg.TranscriberBackend)
	assert.Equal(t, []string{"clipboard", "cursor"}, cfg.OutputModes)
	assert.True(t, cfg.AppendEnter)
	assert.Equal(t, 3, cfg.MaxRetry)
	assert.Equal(t, "ctrl+alt+s", cfg.Hotkey)
}

func TestNoFlagsSet(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fv := BindFlags(fs)
	require.NoError(t, fs.Parse(nil))
	assert.False(t, fv.AnySet())
}

func TestInitCacheDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	cfg := DefaultConfig()
	cfg.CacheDir = dir
	msg := InitCacheDir(&cfg)
	assert.Contains(t, msg, "created")
	assert.Equal(t, dir, cfg.CacheDir)
	assert.Equal(t, dir, TempDir(&cfg))

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	cfg.CacheDir = file
	InitCacheDir(&cfg)
	assert.Empty(t, cfg.CacheDir)
}
