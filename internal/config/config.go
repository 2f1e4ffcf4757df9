package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"dictate/internal/audio/ffmpeg"
)

// Backend identifiers.
const (
	BackendLocal  = "local"
	BackendOpenAI = "openai_api"
)

// Recording modes.
const (
	ModeDictation  = "dictation"
	ModeInterview  = "interview"
	ModeConference = "conference"
)

// Output modes for injected text.
const (
	OutputCursor    = "cursor"
	OutputClipboard = "clipboard"
)

// LanguageAuto lets the backend detect the spoken language.
const LanguageAuto = "Auto"

// Config holds configurable parameters.
type Config struct {
	TranscriberBackend string   `json:"transcriber_backend" envconfig:"TRANSCRIBER_BACKEND"`
	OpenAIAPIKey       string   `json:"openai_api_key" envconfig:"OPENAI_API_KEY"`
	APIEndpoint        string   `json:"api_endpoint" envconfig:"OPENAI_API_ENDPOINT"`
	RemoteModel        string   `json:"remote_model" envconfig:"OPENAI_TRANSCRIBE_MODEL"`
	Prompt             string   `json:"prompt" envconfig:"DICTATE_PROMPT"`
	TextPath           string   `json:"text_path" envconfig:"DICTATE_TEXT_PATH"`
	SegmentsPath       string   `json:"segments_path" envconfig:"DICTATE_SEGMENTS_PATH"`
	UploadCodec        string   `json:"upload_codec" envconfig:"DICTATE_UPLOAD_CODEC"`
	UploadBitRate      int      `json:"upload_bit_rate" envconfig:"DICTATE_UPLOAD_BIT_RATE"`
	LocalModelSize     string   `json:"local_model_size" envconfig:"LOCAL_MODEL_SIZE"`
	LocalDevice        string   `json:"local_device" envconfig:"LOCAL_DEVICE"`
	PythonPath         string   `json:"python_path" envconfig:"DICTATE_PYTHON"`
	Language           string   `json:"language" envconfig:"WHISPER_LANGUAGE"`
	Mode               string   `json:"mode" envconfig:"DICTATE_MODE"`
	OutputModes        []string `json:"output_modes" envconfig:"OUTPUT_MODE"`
	AppendEnter        bool     `json:"append_enter" envconfig:"DICTATE_APPEND_ENTER"`
	Hotkey             string   `json:"hotkey" envconfig:"GLOBAL_HOTKEY"`
	StealthHotkey      string   `json:"stealth_hotkey" envconfig:"STEALTH_HOTKEY"`
	HotKeyHook         bool     `json:"hotkey_hook" envconfig:"DICTATE_HOTKEY_HOOK"`
	Transparency       float64  `json:"transparency" envconfig:"DICTATE_TRANSPARENCY"`
	RequestTimeout     int      `json:"request_timeout" envconfig:"DICTATE_REQUEST_TIMEOUT"`
	MaxRetry           int      `json:"max_retry" envconfig:"DICTATE_MAX_RETRY"`
	RetryBaseDelay     float64  `json:"retry_base_delay" envconfig:"DICTATE_RETRY_BASE_DELAY"`
	EnableHTTP2        bool     `json:"enable_http2" envconfig:"DICTATE_ENABLE_HTTP2"`
	VerifySSL          bool     `json:"verify_ssl" envconfig:"DICTATE_VERIFY_SSL"`
	CacheDir           string   `json:"cache_dir" envconfig:"DICTATE_CACHE_DIR"`
	KeepCache          bool     `json:"keep_cache" envconfig:"DICTATE_KEEP_CACHE"`
	ReportDir          string   `json:"report_dir" envconfig:"DICTATE_REPORT_DIR"`
	Notification       bool     `json:"notification" envconfig:"DICTATE_NOTIFICATION"`
	LogLevel           string   `json:"log_level" envconfig:"LOG_LEVEL"`
	LogPretty          bool     `json:"log_pretty" envconfig:"LOG_PRETTY"`
	MetricsAddr        string   `json:"metrics_addr" envconfig:"DICTATE_METRICS_ADDR"`
	RecordDebug        bool     `json:"record_debug" envconfig:"DICTATE_RECORD_DEBUG"`
	UploadDebug        bool     `json:"upload_debug" envconfig:"DICTATE_UPLOAD_DEBUG"`
	HotkeyDebug        bool     `json:"hotkey_debug" envconfig:"DICTATE_HOTKEY_DEBUG"`
	FFmpegDebug        bool     `json:"ffmpeg_debug" envconfig:"DICTATE_FFMPEG_DEBUG"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	python := "python3"
	if runtime.GOOS == "windows" {
		python = "python"
	}
	return Config{
		TranscriberBackend: BackendOpenAI,
		OpenAIAPIKey:       "",
		APIEndpoint:        "https://api.openai.com/v1/audio/transcriptions",
		RemoteModel:        "whisper-1",
		Prompt:             "",
		TextPath:           "text",
		SegmentsPath:       "segments",
		UploadCodec:        "",
		UploadBitRate:      64,
		LocalModelSize:     "base",
		LocalDevice:        "auto",
		PythonPath:         python,
		Language:           LanguageAuto,
		Mode:               ModeDictation,
		OutputModes:        []string{OutputCursor},
		AppendEnter:        false,
		Hotkey:             "ctrl+alt+s",
		StealthHotkey:      "ctrl+alt+h",
		HotKeyHook:         false,
		Transparency:       0.95,
		RequestTimeout:     120,
		MaxRetry:           1,
		RetryBaseDelay:     0.5,
		EnableHTTP2:        true,
		VerifySSL:          true,
		CacheDir:           "",
		KeepCache:          false,
		ReportDir:          "",
		Notification:       true,
		LogLevel:           "info",
		LogPretty:          true,
		MetricsAddr:        "",
		RecordDebug:        false,
		UploadDebug:        false,
		HotkeyDebug:        false,
		FFmpegDebug:        false,
	}
}

// Load loads config from JSON file if provided.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// SaveDefault writes a default config JSON to the provided path.
func SaveDefault(path string) error {
	cfg := DefaultConfig()
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

var modelSizes = map[string]bool{
	"tiny":   true,
	"base":   true,
	"small":  true,
	"medium": true,
	"large":  true,
}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	switch cfg.TranscriberBackend {
	case BackendLocal, BackendOpenAI:
	default:
		return fmt.Errorf("invalid transcriber_backend: %q (allowed: local, openai_api)", cfg.TranscriberBackend)
	}
	if !modelSizes[strings.ToLower(cfg.LocalModelSize)] {
		return fmt.Errorf("invalid local_model_size: %q (allowed: tiny, base, small, medium, large)", cfg.LocalModelSize)
	}
	switch strings.ToLower(cfg.LocalDevice) {
	case "auto", "cpu", "cuda":
	default:
		return fmt.Errorf("invalid local_device: %q (allowed: auto, cpu, cuda)", cfg.LocalDevice)
	}
	switch cfg.Mode {
	case ModeDictation, ModeInterview, ModeConference:
	default:
		return fmt.Errorf("invalid mode: %q (allowed: dictation, interview, conference)", cfg.Mode)
	}
	for _, m := range cfg.OutputModes {
		switch m {
		case OutputCursor, OutputClipboard:
		default:
			return fmt.Errorf("invalid output mode: %q (allowed: cursor, clipboard)", m)
		}
	}
	if cfg.Transparency < 0.1 || cfg.Transparency > 1.0 {
		return fmt.Errorf("invalid transparency: %v (allowed 0.1..1.0)", cfg.Transparency)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request_timeout: %d (must be > 0)", cfg.RequestTimeout)
	}
	if cfg.MaxRetry < 1 {
		return fmt.Errorf("invalid max_retry: %d (must be >= 1)", cfg.MaxRetry)
	}
	if cfg.RetryBaseDelay < 0 {
		return fmt.Errorf("invalid retry_base_delay: %v (must be >= 0)", cfg.RetryBaseDelay)
	}
	if cfg.UploadCodec != "" && !ffmpeg.Supported(cfg.UploadCodec) {
		return fmt.Errorf("invalid upload_codec: %q (allowed: opus, vorbis, aac, mp3, flac, pcm)", cfg.UploadCodec)
	}
	if cfg.UploadCodec != "" && cfg.UploadBitRate <= 0 {
		return fmt.Errorf("invalid upload_bit_rate: %d (must be > 0)", cfg.UploadBitRate)
	}
	return nil
}

// InitCacheDir validates/creates the configured cache directory.
// It mutates cfg.CacheDir to an absolute path or clears it on failure and
// returns a short description of what happened.
func InitCacheDir(cfg *Config) string {
	if cfg.CacheDir == "" {
		return ""
	}
	abs, err := filepath.Abs(cfg.CacheDir)
	if err != nil {
		msg := fmt.Sprintf("cache-dir path invalid '%s': %v; falling back to temp dir", cfg.CacheDir, err)
		cfg.CacheDir = ""
		return msg
	}
	info, err := os.Stat(abs)
	if err == nil {
		if !info.IsDir() {
			cfg.CacheDir = ""
			return fmt.Sprintf("cache-dir '%s' exists but is not a directory; falling back to temp dir", abs)
		}
		cfg.CacheDir = abs
		return "using existing cache-dir: " + abs
	}
	if os.IsNotExist(err) {
		if err := os.MkdirAll(abs, 0755); err != nil {
			cfg.CacheDir = ""
			return fmt.Sprintf("cannot create cache-dir '%s': %v; falling back to temp dir", abs, err)
		}
		cfg.CacheDir = abs
		return "created and using cache-dir: " + abs
	}
	cfg.CacheDir = ""
	return fmt.Sprintf("cannot access cache-dir '%s': %v; falling back to temp dir", abs, err)
}

// TempDir returns the directory to use for temporary capture files.
func TempDir(cfg *Config) string {
	if cfg.CacheDir != "" {
		return cfg.CacheDir
	}
	return os.TempDir()
}
