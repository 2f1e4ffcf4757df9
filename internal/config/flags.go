package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// FlagValues holds parsed flags with explicit set tracking.
type FlagValues struct {
	Backend           string
	BackendSet        bool
	APIKey            string
	APIKeySet         bool
	APIEndpoint       string
	APIEndpointSet    bool
	RemoteModel       string
	RemoteModelSet    bool
	Prompt            string
	PromptSet         bool
	TextPath          string
	TextPathSet       bool
	UploadCodec       string
	UploadCodecSet    bool
	ModelSize         string
	ModelSizeSet      bool
	LocalDevice       string
	LocalDeviceSet    bool
	PythonPath        string
	PythonPathSet     bool
	Language          string
	LanguageSet       bool
	Mode              string
	ModeSet           bool
	OutputModes       []string
	OutputModesSet    bool
	AppendEnter       bool
	AppendEnterSet    bool
	Hotkey            string
	HotkeySet         bool
	StealthHotkey     string
	StealthHotkeySet  bool
	HotKeyHook        bool
	HotKeyHookSet     bool
	RequestTimeout    int
	RequestTimeoutSet bool
	MaxRetry          int
	MaxRetrySet       bool
	RetryBaseDelay    float64
	RetryBaseDelaySet bool
	CacheDir          string
	CacheDirSet       bool
	KeepCache         bool
	KeepCacheSet      bool
	ReportDir         string
	ReportDirSet      bool
	Notification      bool
	NotificationSet   bool
	LogLevel          string
	LogLevelSet       bool
	MetricsAddr       string
	MetricsAddrSet    bool
	RecordDebug       bool
	RecordDebugSet    bool
	UploadDebug       bool
	UploadDebugSet    bool
	HotkeyDebug       bool
	HotkeyDebugSet    bool
	FFmpegDebug       bool
	FFmpegDebugSet    bool

	OutputPath    string
	OutputPathSet bool
}

type stringFlag struct {
	target *string
	set    *bool
}

func (s *stringFlag) String() string {
	if s == nil || s.target == nil {
		return ""
	}
	return *s.target
}

func (s *stringFlag) Set(v string) error {
	if s.target != nil {
		*s.target = v
	}
	if s.set != nil {
		*s.set = true
	}
	return nil
}

type listFlag struct {
	target *[]string
	set    *bool
}

func (l *listFlag) String() string {
	if l == nil || l.target == nil {
		return ""
	}
	return strings.Join(*l.target, ",")
}

func (l *listFlag) Set(v string) error {
	var out []string
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if l.target != nil {
		*l.target = out
	}
	if l.set != nil {
		*l.set = true
	}
	return nil
}

type intFlag struct {
	target *int
	set    *bool
}

func (i *intFlag) String() string {
	if i == nil || i.target == nil {
		return ""
	}
	return fmt.Sprintf("%d", *i.target)
}

func (i *intFlag) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	if i.target != nil {
		*i.target = n
	}
	if i.set != nil {
		*i.set = true
	}
	return nil
}

type floatFlag struct {
	target *float64
	set    *bool
}

func (f *floatFlag) String() string {
	if f == nil || f.target == nil {
		return ""
	}
	return fmt.Sprintf("%v", *f.target)
}

func (f *floatFlag) Set(v string) error {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	if f.target != nil {
		*f.target = n
	}
	if f.set != nil {
		*f.set = true
	}
	return nil
}

type boolFlag struct {
	target *bool
	set    *bool
}

func (b *boolFlag) String() string {
	if b == nil || b.target == nil {
		return ""
	}
	return fmt.Sprintf("%v", *b.target)
}

// IsBoolFlag lets "-append-enter" work without an explicit value.
func (b *boolFlag) IsBoolFlag() bool { return true }

func parseBoolExt(v string) (bool, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean: %s", v)
}

func (b *boolFlag) Set(v string) error {
	n, err := parseBoolExt(v)
	if err != nil {
		return err
	}
	if b.target != nil {
		*b.target = n
	}
	if b.set != nil {
		*b.set = true
	}
	return nil
}

// BindFlags registers all flags and returns the populated FlagValues.
func BindFlags(fs *flag.FlagSet) *FlagValues {
	fv := &FlagValues{}

	fs.Var(&stringFlag{&fv.Backend, &fv.BackendSet}, "backend", "transcriber backend: local | openai_api")
	fs.Var(&stringFlag{&fv.APIKey, &fv.APIKeySet}, "api-key", "OpenAI API key")
	fs.Var(&stringFlag{&fv.APIEndpoint, &fv.APIEndpointSet}, "api-endpoint", "transcription endpoint URL")
	fs.Var(&stringFlag{&fv.RemoteModel, &fv.RemoteModelSet}, "remote-model", "remote transcription model")
	fs.Var(&stringFlag{&fv.Prompt, &fv.PromptSet}, "prompt", "prompt sent with remote requests")
	fs.Var(&stringFlag{&fv.TextPath, &fv.TextPathSet}, "text-path", "JSON path to extract text")
	fs.Var(&stringFlag{&fv.UploadCodec, &fv.UploadCodecSet}, "upload-codec", "transcode captures with ffmpeg before upload (e.g. opus, mp3, flac)")

	fs.Var(&stringFlag{&fv.ModelSize, &fv.ModelSizeSet}, "model-size", "local model size: tiny | base | small | medium | large")
	fs.Var(&stringFlag{&fv.LocalDevice, &fv.LocalDeviceSet}, "local-device", "local model device: auto | cpu | cuda")
	fs.Var(&stringFlag{&fv.PythonPath, &fv.PythonPathSet}, "python", "python interpreter with faster-whisper installed")
	fs.Var(&stringFlag{&fv.Language, &fv.LanguageSet}, "language", "language code or Auto")

	fs.Var(&stringFlag{&fv.Mode, &fv.ModeSet}, "mode", "recording mode: dictation | interview | conference")
	fs.Var(&listFlag{&fv.OutputModes, &fv.OutputModesSet}, "output", "comma separated output modes: cursor, clipboard")
	fs.Var(&boolFlag{&fv.AppendEnter, &fv.AppendEnterSet}, "append-enter", "press Enter after pasting (true/false)")

	fs.Var(&stringFlag{&fv.Hotkey, &fv.HotkeySet}, "hotkey", "start/stop hotkey")
	fs.Var(&stringFlag{&fv.StealthHotkey, &fv.StealthHotkeySet}, "stealth-hotkey", "quiet mode hotkey")
	fs.Var(&boolFlag{&fv.HotKeyHook, &fv.HotKeyHookSet}, "hotkeyhook", "use low-level keyboard hook (true/false)")

	fs.Var(&intFlag{&fv.RequestTimeout, &fv.RequestTimeoutSet}, "request-timeout", "request timeout seconds")
	fs.Var(&intFlag{&fv.MaxRetry, &fv.MaxRetrySet}, "max-retry", "max upload attempts")
	fs.Var(&floatFlag{&fv.RetryBaseDelay, &fv.RetryBaseDelaySet}, "retry-base-delay", "retry base delay seconds (float)")

	fs.Var(&stringFlag{&fv.CacheDir, &fv.CacheDirSet}, "cache-dir", "cache directory")
	fs.Var(&boolFlag{&fv.KeepCache, &fv.KeepCacheSet}, "keep-cache", "keep captures and transcripts in cache-dir (true/false)")
	fs.Var(&stringFlag{&fv.ReportDir, &fv.ReportDirSet}, "report-dir", "directory for conference reports")

	fs.Var(&boolFlag{&fv.Notification, &fv.NotificationSet}, "notification", "enable notifications (true/false)")
	fs.Var(&stringFlag{&fv.LogLevel, &fv.LogLevelSet}, "log-level", "log level: debug | info | warn | error")
	fs.Var(&stringFlag{&fv.MetricsAddr, &fv.MetricsAddrSet}, "metrics-addr", "serve Prometheus metrics on this address")
	fs.Var(&boolFlag{&fv.RecordDebug, &fv.RecordDebugSet}, "record-debug", "enable record debug output (true/false)")
	fs.Var(&boolFlag{&fv.UploadDebug, &fv.UploadDebugSet}, "upload-debug", "enable upload debug output (true/false)")
	fs.Var(&boolFlag{&fv.HotkeyDebug, &fv.HotkeyDebugSet}, "hotkey-debug", "enable hotkey debug output (true/false)")
	fs.Var(&boolFlag{&fv.FFmpegDebug, &fv.FFmpegDebugSet}, "ffmpeg-debug", "enable ffmpeg debug output (true/false)")

	fs.Var(&stringFlag{&fv.OutputPath, &fv.OutputPathSet}, "out", "output path for -file mode")

	return fv
}

// ApplyFlags applies present flags to the config.
func ApplyFlags(cfg *Config, fv *FlagValues) {
	if fv.BackendSet {
		cfg.TranscriberBackend = fv.Backend
	}
	if fv.APIKeySet {
		cfg.OpenAIAPIKey = fv.APIKey
	}
	if fv.APIEndpointSet {
		cfg.APIEndpoint = fv.APIEndpoint
	}
	if fv.RemoteModelSet {
		cfg.RemoteModel = fv.RemoteModel
	}
	if fv.PromptSet {
		cfg.Prompt = fv.Prompt
	}
	if fv.TextPathSet {
		cfg.TextPath = fv.TextPath
	}
	if fv.UploadCodecSet {
		cfg.UploadCodec = fv.UploadCodec
	}

	if fv.ModelSizeSet {
		cfg.LocalModelSize = fv.ModelSize
	}
	if fv.LocalDeviceSet {
		cfg.LocalDevice = fv.LocalDevice
	}
	if fv.PythonPathSet {
		cfg.PythonPath = fv.PythonPath
	}
	if fv.LanguageSet {
		cfg.Language = fv.Language
	}

	if fv.ModeSet {
		cfg.Mode = fv.Mode
	}
	if fv.OutputModesSet {
		cfg.OutputModes = fv.OutputModes
	}
	if fv.AppendEnterSet {
		cfg.AppendEnter = fv.AppendEnter
	}

	if fv.HotkeySet {
		cfg.Hotkey = fv.Hotkey
	}
	if fv.StealthHotkeySet {
		cfg.StealthHotkey = fv.StealthHotkey
	}
	if fv.HotKeyHookSet {
		cfg.HotKeyHook = fv.HotKeyHook
	}

	if fv.RequestTimeoutSet {
		cfg.RequestTimeout = fv.RequestTimeout
	}
	if fv.MaxRetrySet {
		cfg.MaxRetry = fv.MaxRetry
	}
	if fv.RetryBaseDelaySet {
		cfg.RetryBaseDelay = fv.RetryBaseDelay
	}

	if fv.CacheDirSet {
		cfg.CacheDir = fv.CacheDir
	}
	if fv.KeepCacheSet {
		cfg.KeepCache = fv.KeepCache
	}
	if fv.ReportDirSet {
		cfg.ReportDir = fv.ReportDir
	}

	if fv.NotificationSet {
		cfg.Notification = fv.Notification
	}
	if fv.LogLevelSet {
		cfg.LogLevel = fv.LogLevel
	}
	if fv.MetricsAddrSet {
		cfg.MetricsAddr = fv.MetricsAddr
	}
	if fv.RecordDebugSet {
		cfg.RecordDebug = fv.RecordDebug
	}
	if fv.UploadDebugSet {
		cfg.UploadDebug = fv.UploadDebug
	}
	if fv.HotkeyDebugSet {
		cfg.HotkeyDebug = fv.HotkeyDebug
	}
	if fv.FFmpegDebugSet {
		cfg.FFmpegDebug = fv.FFmpegDebug
	}
}

// AnySet reports whether any configuration flag was explicitly set by the user.
func (fv *FlagValues) AnySet() bool {
	return fv.BackendSet ||
		fv.APIKeySet ||
		fv.APIEndpointSet ||
		fv.RemoteModelSet ||
		fv.PromptSet ||
		fv.TextPathSet ||
		fv.UploadCodecSet ||
		fv.ModelSizeSet ||
		fv.LocalDeviceSet ||
		fv.PythonPathSet ||
		fv.LanguageSet ||
		fv.ModeSet ||
		fv.OutputModesSet ||
		fv.AppendEnterSet ||
		fv.HotkeySet ||
		fv.StealthHotkeySet ||
		fv.HotKeyHookSet ||
		fv.RequestTimeoutSet ||
		fv.MaxRetrySet ||
		fv.RetryBaseDelaySet ||
		fv.CacheDirSet ||
		fv.KeepCacheSet ||
		fv.ReportDirSet ||
		fv.NotificationSet ||
		fv.LogLevelSet ||
		fv.MetricsAddrSet ||
		fv.RecordDebugSet ||
		fv.UploadDebugSet ||
		fv.HotkeyDebugSet ||
		fv.FFmpegDebugSet ||
		fv.OutputPathSet
}
