// Command dictate records speech on a global hotkey, transcribes it with the
// OpenAI API or a local faster-whisper model and pastes the text at the
// cursor. Conference mode records both sides of a call and writes a
// markdown report instead.
//
// Configuration is layered: built-in defaults, then the JSON config file
// (-config, else ./config.json), then .env and environment variables, then
// command-line flags. Without a config file and without flags a default
// config.json is written and the program exits so it can be edited.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"dictate/internal/app"
	"dictate/internal/config"
	"dictate/internal/observability"
)

const defaultConfigPath = "config.json"

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: %s [options]

Hotkey mode (default): press the hotkey to start recording and again to stop.
File mode: -file <audio> transcribes an existing recording and exits.

Options:
`, os.Args[0])
	flag.PrintDefaults()
	fmt.Fprintf(flag.CommandLine.Output(), `
Examples:
  %[1]s -config config.json
  %[1]s -backend local -model-size small -language en
  %[1]s -mode conference -report-dir ./reports
  %[1]s -file call_me.wav -conference-system call_them.wav -out call.md
`, os.Args[0])
}

func main() {
	boot := observability.InitLogger("info", true)

	configPath := flag.String("config", "", "JSON config file (default ./config.json)")
	filePath := flag.String("file", "", "transcribe an existing audio file and exit")
	systemPath := flag.String("conference-system", "", "with -file: the system-side recording of a conference")
	fv := config.BindFlags(flag.CommandLine)
	flag.Usage = usage
	flag.Parse()

	_, envErr := os.Stat(".env")
	cfg, created, err := loadConfig(*configPath, fv.AnySet() || *filePath != "" || envErr == nil)
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to load config")
	}
	if created {
		boot.Info().Str("path", defaultConfigPath).Msg("default config created, edit it and re-run")
		return
	}
	if err := config.ApplyEnv(&cfg, ".env"); err != nil {
		boot.Fatal().Err(err).Msg("failed to apply environment")
	}
	config.ApplyFlags(&cfg, fv)
	if err := config.Validate(&cfg); err != nil {
		boot.Fatal().Err(err).Msg("invalid config")
	}

	log := observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	if msg := config.InitCacheDir(&cfg); msg != "" {
		log.Info().Msg(msg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *filePath != "" {
		os.Exit(runFile(ctx, cfg, app.FileJob{Input: *filePath, System: *systemPath, Output: fv.OutputPath}, log))
	}

	if err := app.RunRecordMode(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("record mode failed")
		os.Exit(1)
	}
}

func runFile(ctx context.Context, cfg config.Config, job app.FileJob, log zerolog.Logger) int {
	svc, loader := app.NewTranscriber(cfg, log)
	defer func() {
		_ = svc.Close()
		_ = loader.Close()
	}()
	path, err := app.RunFileMode(ctx, cfg, job, svc, log)
	if err != nil {
		ev := log.Error().Err(err).Str("file", job.Input)
		if path != "" {
			ev = ev.Str("partial", path)
		}
		ev.Msg("file mode failed")
		return 1
	}
	log.Info().Str("path", path).Msg("output written")
	return 0
}

// loadConfig resolves the config file. created reports that a default file
// was written because none existed and no other source of settings was given.
func loadConfig(path string, haveFlags bool) (cfg config.Config, created bool, err error) {
	if path != "" {
		cfg, err = config.Load(path)
		return cfg, false, err
	}
	_, statErr := os.Stat(defaultConfigPath)
	switch {
	case statErr == nil:
		cfg, err = config.Load(defaultConfigPath)
		return cfg, false, err
	case !errors.Is(statErr, os.ErrNotExist):
		return cfg, false, fmt.Errorf("stat %s: %w", defaultConfigPath, statErr)
	case haveFlags:
		return config.DefaultConfig(), false, nil
	}
	if err := config.SaveDefault(defaultConfigPath); err != nil {
		return cfg, false, fmt.Errorf("write default config: %w", err)
	}
	return cfg, true, nil
}
