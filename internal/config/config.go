// Package config loads the tunerd configuration from a YAML file and TUNER_*
// environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

const (
	defaultConfigPath = "config/tunerd.yaml"
	envPrefix         = "TUNER_"
)

type AppConfig struct {
	ListenAddr   string         `yaml:"listen_addr" env:"TUNER_LISTEN_ADDR" env-default:":8080"`
	TickInterval time.Duration  `yaml:"tick_interval" env:"TUNER_TICK_INTERVAL" env-default:"50ms"`
	Pipeline     PipelineConfig `yaml:"pipeline"`
	Panels       PanelsConfig   `yaml:"panels"`
	Log          LogConfig      `yaml:"log"`
	DOTPath      string         `yaml:"dot_path" env:"TUNER_DOT_PATH"`
}

type PipelineConfig struct {
	// DefinitionFile is watched and reloaded when set.
	DefinitionFile string        `yaml:"definition_file" env:"TUNER_PIPELINE_FILE"`
	Initial        string        `yaml:"initial" env:"TUNER_PIPELINE" env-default:"threshold"`
	FrameInterval  time.Duration `yaml:"frame_interval" env:"TUNER_FRAME_INTERVAL" env-default:"33ms"`
	FrameWidth     int           `yaml:"frame_width" env:"TUNER_FRAME_WIDTH" env-default:"320"`
	FrameHeight    int           `yaml:"frame_height" env:"TUNER_FRAME_HEIGHT" env-default:"240"`
	Debounce       time.Duration `yaml:"debounce" env:"TUNER_RELOAD_DEBOUNCE" env-default:"250ms"`
}

type PanelsConfig struct {
	File         string `yaml:"file" env:"TUNER_PANELS_FILE"`
	SaveSchedule string `yaml:"save_schedule" env:"TUNER_PANELS_SAVE_SCHEDULE" env-default:"@every 30s"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"TUNER_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"TUNER_LOG_FORMAT" env-default:"text"`
}

// Load reads path when it exists, then the environment. An empty path falls
// back to TUNER_CONFIG and then to config/tunerd.yaml.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	path = resolveConfigPath(path)
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, errors.Wrapf(err, "unable to read %s", path)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "unable to read environment")
	}
	normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func resolveConfigPath(path string) string {
	if path = strings.TrimSpace(path); path != "" {
		return path
	}
	if v := strings.TrimSpace(os.Getenv(envPrefix + "CONFIG")); v != "" {
		return v
	}

	return defaultConfigPath
}

func normalize(cfg *AppConfig) {
	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	cfg.DOTPath = strings.TrimSpace(cfg.DOTPath)
	cfg.Pipeline.DefinitionFile = strings.TrimSpace(cfg.Pipeline.DefinitionFile)
	cfg.Pipeline.Initial = strings.ToLower(strings.TrimSpace(cfg.Pipeline.Initial))
	cfg.Panels.File = strings.TrimSpace(cfg.Panels.File)
	cfg.Panels.SaveSchedule = strings.TrimSpace(cfg.Panels.SaveSchedule)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
}

// Validate reports the first invalid setting of cfg.
func Validate(cfg *AppConfig) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.ListenAddr == "" {
		return errors.New("listen_addr must be set")
	}
	if cfg.TickInterval <= 0 {
		return errors.Errorf("tick_interval must be positive, got %s", cfg.TickInterval)
	}
	if cfg.Pipeline.FrameInterval <= 0 {
		return errors.Errorf("pipeline.frame_interval must be positive, got %s", cfg.Pipeline.FrameInterval)
	}
	if cfg.Pipeline.FrameWidth <= 0 || cfg.Pipeline.FrameHeight <= 0 {
		return errors.Errorf("invalid frame size %dx%d", cfg.Pipeline.FrameWidth, cfg.Pipeline.FrameHeight)
	}
	if cfg.Panels.File != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(cfg.Panels.SaveSchedule); err != nil {
			return errors.Wrapf(err, "invalid panels.save_schedule %q", cfg.Panels.SaveSchedule)
		}
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("unsupported log format %q", cfg.Log.Format)
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unsupported log level %q", cfg.Log.Level)
	}

	return nil
}
