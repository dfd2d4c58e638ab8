package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rendis/wfgraph/internal/interact"
)

// Config holds all wfgraph configuration.
// Priority: env vars (WFGRAPH_*) > settings.yaml (or --config) > defaults.
// A non-empty PanelAddr starts the HTTP graph viewer alongside serve.
type Config struct {
	DBPath           string  `mapstructure:"db_path" yaml:"db_path" validate:"required"`
	LogLevel         string  `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	Orientation      string  `mapstructure:"orientation" yaml:"orientation" validate:"oneof=horizontal vertical"`
	ConditionDialect string  `mapstructure:"condition_dialect" yaml:"condition_dialect" validate:"oneof=cel expr jq"`
	VacuumSchedule   string  `mapstructure:"vacuum_schedule" yaml:"vacuum_schedule" validate:"omitempty,cron"`
	ZoomMin          float64 `mapstructure:"zoom_min" yaml:"zoom_min" validate:"gt=0,ltfield=ZoomMax"`
	ZoomMax          float64 `mapstructure:"zoom_max" yaml:"zoom_max" validate:"gt=0"`
	PanelAddr        string  `mapstructure:"panel_addr" yaml:"panel_addr" validate:"omitempty,hostname_port"`
}

func defaultConfig() Config {
	return Config{
		DBPath:           filepath.Join(wfgraphDir(), "wfgraph.db"),
		LogLevel:         "info",
		Orientation:      "horizontal",
		ConditionDialect: "cel",
		VacuumSchedule:   "30 3 * * *",
		ZoomMin:          interact.BuilderMinZoom,
		ZoomMax:          interact.MaxZoom,
	}
}

func wfgraphDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wfgraph"
	}
	return filepath.Join(home, ".wfgraph")
}

func settingsPath() string {
	return filepath.Join(wfgraphDir(), "settings.yaml")
}

// loadConfig layers defaults, the settings file and the environment. A
// missing default settings file is not an error; a missing explicit one is.
func loadConfig(path string) (Config, error) {
	if path == "" {
		return readConfig(settingsPath(), false)
	}
	return readConfig(path, true)
}

func readConfig(path string, mustExist bool) (Config, error) {
	v := viper.New()
	def := defaultConfig()
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("orientation", def.Orientation)
	v.SetDefault("condition_dialect", def.ConditionDialect)
	v.SetDefault("vacuum_schedule", def.VacuumSchedule)
	v.SetDefault("zoom_min", def.ZoomMin)
	v.SetDefault("zoom_max", def.ZoomMax)
	v.SetDefault("panel_addr", def.PanelAddr)

	v.SetEnvPrefix("WFGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if mustExist || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.ConditionDialect = strings.ToLower(cfg.ConditionDialect)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := cronParser.Parse(fl.Field().String())
		return err == nil
	})
	return validate
}

// validateConfig reports every invalid field by its settings key.
func validateConfig(cfg Config) error {
	err := newValidator().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", settingsKey(fe.StructField()), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// settingsKey maps a Config field name to its settings key.
func settingsKey(field string) string {
	switch field {
	case "DBPath":
		return "db_path"
	case "LogLevel":
		return "log_level"
	case "ConditionDialect":
		return "condition_dialect"
	case "VacuumSchedule":
		return "vacuum_schedule"
	case "ZoomMin":
		return "zoom_min"
	case "ZoomMax":
		return "zoom_max"
	case "PanelAddr":
		return "panel_addr"
	default:
		return strings.ToLower(field)
	}
}

// writeSettings persists cfg as YAML at path, creating parent directories.
func writeSettings(path string, cfg Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// builderView is the initial view of a replayed builder session: zoom 1,
// clamped into [ZoomMin, ZoomMax].
func (c Config) builderView() interact.View {
	return interact.View{MinZoom: c.ZoomMin, MaxZoom: c.ZoomMax}.Reset()
}

// dsn is the libSQL data source for DBPath.
func (c Config) dsn() string {
	if strings.HasPrefix(c.DBPath, "file:") || strings.Contains(c.DBPath, "://") {
		return c.DBPath
	}
	return "file:" + c.DBPath
}
