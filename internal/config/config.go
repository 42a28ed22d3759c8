package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/pkglog/internal/console"
	"github.com/Iron-Ham/pkglog/internal/errors"
	"github.com/Iron-Ham/pkglog/internal/format"
	"github.com/Iron-Ham/pkglog/internal/level"
	"github.com/Iron-Ham/pkglog/internal/logging"
	"github.com/Iron-Ham/pkglog/internal/provider"
)

// EnvPrefix prefixes every environment variable, e.g. LOG_LEVEL.
const EnvPrefix = "LOG"

// Configuration keys. Each maps to the environment variable
// EnvPrefix + "_" + upper-cased key.
const (
	KeyLevel    = "level"
	KeyFormat   = "format"
	KeyDir      = "dir"
	KeyFile     = "file"
	KeyFiles    = "files"
	KeyCompress = "compress"
	KeyConsole  = "console"
	KeyColor    = "color"
	KeyDebug    = "debug"
)

// Keys returns every configuration key in display order.
func Keys() []string {
	return []string{KeyLevel, KeyFormat, KeyDir, KeyFile, KeyFiles, KeyCompress, KeyConsole, KeyColor, KeyDebug}
}

// Config represents the complete logging configuration
type Config struct {
	// Level is the global minimum level (name or rank)
	Level level.Level `mapstructure:"level" yaml:"level"`
	// Format is the line template for log files
	Format string `mapstructure:"format" yaml:"format"`
	// Dir is the directory receiving log files
	Dir string `mapstructure:"dir" yaml:"dir"`
	// File is the base name of log files: {file}.{YYYY-MM-DD}.log
	File string `mapstructure:"file" yaml:"file"`
	// Files is how many dated log files to keep (1-1000)
	Files int `mapstructure:"files" yaml:"files"`
	// Compress gzips files before they are pruned
	Compress bool `mapstructure:"compress" yaml:"compress"`
	// Console mirrors records to stdout/stderr
	Console bool `mapstructure:"console" yaml:"console"`
	// Color controls console colors: auto, always or never
	Color string `mapstructure:"color" yaml:"color"`
	// Debug lists the topic globs allowed to write DEBUG records
	Debug string `mapstructure:"debug" yaml:"debug"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	opts := provider.DefaultOptions()
	return &Config{
		Level:  opts.Level,
		Format: opts.Format,
		Dir:    opts.Directory,
		File:   opts.Filename,
		Files:  opts.Files,
		Color:  string(console.ColorAuto),
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault(KeyLevel, defaults.Level.String())
	v.SetDefault(KeyFormat, defaults.Format)
	v.SetDefault(KeyDir, defaults.Dir)
	v.SetDefault(KeyFile, defaults.File)
	v.SetDefault(KeyFiles, defaults.Files)
	v.SetDefault(KeyCompress, defaults.Compress)
	v.SetDefault(KeyConsole, defaults.Console)
	v.SetDefault(KeyColor, defaults.Color)
	v.SetDefault(KeyDebug, defaults.Debug)
}

// New returns a viper instance with defaults and environment bindings in
// place. Each caller gets its own instance, so configurations never leak
// between providers.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	// e.g. LOG_LEVEL for level
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// DEBUG is honoured when LOG_DEBUG is unset
	_ = v.BindEnv(KeyDebug, EnvPrefix+"_DEBUG", "DEBUG")
	v.SetConfigType("yaml")
	return v
}

// ReadFile points v at a config file and reads it. An empty path searches
// ConfigDir and the working directory for config.yaml; not finding one there
// is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %s", path)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(ConfigDir())
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}
	return nil
}

// Load decodes the configuration held by v and validates it. All
// validation failures are reported together.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(DecodeHook())); err != nil {
		return nil, errors.NewValidationError("cannot decode configuration").WithCause(err)
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// FromEnv loads the configuration from defaults and the environment only.
func FromEnv() (*Config, error) {
	return Load(New())
}

// DecodeHook returns the decode hook used by Load: levels are parsed from
// names or ranks, and integer fields reject fractional or non-numeric input
// instead of truncating it.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		levelHook,
		strictIntHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

var levelType = reflect.TypeOf(level.Level(0))

func levelHook(from, to reflect.Type, data any) (any, error) {
	if to != levelType || from == levelType {
		return data, nil
	}
	return level.Parse(data)
}

func strictIntHook(from, to reflect.Type, data any) (any, error) {
	if to == levelType {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return data, nil
	}

	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		f := reflect.ValueOf(data).Float()
		if f != float64(int64(f)) {
			return nil, errors.NewValidationError("must be an integer").WithValue(data)
		}
		return int64(f), nil
	case reflect.String:
		s := strings.TrimSpace(reflect.ValueOf(data).String())
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.NewValidationError("must be an integer").WithValue(data)
		}
		return n, nil
	}
	return data, nil
}

// Options converts the configuration into provider options.
func (c *Config) Options() provider.Options {
	opts := provider.DefaultOptions()
	opts.Level = c.Level
	opts.Format = c.Format
	opts.Directory = c.Dir
	opts.Filename = c.File
	opts.Files = c.Files
	opts.Compress = c.Compress
	opts.Console = c.Console
	opts.DebugTopics = c.Debug
	if mode, err := console.ParseColorMode(c.Color); err == nil {
		opts.Color = mode
	}
	return opts
}

// NewProvider builds a provider from the configuration.
func (c *Config) NewProvider() (*provider.Provider, error) {
	return provider.New(c.Options())
}

// Template compiles the configured line template.
func (c *Config) Template() (*format.Template, error) {
	return format.Compile(c.Format)
}

// LatestLogFile returns the newest log file for this configuration.
func (c *Config) LatestLogFile() (string, error) {
	return logging.LatestFile(c.Dir, c.File)
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pkglog")
	}
	// Fall back to ~/.config/pkglog
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pkglog"
	}
	return filepath.Join(home, ".config", "pkglog")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
