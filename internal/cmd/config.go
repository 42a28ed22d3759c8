package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/pkglog/internal/config"
	"github.com/Iron-Ham/pkglog/internal/logging"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View or modify pkglog configuration",
		Long: `View or modify pkglog configuration.

Without arguments, displays the effective configuration.
Use subcommands to modify settings or create a config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(a, cmd)
		},
	}

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(a, cmd)
		},
	}

	configSetCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the config file.

Valid keys:
  level     - Global minimum level (trace, debug, info, warn, error, critical, off or 0-7)
  format    - Line template, e.g. "{timestamp} {severity} {topic}: {message}"
  dir       - Directory receiving log files
  file      - Base name of log files
  files     - Number of dated files to keep (1-1000)
  compress  - Gzip files before pruning them (true/false)
  console   - Mirror records to stdout/stderr (true/false)
  color     - Console colors: auto, always or never
  debug     - Only these topic globs write DEBUG, at any level, e.g. "db*,-db.pool"`,
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{createsConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(a, cmd, args[0], args[1])
		},
	}

	var force bool
	configInitCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default config file",
		Long:        `Create a default config file at ~/.config/pkglog/config.yaml with all available options.`,
		Annotations: map[string]string{createsConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(a, cmd, force)
		},
	}
	configInitCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	configPathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigPath(a, cmd)
		},
	}

	configCmd.AddCommand(configShowCmd, configSetCmd, configInitCmd, configPathCmd)
	return configCmd
}

// targetFile is the file written by set and init.
func (a *app) targetFile() string {
	if a.cfgFile != "" {
		return a.cfgFile
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		return used
	}
	return config.ConfigFile()
}

func runConfigShow(a *app, cmd *cobra.Command) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// Show where config is being read from
	if used := a.v.ConfigFileUsed(); used != "" {
		_, _ = fmt.Fprintf(out, "# Config file: %s\n", used)
	} else {
		_, _ = fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(a *app, cmd *cobra.Command, key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if !slices.Contains(config.Keys(), key) {
		return fmt.Errorf("unknown configuration key: %s\nValid keys: %s", key, strings.Join(config.Keys(), ", "))
	}

	var typedValue any = value
	switch key {
	case config.KeyFiles:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = n
	case config.KeyCompress, config.KeyConsole:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = b
	}

	configFile := a.targetFile()

	// Only the file's own settings are rewritten, never environment overrides
	fileV := viper.New()
	fileV.SetConfigType("yaml")
	if _, err := os.Stat(configFile); err == nil {
		fileV.SetConfigFile(configFile)
		if err := fileV.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	fileV.Set(key, typedValue)

	check := viper.New()
	config.SetDefaults(check)
	if err := check.MergeConfigMap(fileV.AllSettings()); err != nil {
		return fmt.Errorf("failed to merge configuration: %w", err)
	}
	if _, err := config.Load(check); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := fileV.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	_, _ = fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

func runConfigInit(a *app, cmd *cobra.Command, force bool) error {
	configFile := a.cfgFile
	if configFile == "" {
		configFile = config.ConfigFile()
	}

	if _, err := os.Stat(configFile); err == nil && !force {
		return fmt.Errorf("config file already exists at %s\nUse 'pkglog config set' to modify values", configFile)
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigContent()), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Created config file at %s\n", configFile)
	_, _ = fmt.Fprintln(out, "Edit this file to customize logging.")
	return nil
}

func defaultConfigContent() string {
	d := config.Default()
	return fmt.Sprintf(`# pkglog configuration
# Every key can be overridden with a LOG_<KEY> environment variable.

# Global minimum level: trace, debug, info, warn, error, critical, off (or 0-7)
level: %s

# Line template. Placeholders: {timestamp} {level} {severity} {rank}
# {topic} {message} {pid} {package} {version}
format: %q

# Directory and base name of the log files: {file}.{YYYY-MM-DD}.log
dir: %s
file: %s

# Number of dated files to keep (%d-%d)
files: %d

# Gzip files before they are pruned
compress: %t

# Mirror records to stdout (below WARN) and stderr (WARN and above)
console: %t
# auto, always or never
color: %s

# Topic globs allowed to write DEBUG records, even above level debug.
# Empty lets every topic follow the level. Example: "db*,-db.pool"
debug: %q
`, strings.ToLower(d.Level.String()), d.Format, d.Dir, d.File,
		logging.MinFiles, logging.MaxFiles, d.Files, d.Compress, d.Console, d.Color, d.Debug)
}

func runConfigPath(a *app, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	if used := a.v.ConfigFileUsed(); used != "" {
		_, _ = fmt.Fprintf(out, "Active config: %s\n", used)
	} else {
		_, _ = fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	// Also show config search paths
	_, _ = fmt.Fprintln(out, "\nSearch paths:")
	_, _ = fmt.Fprintf(out, "  1. %s\n", config.ConfigFile())
	_, _ = fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	_, _ = fmt.Fprintf(out, "\nEnvironment variables: %s_* (e.g., %s_LEVEL)\n", config.EnvPrefix, config.EnvPrefix)
	return nil
}
