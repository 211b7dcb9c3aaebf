// Package config loads rsasign settings from defaults, an optional YAML
// file, RSASIGN_* environment variables and command line flags, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/glinharesb/rsasign/internal/hsm"
)

const (
	EnvPrefix = "rsasign"
	FileName  = "rsasign"

	DefaultKeyAlias = "RSASIGN_KEY_ALIAS"
)

var ErrInvalidConfig = errors.New("invalid config")

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type AuditConfig struct {
	Buffer int `mapstructure:"buffer" yaml:"buffer"`
}

type Config struct {
	Backend  string           `mapstructure:"backend" yaml:"backend"`
	KeyAlias string           `mapstructure:"key_alias" yaml:"key_alias"`
	Output   string           `mapstructure:"output" yaml:"output"`
	Log      LogConfig        `mapstructure:"log" yaml:"log"`
	Audit    AuditConfig      `mapstructure:"audit" yaml:"audit"`
	PKCS11   hsm.PKCS11Config `mapstructure:"pkcs11" yaml:"pkcs11"`
}

// Defaults are applied before any file, env or flag source.
func Defaults() map[string]any {
	return map[string]any{
		"backend":            hsm.BackendSoftware,
		"key_alias":          DefaultKeyAlias,
		"output":             "text",
		"log.level":          "info",
		"log.format":         "text",
		"audit.buffer":       1024,
		"pkcs11.library":     "",
		"pkcs11.token_label": "",
		"pkcs11.pin":         "",
	}
}

// flagKeys maps dashed flag names onto nested config keys.
var flagKeys = map[string]string{
	"backend":      "backend",
	"key-alias":    "key_alias",
	"output":       "output",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"pkcs11-lib":   "pkcs11.library",
	"pkcs11-token": "pkcs11.token_label",
}

// Load builds a Config. path may be empty, in which case rsasign.yaml is
// searched for in the user config directory and the working directory.
// cmd may be nil when no flags apply.
func Load(cmd *cobra.Command, path string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "rsasign"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		var bindErr error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			key, ok := flagKeys[f.Name]
			if !ok || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return c, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

var (
	backends = []string{hsm.BackendSoftware, hsm.BackendPKCS11}
	outputs  = []string{"text", "json", "yaml"}
	levels   = []string{"debug", "info", "warn", "error"}
	formats  = []string{"text", "json"}
)

func (c Config) Validate() error {
	if !slices.Contains(backends, c.Backend) {
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	if c.KeyAlias == "" {
		return fmt.Errorf("%w: key_alias is empty", ErrInvalidConfig)
	}
	if !slices.Contains(outputs, c.Output) {
		return fmt.Errorf("%w: unknown output %q", ErrInvalidConfig, c.Output)
	}
	if !slices.Contains(levels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	if !slices.Contains(formats, c.Log.Format) {
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	if c.Audit.Buffer <= 0 {
		return fmt.Errorf("%w: audit.buffer must be positive", ErrInvalidConfig)
	}
	if c.Backend == hsm.BackendPKCS11 {
		if err := c.PKCS11.Validate(); err != nil {
			return err
		}
	}
	return nil
}
