package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sha1n/uuid-backfill/internal/backfill"
	"github.com/sha1n/uuid-backfill/internal/identity"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "UUID_BACKFILL"

// Transport constants
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// maxIndent bounds the indentation width of rewritten files.
const maxIndent = 16

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ServeSettings configuration for the MCP server
type ServeSettings struct {
	Transport string       `mapstructure:"transport"`
	Host      string       `mapstructure:"host"`
	Port      int          `mapstructure:"port"`
	Root      string       `mapstructure:"root"` // directory tool paths are resolved against
	Auth      AuthSettings `mapstructure:"auth"`
}

// Settings application settings
type Settings struct {
	Field       string        `mapstructure:"field"`
	UUIDVersion string        `mapstructure:"uuid_version"`
	Indent      int           `mapstructure:"indent"`
	DryRun      bool          `mapstructure:"dry_run"`
	Strict      bool          `mapstructure:"strict"`
	NoColor     bool          `mapstructure:"no_color"`
	Verbose     bool          `mapstructure:"verbose"`
	LockDir     string        `mapstructure:"lock_dir"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	Serve       ServeSettings `mapstructure:"serve"`
}

// binding ties a settings key to its CLI flag. The environment variable is
// derived from the key, e.g. serve.auth.type -> UUID_BACKFILL_SERVE_AUTH_TYPE.
type binding struct {
	key  string
	flag string
}

var bindings = []binding{
	{"field", "field"},
	{"uuid_version", "uuid-version"},
	{"indent", "indent"},
	{"dry_run", "dry-run"},
	{"strict", "strict"},
	{"no_color", "no-color"},
	{"verbose", "verbose"},
	{"lock_dir", "lock-dir"},
	{"lock_timeout", "lock-timeout"},
	{"serve.transport", "transport"},
	{"serve.host", "host"},
	{"serve.port", "port"},
	{"serve.root", "root"},
	{"serve.auth.type", "auth-type"},
	{"serve.auth.basic.username", "auth-basic-username"},
	{"serve.auth.basic.password", "auth-basic-password"},
	{"serve.auth.api_keys", "auth-api-keys"},
}

// EnvVar returns the environment variable bound to a settings key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used. Flags missing from
// the set (e.g. server flags on the root command) are skipped.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault("field", backfill.DefaultField)
	v.SetDefault("uuid_version", identity.VersionV4)
	v.SetDefault("indent", 4)
	v.SetDefault("dry_run", false)
	v.SetDefault("strict", false)
	v.SetDefault("no_color", false)
	v.SetDefault("verbose", false)
	v.SetDefault("lock_dir", backfill.DefaultLockDir())
	v.SetDefault("lock_timeout", backfill.DefaultLockTimeout)

	v.SetDefault("serve.transport", TransportStdio)
	v.SetDefault("serve.host", "127.0.0.1")
	v.SetDefault("serve.port", 8080)
	v.SetDefault("serve.root", ".")
	v.SetDefault("serve.auth.type", AuthTypeNone)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, b := range bindings {
		_ = v.BindEnv(b.key, EnvVar(b.key))
		if flags == nil {
			continue
		}
		if f := flags.Lookup(b.flag); f != nil {
			_ = v.BindPFlag(b.key, f)
		}
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv(EnvVar("serve.auth.api_keys"))
	if apiKeysEnv != "" {
		keys := settings.Serve.Auth.APIKeys
		if len(keys) == 0 || (len(keys) == 1 && strings.Contains(keys[0], ",")) {
			settings.Serve.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}
	for i := range settings.Serve.Auth.APIKeys {
		settings.Serve.Auth.APIKeys[i] = strings.TrimSpace(settings.Serve.Auth.APIKeys[i])
	}

	settings.Field = strings.TrimSpace(settings.Field)
	settings.LockDir = expandHomeDir(settings.LockDir)
	settings.Serve.Root = expandHomeDir(settings.Serve.Root)

	return &settings, nil
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// ValidateSettings checks the settings used to process files.
func ValidateSettings(s *Settings) error {
	if s.Field == "" {
		return errors.New("field cannot be empty")
	}

	if _, err := identity.ForVersion(s.UUIDVersion); err != nil {
		return fmt.Errorf("uuid-version must be '%s' or '%s', got: %q", identity.VersionV4, identity.VersionV7, s.UUIDVersion)
	}

	if s.Indent < 1 || s.Indent > maxIndent {
		return fmt.Errorf("indent must be between 1 and %d, got: %d", maxIndent, s.Indent)
	}

	if s.LockTimeout <= 0 {
		return errors.New("lock-timeout must be positive")
	}

	if s.LockDir == "" {
		return errors.New("lock-dir cannot be empty")
	}

	return nil
}

// ValidateServeSettings checks the file settings plus the server settings.
// Returns an error if the settings contain mutually exclusive or incomplete auth config.
func ValidateServeSettings(s *Settings) error {
	if err := ValidateSettings(s); err != nil {
		return err
	}

	switch s.Serve.Transport {
	case TransportStdio, TransportSSE:
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Serve.Transport)
	}

	if s.Serve.Transport == TransportSSE && (s.Serve.Port <= 0 || s.Serve.Port > 65535) {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", s.Serve.Port)
	}

	if s.Serve.Root == "" {
		return errors.New("root cannot be empty")
	}

	return validateAuthSettings(&s.Serve.Auth)
}

func validateAuthSettings(a *AuthSettings) error {
	hasBasicCreds := a.Basic.Username != "" || a.Basic.Password != ""
	hasAPIKeys := len(a.APIKeys) > 0

	switch a.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if a.Basic.Username == "" || a.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + a.Type)
	}

	return nil
}
