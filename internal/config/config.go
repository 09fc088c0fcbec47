// Package config provides Viper-based configuration loading for the Mordor frontend.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// TelnetConfig holds Telnet acceptor settings.
type TelnetConfig struct {
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener. Zero picks a free port.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxSessions caps concurrent player sessions. Zero means unlimited.
	MaxSessions int `mapstructure:"max_sessions"`
}

// Addr returns the "host:port" listen address.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// WebConfig holds WebSocket listener settings.
type WebConfig struct {
	// Enabled starts the WebSocket listener alongside Telnet.
	Enabled bool `mapstructure:"enabled"`
	// Host is the bind address.
	Host string `mapstructure:"host"`
	// Port is the HTTP port. Zero picks a free port.
	Port int `mapstructure:"port"`
	// ReadTimeout is how long a session may wait for the next message.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-message write timeout.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxSessions caps concurrent WebSocket sessions. Zero means unlimited.
	MaxSessions int `mapstructure:"max_sessions"`
	// AllowedOrigins restricts browser origins. Empty allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns the "host:port" listen address.
func (w WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameServerConfig holds settings for the remote HTTP game server.
type GameServerConfig struct {
	// BaseURL is the API root; endpoint paths are appended to it.
	BaseURL string `mapstructure:"base_url"`
	// RequestTimeout bounds each API round trip.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RevealConfig tunes the teleprinter animation.
type RevealConfig struct {
	// BaseDelay is the fixed pause before each character.
	BaseDelay time.Duration `mapstructure:"base_delay"`
	// MaxJitter is the exclusive upper bound of the random extra pause.
	MaxJitter time.Duration `mapstructure:"max_jitter"`
}

// SessionConfig holds per-player session behavior.
type SessionConfig struct {
	// DefaultName replaces a blank player name at session start.
	DefaultName string `mapstructure:"default_name"`
	// CombatRecheckDelay is how long after an in-combat response the
	// controller looks again for a delayed death.
	CombatRecheckDelay time.Duration `mapstructure:"combat_recheck_delay"`
	// RacesDir holds race YAML files for the setup screen. Empty uses the built-in list.
	RacesDir string `mapstructure:"races_dir"`
}

// Config is the top-level application configuration.
type Config struct {
	Telnet     TelnetConfig     `mapstructure:"telnet"`
	Web        WebConfig        `mapstructure:"web"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Reveal     RevealConfig     `mapstructure:"reveal"`
	Session    SessionConfig    `mapstructure:"session"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateTelnet(c.Telnet),
		validateWeb(c.Web),
		validateLogging(c.Logging),
		validateGameServer(c.GameServer),
		validateReveal(c.Reveal),
		validateSession(c.Session),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	var errs []string
	if t.Port < 0 || t.Port > 65535 {
		errs = append(errs, fmt.Sprintf("telnet.port must be 0-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	if t.MaxSessions < 0 {
		errs = append(errs, fmt.Sprintf("telnet.max_sessions must be >= 0, got %d", t.MaxSessions))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWeb(w WebConfig) error {
	var errs []string
	if w.Port < 0 || w.Port > 65535 {
		errs = append(errs, fmt.Sprintf("web.port must be 0-65535, got %d", w.Port))
	}
	if w.ReadTimeout < 0 {
		errs = append(errs, "web.read_timeout must not be negative")
	}
	if w.WriteTimeout < 0 {
		errs = append(errs, "web.write_timeout must not be negative")
	}
	if w.MaxSessions < 0 {
		errs = append(errs, fmt.Sprintf("web.max_sessions must be >= 0, got %d", w.MaxSessions))
	}
	for _, o := range w.AllowedOrigins {
		if u, err := url.Parse(o); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("web.allowed_origins entry %q must be an absolute origin", o))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	u, err := url.Parse(g.BaseURL)
	switch {
	case g.BaseURL == "":
		errs = append(errs, "gameserver.base_url must not be empty")
	case err != nil:
		errs = append(errs, fmt.Sprintf("gameserver.base_url is not a valid URL: %v", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Sprintf("gameserver.base_url scheme must be http or https, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, "gameserver.base_url must include a host")
	}
	if g.RequestTimeout <= 0 {
		errs = append(errs, "gameserver.request_timeout must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateReveal(r RevealConfig) error {
	var errs []string
	if r.BaseDelay < 0 {
		errs = append(errs, "reveal.base_delay must not be negative")
	}
	if r.MaxJitter < 0 {
		errs = append(errs, "reveal.max_jitter must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSession(s SessionConfig) error {
	var errs []string
	if strings.TrimSpace(s.DefaultName) == "" {
		errs = append(errs, "session.default_name must not be blank")
	}
	if s.CombatRecheckDelay <= 0 {
		errs = append(errs, "session.combat_recheck_delay must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and
// environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with MORDOR_ prefix
	v.SetEnvPrefix("MORDOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns the configuration produced when no file or environment overrides are present.
func Defaults() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "10m")
	v.SetDefault("telnet.write_timeout", "30s")
	v.SetDefault("telnet.max_sessions", 64)

	v.SetDefault("web.enabled", true)
	v.SetDefault("web.host", "0.0.0.0")
	v.SetDefault("web.port", 4080)
	v.SetDefault("web.read_timeout", "10m")
	v.SetDefault("web.write_timeout", "30s")
	v.SetDefault("web.max_sessions", 64)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("gameserver.base_url", "http://localhost:5000/api")
	v.SetDefault("gameserver.request_timeout", "10s")

	v.SetDefault("reveal.base_delay", "10ms")
	v.SetDefault("reveal.max_jitter", "10ms")

	v.SetDefault("session.default_name", "Adventurer")
	v.SetDefault("session.combat_recheck_delay", "2s")
	v.SetDefault("session.races_dir", "")
}
