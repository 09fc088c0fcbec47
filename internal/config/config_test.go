package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Telnet: TelnetConfig{
			Host:         "0.0.0.0",
			Port:         4000,
			ReadTimeout:  10 * time.Minute,
			WriteTimeout: 30 * time.Second,
			MaxSessions:  64,
		},
		Web: WebConfig{
			Enabled:      true,
			Host:         "0.0.0.0",
			Port:         4080,
			ReadTimeout:  10 * time.Minute,
			WriteTimeout: 30 * time.Second,
			MaxSessions:  64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		GameServer: GameServerConfig{
			BaseURL:        "http://localhost:5000/api",
			RequestTimeout: 10 * time.Second,
		},
		Reveal: RevealConfig{
			BaseDelay: 10 * time.Millisecond,
			MaxJitter: 10 * time.Millisecond,
		},
		Session: SessionConfig{
			DefaultName:        "Adventurer",
			CombatRecheckDelay: 2 * time.Second,
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, validConfig(), cfg)
}

func TestTelnetAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "0.0.0.0:4000", cfg.Telnet.Addr())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
telnet:
  host: 127.0.0.1
  port: 4001
  read_timeout: 1m
  write_timeout: 10s
  max_sessions: 8
web:
  enabled: false
  port: 8081
  allowed_origins:
    - https://play.example.com
logging:
  level: debug
  format: console
gameserver:
  base_url: http://game.internal:5000/api
  request_timeout: 3s
reveal:
  base_delay: 5ms
  max_jitter: 0s
session:
  default_name: Wanderer
  combat_recheck_delay: 500ms
  races_dir: content/races
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4001, cfg.Telnet.Port)
	assert.Equal(t, 8, cfg.Telnet.MaxSessions)
	assert.False(t, cfg.Web.Enabled)
	assert.Equal(t, 8081, cfg.Web.Port)
	assert.Equal(t, []string{"https://play.example.com"}, cfg.Web.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "http://game.internal:5000/api", cfg.GameServer.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.GameServer.RequestTimeout)
	assert.Equal(t, 5*time.Millisecond, cfg.Reveal.BaseDelay)
	assert.Equal(t, time.Duration(0), cfg.Reveal.MaxJitter)
	assert.Equal(t, "Wanderer", cfg.Session.DefaultName)
	assert.Equal(t, 500*time.Millisecond, cfg.Session.CombatRecheckDelay)
	assert.Equal(t, "content/races", cfg.Session.RacesDir)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/api", cfg.GameServer.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Session.CombatRecheckDelay)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MORDOR_GAMESERVER_BASE_URL", "https://mordor.example.com/api")
	t.Setenv("MORDOR_SESSION_DEFAULT_NAME", "Stranger")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://mordor.example.com/api", cfg.GameServer.BaseURL)
	assert.Equal(t, "Stranger", cfg.Session.DefaultName)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := validConfig()
		cfg.Logging.Format = format
		assert.NoError(t, cfg.Validate(), "format %q should be valid", format)
	}
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateTelnetPort(t *testing.T) {
	cfg := validConfig()
	cfg.Telnet.Port = 0
	assert.NoError(t, cfg.Validate(), "port 0 picks a free port")

	cfg = validConfig()
	cfg.Telnet.Port = 65536
	assert.Error(t, cfg.Validate())
}

func TestValidateTelnetMaxSessions(t *testing.T) {
	cfg := validConfig()
	cfg.Telnet.MaxSessions = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateWeb(t *testing.T) {
	cfg := validConfig()
	cfg.Web.Port = -1
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Web.MaxSessions = -2
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Web.AllowedOrigins = []string{"play.example.com"}
	assert.Error(t, cfg.Validate(), "origin without scheme")

	cfg = validConfig()
	cfg.Web.AllowedOrigins = []string{"http://localhost:3000"}
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:4080", cfg.Web.Addr())
}

func TestValidateGameServerBaseURL(t *testing.T) {
	for _, bad := range []string{"", "localhost:5000/api", "ftp://host/api", "http:///api", "http://[::1"} {
		cfg := validConfig()
		cfg.GameServer.BaseURL = bad
		assert.Error(t, cfg.Validate(), "base_url %q should be rejected", bad)
	}
}

func TestValidateGameServerTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.GameServer.RequestTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateReveal(t *testing.T) {
	cfg := validConfig()
	cfg.Reveal.BaseDelay = -time.Millisecond
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Reveal.MaxJitter = -time.Millisecond
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Reveal = RevealConfig{}
	assert.NoError(t, cfg.Validate(), "zero delays disable the animation")
}

func TestValidateSession(t *testing.T) {
	cfg := validConfig()
	cfg.Session.DefaultName = "   "
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Session.CombatRecheckDelay = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateReportsAllViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "loud"
	cfg.Session.DefaultName = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
	assert.Contains(t, err.Error(), "session.default_name")
}

// Property-based tests

func TestPropertyValidPortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.IntRange(0, 65535).Draw(t, "port")
		cfg := validConfig()
		cfg.Telnet.Port = port
		if err := cfg.Validate(); err != nil {
			t.Fatalf("valid port %d rejected: %v", port, err)
		}
	})
}

func TestPropertyInvalidPortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.OneOf(
			rapid.IntRange(-1000, -1),
			rapid.IntRange(65536, 100000),
		).Draw(t, "port")
		cfg := validConfig()
		cfg.Telnet.Port = port
		if err := cfg.Validate(); err == nil {
			t.Fatalf("invalid port %d accepted", port)
		}
	})
}

func TestPropertyHTTPBaseURLAccepted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		scheme := rapid.SampledFrom([]string{"http", "https"}).Draw(t, "scheme")
		host := rapid.StringMatching(`[a-z]{3,10}`).Draw(t, "host")
		port := rapid.IntRange(1, 65535).Draw(t, "port")
		cfg := validConfig()
		cfg.GameServer.BaseURL = scheme + "://" + host + ":" + strconv.Itoa(port) + "/api"
		if err := cfg.Validate(); err != nil {
			t.Fatalf("base_url %q rejected: %v", cfg.GameServer.BaseURL, err)
		}
	})
}
