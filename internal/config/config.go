package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider exposes the configuration values the rest of the application
// depends on. Components receive this interface rather than the concrete
// Config so tests can substitute fixed values.
type Provider interface {
	GetAddr() string
	GetSessionSecret() string

	GetDBURL() string
	GetDBUser() string
	GetDBPass() string
	GetDBNs() string
	GetDBDb() string
	GetDBQueryTimeout() time.Duration

	GetHeartbeatInterval() time.Duration
	GetPingTimeout() time.Duration
	GetMissedPingThreshold() int

	GetScriptDir() string
	GetGameSystem() string

	GetTracingEnabled() bool
	GetZipkinURL() string
}

// Config holds all configuration for the application.
type Config struct {
	Addr          string
	SessionSecret string

	DBUrl          string
	DBNs           string
	DBDb           string
	DBUser         string
	DBPass         string
	DBQueryTimeout time.Duration

	// Heartbeat settings for the GM liveness monitor.
	HeartbeatInterval   time.Duration
	PingTimeout         time.Duration
	MissedPingThreshold int

	ScriptDir  string
	GameSystem string

	TracingEnabled bool
	ZipkinURL      string
}

// New loads configuration from environment variables.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		Addr:          getEnv("APP_ADDR", ":8080"),
		SessionSecret: getEnv("SESSION_SECRET", "insecure-dev-secret"),

		DBUrl:          os.Getenv("SURREAL_URL"),
		DBUser:         os.Getenv("SURREAL_USER"),
		DBPass:         os.Getenv("SURREAL_PASS"),
		DBNs:           getEnv("SURREAL_NS", "questdeck"),
		DBDb:           getEnv("SURREAL_DB", "game"),
		DBQueryTimeout: getDuration("SURREAL_QUERY_TIMEOUT", 5*time.Second),

		HeartbeatInterval:   getDuration("HEARTBEAT_INTERVAL", 5*time.Second),
		PingTimeout:         getDuration("HEARTBEAT_PING_TIMEOUT", 3*time.Second),
		MissedPingThreshold: getInt("HEARTBEAT_MISSED_THRESHOLD", 3),

		ScriptDir:  getEnv("SCRIPT_DIR", "scripts"),
		GameSystem: getEnv("GAME_SYSTEM", "srd5"),

		TracingEnabled: getBool("TRACING_ENABLED", false),
		ZipkinURL:      getEnv("ZIPKIN_URL", "http://localhost:9411/api/v2/spans"),
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Invalid duration for %s: %q, using default %s", key, raw, fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid integer for %s: %q, using default %d", key, raw, fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}

// Getter implementations for the Provider interface.

func (c *Config) GetAddr() string                     { return c.Addr }
func (c *Config) GetSessionSecret() string            { return c.SessionSecret }
func (c *Config) GetDBURL() string                    { return c.DBUrl }
func (c *Config) GetDBUser() string                   { return c.DBUser }
func (c *Config) GetDBPass() string                   { return c.DBPass }
func (c *Config) GetDBNs() string                     { return c.DBNs }
func (c *Config) GetDBDb() string                     { return c.DBDb }
func (c *Config) GetDBQueryTimeout() time.Duration    { return c.DBQueryTimeout }
func (c *Config) GetHeartbeatInterval() time.Duration { return c.HeartbeatInterval }
func (c *Config) GetPingTimeout() time.Duration       { return c.PingTimeout }
func (c *Config) GetMissedPingThreshold() int         { return c.MissedPingThreshold }
func (c *Config) GetScriptDir() string                { return c.ScriptDir }
func (c *Config) GetGameSystem() string               { return c.GameSystem }
func (c *Config) GetTracingEnabled() bool             { return c.TracingEnabled }
func (c *Config) GetZipkinURL() string                { return c.ZipkinURL }
