// Package config handles loading and validating the ovida audio daemon configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the ovida daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Cache      CacheConfig      `mapstructure:"cache"`
	ElevenLabs ElevenLabsConfig `mapstructure:"elevenlabs"`
	Local      LocalConfig      `mapstructure:"local"`
	Realtime   RealtimeConfig   `mapstructure:"realtime"`
	Stories    StoriesConfig    `mapstructure:"stories"`
	Runs       RunsConfig       `mapstructure:"runs"`
	Rooms      RoomsConfig      `mapstructure:"rooms"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport (health and reflection services).
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP/WebSocket transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
	// RateLimitRPM caps synthesis requests per client per minute. Zero disables the limiter.
	RateLimitRPM   int `mapstructure:"rate_limit_rpm"`
	RateLimitBurst int `mapstructure:"rate_limit_burst"`
}

// AudioConfig holds the raw engine-selection flags and the shared synthesis tuning.
//
// The selection flags stay strings here; Flags() normalises them once.
type AudioConfig struct {
	Mode            string `mapstructure:"mode"`             // files, realtime, auto
	FileEngine      string `mapstructure:"file_engine"`      // premium, local
	RealtimeEnabled string `mapstructure:"realtime_enabled"` // "true" (any case) enables
	Environment     string `mapstructure:"environment"`      // development, staging, production, prod

	ChunkChars         int     `mapstructure:"chunk_chars"`
	CallTimeoutSeconds int     `mapstructure:"call_timeout_seconds"`
	MaxRetries         int     `mapstructure:"max_retries"`
	RetryBackoffMillis int     `mapstructure:"retry_backoff_ms"`
	RequestsPerSecond  float64 `mapstructure:"requests_per_second"`
	Burst              int     `mapstructure:"burst"`
}

// CallTimeout returns the per-provider-call timeout.
func (c AudioConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// RetryBackoff returns the delay between provider call attempts.
func (c AudioConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMillis) * time.Millisecond
}

// CacheConfig selects the object store that holds rendered audio.
type CacheConfig struct {
	Backend        string     `mapstructure:"backend"` // memory, s3, nats, none
	Bucket         string     `mapstructure:"bucket"`
	SignTTLSeconds int        `mapstructure:"sign_ttl_seconds"`
	SingleFlight   bool       `mapstructure:"single_flight"`
	PublicBaseURL  string     `mapstructure:"public_base_url"` // base for URLs served by this daemon
	SigningSecret  string     `mapstructure:"signing_secret"`
	MemoryEntries  int        `mapstructure:"memory_entries"`
	S3             S3Config   `mapstructure:"s3"`
	NATS           NATSConfig `mapstructure:"nats"`
}

// SignTTL returns how long signed audio URLs stay valid.
func (c CacheConfig) SignTTL() time.Duration {
	return time.Duration(c.SignTTLSeconds) * time.Second
}

// S3Config holds S3 (or S3-compatible) object store settings.
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"` // optional, for MinIO / Supabase storage
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// NATSConfig holds JetStream object store settings.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// ElevenLabsConfig configures the premium file engine.
type ElevenLabsConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	VoiceID   string `mapstructure:"voice_id"`
	Model     string `mapstructure:"model"`
	Streaming string `mapstructure:"streaming"` // "off" disables synthesis
}

// LocalConfig configures the local/offline file engine.
type LocalConfig struct {
	Backend  string      `mapstructure:"backend"` // coqui, piper
	UseCache bool        `mapstructure:"use_cache"`
	Coqui    CoquiConfig `mapstructure:"coqui"`
	Piper    PiperConfig `mapstructure:"piper"`
}

// CoquiConfig holds Coqui TTS server settings.
type CoquiConfig struct {
	URL      string  `mapstructure:"url"`
	Speaker  string  `mapstructure:"speaker"`
	Language string  `mapstructure:"language"`
	StyleWav string  `mapstructure:"style_wav"`
	Speed    float64 `mapstructure:"speed"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For per-language instances set Endpoints, which maps ISO-639-1 codes to
// Wyoming TCP endpoints. Endpoint is the fallback.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`
	Endpoints map[string]string `mapstructure:"endpoints"`
	Voices    map[string]string `mapstructure:"voices"`
	Language  string            `mapstructure:"language"`
}

// RealtimeConfig configures the realtime stream engine.
type RealtimeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Voice   string `mapstructure:"voice"`
}

// StoriesConfig points at the story catalog.
type StoriesConfig struct {
	CatalogPath string `mapstructure:"catalog_path"`
}

// RunsConfig configures the run store.
type RunsConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	// ReplaySecret keys the replay document signature.
	ReplaySecret string `mapstructure:"replay_secret"`
}

// RoomsConfig configures the room relay.
type RoomsConfig struct {
	RedisURL string `mapstructure:"redis_url"` // empty keeps fan-out in process
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// envAliases binds configuration keys to the plain deployment variable names
// used alongside the OVIDA_ prefixed ones. The first name that is set wins.
var envAliases = map[string][]string{
	"audio.mode":             {"OVIDA_AUDIO_MODE", "AUDIO_MODE"},
	"audio.file_engine":      {"OVIDA_AUDIO_FILE_ENGINE", "AUDIO_FILE_ENGINE", "FILE_AUDIO_ENGINE"},
	"audio.realtime_enabled": {"OVIDA_AUDIO_REALTIME_ENABLED", "REALTIME_ENABLED"},
	"audio.environment":      {"OVIDA_AUDIO_ENVIRONMENT", "APP_ENV", "NODE_ENV"},
	"elevenlabs.api_key":     {"OVIDA_ELEVENLABS_API_KEY", "ELEVENLABS_API_KEY"},
	"elevenlabs.voice_id":    {"OVIDA_ELEVENLABS_VOICE_ID", "ELEVENLABS_VOICE_ID"},
	"elevenlabs.model":       {"OVIDA_ELEVENLABS_MODEL", "ELEVENLABS_MODEL"},
	"elevenlabs.streaming":   {"OVIDA_ELEVENLABS_STREAMING", "ELEVENLABS_STREAMING"},
	"elevenlabs.base_url":    {"OVIDA_ELEVENLABS_BASE_URL", "ELEVENLABS_BASE_URL"},
	"local.coqui.url":        {"OVIDA_LOCAL_COQUI_URL", "COQUI_TTS_URL"},
	"local.coqui.speaker":    {"OVIDA_LOCAL_COQUI_SPEAKER", "COQUI_TTS_SPEAKER", "COQUI_TTS_VOICE"},
	"local.coqui.language":   {"OVIDA_LOCAL_COQUI_LANGUAGE", "COQUI_TTS_LANGUAGE"},
	"local.coqui.style_wav":  {"OVIDA_LOCAL_COQUI_STYLE_WAV", "COQUI_TTS_STYLE_WAV"},
	"local.coqui.speed":      {"OVIDA_LOCAL_COQUI_SPEED", "COQUI_TTS_SPEED"},
	"realtime.api_key":       {"OVIDA_REALTIME_API_KEY", "OPENAI_API_KEY"},
	"realtime.base_url":      {"OVIDA_REALTIME_BASE_URL", "OPENAI_REALTIME_BASE_URL"},
	"realtime.model":         {"OVIDA_REALTIME_MODEL", "OPENAI_REALTIME_MODEL"},
	"realtime.voice":         {"OVIDA_REALTIME_VOICE", "OPENAI_REALTIME_VOICE"},
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./ovida.yaml, ./configs/ovida.yaml, /etc/ovida/ovida.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ovida")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/ovida")
	}

	// Environment variables: OVIDA_SERVER_HEALTH_PORT, OVIDA_CACHE_BACKEND, etc.
	v.SetEnvPrefix("OVIDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	// An unquoted YAML bool would otherwise decode as "1" or "0".
	if b, ok := v.Get("audio.realtime_enabled").(bool); ok {
		cfg.Audio.RealtimeEnabled = strconv.FormatBool(b)
	}

	// Resolve env var references in sensitive fields (e.g., "${ELEVENLABS_API_KEY}")
	cfg.ElevenLabs.APIKey = resolveEnvRef(cfg.ElevenLabs.APIKey)
	cfg.Realtime.APIKey = resolveEnvRef(cfg.Realtime.APIKey)
	cfg.Cache.SigningSecret = resolveEnvRef(cfg.Cache.SigningSecret)
	cfg.Cache.S3.AccessKeyID = resolveEnvRef(cfg.Cache.S3.AccessKeyID)
	cfg.Cache.S3.SecretAccessKey = resolveEnvRef(cfg.Cache.S3.SecretAccessKey)
	cfg.Runs.ReplaySecret = resolveEnvRef(cfg.Runs.ReplaySecret)
	cfg.Rooms.RedisURL = resolveEnvRef(cfg.Rooms.RedisURL)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 4000)
	v.SetDefault("transports.http.rate_limit_rpm", 120)
	v.SetDefault("transports.http.rate_limit_burst", 10)

	v.SetDefault("audio.mode", "auto")
	v.SetDefault("audio.file_engine", "premium")
	v.SetDefault("audio.realtime_enabled", "false")
	v.SetDefault("audio.environment", "development")
	v.SetDefault("audio.chunk_chars", 600)
	v.SetDefault("audio.call_timeout_seconds", 30)
	v.SetDefault("audio.max_retries", 2)
	v.SetDefault("audio.retry_backoff_ms", 500)
	v.SetDefault("audio.requests_per_second", 4.0)
	v.SetDefault("audio.burst", 2)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.bucket", "audio-cache")
	v.SetDefault("cache.sign_ttl_seconds", 3600)
	v.SetDefault("cache.single_flight", true)
	v.SetDefault("cache.public_base_url", "http://localhost:4000")
	v.SetDefault("cache.signing_secret", "")
	v.SetDefault("cache.memory_entries", 2048)
	v.SetDefault("cache.s3.region", "us-east-1")
	v.SetDefault("cache.s3.endpoint", "")
	v.SetDefault("cache.s3.access_key_id", "")
	v.SetDefault("cache.s3.secret_access_key", "")
	v.SetDefault("cache.s3.use_path_style", false)
	v.SetDefault("cache.nats.url", "nats://127.0.0.1:4222")

	v.SetDefault("elevenlabs.api_key", "")
	v.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("elevenlabs.voice_id", "")
	v.SetDefault("elevenlabs.model", "eleven_turbo_v2")
	v.SetDefault("elevenlabs.streaming", "on")

	v.SetDefault("local.backend", "coqui")
	v.SetDefault("local.use_cache", true)
	v.SetDefault("local.coqui.url", "http://127.0.0.1:5002/api/tts")
	v.SetDefault("local.coqui.speaker", "")
	v.SetDefault("local.coqui.language", "")
	v.SetDefault("local.coqui.style_wav", "")
	v.SetDefault("local.coqui.speed", 0.0)
	v.SetDefault("local.piper.endpoint", "localhost:10200")
	v.SetDefault("local.piper.language", "en")

	v.SetDefault("realtime.api_key", "")
	v.SetDefault("realtime.base_url", "https://api.openai.com")
	v.SetDefault("realtime.model", "gpt-4o-realtime-preview-2024-12-17")
	v.SetDefault("realtime.voice", "")

	v.SetDefault("stories.catalog_path", "")
	v.SetDefault("runs.database_path", "ovida.db")
	v.SetDefault("runs.replay_secret", "")
	v.SetDefault("rooms.redis_url", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
