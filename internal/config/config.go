package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

const (
	DefaultDailyAPIURL       = "https://api.daily.co/v1"
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 7860
	DefaultBotCommand        = "./bin/bot"
	DefaultPersona           = "dominos"
	DefaultRealtimeModel     = "gpt-4o-realtime-preview-2024-12-17"
	DefaultGeminiModel       = "gemini-2.5-flash-preview-native-audio-dialog"
	DefaultNotifyMaxAttempts = 3
	DefaultAgentDrainTimeout = 30 * time.Second
	ModelProviderOpenAI      = "openai"
	ModelProviderGemini      = "gemini"
)

// Config holds the provisioning service configuration
type Config struct {
	Server  ServerConfig
	Daily   DailyConfig
	Agent   AgentConfig
	Redis   RedisConfig
	Twilio  TwilioConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port int

	// LegacyErrorStatus maps every provisioning failure to 500, for vendor
	// integrations that were built against that behavior.
	LegacyErrorStatus bool

	// RateLimitRPM caps webhook requests per client IP per minute. 0 disables it.
	RateLimitRPM int
}

// Addr returns the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DailyConfig holds Room Provider credentials and dial-in settings
type DailyConfig struct {
	APIKey        string
	APIURL        string
	SampleRoomURL string
	PinlessSecret string
}

// AgentConfig controls how call agent processes are launched and supervised
type AgentConfig struct {
	Command      []string
	Persona      string
	MaxAgents    int
	DrainTimeout time.Duration
}

// RedisConfig holds the optional call cache connection
type RedisConfig struct {
	URL string
}

// Enabled reports whether a Redis URL was configured
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// TwilioConfig holds Twilio credentials for the Twilio dial-in vendor path
type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	HoldMusicURL string
}

// Enabled reports whether Twilio credentials were configured
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != ""
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	Level string
}

// BotConfig holds the call agent process configuration
type BotConfig struct {
	Daily   DailyConfig
	Twilio  TwilioConfig
	Logging LoggingConfig

	ModelProvider     string
	OpenAIAPIKey      string
	RealtimeModel     string
	GoogleAIAPIKey    string
	GeminiModel       string
	MediaBridgeURL    string
	Persona           string
	PersonaDir        string
	NotifyMaxAttempts int
	CallSummary       bool
}

// Load reads and validates the provisioning service environment
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{}

	var err error
	if cfg.Daily, err = loadDaily(); err != nil {
		return nil, err
	}

	// The agent processes inherit this environment, so the model key is checked
	// here to fail fast instead of on the first call.
	if getEnvWithDefault("BOT_MODEL_PROVIDER", ModelProviderOpenAI) == ModelProviderOpenAI {
		if _, err = requireEnv("OPENAI_API_KEY"); err != nil {
			return nil, err
		}
	}

	cfg.Server.Host = getEnvWithDefault("HOST", DefaultHost)
	if cfg.Server.Port, err = getIntWithDefault("PORT", DefaultPort); err != nil {
		return nil, err
	}
	if cfg.Server.LegacyErrorStatus, err = getBoolWithDefault("DIALIN_LEGACY_ERROR_STATUS", false); err != nil {
		return nil, err
	}

	if cfg.Server.RateLimitRPM, err = getIntWithDefault("DIALIN_RATE_LIMIT_RPM", 0); err != nil {
		return nil, err
	}

	cfg.Agent.Command = strings.Fields(getEnvWithDefault("BOT_COMMAND", DefaultBotCommand))
	cfg.Agent.Persona = getEnvWithDefault("BOT_PERSONA", DefaultPersona)
	if cfg.Agent.MaxAgents, err = getIntWithDefault("MAX_CONCURRENT_AGENTS", 0); err != nil {
		return nil, err
	}
	if cfg.Agent.DrainTimeout, err = getDurationWithDefault("AGENT_DRAIN_TIMEOUT", DefaultAgentDrainTimeout); err != nil {
		return nil, err
	}

	cfg.Redis.URL = os.Getenv("REDIS_URL")
	cfg.Twilio = loadTwilio()
	cfg.Logging.Level = getEnvWithDefault("LOG_LEVEL", "info")

	return cfg, nil
}

// LoadBot reads and validates the call agent process environment
func LoadBot() (*BotConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &BotConfig{}

	var err error
	if cfg.Daily, err = loadDaily(); err != nil {
		return nil, err
	}

	cfg.ModelProvider = getEnvWithDefault("BOT_MODEL_PROVIDER", ModelProviderOpenAI)
	switch cfg.ModelProvider {
	case ModelProviderOpenAI:
		if cfg.OpenAIAPIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
			return nil, err
		}
	case ModelProviderGemini:
		if cfg.GoogleAIAPIKey, err = requireEnv("GOOGLE_AI_API_KEY"); err != nil {
			return nil, err
		}
		cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	default:
		return nil, fmt.Errorf("unsupported BOT_MODEL_PROVIDER %q", cfg.ModelProvider)
	}
	cfg.RealtimeModel = getEnvWithDefault("OPENAI_REALTIME_MODEL", DefaultRealtimeModel)
	cfg.GeminiModel = getEnvWithDefault("GEMINI_LIVE_MODEL", DefaultGeminiModel)

	if cfg.MediaBridgeURL, err = requireEnv("DAILY_MEDIA_BRIDGE_URL"); err != nil {
		return nil, err
	}

	cfg.Persona = getEnvWithDefault("BOT_PERSONA", DefaultPersona)
	cfg.PersonaDir = os.Getenv("BOT_PERSONA_DIR")
	if cfg.NotifyMaxAttempts, err = getIntWithDefault("DIALIN_NOTIFY_MAX_ATTEMPTS", DefaultNotifyMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.NotifyMaxAttempts < 1 {
		return nil, fmt.Errorf("DIALIN_NOTIFY_MAX_ATTEMPTS must be at least 1, got %d", cfg.NotifyMaxAttempts)
	}
	if cfg.CallSummary, err = getBoolWithDefault("BOT_CALL_SUMMARY", false); err != nil {
		return nil, err
	}

	cfg.Twilio = loadTwilio()
	cfg.Logging.Level = getEnvWithDefault("LOG_LEVEL", "debug")

	return cfg, nil
}

// LoadDaily reads only the Room Provider settings, for admin tooling
func LoadDaily() (DailyConfig, error) {
	if err := loadDotEnv(); err != nil {
		return DailyConfig{}, err
	}
	return loadDaily()
}

func loadDaily() (DailyConfig, error) {
	var cfg DailyConfig
	var err error
	if cfg.APIKey, err = requireEnv("DAILY_API_KEY"); err != nil {
		return cfg, err
	}
	cfg.APIURL = strings.TrimRight(getEnvWithDefault("DAILY_API_URL", DefaultDailyAPIURL), "/")
	cfg.SampleRoomURL = os.Getenv("DAILY_SAMPLE_ROOM_URL")
	cfg.PinlessSecret = os.Getenv("DAILY_PINLESS_HMAC_SECRET")
	return cfg, nil
}

func loadTwilio() TwilioConfig {
	return TwilioConfig{
		AccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		HoldMusicURL: os.Getenv("TWILIO_HOLD_MUSIC_URL"),
	}
}

// loadDotEnv loads .env outside production. A missing file is not an error.
func loadDotEnv() error {
	if os.Getenv("GO_ENV") == "production" {
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}

// getEnvWithDefault retrieves an environment variable or returns a default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntWithDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return parsed, nil
}

func getBoolWithDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return parsed, nil
}

func getDurationWithDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return parsed, nil
}
