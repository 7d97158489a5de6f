package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the gateway process.
// All values come from env (or an env-file loaded in main).
// No business logic should depend on raw environment variables.
type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	StreamToken StreamTokenConfig
	Twilio      TwilioConfig
	Voice       VoiceConfig
	CRM         CRMConfig
	Relay       RelayConfig
}

type AppConfig struct {
	Env  string
	Port int

	// PublicBaseURL is the externally reachable base of this gateway,
	// used to build the wss:// stream URL handed to Twilio.
	PublicBaseURL string
}

// DBConfig is optional: with no DB_HOST, call records stay in memory.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig is optional: with no REDIS_HOST, the session context store
// is process-local and no concurrency caps are enforced.
type RedisConfig struct {
	Host string
	Port int
}

type StreamTokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
}

// VoiceConfig points at the realtime speech provider.
type VoiceConfig struct {
	WebSocketURL string
	APIKey       string
	VoiceID      string
}

// CRMConfig points at the system of record for listings, call logs and leads.
type CRMConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type RelayConfig struct {
	// ContextTTL bounds unclaimed session context entries.
	ContextTTL time.Duration

	// MaxCallsPerCallee caps concurrent calls to one listing number.
	// Zero disables the cap.
	MaxCallsPerCallee int
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/")

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if c.DB.Host != "" {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.StreamToken.Secret = os.Getenv("STREAM_TOKEN_SECRET")
	c.StreamToken.Issuer = strings.TrimSpace(os.Getenv("STREAM_TOKEN_ISSUER"))
	c.StreamToken.TTL = optDuration("STREAM_TOKEN_TTL")

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")

	c.Voice.WebSocketURL = strings.TrimSpace(os.Getenv("VOICE_WS_URL"))
	c.Voice.APIKey = os.Getenv("VOICE_API_KEY")
	c.Voice.VoiceID = strings.TrimSpace(os.Getenv("VOICE_ID"))

	c.CRM.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("CRM_BASE_URL")), "/")
	c.CRM.APIKey = os.Getenv("CRM_API_KEY")
	c.CRM.Timeout = optDuration("CRM_TIMEOUT")

	c.Relay.ContextTTL = optDuration("CALL_CONTEXT_TTL")
	if v := strings.TrimSpace(os.Getenv("MAX_CALLS_PER_CALLEE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("MAX_CALLS_PER_CALLEE must be an integer, got %q", v))
		}
		c.Relay.MaxCallsPerCallee = n
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.PublicBaseURL == "" {
		errs = append(errs, errors.New("PUBLIC_BASE_URL is required (Twilio must reach this host)"))
	}

	if c.DB.Host != "" {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required when DB_HOST is set"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required when DB_HOST is set"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.StreamToken.Secret == "" {
		errs = append(errs, errors.New("STREAM_TOKEN_SECRET is required"))
	}
	if c.StreamToken.TTL <= 0 {
		// Covers webhook-to-socket latency with a wide margin; tokens are
		// only checked at connect time.
		c.StreamToken.TTL = 10 * time.Minute
	}

	if c.IsProduction() && c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required in production (webhook signature validation)"))
	}

	if c.Voice.WebSocketURL == "" {
		errs = append(errs, errors.New("VOICE_WS_URL is required"))
	}
	if c.IsProduction() && c.Voice.APIKey == "" {
		errs = append(errs, errors.New("VOICE_API_KEY is required in production"))
	}

	if c.CRM.BaseURL == "" {
		errs = append(errs, errors.New("CRM_BASE_URL is required"))
	}
	if c.CRM.Timeout <= 0 {
		c.CRM.Timeout = 5 * time.Second
	}

	if c.Relay.ContextTTL <= 0 {
		c.Relay.ContextTTL = 15 * time.Minute
	}
	if c.Relay.MaxCallsPerCallee < 0 {
		errs = append(errs, fmt.Errorf("MAX_CALLS_PER_CALLEE must be >= 0, got %d", c.Relay.MaxCallsPerCallee))
	}
	if c.Relay.MaxCallsPerCallee > 0 && c.Redis.Host == "" {
		errs = append(errs, errors.New("MAX_CALLS_PER_CALLEE requires REDIS_HOST"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// StreamURL builds the wss:// URL Twilio connects its media stream to.
func (c Config) StreamURL(token string) string {
	base := c.App.PublicBaseURL
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/media-stream?token=" + token
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c Config) HasDB() bool    { return c.DB.Host != "" }
func (c Config) HasRedis() bool { return c.Redis.Host != "" }

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
