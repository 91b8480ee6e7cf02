package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the receptionist process.
// Values come from env, optionally seeded from a .env file.
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Twilio    TwilioConfig
	Dialog    DialogConfig
	Session   SessionConfig
	Responder ResponderConfig
}

type AppConfig struct {
	Env  string
	Port int
	// PublicBaseURL is the externally reachable origin Twilio calls, used
	// for Gather action URLs and signature validation.
	PublicBaseURL string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

type TwilioConfig struct {
	AuthToken         string
	ValidateSignature bool
}

type DialogConfig struct {
	MaxSteps       int
	AIHistoryTurns int
	StoreTimeout   time.Duration
}

const (
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"

	ResponderNone   = "none"
	ResponderGemini = "gemini"
)

type SessionConfig struct {
	Backend string
	TTL     time.Duration
}

type ResponderConfig struct {
	Provider             string
	GeminiAPIKey         string
	Model                string
	Timeout              time.Duration
	MaxInflightPerTenant int
}

// Load reads an optional env file (ENV_FILE, default .env) and then the
// process environment. Variables already set win over the file.
func Load() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromEnv()
}

// FromEnv builds and validates a Config from the process environment only.
func FromEnv() (Config, error) {
	c := Config{}
	env := &envReader{}

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Port = env.requiredInt("APP_PORT")
	c.App.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/")

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port = env.requiredInt("DB_PORT")
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port = env.optInt("REDIS_PORT")
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.DB = env.optInt("REDIS_DB")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = env.optDuration("JWT_ACCESS_TTL")

	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.ValidateSignature = env.optBool("TWILIO_VALIDATE_SIGNATURE")

	c.Dialog.MaxSteps = env.optInt("DIALOG_MAX_STEPS")
	c.Dialog.AIHistoryTurns = env.optInt("DIALOG_AI_HISTORY_TURNS")
	c.Dialog.StoreTimeout = env.optDuration("DIALOG_STORE_TIMEOUT")

	c.Session.Backend = strings.ToLower(strings.TrimSpace(os.Getenv("SESSION_BACKEND")))
	c.Session.TTL = env.optDuration("SESSION_TTL")

	c.Responder.Provider = strings.ToLower(strings.TrimSpace(os.Getenv("RESPONDER_PROVIDER")))
	c.Responder.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	c.Responder.Model = strings.TrimSpace(os.Getenv("RESPONDER_MODEL"))
	c.Responder.Timeout = env.optDuration("RESPONDER_TIMEOUT")
	c.Responder.MaxInflightPerTenant = env.optInt("RESPONDER_MAX_INFLIGHT_PER_TENANT")

	if err := joinErrors(env.errs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate applies defaults in place and reports every invalid value.
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

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Session.Backend == "" {
		c.Session.Backend = SessionBackendRedis
	}
	switch c.Session.Backend {
	case SessionBackendRedis, SessionBackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be redis or postgres, got %q", c.Session.Backend))
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 2 * time.Hour
	}

	if c.Responder.Provider == "" {
		c.Responder.Provider = ResponderNone
	}
	switch c.Responder.Provider {
	case ResponderNone:
	case ResponderGemini:
		if c.Responder.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when RESPONDER_PROVIDER=gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("RESPONDER_PROVIDER must be none or gemini, got %q", c.Responder.Provider))
	}
	if c.Responder.Timeout <= 0 {
		c.Responder.Timeout = 4 * time.Second
	}
	if c.Responder.MaxInflightPerTenant <= 0 {
		c.Responder.MaxInflightPerTenant = 10
	}

	// Redis backs the session store and the responder concurrency cap.
	if c.NeedsRedis() {
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required"))
		}
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
		if c.Redis.Port < 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}

	if c.Twilio.ValidateSignature {
		if c.Twilio.AuthToken == "" {
			errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required when TWILIO_VALIDATE_SIGNATURE=true"))
		}
		if c.App.PublicBaseURL == "" {
			errs = append(errs, errors.New("PUBLIC_BASE_URL is required when TWILIO_VALIDATE_SIGNATURE=true"))
		}
	}

	if c.Dialog.MaxSteps <= 0 {
		c.Dialog.MaxSteps = 12
	}
	if c.Dialog.AIHistoryTurns <= 0 {
		c.Dialog.AIHistoryTurns = 6
	}
	if c.Dialog.StoreTimeout <= 0 {
		c.Dialog.StoreTimeout = 2 * time.Second
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) NeedsRedis() bool {
	return c.Session.Backend == SessionBackendRedis || c.Responder.Provider == ResponderGemini
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
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

// envReader parses typed variables and collects every parse error so Load
// can report them together.
type envReader struct {
	errs []error
}

func (r *envReader) requiredInt(key string) int {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		r.errs = append(r.errs, fmt.Errorf("%s is required", key))
		return 0
	}
	return r.optInt(key)
}

func (r *envReader) optInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be an integer, got %q", key, v))
		return 0
	}
	return n
}

func (r *envReader) optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be a duration, got %q", key, v))
		return 0
	}
	return d
}

func (r *envReader) optBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
		return false
	}
	return b
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
