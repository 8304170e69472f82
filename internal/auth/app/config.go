package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseFile         string        // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile           string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	JWTSecret           string        // Required: HS256 secret, at least 32 bytes
	JWTIssuer           string        // Issuer claim (default: gatekeeper)
	AccessTokenTTL      time.Duration // Access token lifetime (default: 15m)
	RefreshTokenDays    int           // Refresh token lifetime in days (default: 7)
	OTPIssuer           string        // Issuer shown in authenticator apps (default: gatekeeper)
	OTPStep             int           // TOTP step in seconds (default: 30)
	OTPDigits           int           // TOTP digits (default: 6)
	OTPExpiration       time.Duration // One-time login code lifetime (default: 5m)
	EmailVerifyTTL      time.Duration // Email verification code lifetime (default: 15m)
	PasswordResetTTL    time.Duration // Password reset token lifetime (default: 1h)
	PasswordResetURL    string        // Page linked from reset emails; the token is appended as ?token=
	ThrottleTTL         time.Duration // Throttle window (default: 60s)
	ThrottleLimit       int           // Requests per window on every route (default: 10)
	ThrottleStrict      int           // Requests per window on credential routes (default: 5)
	ThrottleIgnoreUA    []string      // User agents never throttled (comma separated)
	TrustedProxies      []string      // Proxy addresses or CIDRs whose X-Forwarded-For is honoured
	RedisAddr           string        // Optional: shared throttle store; in-memory when empty
	RedisPassword       string
	RedisDB             int
	SMTPHost            string // Optional: mail is logged instead of sent when empty
	SMTPPort            int    // (default: 587)
	SMTPUsername        string
	SMTPPassword        string
	SMTPFrom            string
	SMTPRatePerSecond   float64 // (default: 5)
	StorageEndpoint     string  // Optional: file routes are disabled when empty
	StorageAccessKey    string
	StorageSecretKey    string
	StorageBucket       string // (default: gatekeeper)
	StorageUseSSL       bool
	StorageSignedURLTTL time.Duration // Signed download URL lifetime (default: 15m)
	MaxUploadBytes      int64         // (default: 10MiB)

	AdminEmail     string // Optional: seeds an initial admin account
	AdminPassword  string
	AdminFirstName string // (default: System)
	AdminLastName  string // (default: Administrator)
}

// LoadConfig reads the environment, after loading an optional .env file
// (AUTH_ENV_FILE, default .env). Variables already set win over the file.
func LoadConfig() Config {
	envFile := getEnvOrDefault("AUTH_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load %s: %v\n", envFile, err)
	}

	return Config{
		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:           getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTIssuer:        getEnvOrDefault("JWT_ISSUER", "gatekeeper"),
		AccessTokenTTL:   getEnvDurationOrDefault("JWT_ACCESS_EXPIRATION", 15*time.Minute),
		RefreshTokenDays: getEnvIntOrDefault("JWT_REFRESH_EXPIRATION_DAYS", 7),
		OTPIssuer:        getEnvOrDefault("OTP_ISSUER", "gatekeeper"),
		OTPStep:          getEnvIntOrDefault("OTP_STEP", 30),
		OTPDigits:        getEnvIntOrDefault("OTP_DIGITS", 6),
		OTPExpiration:    time.Duration(getEnvIntOrDefault("OTP_EXPIRATION_MINUTES", 5)) * time.Minute,
		EmailVerifyTTL:   getEnvDurationOrDefault("EMAIL_VERIFICATION_EXPIRATION", 15*time.Minute),
		PasswordResetTTL: getEnvDurationOrDefault("PASSWORD_RESET_EXPIRATION", time.Hour),
		PasswordResetURL: os.Getenv("PASSWORD_RESET_URL"),

		ThrottleTTL:      time.Duration(getEnvIntOrDefault("THROTTLE_TTL_SECONDS", 60)) * time.Second,
		ThrottleLimit:    getEnvIntOrDefault("THROTTLE_LIMIT", 10),
		ThrottleStrict:   getEnvIntOrDefault("THROTTLE_STRICT_LIMIT", 5),
		ThrottleIgnoreUA: getEnvListOrDefault("THROTTLE_IGNORE_USER_AGENTS", nil),
		TrustedProxies:   getEnvListOrDefault("TRUSTED_PROXIES", nil),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvIntOrDefault("REDIS_DB", 0),

		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:          os.Getenv("SMTP_FROM"),
		SMTPRatePerSecond: getEnvFloatOrDefault("SMTP_RATE_PER_SECOND", 5),

		StorageEndpoint:     os.Getenv("STORAGE_ENDPOINT"),
		StorageAccessKey:    os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey:    os.Getenv("STORAGE_SECRET_KEY"),
		StorageBucket:       getEnvOrDefault("STORAGE_BUCKET", "gatekeeper"),
		StorageUseSSL:       getEnvBoolOrDefault("STORAGE_USE_SSL", false),
		StorageSignedURLTTL: getEnvDurationOrDefault("STORAGE_SIGNED_URL_TTL", 15*time.Minute),
		MaxUploadBytes:      int64(getEnvIntOrDefault("STORAGE_MAX_UPLOAD_BYTES", 10<<20)),

		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		AdminFirstName: getEnvOrDefault("ADMIN_FIRST_NAME", "System"),
		AdminLastName:  getEnvOrDefault("ADMIN_LAST_NAME", "Administrator"),
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be set to at least 32 bytes"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_EXPIRATION must be positive"))
	}
	if c.RefreshTokenDays <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_EXPIRATION_DAYS must be positive"))
	}
	if c.OTPStep <= 0 || c.OTPDigits <= 0 || c.OTPExpiration <= 0 {
		errs = append(errs, errors.New("OTP_STEP, OTP_DIGITS and OTP_EXPIRATION_MINUTES must be positive"))
	}
	if c.OTPDigits != 6 && c.OTPDigits != 8 {
		errs = append(errs, errors.New("OTP_DIGITS must be 6 or 8"))
	}
	if c.ThrottleTTL <= 0 || c.ThrottleLimit <= 0 || c.ThrottleStrict <= 0 {
		errs = append(errs, errors.New("THROTTLE_TTL_SECONDS, THROTTLE_LIMIT and THROTTLE_STRICT_LIMIT must be positive"))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		errs = append(errs, errors.New("SMTP_FROM is required when SMTP_HOST is set"))
	}
	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	if c.StorageEndpoint != "" && (c.StorageAccessKey == "" || c.StorageSecretKey == "") {
		errs = append(errs, errors.New("STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required when STORAGE_ENDPOINT is set"))
	}
	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
