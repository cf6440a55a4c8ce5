package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultDatabaseURL     = "vabboost.db"
	defaultJWTSecret       = "change-me-jwt-secret"
	defaultJWTTTL          = "12h"
	defaultWebhookSecret   = "change-me-webhook-secret"
	defaultSignatureHeader = "X-Webhook-Signature"
	defaultOrderPrefix     = "VAB"
	defaultCurrency        = "RUB"
	defaultYooKassaAPIURL  = "https://api.yookassa.ru/v3"
	defaultYooKassaTimeout = "5s"
	defaultRateWindow      = "1m"
	defaultRegions         = "RU=1.0,EU=1.2,NA=1.3,ASIA=1.4,OTHER=1.5"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	DatabaseURL string

	LogLevel  string
	LogDir    string
	LogPretty bool

	JWTSecret string
	JWTTTL    time.Duration

	CORSAllowedOrigins []string
	TrustedProxies     []string

	OrderNumberPrefix string
	OrderMaxAmount    float64
	Currency          string
	RegionMultipliers map[string]int64

	YooKassa YooKassaConfig

	WebhookSecret          string
	WebhookSignatureHeader string
	WebhookAllowedIPs      []string

	RedisAddr       string
	RedisDB         int
	OrderRateLimit  int
	OrderRateWindow time.Duration
}

type YooKassaConfig struct {
	ShopID      string
	SecretKey   string
	APIURL      string
	ReturnURL   string
	Timeout     time.Duration
	MaxAttempts int
}

// Load reads configuration from the environment, applies defaults and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:                 strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", "dev"))),
		HTTPAddr:               getEnv("HTTP_ADDR", defaultHTTPAddr),
		DatabaseURL:            getEnv("DATABASE_URL", defaultDatabaseURL),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogDir:                 strings.TrimSpace(os.Getenv("LOG_DIR")),
		LogPretty:              parseBoolEnv("LOG_PRETTY", "false"),
		JWTSecret:              strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret)),
		CORSAllowedOrigins:     splitCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),
		TrustedProxies:         splitCSV(os.Getenv("TRUSTED_PROXIES")),
		OrderNumberPrefix:      strings.ToUpper(strings.TrimSpace(getEnv("ORDER_NUMBER_PREFIX", defaultOrderPrefix))),
		Currency:               strings.ToUpper(strings.TrimSpace(getEnv("CURRENCY", defaultCurrency))),
		WebhookSecret:          strings.TrimSpace(getEnv("WEBHOOK_SECRET", defaultWebhookSecret)),
		WebhookSignatureHeader: getEnv("WEBHOOK_SIGNATURE_HEADER", defaultSignatureHeader),
		WebhookAllowedIPs:      splitCSV(os.Getenv("WEBHOOK_ALLOWED_IPS")),
		RedisAddr:              strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		YooKassa: YooKassaConfig{
			ShopID:    strings.TrimSpace(os.Getenv("YOOKASSA_SHOP_ID")),
			SecretKey: strings.TrimSpace(os.Getenv("YOOKASSA_SECRET_KEY")),
			APIURL:    strings.TrimRight(getEnv("YOOKASSA_API_URL", defaultYooKassaAPIURL), "/"),
			ReturnURL: strings.TrimSpace(getEnv("YOOKASSA_RETURN_URL", "http://localhost:8080/payment/success")),
		},
	}

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.YooKassa.Timeout, err = parseDurationEnv("YOOKASSA_TIMEOUT", defaultYooKassaTimeout); err != nil {
		return nil, err
	}
	if cfg.OrderRateWindow, err = parseDurationEnv("ORDER_RATE_WINDOW", defaultRateWindow); err != nil {
		return nil, err
	}
	if cfg.YooKassa.MaxAttempts, err = getEnvInt("YOOKASSA_MAX_ATTEMPTS", 2); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.OrderRateLimit, err = getEnvInt("ORDER_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.OrderMaxAmount, err = getEnvFloat("ORDER_MAX_AMOUNT", 100000); err != nil {
		return nil, err
	}
	if cfg.RegionMultipliers, err = ParseRegionMultipliers(getEnv("REGION_MULTIPLIERS", defaultRegions)); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.YooKassa.Timeout <= 0 {
		return fmt.Errorf("YOOKASSA_TIMEOUT must be > 0")
	}
	if cfg.YooKassa.MaxAttempts < 1 || cfg.YooKassa.MaxAttempts > 5 {
		return fmt.Errorf("YOOKASSA_MAX_ATTEMPTS must be between 1 and 5")
	}
	if cfg.OrderMaxAmount <= 0 {
		return fmt.Errorf("ORDER_MAX_AMOUNT must be > 0")
	}
	if cfg.OrderRateLimit <= 0 {
		return fmt.Errorf("ORDER_RATE_LIMIT must be > 0")
	}
	if cfg.OrderRateWindow < time.Second {
		return fmt.Errorf("ORDER_RATE_WINDOW must be at least 1s")
	}
	if len(cfg.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be a 3-letter ISO code")
	}
	if cfg.OrderNumberPrefix == "" {
		return fmt.Errorf("ORDER_NUMBER_PREFIX must not be empty")
	}
	if cfg.WebhookSignatureHeader == "" {
		return fmt.Errorf("WEBHOOK_SIGNATURE_HEADER must not be empty")
	}
	if cfg.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET must not be empty")
	}

	if IsProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.WebhookSecret, defaultWebhookSecret) {
			return fmt.Errorf("in prod/release WEBHOOK_SECRET must be set and not default")
		}
		if cfg.YooKassa.ShopID == "" || cfg.YooKassa.SecretKey == "" {
			return fmt.Errorf("in prod/release YOOKASSA_SHOP_ID and YOOKASSA_SECRET_KEY must be set")
		}
	}
	return nil
}

// ParseRegionMultipliers parses "RU=1.0,EU=1.2" into basis points keyed by
// upper-case region. Multipliers are exact decimals with at most four places.
func ParseRegionMultipliers(raw string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, pair := range splitCSV(raw) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid REGION_MULTIPLIERS entry %q", pair)
		}
		k = strings.ToUpper(strings.TrimSpace(k))
		m, ok := new(big.Rat).SetString(strings.TrimSpace(v))
		if !ok || m.Sign() <= 0 || k == "" {
			return nil, fmt.Errorf("invalid REGION_MULTIPLIERS entry %q", pair)
		}
		bp := m.Mul(m, big.NewRat(10000, 1))
		if !bp.IsInt() || !bp.Num().IsInt64() {
			return nil, fmt.Errorf("REGION_MULTIPLIERS entry %q has more than four decimal places", pair)
		}
		out[k] = bp.Num().Int64()
	}
	return out, nil
}

func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnvInt(name string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func getEnvFloat(name string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return f, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
