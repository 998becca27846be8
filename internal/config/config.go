package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

// Config collects every tunable of the checkout core. The rate-limit and TTL
// values are representative defaults, not product constants; deployments
// override them per environment.
type Config struct {
	MongoURI      string
	DBName        string
	SessionSecret string

	SessionTTL time.Duration
	CodeTTL    time.Duration

	CodeLength      int
	MaxCodeAttempts int
	PhoneDailyLimit int
	IPHourlyLimit   int
	AddressLimit    int

	SMSRegion   string
	SMSSenderID string
	SMSDryRun   bool

	HTTPRateRPS   float64
	HTTPRateBurst int
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:      getEnvOrDefault("MONGO_URI", ""),
		DBName:        getEnvOrDefault("DB_NAME", "piata"),
		SessionSecret: getEnvOrDefault("SESSION_SECRET", ""),

		SessionTTL: getDurationEnv("SESSION_TTL_MINUTES", 30, time.Minute),
		CodeTTL:    getDurationEnv("CODE_TTL_MINUTES", 5, time.Minute),

		CodeLength:      getIntEnv("CODE_LENGTH", 6),
		MaxCodeAttempts: getIntEnv("MAX_CODE_ATTEMPTS", 5),
		PhoneDailyLimit: getIntEnv("PHONE_DAILY_LIMIT", 3),
		IPHourlyLimit:   getIntEnv("IP_HOURLY_LIMIT", 5),
		AddressLimit:    getIntEnv("ADDRESS_LIMIT", 50),

		SMSRegion:   getEnvOrDefault("SMS_REGION", "eu-central-1"),
		SMSSenderID: getEnvOrDefault("SMS_SENDER_ID", ""),
		SMSDryRun:   getBoolEnv("SMS_DRY_RUN", false),

		HTTPRateRPS:   getFloatEnv("HTTP_RATE_RPS", 5),
		HTTPRateBurst: getIntEnv("HTTP_RATE_BURST", 10),
	}
}

// Validate rejects configurations the server must not start with. An empty
// session secret would make every issued token forgeable.
func (c Config) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET must be set")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
