package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port           string
	LogLevel       string
	JWTSecret      string
	StorageBackend string
	DataDir        string
	DBConn         string
	KeyRateURL     string
	SMTPHost       string
	SMTPPort       string
	SMTPUser       string
	SMTPPassword   string
	SenderEmail    string
}

// NewConfig loads configuration from a .env file (if present) and
// environment variables
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:      getEnv("JWT_SECRET", "secret"),
		StorageBackend: getEnv("STORAGE_BACKEND", "file"),
		DataDir:        getEnv("DATA_DIR", "data"),
		DBConn:         getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=bank sslmode=disable"),
		KeyRateURL:     getEnv("KEY_RATE_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SMTPUser:       getEnv("SMTP_USER", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SenderEmail:    getEnv("SENDER_EMAIL", "noreply@bank-ledger.local"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.StorageBackend {
	case "memory", "file":
	case "postgres":
		if cfg.DBConn == "" {
			return nil, fmt.Errorf("DB_CONN is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND: %s", cfg.StorageBackend)
	}
	if cfg.StorageBackend == "file" && cfg.DataDir == "" {
		return nil, fmt.Errorf("DATA_DIR is required for the file backend")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
