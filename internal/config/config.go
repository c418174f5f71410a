package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	InputDir  string
	OutputDir string
	PDFDir    string

	ProgressStep int
	MaxFiles     int

	GeocodeBaseURL      string
	GeocodeUserAgent    string
	GeocodeRPS          float64
	GeocodeRetries      int
	GeocodeRetryDelayMs int
	GeocodeTimeoutMs    int

	ActsBaseURL         string
	ActsRPS             float64
	ActsTimeoutMs       int
	ActsFollowViewLinks bool

	PDFValidCutoff int

	LogLevel    string
	MetricsPath string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "restituiri.db")),
		InputDir:  getEnv("INPUT_DIR", filepath.Join(cwd, "responses")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		PDFDir:    getEnv("PDF_DIR", filepath.Join(cwd, "pdfs")),

		ProgressStep: getEnvInt("PROGRESS_STEP", 2000),
		MaxFiles:     getEnvInt("MAX_FILES", 43287),

		GeocodeBaseURL:      getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocodeUserAgent:    getEnv("GEOCODE_USER_AGENT", "restituiri-geocoder/1.0"),
		GeocodeRPS:          getEnvFloat("GEOCODE_RPS", 1),
		GeocodeRetries:      getEnvInt("GEOCODE_RETRIES", 5),
		GeocodeRetryDelayMs: getEnvInt("GEOCODE_RETRY_DELAY_MS", 5000),
		GeocodeTimeoutMs:    getEnvInt("GEOCODE_TIMEOUT_MS", 30000),

		ActsBaseURL:         getEnv("ACTS_BASE_URL", "https://acteinterne.pmb.ro/legis"),
		ActsRPS:             getEnvFloat("ACTS_RPS", 1),
		ActsTimeoutMs:       getEnvInt("ACTS_TIMEOUT_MS", 60000),
		ActsFollowViewLinks: getEnvBool("ACTS_FOLLOW_VIEW_LINKS", true),

		PDFValidCutoff: getEnvInt("PDF_VALID_CUTOFF", 17033),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MetricsPath: getEnv("METRICS_PATH", ""),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
