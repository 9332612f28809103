package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Store    StoreConfig
	Browser  BrowserConfig
	Fetch    FetchConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type StoreConfig struct {
	Path string
}

type BrowserConfig struct {
	Headless   bool
	UserAgent  string
	Timeout    time.Duration
	Settle     time.Duration
	ScrollWait time.Duration
	MaxScrolls int
}

type FetchConfig struct {
	RPS         float64
	PNSMaxPages int
}

type PipelineConfig struct {
	Workers   int
	BatchSize int
}

// Load reads an optional .env file from the working directory, then the
// environment. Variables already set win over the file.
func Load() *Config {
	_ = godotenv.Load()
	return LoadEnv()
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("HTTP_PORT", "8000"),
			CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost", "http://localhost:5173"}),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOGGER_LEVEL", "info"),
			Encoding: getEnv("LOGGER_ENCODING", "console"),
		},
		Store: StoreConfig{
			Path: getEnv("PRODUCTS_DB_PATH", "./products.db"),
		},
		Browser: BrowserConfig{
			Headless:   getEnvBool("BROWSER_HEADLESS", true),
			UserAgent:  getEnv("BROWSER_USER_AGENT", ""),
			Timeout:    getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
			Settle:     getEnvDuration("FETCH_SETTLE", 5*time.Second),
			ScrollWait: getEnvDuration("SCROLL_PAUSE", 3*time.Second),
			MaxScrolls: getEnvInt("SCROLL_MAX_ROUNDS", 50),
		},
		Fetch: FetchConfig{
			RPS:         getEnvFloat("FETCH_RPS", 1),
			PNSMaxPages: getEnvInt("PNS_MAX_PAGES", 10),
		},
		Pipeline: PipelineConfig{
			Workers:   getEnvInt("PIPELINE_WORKERS", 1),
			BatchSize: getEnvInt("PIPELINE_BATCH_SIZE", 1),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
