// Package config loads recording engine configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	API       APIConfig
	Poll      PollConfig
	Recording RecordingConfig
	Watermark WatermarkConfig
	Upload    UploadConfig
	Ledger    LedgerConfig
	AWS       AWSConfig
	Status    StatusConfig
}

// APIConfig holds the XCam listing API settings.
type APIConfig struct {
	BaseURL    string
	TimeoutSec int
}

// Timeout returns the HTTP client timeout for API calls.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// PollConfig holds poll loop settings.
type PollConfig struct {
	Pages       int
	Limit       int
	Country     string // two-letter code, empty = no filter
	IntervalSec int
	Workers     int
}

// Interval returns the sleep duration between poll cycles.
func (c PollConfig) Interval() time.Duration {
	if c.IntervalSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.IntervalSec) * time.Second
}

// RecordingConfig holds capture settings.
type RecordingConfig struct {
	MinDurationSec int
	MaxDurationSec int
	TempDir        string // base for per-task temp dirs; empty = os.TempDir()
	KeepDir        string // recordings with indeterminate duration are moved here
	FFmpegPath     string
	FFprobePath    string
}

// WatermarkConfig holds optional watermark overlay settings.
type WatermarkConfig struct {
	ImagePath string // empty disables watermarking
	MaxWidth  int
	Margin    int
}

// UploadConfig selects and configures the blob store backend.
type UploadConfig struct {
	Backend    string // "hydrax" (default) or "s3"
	HydraxURL  string
	TimeoutSec int
}

// Timeout returns the upload HTTP client timeout.
func (c UploadConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// LedgerConfig holds rec.json database settings.
type LedgerConfig struct {
	DBPath       string // directory containing per-user subdirectories
	TemplatePath string // optional rec.json template; empty = built-in default
}

// AWSConfig holds AWS credentials and the recordings bucket (s3 backend only).
type AWSConfig struct {
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	RecordingsBucket string
}

// StatusConfig holds the status/metrics HTTP server settings.
type StatusConfig struct {
	Enabled bool
	Port    string
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	cfg := &Config{
		API: APIConfig{
			BaseURL:    getEnv("XCAM_API_BASE_URL", "https://api.xcam.gay"),
			TimeoutSec: getEnvInt("XCAM_API_TIMEOUT_SEC", 15),
		},
		Poll: PollConfig{
			Pages:       getEnvInt("POLL_PAGES", 2),
			Limit:       getEnvInt("POLL_LIMIT", 50),
			Country:     getEnv("POLL_COUNTRY", ""),
			IntervalSec: getEnvInt("POLL_INTERVAL_SEC", 60),
			Workers:     getEnvInt("POLL_WORKERS", 5),
		},
		Recording: RecordingConfig{
			MinDurationSec: getEnvInt("RECORD_MIN_DURATION_SEC", 30),
			MaxDurationSec: getEnvInt("RECORD_MAX_DURATION_SEC", 120),
			TempDir:        getEnv("RECORD_TEMP_DIR", ""),
			KeepDir:        getEnv("RECORD_KEEP_DIR", "keep"),
			FFmpegPath:     getEnv("FFMPEG_PATH", "ffmpeg"),
			FFprobePath:    getEnv("FFPROBE_PATH", "ffprobe"),
		},
		Watermark: WatermarkConfig{
			ImagePath: getEnv("WATERMARK_IMAGE", ""),
			MaxWidth:  getEnvInt("WATERMARK_MAX_WIDTH", 180),
			Margin:    getEnvInt("WATERMARK_MARGIN", 20),
		},
		Upload: UploadConfig{
			Backend:    strings.ToLower(getEnv("UPLOAD_BACKEND", "hydrax")),
			HydraxURL:  getEnv("HYDRAX_UPLOAD_URL", ""),
			TimeoutSec: getEnvInt("UPLOAD_TIMEOUT_SEC", 600),
		},
		Ledger: LedgerConfig{
			DBPath:       getEnv("LEDGER_DB_PATH", "xcam-db/user"),
			TemplatePath: getEnv("LEDGER_TEMPLATE_PATH", ""),
		},
		AWS: AWSConfig{
			Region:           getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
			RecordingsBucket: getEnv("AWS_S3_RECORDINGS_BUCKET", "xcam-recordings-bucket"),
		},
		Status: StatusConfig{
			Enabled: getEnvBool("STATUS_ENABLED", true),
			Port:    getEnv("STATUS_PORT", "8080"),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
