package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed capture.yaml
var captureYAML []byte

type Config struct {
	Server      ServerConfig
	Matcher     MatcherConfig
	Kiosk       KioskConfig
	Quality     QualityConfig
	Database    DatabaseConfig
	Directory   DirectoryConfig
	CaptureFlow CaptureFlowConfig
}

type ServerConfig struct {
	URL string // base URL of the attendance API, used by kiosk terminals (e.g., http://attendance.local:8080)
}

type MatcherConfig struct {
	URL           string  // face matching service base URL (e.g., http://localhost:8000)
	MinConfidence float64 // matches below this confidence are treated as no-match (default 0.75)
}

type KioskConfig struct {
	DeviceID           string        // identifier reported with every recognition attempt
	RecognitionTimeout time.Duration // hard deadline for one recognition round-trip (default 3.5s)
	Cooldown           time.Duration // minimum gap after an attempt completes (default 1.5s)
	ScanInterval       time.Duration // automatic scan tick (default 2.5s)
	CaptureCommand     string        // external capture command, tried first (e.g., "fswebcam --no-banner -")
	SnapshotURL        string        // IP camera snapshot URL, tried second
	SpoolDir           string        // directory watched for dropped frames, tried last
}

type QualityConfig struct {
	MinFrameBytes int // payloads below this are penalized as near-blank (default 4096)
	MaxFrameBytes int // payloads above this are penalized but still usable (default 8 MiB)
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL for the attendance ledger
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type DirectoryConfig struct {
	DatabaseURL string // MariaDB DSN of the HR employee directory (read-only)
}

// CaptureFlowConfig describes the guided capture flow shown on kiosk screens.
type CaptureFlowConfig struct {
	SettleSeconds float64       `yaml:"settle_seconds"`
	Steps         []CaptureStep `yaml:"steps"`
}

// CaptureStep is one pose prompt in the multi-step capture flow.
type CaptureStep struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
}

// SettleDelay returns the pause between capture steps as a duration.
func (c *CaptureFlowConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleSeconds * float64(time.Second))
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads an environment variable and parses it as a duration.
// Returns the default value if the env var is unset, empty, or invalid.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var flow CaptureFlowConfig
	if err := yaml.Unmarshal(captureYAML, &flow); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded capture.yaml: " + err.Error())
	}

	return &Config{
		Server: ServerConfig{
			URL: os.Getenv("ATTENDANCE_URL"),
		},
		Matcher: MatcherConfig{
			URL:           os.Getenv("MATCHER_URL"),
			MinConfidence: envFloat("MATCHER_MIN_CONFIDENCE", 0.75),
		},
		Kiosk: KioskConfig{
			DeviceID:           os.Getenv("KIOSK_DEVICE_ID"),
			RecognitionTimeout: envDuration("KIOSK_RECOGNITION_TIMEOUT", 3500*time.Millisecond),
			Cooldown:           envDuration("KIOSK_COOLDOWN", 1500*time.Millisecond),
			ScanInterval:       envDuration("KIOSK_SCAN_INTERVAL", 2500*time.Millisecond),
			CaptureCommand:     os.Getenv("KIOSK_CAPTURE_COMMAND"),
			SnapshotURL:        os.Getenv("KIOSK_SNAPSHOT_URL"),
			SpoolDir:           os.Getenv("KIOSK_SPOOL_DIR"),
		},
		Quality: QualityConfig{
			MinFrameBytes: envInt("QUALITY_MIN_FRAME_BYTES", 4096),
			MaxFrameBytes: envInt("QUALITY_MAX_FRAME_BYTES", 8<<20),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Directory: DirectoryConfig{
			DatabaseURL: os.Getenv("HR_DATABASE_URL"),
		},
		CaptureFlow: flow,
	}
}
