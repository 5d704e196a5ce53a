// Package config loads the CLI's configuration from flags, environment
// variables and an optional .env file (spec §6 CLI surface, SPEC_FULL
// A.3).
//
// Grounded on the teacher's (mumuon-tile-service) config.go: the same
// ".env.local overrides .env" precedence loader and getEnv/getEnvInt
// helpers, generalized from tile-service settings (DB/S3/paths) to the
// hierarchy pipeline's settings (input/borders/output paths, thread
// count, verbose flag, optional Postgres/S3 settings for the ambient
// job-bookkeeping and artifact-upload features).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the full set of settings the CLI needs to run one pipeline
// invocation (spec §6 "CLI surface").
type Config struct {
	Input       string // --input PATH, the on-disk region-info file (spec §6)
	Features    string // --features PATH, the JSONL geometry/name feed standing in for the out-of-scope Feature table
	Borders     string // --borders PATH
	OutputJSONL string // --output-jsonl PATH
	OutputCSV   string // --output-csv PATH (optional)
	Threads     int    // --threads N (0 = runtime.NumCPU())
	Verbose     bool   // --verbose
	WholeWorld  bool   // affiliation index's haveBordersForWholeWorld flag

	Database DatabaseConfig // optional, for internal/jobstore
	S3       S3Config       // optional, for internal/artifactstore
}

// DatabaseConfig names the optional Postgres sink for PipelineRun
// bookkeeping (SPEC_FULL C.1). Empty Host means "jobstore disabled".
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// S3Config names the optional object-storage sink for the finished
// JSONL/CSV artifacts (SPEC_FULL B, "artifact upload"). Empty Bucket
// means "artifactstore disabled".
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	Prefix          string
}

// Enabled reports whether enough Postgres settings are present to open
// a jobstore connection.
func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

// Enabled reports whether enough S3 settings are present to upload
// artifacts.
func (s S3Config) Enabled() bool { return s.Bucket != "" }

// Load builds a Config from CLI flag values already parsed by the
// caller (cmd/geohierarchy/main.go owns its single flag set and calls
// flag.Parse),
// overlaying environment variables (and, if present, an .env file) for
// the ambient job-tracking and artifact-upload settings that have no
// CLI flag of their own.
func Load(envPath string, input, features, borders, outputJSONL, outputCSV string, threads int, verbose, wholeWorld bool) (*Config, error) {
	if envPath != "" {
		if err := loadEnvFileWithLocalOverride(envPath); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if input == "" {
		return nil, fmt.Errorf("config: --input is required")
	}
	if features == "" {
		return nil, fmt.Errorf("config: --features is required")
	}
	if borders == "" {
		return nil, fmt.Errorf("config: --borders is required")
	}
	if outputJSONL == "" {
		return nil, fmt.Errorf("config: --output-jsonl is required")
	}

	return &Config{
		Input:       input,
		Features:    features,
		Borders:     borders,
		OutputJSONL: outputJSONL,
		OutputCSV:   outputCSV,
		Threads:     threads,
		Verbose:     verbose,
		WholeWorld:  wholeWorld,
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "geohierarchy"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		S3: S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			Prefix:          getEnv("S3_PREFIX", "geohierarchy"),
		},
	}, nil
}

// loadEnvFileWithLocalOverride mirrors the teacher's "prefer .env.local
// over .env" precedence: if a sibling .env.local exists, it is loaded
// instead of (not in addition to) the path the caller supplied.
func loadEnvFileWithLocalOverride(envPath string) error {
	localEnvPath := strings.TrimSuffix(envPath, ".env") + ".env.local"
	if _, err := os.Stat(localEnvPath); err == nil {
		return loadEnvFile(localEnvPath)
	}
	if _, err := os.Stat(envPath); err == nil {
		return loadEnvFile(envPath)
	}
	return nil
}

// loadEnvFile parses a simple KEY=VALUE file, one assignment per line,
// skipping blanks and #-comments, and applies it via os.Setenv.
func loadEnvFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			os.Setenv(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
