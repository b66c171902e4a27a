package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageTextFile = "textfile"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"

	ScorePolicyHigh = "high"
	ScorePolicyLow  = "low"
)

// Config holds every setting the tracker reads at start-up.
type Config struct {
	Storage     string        `yaml:"storage"`
	DataDir     string        `yaml:"data_dir"`
	DatabaseURL string        `yaml:"database_url"`
	DBTimeout   time.Duration `yaml:"db_timeout"`
	ScorePolicy string        `yaml:"score_policy"`
	LogLevel    string        `yaml:"log_level"`

	SenderEmail string `yaml:"sender_email"`
	SenderName  string `yaml:"sender_name"`
	SMTPHost    string `yaml:"smtp_host"`
	SMTPPort    int    `yaml:"smtp_port"`
	SMTPUser    string `yaml:"smtp_user"`
	SMTPPass    string `yaml:"smtp_pass"`

	Archive ArchiveConfig `yaml:"archive"`
}

// ArchiveConfig points at an S3-compatible bucket. Archiving is off when
// Bucket is empty.
type ArchiveConfig struct {
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicBaseURL   string `yaml:"public_base_url"`
	Prefix          string `yaml:"prefix"`
}

func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

func defaults() *Config {
	return &Config{
		Storage:     StorageTextFile,
		DataDir:     "data",
		DBTimeout:   5 * time.Second,
		ScorePolicy: ScorePolicyHigh,
		LogLevel:    "info",
		SenderName:  "Tournament Tracker",
		SMTPPort:    587,
		Archive: ArchiveConfig{
			Region: "auto",
			Prefix: "tournaments/",
		},
	}
}

// Load builds the configuration from, in increasing priority: defaults, the
// YAML file named by TRACKER_CONFIG_FILE, and environment variables. A .env
// file in the working directory is loaded into the environment first.
func Load() (*Config, error) {
	// Missing .env is fine.
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("TRACKER_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"TRACKER_STORAGE":       &c.Storage,
		"TRACKER_DATA_DIR":      &c.DataDir,
		"DATABASE_URL":          &c.DatabaseURL,
		"TRACKER_SCORE_POLICY":  &c.ScorePolicy,
		"LOG_LEVEL":             &c.LogLevel,
		"TRACKER_SENDER_EMAIL":  &c.SenderEmail,
		"TRACKER_SENDER_NAME":   &c.SenderName,
		"SMTP_HOST":             &c.SMTPHost,
		"SMTP_USER":             &c.SMTPUser,
		"SMTP_PASS":             &c.SMTPPass,
		"ARCHIVE_BUCKET":        &c.Archive.Bucket,
		"ARCHIVE_ENDPOINT":      &c.Archive.Endpoint,
		"ARCHIVE_REGION":        &c.Archive.Region,
		"ARCHIVE_ACCESS_KEY_ID": &c.Archive.AccessKeyID,
		"ARCHIVE_SECRET_KEY":    &c.Archive.SecretAccessKey,
		"ARCHIVE_PUBLIC_URL":    &c.Archive.PublicBaseURL,
		"ARCHIVE_PREFIX":        &c.Archive.Prefix,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SMTP_PORT environment variable: %w", err)
		}
		c.SMTPPort = port
	}
	if v := os.Getenv("DATABASE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_TIMEOUT environment variable: %w", err)
		}
		c.DBTimeout = d
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	c.Storage = strings.ToLower(c.Storage)
	switch c.Storage {
	case StorageTextFile:
		if c.DataDir == "" {
			errs = append(errs, errors.New("TRACKER_DATA_DIR must be set for textfile storage"))
		}
	case StoragePostgres, StorageSQLite:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL must be set for %s storage", c.Storage))
		}
	default:
		errs = append(errs, fmt.Errorf("TRACKER_STORAGE must be one of textfile, postgres, sqlite, got %q", c.Storage))
	}

	c.ScorePolicy = strings.ToLower(c.ScorePolicy)
	if c.ScorePolicy != ScorePolicyHigh && c.ScorePolicy != ScorePolicyLow {
		errs = append(errs, fmt.Errorf("TRACKER_SCORE_POLICY must be high or low, got %q", c.ScorePolicy))
	}

	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		errs = append(errs, fmt.Errorf("SMTP_PORT must be between 1 and 65535, got %d", c.SMTPPort))
	}
	if c.SMTPHost != "" && c.SenderEmail == "" {
		errs = append(errs, errors.New("TRACKER_SENDER_EMAIL must be set when SMTP_HOST is set"))
	}
	if c.DBTimeout <= 0 {
		errs = append(errs, fmt.Errorf("DATABASE_TIMEOUT must be positive, got %v", c.DBTimeout))
	}

	if c.Archive.Enabled() && (c.Archive.AccessKeyID == "" || c.Archive.SecretAccessKey == "") {
		errs = append(errs, errors.New("ARCHIVE_ACCESS_KEY_ID and ARCHIVE_SECRET_KEY must be set when ARCHIVE_BUCKET is set"))
	}

	return errors.Join(errs...)
}
