package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	NATS        NATSConfig        `yaml:"nats"`
	MinIO       MinIOConfig       `yaml:"minio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Staging     StagingConfig     `yaml:"staging"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
	// PersonTable is the table served by the generic person CRUD endpoints.
	PersonTable string `yaml:"person_table"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// RecognitionConfig points at the external recognition model service.
// Thresholds are passed through to the model unvalidated.
type RecognitionConfig struct {
	URL               string        `yaml:"url"`
	ModelName         string        `yaml:"model_name"`
	FaceDetThreshold  float64       `yaml:"face_det_threshold"`
	FaceDistThreshold float64       `yaml:"face_dist_threshold"`
	Timeout           time.Duration `yaml:"timeout"`
	// Skip bypasses the model service and returns a canned identity (dev only).
	Skip bool `yaml:"skip"`
}

type StagingConfig struct {
	CacheDir       string        `yaml:"cache_dir"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	// SweepAfter bounds how long an orphaned staged file may survive a crash.
	SweepAfter time.Duration `yaml:"sweep_after"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Database.PersonTable == "" {
		cfg.Database.PersonTable = "person"
	}
	if cfg.Recognition.ModelName == "" {
		cfg.Recognition.ModelName = "arcface"
	}
	if cfg.Recognition.FaceDetThreshold == 0 {
		cfg.Recognition.FaceDetThreshold = 0.5
	}
	if cfg.Recognition.FaceDistThreshold == 0 {
		cfg.Recognition.FaceDistThreshold = 0.4
	}
	if cfg.Recognition.Timeout == 0 {
		cfg.Recognition.Timeout = 30 * time.Second
	}
	if cfg.Staging.CacheDir == "" {
		cfg.Staging.CacheDir = ".data"
	}
	if cfg.Staging.FetchTimeout == 0 {
		cfg.Staging.FetchTimeout = 10 * time.Second
	}
	if cfg.Staging.MaxUploadBytes == 0 {
		cfg.Staging.MaxUploadBytes = 16 << 20
	}
	if cfg.Staging.SweepAfter == 0 {
		cfg.Staging.SweepAfter = time.Hour
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ABSENSI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ABSENSI_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("ABSENSI_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("ABSENSI_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("ABSENSI_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("ABSENSI_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("ABSENSI_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("ABSENSI_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("ABSENSI_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("ABSENSI_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("ABSENSI_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("ABSENSI_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("ABSENSI_RECOGNITION_URL"); v != "" {
		cfg.Recognition.URL = v
	}
	if v := os.Getenv("ABSENSI_RECOGNITION_MODEL"); v != "" {
		cfg.Recognition.ModelName = v
	}
	if v := os.Getenv("ABSENSI_RECOGNITION_SKIP"); v != "" {
		cfg.Recognition.Skip = v == "1" || v == "true"
	}
	if v := os.Getenv("ABSENSI_CACHE_DIR"); v != "" {
		cfg.Staging.CacheDir = v
	}
}
