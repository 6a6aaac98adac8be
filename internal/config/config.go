// Package config loads service settings from defaults, an optional YAML file
// and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"animrender/internal/pkg/errors"
)

// Storage provider names accepted by storage.provider.
const (
	ProviderLocalFS = "localfs"
	ProviderS3      = "s3"
	ProviderGDrive  = "gdrive"
)

type Config struct {
	HTTP            HTTPConfig     `yaml:"http"`
	Log             LogConfig      `yaml:"log"`
	Render          RenderConfig   `yaml:"render"`
	Storage         StorageConfig  `yaml:"storage"`
	Database        DatabaseConfig `yaml:"database"`
	Redis           RedisConfig    `yaml:"redis"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout"`
}

type HTTPConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Source      bool   `yaml:"source"`
	ServiceName string `yaml:"service_name"`
}

type RenderConfig struct {
	ManimBin        string `yaml:"manim_bin"`
	CurlBin         string `yaml:"curl_bin"`
	FFmpegBin       string `yaml:"ffmpeg_bin"`
	RendererVersion string `yaml:"renderer_version"`
	// WorkspaceRoot is the parent of per-job scratch dirs; empty means os.TempDir().
	WorkspaceRoot string `yaml:"workspace_root"`
	// Timeout bounds one job's pipeline; zero disables it.
	Timeout time.Duration `yaml:"timeout"`
	// MaxConcurrent bounds concurrently running jobs; zero means unbounded.
	MaxConcurrent int `yaml:"max_concurrent"`
}

type StorageConfig struct {
	// Provider is localfs, s3 or gdrive. Empty picks s3 when credentials are present.
	Provider    string        `yaml:"provider"`
	OutputDir   string        `yaml:"output_dir"`
	PublicPath  string        `yaml:"public_path"`
	ServeOutput bool          `yaml:"serve_output"`
	URLExpiry   time.Duration `yaml:"url_expiry"`
	S3          S3Config      `yaml:"s3"`
	GDrive      GDriveConfig  `yaml:"gdrive"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Endpoint        string `yaml:"endpoint"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

type GDriveConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	FolderID     string `yaml:"folder_id"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	EventsChannel string `yaml:"events_channel"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:           "8000",
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "animrender",
		},
		Render: RenderConfig{
			ManimBin:        "manim",
			CurlBin:         "curl",
			FFmpegBin:       "ffmpeg",
			RendererVersion: "0.17.3",
		},
		Storage: StorageConfig{
			OutputDir:   "output",
			PublicPath:  "/output",
			ServeOutput: true,
			URLExpiry:   7 * 24 * time.Hour,
			S3:          S3Config{Region: "us-east-1"},
		},
		Redis: RedisConfig{
			EventsChannel: "animrender:jobs",
		},
		ShutdownTimeout: 30 * time.Second,
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if any) and environment overrides, then validates it.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "config.file", "failed to read config file")
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return errors.WrapWithCode(err, errors.CodeValidation, "config.file", "invalid config file")
	}
	return nil
}

func (c *Config) applyEnv() error {
	envString(&c.HTTP.Port, "HTTP_PORT", "PORT")
	if v := env("CORS_ALLOWED_ORIGINS"); v != "" {
		c.HTTP.AllowedOrigins = strings.Split(v, ",")
	}

	envString(&c.Log.Level, "LOG_LEVEL")
	envString(&c.Log.Format, "LOG_FORMAT")
	envString(&c.Log.ServiceName, "SERVICE_NAME")

	envString(&c.Render.ManimBin, "MANIM_BIN")
	envString(&c.Render.CurlBin, "CURL_BIN")
	envString(&c.Render.FFmpegBin, "FFMPEG_BIN")
	envString(&c.Render.RendererVersion, "RENDERER_VERSION")
	envString(&c.Render.WorkspaceRoot, "WORKSPACE_ROOT")

	envString(&c.Storage.Provider, "STORAGE_PROVIDER")
	envString(&c.Storage.OutputDir, "OUTPUT_DIR")
	envString(&c.Storage.PublicPath, "OUTPUT_PUBLIC_PATH")
	envString(&c.Storage.S3.Bucket, "S3_BUCKET_NAME")
	envString(&c.Storage.S3.Region, "AWS_REGION")
	envString(&c.Storage.S3.AccessKeyID, "AWS_ACCESS_KEY_ID")
	envString(&c.Storage.S3.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	envString(&c.Storage.S3.Endpoint, "S3_ENDPOINT")
	envString(&c.Storage.GDrive.ClientID, "GDRIVE_CLIENT_ID")
	envString(&c.Storage.GDrive.ClientSecret, "GDRIVE_CLIENT_SECRET")
	envString(&c.Storage.GDrive.RefreshToken, "GDRIVE_REFRESH_TOKEN")
	envString(&c.Storage.GDrive.FolderID, "GDRIVE_FOLDER_ID")

	envString(&c.Database.URL, "DATABASE_URL")
	envString(&c.Redis.Addr, "REDIS_ADDR")
	envString(&c.Redis.Password, "REDIS_PASSWORD")
	envString(&c.Redis.EventsChannel, "REDIS_EVENTS_CHANNEL")

	for _, err := range []error{
		envBool(&c.Log.Source, "LOG_SOURCE"),
		envBool(&c.Storage.ServeOutput, "SERVE_OUTPUT"),
		envBool(&c.Storage.S3.UsePathStyle, "S3_USE_PATH_STYLE"),
		envInt(&c.Render.MaxConcurrent, "RENDER_MAX_CONCURRENT"),
		envInt(&c.Redis.DB, "REDIS_DB"),
		envDuration(&c.Render.Timeout, "RENDER_TIMEOUT"),
		envDuration(&c.Storage.URLExpiry, "URL_EXPIRY"),
		envDuration(&c.ShutdownTimeout, "SHUTDOWN_TIMEOUT"),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate checks settings that would otherwise fail at first use.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTP.Port) == "" {
		return errors.ValidationField("http.port", "http port is required")
	}
	if c.Render.ManimBin == "" {
		return errors.ValidationField("render.manim_bin", "renderer binary is required")
	}
	if c.Render.MaxConcurrent < 0 {
		return errors.ValidationField("render.max_concurrent", "must not be negative")
	}
	if c.Render.Timeout < 0 {
		return errors.ValidationField("render.timeout", "must not be negative")
	}
	if c.Storage.URLExpiry <= 0 {
		return errors.ValidationField("storage.url_expiry", "must be positive")
	}

	switch c.StorageProvider() {
	case ProviderLocalFS:
		if c.Storage.OutputDir == "" {
			return errors.ValidationField("storage.output_dir", "output directory is required")
		}
	case ProviderS3:
		if c.Storage.S3.Bucket == "" {
			return errors.ValidationField("storage.s3.bucket", "bucket is required for s3 storage")
		}
	case ProviderGDrive:
		g := c.Storage.GDrive
		if g.ClientID == "" || g.ClientSecret == "" || g.RefreshToken == "" {
			return errors.ValidationField("storage.gdrive", "client id, client secret and refresh token are required")
		}
	default:
		return errors.ValidationField("storage.provider", fmt.Sprintf("unknown storage provider: %s", c.Storage.Provider))
	}
	return nil
}

// StorageProvider resolves the active provider. With no explicit choice,
// s3 is used when a bucket and static credentials are configured.
func (c Config) StorageProvider() string {
	if p := strings.ToLower(strings.TrimSpace(c.Storage.Provider)); p != "" {
		return p
	}
	s3 := c.Storage.S3
	if s3.Bucket != "" && s3.AccessKeyID != "" && s3.SecretAccessKey != "" {
		return ProviderS3
	}
	return ProviderLocalFS
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// envString sets dst from the first non-empty variable among keys.
func envString(dst *string, keys ...string) {
	for _, k := range keys {
		if v := env(k); v != "" {
			*dst = v
			return
		}
	}
}

func envBool(dst *bool, key string) error {
	v := env(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return errors.ValidationField(key, "invalid boolean: "+v)
	}
	*dst = b
	return nil
}

func envInt(dst *int, key string) error {
	v := env(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.ValidationField(key, "invalid integer: "+v)
	}
	*dst = n
	return nil
}

func envDuration(dst *time.Duration, key string) error {
	v := env(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return errors.ValidationField(key, "invalid duration: "+v)
	}
	*dst = d
	return nil
}
