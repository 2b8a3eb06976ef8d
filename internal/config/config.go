package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "config/config.yaml"

	defaultHost              = "0.0.0.0"
	defaultPort              = 3001
	defaultStorageRoot       = "./data"
	defaultDatabaseName      = "jobs.db"
	defaultBackend           = "sqlite"
	defaultWorkers           = 2
	defaultQueueSize         = 100
	defaultDownloadSeconds   = 300
	defaultExtractSeconds    = 180
	defaultProbeSeconds      = 60
	defaultTranscribeSeconds = 600
	defaultCutSeconds        = 120
	defaultYtDlp             = "yt-dlp"
	defaultFFmpeg            = "ffmpeg"
	defaultFFprobe           = "ffprobe"
	defaultWhisper           = "python"
	defaultProvider          = "openai"
	defaultOpenAIModel       = "whisper-1"
	defaultWhisperModel      = "small"
	defaultCleanupMinutes    = 60
	defaultMaxAgeHours       = 24
	defaultMaxFileSizeMB     = 500
	defaultArchive           = "none"
	defaultDriveCredentials  = "config/credentials.json"
	defaultDriveToken        = "config/token.json"
	defaultDriveFolder       = "Highlight Clips"
	defaultGCSPrefix         = "clips"
	defaultLogLevel          = "info"
	defaultLogFormat         = "text"
)

// Config is the full application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Workers       WorkersConfig       `yaml:"workers"`
	Timeouts      TimeoutsConfig      `yaml:"timeouts"`
	Tools         ToolsConfig         `yaml:"tools"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Cleanup       CleanupConfig       `yaml:"cleanup"`
	Limits        LimitsConfig        `yaml:"limits"`
	Archive       ArchiveConfig       `yaml:"archive"`
	Log           LogConfig           `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StorageConfig struct {
	Root     string `yaml:"root"`
	Database string `yaml:"database"`
	Backend  string `yaml:"backend"` // "memory" or "sqlite"
}

type WorkersConfig struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queue_size"`
}

type TimeoutsConfig struct {
	DownloadSeconds   int `yaml:"download_seconds"`
	ExtractSeconds    int `yaml:"extract_seconds"`
	ProbeSeconds      int `yaml:"probe_seconds"`
	TranscribeSeconds int `yaml:"transcribe_seconds"`
	CutSeconds        int `yaml:"cut_seconds"` // per clip
}

type ToolsConfig struct {
	YtDlp   string `yaml:"yt_dlp"`
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
	Whisper string `yaml:"whisper"`
}

type TranscriptionConfig struct {
	Provider string `yaml:"provider"` // "openai" or "whisper"
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"-"`
}

type CleanupConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
	MaxAgeHours     int `yaml:"max_age_hours"`
}

type LimitsConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
}

type ArchiveConfig struct {
	Provider    string            `yaml:"provider"` // "none", "gdrive" or "gcs"
	GoogleDrive GoogleDriveConfig `yaml:"google_drive"`
	GCS         GCSConfig         `yaml:"gcs"`
}

type GoogleDriveConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	FolderName      string `yaml:"folder_name"`
}

type GCSConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Load reads the YAML file at path, overlays the environment and fills
// defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}

	cfg := &Config{}
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("config file not found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Transcription.APIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Transcription.BaseURL = v
	}
	if v := os.Getenv("GCS_BUCKET"); v != "" {
		cfg.Archive.GCS.Bucket = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(cfg)
	applyStorageDefaults(cfg)
	applyWorkerDefaults(cfg)
	applyTimeoutDefaults(cfg)
	applyToolDefaults(cfg)
	applyTranscriptionDefaults(cfg)
	applyCleanupDefaults(cfg)
	applyArchiveDefaults(cfg)
	applyLogDefaults(cfg)
	if cfg.Limits.MaxFileSizeMB == 0 {
		cfg.Limits.MaxFileSizeMB = defaultMaxFileSizeMB
	}
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
}

func applyStorageDefaults(cfg *Config) {
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = defaultStorageRoot
	}
	if cfg.Storage.Database == "" {
		cfg.Storage.Database = filepath.Join(cfg.Storage.Root, defaultDatabaseName)
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaultBackend
	}
}

func applyWorkerDefaults(cfg *Config) {
	if cfg.Workers.Count == 0 {
		cfg.Workers.Count = defaultWorkers
	}
	if cfg.Workers.QueueSize == 0 {
		cfg.Workers.QueueSize = defaultQueueSize
	}
}

func applyTimeoutDefaults(cfg *Config) {
	t := &cfg.Timeouts
	if t.DownloadSeconds == 0 {
		t.DownloadSeconds = defaultDownloadSeconds
	}
	if t.ExtractSeconds == 0 {
		t.ExtractSeconds = defaultExtractSeconds
	}
	if t.ProbeSeconds == 0 {
		t.ProbeSeconds = defaultProbeSeconds
	}
	if t.TranscribeSeconds == 0 {
		t.TranscribeSeconds = defaultTranscribeSeconds
	}
	if t.CutSeconds == 0 {
		t.CutSeconds = defaultCutSeconds
	}
}

func applyToolDefaults(cfg *Config) {
	if cfg.Tools.YtDlp == "" {
		cfg.Tools.YtDlp = defaultYtDlp
	}
	if cfg.Tools.FFmpeg == "" {
		cfg.Tools.FFmpeg = defaultFFmpeg
	}
	if cfg.Tools.FFprobe == "" {
		cfg.Tools.FFprobe = defaultFFprobe
	}
	if cfg.Tools.Whisper == "" {
		cfg.Tools.Whisper = defaultWhisper
	}
}

func applyTranscriptionDefaults(cfg *Config) {
	if cfg.Transcription.Provider == "" {
		cfg.Transcription.Provider = defaultProvider
	}
	if cfg.Transcription.Model == "" {
		if cfg.Transcription.Provider == "whisper" {
			cfg.Transcription.Model = defaultWhisperModel
		} else {
			cfg.Transcription.Model = defaultOpenAIModel
		}
	}
}

func applyCleanupDefaults(cfg *Config) {
	if cfg.Cleanup.IntervalMinutes == 0 {
		cfg.Cleanup.IntervalMinutes = defaultCleanupMinutes
	}
	if cfg.Cleanup.MaxAgeHours == 0 {
		cfg.Cleanup.MaxAgeHours = defaultMaxAgeHours
	}
}

func applyArchiveDefaults(cfg *Config) {
	a := &cfg.Archive
	if a.Provider == "" {
		a.Provider = defaultArchive
	}
	if a.GoogleDrive.CredentialsFile == "" {
		a.GoogleDrive.CredentialsFile = defaultDriveCredentials
	}
	if a.GoogleDrive.TokenFile == "" {
		a.GoogleDrive.TokenFile = defaultDriveToken
	}
	if a.GoogleDrive.FolderName == "" {
		a.GoogleDrive.FolderName = defaultDriveFolder
	}
	if a.GCS.Prefix == "" {
		a.GCS.Prefix = defaultGCSPrefix
	}
}

func applyLogDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaultLogFormat
	}
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Workers.Count < 1 {
		return fmt.Errorf("workers.count must be positive, got %d", c.Workers.Count)
	}
	if c.Workers.QueueSize < 1 {
		return fmt.Errorf("workers.queue_size must be positive, got %d", c.Workers.QueueSize)
	}
	t := c.Timeouts
	for name, v := range map[string]int{
		"download_seconds":   t.DownloadSeconds,
		"extract_seconds":    t.ExtractSeconds,
		"probe_seconds":      t.ProbeSeconds,
		"transcribe_seconds": t.TranscribeSeconds,
		"cut_seconds":        t.CutSeconds,
	} {
		if v < 1 {
			return fmt.Errorf("timeouts.%s must be positive, got %d", name, v)
		}
	}
	if c.Cleanup.IntervalMinutes < 1 || c.Cleanup.MaxAgeHours < 1 {
		return errors.New("cleanup interval and max age must be positive")
	}
	if c.Limits.MaxFileSizeMB < 1 {
		return fmt.Errorf("limits.max_file_size_mb must be positive, got %d", c.Limits.MaxFileSizeMB)
	}

	switch c.Storage.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Transcription.Provider {
	case "openai", "whisper":
	default:
		return fmt.Errorf("unknown transcription provider %q", c.Transcription.Provider)
	}
	switch c.Archive.Provider {
	case "none", "gdrive":
	case "gcs":
		if c.Archive.GCS.Bucket == "" {
			return errors.New("archive.gcs.bucket (or GCS_BUCKET) is required for the gcs archive")
		}
	default:
		return fmt.Errorf("unknown archive provider %q", c.Archive.Provider)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// Addr is the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Seconds converts a seconds knob to a duration
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
