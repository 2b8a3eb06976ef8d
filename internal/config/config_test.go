package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "GCS_BUCKET", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:3001" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if cfg.Workers.Count != 2 || cfg.Workers.QueueSize != 100 {
		t.Errorf("Workers = %+v", cfg.Workers)
	}
	if cfg.Timeouts.DownloadSeconds != 300 || cfg.Timeouts.CutSeconds != 120 {
		t.Errorf("Timeouts = %+v", cfg.Timeouts)
	}
	if cfg.Transcription.Provider != "openai" || cfg.Transcription.Model != "whisper-1" {
		t.Errorf("Transcription = %+v", cfg.Transcription)
	}
	if cfg.Storage.Database != filepath.Join("./data", "jobs.db") {
		t.Errorf("Database = %q", cfg.Storage.Database)
	}
	if cfg.Limits.MaxFileSizeMB != 500 || cfg.Archive.Provider != "none" {
		t.Errorf("Limits = %+v, Archive = %+v", cfg.Limits, cfg.Archive)
	}
}

func TestLoadFromYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: 8080
storage:
  root: /srv/clips
  backend: memory
workers:
  count: 4
transcription:
  provider: whisper
  language: en
archive:
  provider: gcs
  gcs:
    bucket: my-clips
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Workers.Count != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Storage.Database != filepath.Join("/srv/clips", "jobs.db") {
		t.Errorf("Database = %q", cfg.Storage.Database)
	}
	if cfg.Transcription.Model != "small" {
		t.Errorf("whisper default model = %q", cfg.Transcription.Model)
	}
	if cfg.Archive.GCS.Bucket != "my-clips" || cfg.Archive.GCS.Prefix != "clips" {
		t.Errorf("GCS = %+v", cfg.Archive.GCS)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GCS_BUCKET", "env-bucket")
	path := writeConfig(t, "archive:\n  provider: gcs\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Transcription.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", cfg.Transcription.APIKey)
	}
	if cfg.Archive.GCS.Bucket != "env-bucket" {
		t.Errorf("Bucket = %q", cfg.Archive.GCS.Bucket)
	}
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"badYAML", "server: [", "parse"},
		{"negativeWorkers", "workers:\n  count: -1\n", "workers.count"},
		{"backend", "storage:\n  backend: redis\n", "storage backend"},
		{"provider", "transcription:\n  provider: groq\n", "transcription provider"},
		{"gcsWithoutBucket", "archive:\n  provider: gcs\n", "bucket"},
		{"timeout", "timeouts:\n  cut_seconds: -5\n", "cut_seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
