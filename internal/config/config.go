// Package config loads backend configuration from a TOML file with
// environment variable overrides. Secrets (API keys) are only read
// from the environment, never from the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Defaults applied when neither the file nor the environment sets a
// value.
const (
	DefaultAddr     = ":8080"
	DefaultLogLevel = "info"

	DefaultStorageBackend = "sqlite"
	DefaultBlobBackend    = "local"

	DefaultEmbeddingProvider  = "openai"
	DefaultCompletionProvider = "gemini"
)

// Config is the full backend configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	Blob       BlobConfig       `toml:"blob"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Completion CompletionConfig `toml:"completion"`
	Drive      DriveConfig      `toml:"drive"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Chat       ChatConfig       `toml:"chat"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr     string `toml:"addr"`
	LogLevel string `toml:"log_level"`
}

// StorageConfig configures document and report persistence.
type StorageConfig struct {
	// Backend is "sqlite" or "memory".
	Backend string `toml:"backend"`

	// DataDir is where the sqlite database lives.
	// Empty defaults to ~/.meddocs/data.
	DataDir string `toml:"data_dir"`
}

// BlobConfig configures original-file storage.
type BlobConfig struct {
	// Backend is "local" or "s3".
	Backend string `toml:"backend"`

	// Dir is the root directory for the local backend.
	// Empty defaults to ~/.meddocs/blobs.
	Dir string `toml:"dir"`

	S3 S3Config `toml:"s3"`
}

// S3Config configures the S3-compatible blob backend.
type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"-"`
	SecretKey string `toml:"-"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "openai" or "ollama".
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"-"`
}

// CompletionConfig configures the answer-generation provider.
type CompletionConfig struct {
	// Provider is "gemini" or "openai".
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"-"`
}

// DriveConfig configures the optional Google Drive import.
type DriveConfig struct {
	CredentialsFile string `toml:"credentials_file"`
	FolderID        string `toml:"folder_id"`
}

// PipelineConfig tunes document ingestion. Zero values mean "use the
// service default".
type PipelineConfig struct {
	ChunkSize      int   `toml:"chunk_size"`
	ChunkOverlap   int   `toml:"chunk_overlap"`
	Workers        int   `toml:"workers"`
	EmbedRetries   int   `toml:"embed_retries"`
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
}

// ChatConfig tunes retrieval and conversation behaviour. Zero values
// mean "use the service default".
type ChatConfig struct {
	TopK          int     `toml:"top_k"`
	MinScore      float64 `toml:"min_score"`
	HistoryWindow int     `toml:"history_window"`
	SessionCap    int     `toml:"session_cap"`
	MaxTokens     int     `toml:"max_tokens"`
	Temperature   float64 `toml:"temperature"`
}

// Load reads configuration from the given TOML file (missing file is
// fine), then applies environment overrides and defaults. A .env file
// in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	// Best effort; absence is the common case in production.
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Run on defaults and environment alone.
		default:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns the conventional config file location,
// ~/.meddocs/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".meddocs", "config.toml")
}

func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "MEDDOCS_ADDR")
	setString(&c.Server.LogLevel, "MEDDOCS_LOG_LEVEL")

	setString(&c.Storage.Backend, "MEDDOCS_STORAGE_BACKEND")
	setString(&c.Storage.DataDir, "MEDDOCS_DATA_DIR")

	setString(&c.Blob.Backend, "MEDDOCS_BLOB_BACKEND")
	setString(&c.Blob.Dir, "MEDDOCS_BLOB_DIR")
	setString(&c.Blob.S3.Endpoint, "MEDDOCS_S3_ENDPOINT")
	setString(&c.Blob.S3.AccessKey, "MEDDOCS_S3_ACCESS_KEY")
	setString(&c.Blob.S3.SecretKey, "MEDDOCS_S3_SECRET_KEY")
	setString(&c.Blob.S3.Bucket, "MEDDOCS_S3_BUCKET")
	setBool(&c.Blob.S3.UseSSL, "MEDDOCS_S3_USE_SSL")

	setString(&c.Embedding.Provider, "MEDDOCS_EMBEDDING_PROVIDER")
	setString(&c.Embedding.Model, "MEDDOCS_EMBEDDING_MODEL")
	setString(&c.Embedding.BaseURL, "MEDDOCS_EMBEDDING_BASE_URL")

	setString(&c.Completion.Provider, "MEDDOCS_COMPLETION_PROVIDER")
	setString(&c.Completion.Model, "MEDDOCS_COMPLETION_MODEL")
	setString(&c.Completion.BaseURL, "MEDDOCS_COMPLETION_BASE_URL")

	setString(&c.Drive.CredentialsFile, "MEDDOCS_DRIVE_CREDENTIALS_FILE")
	setString(&c.Drive.FolderID, "MEDDOCS_DRIVE_FOLDER_ID")

	// API keys come from the provider-conventional variables.
	setString(&c.Embedding.APIKey, "OPENAI_API_KEY")
	switch c.Completion.Provider {
	case "openai":
		setString(&c.Completion.APIKey, "OPENAI_API_KEY")
	default:
		setString(&c.Completion.APIKey, "GEMINI_API_KEY")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultStorageBackend
	}
	if c.Blob.Backend == "" {
		c.Blob.Backend = DefaultBlobBackend
	}
	if c.Blob.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Blob.Dir = filepath.Join(home, ".meddocs", "blobs")
		}
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = DefaultEmbeddingProvider
	}
	if c.Completion.Provider == "" {
		c.Completion.Provider = DefaultCompletionProvider
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Blob.Backend {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown blob backend %q", c.Blob.Backend)
	}
	switch c.Embedding.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Completion.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown completion provider %q", c.Completion.Provider)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
