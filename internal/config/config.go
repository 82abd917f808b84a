package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the chat assistant backend.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// AuthConfig holds bearer-credential configuration. Identity validation is
// performed upstream; this service only extracts a stable user identifier.
type AuthConfig struct {
	Required bool `mapstructure:"required"`
}

// LLMConfig holds the hosted response-generator configuration. All fields may
// be empty: startup proceeds with a warning and chat requests degrade at
// first use.
type LLMConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	Deployment string `mapstructure:"deployment"`
	APIVersion string `mapstructure:"api_version"`
}

// AuditConfig holds the external conversation-audit function settings.
type AuditConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	AccessCode     string `mapstructure:"access_code"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the bounded per-call timeout for audit requests.
func (c AuditConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatabaseConfig holds document-metadata database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig holds uploaded-document storage configuration.
type StorageConfig struct {
	Documents         string   `mapstructure:"documents"`
	MaxUploadBytes    int64    `mapstructure:"max_upload_bytes"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// ChatConfig holds conversation behavior configuration.
type ChatConfig struct {
	HistoryLimit  int    `mapstructure:"history_limit"`
	ContextChunks int    `mapstructure:"context_chunks"`
	ChunkSize     int    `mapstructure:"chunk_size"`
	ChunkOverlap  int    `mapstructure:"chunk_overlap"`
	SystemPrompt  string `mapstructure:"system_prompt"`
}

// CacheConfig holds history-cache driver configuration.
type CacheConfig struct {
	Driver    string `mapstructure:"driver"` // memory, redis
	RedisAddr string `mapstructure:"redis_addr"`
	TTLHours  int    `mapstructure:"ttl_hours"`
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("RAI")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("auth.required", true)

	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.deployment", "")
	v.SetDefault("llm.api_version", "2024-02-01")

	v.SetDefault("audit.base_url", "")
	v.SetDefault("audit.access_code", "")
	v.SetDefault("audit.timeout_seconds", 30)

	v.SetDefault("database.path", "./data/assistant.db")

	v.SetDefault("storage.documents", "./data/documents")
	v.SetDefault("storage.max_upload_bytes", 10*1024*1024)
	v.SetDefault("storage.allowed_extensions", []string{".pdf", ".docx"})

	v.SetDefault("chat.history_limit", 10)
	v.SetDefault("chat.context_chunks", 3)
	v.SetDefault("chat.chunk_size", 1000)
	v.SetDefault("chat.chunk_overlap", 200)
	v.SetDefault("chat.system_prompt",
		"You are a helpful assistant for a real-estate company. Answer questions "+
			"about properties, leases, and uploaded documents accurately and concisely.")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl_hours", 24)
}

// Address returns the server listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
