package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the voxhome service configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
	Voice       VoiceConfig       `yaml:"voice"`
	RAG         RAGConfig         `yaml:"rag"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	LLM         LLMConfig         `yaml:"llm"`
	ASR         ASRConfig         `yaml:"asr"`
	TTS         TTSConfig         `yaml:"tts"`
	Dispatch    DispatchConfig    `yaml:"dispatch"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// VoiceConfig holds the voice pipeline settings.
type VoiceConfig struct {
	Mode            string `yaml:"mode"` // local, online
	Mock            bool   `yaml:"mock"`
	TempDir         string `yaml:"temp_dir"`
	TTSDir          string `yaml:"tts_dir"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
	PaddleSpeechCmd string `yaml:"paddlespeech_cmd"`
	// PublicBaseURL overrides the request host in audio URLs.
	PublicBaseURL string `yaml:"public_base_url"`
}

// RAGConfig holds retrieval settings.
type RAGConfig struct {
	Enabled  *bool    `yaml:"enabled"`
	TopK     int      `yaml:"top_k"`
	MinScore *float64 `yaml:"min_score"`
}

// IsEnabled reports whether retrieval augments prompts. Defaults to true.
func (c RAGConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// Threshold returns the minimum similarity a retrieved chunk needs.
// Defaults to 0.5 when min_score is absent; an explicit 0 is kept.
func (c RAGConfig) Threshold() float64 {
	if c.MinScore == nil {
		return 0.5
	}
	return *c.MinScore
}

// VectorStoreConfig selects the semantic store backend.
type VectorStoreConfig struct {
	Type string `yaml:"type"` // durable, snapshot
	Path string `yaml:"path"` // snapshot file
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Protocol         string `yaml:"protocol"` // openai, ollama
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	OllamaBaseURL    string `yaml:"ollama_base_url"`
	OllamaModel      string `yaml:"ollama_model"`
	QueryInstruction string `yaml:"query_instruction"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	Cache            *bool  `yaml:"cache"`
}

// CacheEnabled reports whether embeddings are cached in Redis. Defaults to true.
func (c EmbeddingConfig) CacheEnabled() bool { return c.Cache == nil || *c.Cache }

// LLMConfig holds the generation endpoints per mode.
type LLMConfig struct {
	Local  EndpointConfig `yaml:"local"`
	Online EndpointConfig `yaml:"online"`
}

// EndpointConfig is an OpenAI-compatible endpoint without the /v1 suffix.
type EndpointConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// ASRConfig holds online transcription settings.
type ASRConfig struct {
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// TTSConfig holds synthesis settings.
type TTSConfig struct {
	URL          string `yaml:"url"`
	Model        string `yaml:"model"`
	Voice        string `yaml:"voice"`
	Language     string `yaml:"language"`
	SegmentRunes int    `yaml:"segment_runes"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

// DispatchConfig holds the device command worker pool settings.
type DispatchConfig struct {
	Workers    int `yaml:"workers"`
	QueueSize  int `yaml:"queue_size"`
	TimeoutSec int `yaml:"timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded first.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates one config file.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// Default endpoints and models.
const (
	DashScopeCompatibleURL = "https://dashscope.aliyuncs.com/compatible-mode"
	DashScopeTTSURL        = "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"
)

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 600
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "voxhome:"
	}
	c.applyVoiceDefaults()
	c.applyModelDefaults()
	if c.Dispatch.Workers <= 0 {
		c.Dispatch.Workers = 4
	}
	if c.Dispatch.QueueSize <= 0 {
		c.Dispatch.QueueSize = 64
	}
	if c.Dispatch.TimeoutSec <= 0 {
		c.Dispatch.TimeoutSec = 10
	}
}

func (c *Config) applyVoiceDefaults() {
	v := &c.Voice
	if v.Mode == "" {
		v.Mode = "online"
	}
	v.TempDir = orDefault(v.TempDir, "temp")
	v.TTSDir = orDefault(v.TTSDir, "tts-output")
	if v.MaxUploadBytes <= 0 {
		v.MaxUploadBytes = 5 << 20
	}
	v.PaddleSpeechCmd = orDefault(v.PaddleSpeechCmd, "paddlespeech")

	if c.RAG.TopK <= 0 {
		c.RAG.TopK = 5
	}
	c.VectorStore.Type = orDefault(c.VectorStore.Type, "durable")
	c.VectorStore.Path = orDefault(c.VectorStore.Path, "data/vector-store.json")
}

func (c *Config) applyModelDefaults() {
	c.LLM.Local.BaseURL = orDefault(c.LLM.Local.BaseURL, "http://localhost:8000")
	c.LLM.Local.Model = orDefault(c.LLM.Local.Model, "deepseek-ai/DeepSeek-R1-Distill-Qwen-7B")
	c.LLM.Online.BaseURL = orDefault(c.LLM.Online.BaseURL, DashScopeCompatibleURL)
	c.LLM.Online.Model = orDefault(c.LLM.Online.Model, "qwen-plus")

	e := &c.Embedding
	e.Protocol = orDefault(e.Protocol, "openai")
	e.BaseURL = orDefault(e.BaseURL, DashScopeCompatibleURL)
	e.APIKey = orDefault(e.APIKey, c.LLM.Online.APIKey)
	e.Model = orDefault(e.Model, "text-embedding-v3")
	if e.Dimensions <= 0 {
		e.Dimensions = 1024
	}
	e.OllamaBaseURL = orDefault(e.OllamaBaseURL, "http://localhost:11434")
	e.OllamaModel = orDefault(e.OllamaModel, "qwen3-embedding")
	if e.TimeoutSec <= 0 {
		e.TimeoutSec = 30
	}

	c.ASR.Model = orDefault(c.ASR.Model, "qwen3-asr-flash")
	if c.ASR.TimeoutSec <= 0 {
		c.ASR.TimeoutSec = 60
	}

	c.TTS.URL = orDefault(c.TTS.URL, DashScopeTTSURL)
	c.TTS.Model = orDefault(c.TTS.Model, "qwen3-tts-flash")
	c.TTS.Voice = orDefault(c.TTS.Voice, "Cherry")
	c.TTS.Language = orDefault(c.TTS.Language, "Chinese")
	if c.TTS.SegmentRunes <= 0 {
		c.TTS.SegmentRunes = 500
	}
	if c.TTS.TimeoutSec <= 0 {
		c.TTS.TimeoutSec = 120
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Voice.Mode {
	case "local", "online":
	default:
		return fmt.Errorf("voice.mode must be \"local\" or \"online\", got %q", c.Voice.Mode)
	}
	switch c.VectorStore.Type {
	case "durable", "snapshot":
	default:
		return fmt.Errorf("vector_store.type must be \"durable\" or \"snapshot\", got %q", c.VectorStore.Type)
	}
	switch c.Embedding.Protocol {
	case "openai", "ollama":
	default:
		return fmt.Errorf("embedding.protocol must be \"openai\" or \"ollama\", got %q", c.Embedding.Protocol)
	}
	if t := c.RAG.Threshold(); t < -1 || t > 1 {
		return fmt.Errorf("rag.min_score must be between -1 and 1, got %v", t)
	}
	return nil
}

// OnlineKeySet reports whether the DashScope key is configured.
func (c *Config) OnlineKeySet() bool {
	return strings.TrimSpace(c.LLM.Online.APIKey) != ""
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
