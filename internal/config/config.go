package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config アプリケーション全体の設定
type Config struct {
	Log          LogConfig          `yaml:"log"`
	Correction   CorrectionConfig   `yaml:"correction"`
	Anthropic    AnthropicConfig    `yaml:"anthropic"`
	OpenAI       OpenAIConfig       `yaml:"openai"`
	HuggingFace  HuggingFaceConfig  `yaml:"huggingface"`
	LanguageTool LanguageToolConfig `yaml:"languagetool"`
	Redis        RedisConfig        `yaml:"redis"`
	MySQL        MySQLConfig        `yaml:"mysql"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// LogConfig ログ出力の設定
type LogConfig struct {
	Level string `yaml:"level"`
}

// CorrectionConfig 補正パイプラインの設定
type CorrectionConfig struct {
	MaxTextLength    int    `yaml:"max_text_length"`
	PreferredBackend string `yaml:"preferred_backend"`
	FallbackEnabled  bool   `yaml:"fallback_enabled"`
	DefaultLanguage  string `yaml:"default_language"`
}

// AnthropicConfig Anthropic APIの設定
type AnthropicConfig struct {
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// OpenAIConfig OpenAI互換APIの設定
type OpenAIConfig struct {
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// HuggingFaceConfig Hugging Face Inference APIの設定
type HuggingFaceConfig struct {
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	Endpoint      string        `yaml:"endpoint"`
	Timeout       time.Duration `yaml:"timeout"`
	WarmupRetries int           `yaml:"warmup_retries"`
	WarmupBackoff time.Duration `yaml:"warmup_backoff"`
}

// LanguageToolConfig LanguageTool APIの設定
type LanguageToolConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Endpoint string        `yaml:"endpoint"`
	Username string        `yaml:"username"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RedisConfig Redisの設定
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// MySQLConfig MySQLの設定
type MySQLConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// MetricsConfig メトリクスの設定
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultPath 設定ファイルのパス。CONFIG_PATHが優先
//
// ホームディレクトリが取れない場合はカレントディレクトリ配下を使う。
func DefaultPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".grammar-api-app", "config.yaml")
}

// Load 設定ファイルを読み込む
func Load(configPath string) (*Config, error) {
	// 設定ファイルが存在しない場合はデフォルト設定を返す
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 環境変数の展開
	dataStr := os.ExpandEnv(string(data))

	// ファイルに書かれていない項目はデフォルト値を引き継ぐ
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(dataStr), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig デフォルト設定を返す
func DefaultConfig() *Config {
	// Redis/MySQLのホストはテスト環境では localhost を使用
	redisHost := "redis"
	mysqlHost := "mysql"
	if os.Getenv("GO_ENV") == "test" {
		redisHost = "localhost"
		mysqlHost = "localhost"
	}

	return &Config{
		Log: LogConfig{
			Level: envOr("LOG_LEVEL", "info"),
		},
		Correction: CorrectionConfig{
			MaxTextLength:    envInt("MAX_TEXT_LENGTH", 15000),
			PreferredBackend: os.Getenv("PREFERRED_BACKEND"),
			FallbackEnabled:  envBool("FALLBACK_ENABLED", true),
			DefaultLanguage:  "en-US",
		},
		Anthropic: AnthropicConfig{
			APIKey:    os.Getenv("ANTHROPIC_API_KEY"),
			Model:     "claude-haiku-4-5-20251001",
			MaxTokens: 4096,
			Timeout:   60 * time.Second,
		},
		OpenAI: OpenAIConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			Model:     "gpt-4o-mini",
			BaseURL:   os.Getenv("OPENAI_BASE_URL"),
			MaxTokens: 4096,
			Timeout:   60 * time.Second,
		},
		HuggingFace: HuggingFaceConfig{
			APIKey:        os.Getenv("HUGGINGFACE_API_KEY"),
			Model:         "vennify/t5-base-grammar-correction",
			Endpoint:      "https://api-inference.huggingface.co/models/",
			Timeout:       45 * time.Second,
			WarmupRetries: 1,
			WarmupBackoff: 20 * time.Second,
		},
		LanguageTool: LanguageToolConfig{
			Enabled:  envBool("LANGUAGETOOL_ENABLED", true),
			Endpoint: "https://api.languagetool.org/v2/check",
			Username: os.Getenv("LANGUAGETOOL_USERNAME"),
			APIKey:   os.Getenv("LANGUAGETOOL_API_KEY"),
			Timeout:  30 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:  envBool("REDIS_ENABLED", false),
			Host:     redisHost,
			Port:     6379,
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		MySQL: MySQLConfig{
			Enabled:  envBool("MYSQL_ENABLED", false),
			Host:     mysqlHost,
			Port:     3306,
			User:     "root",
			Password: os.Getenv("MYSQL_ROOT_PASSWORD"),
			Database: "grammar",
		},
		Metrics: MetricsConfig{
			Enabled: envBool("METRICS_ENABLED", true),
		},
	}
}

// Validate 設定値の整合性を確認する
func (c *Config) Validate() error {
	if c.Correction.MaxTextLength <= 0 {
		return fmt.Errorf("correction.max_text_length must be positive, got %d", c.Correction.MaxTextLength)
	}
	if c.HuggingFace.WarmupRetries < 0 {
		return fmt.Errorf("huggingface.warmup_retries must not be negative, got %d", c.HuggingFace.WarmupRetries)
	}
	return nil
}

// Save 設定をファイルに保存する
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
