package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Log       LogConfig
	OneBot    OneBotConfig `mapstructure:"onebot"`
	Portrayal PortrayalConfig
	LLM       LLMConfig
	Render    RenderConfig
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// OneBotConfig holds the OneBot gateway endpoints
type OneBotConfig struct {
	APIBase     string `mapstructure:"api_base"`
	WSURL       string `mapstructure:"ws_url"`
	AccessToken string `mapstructure:"access_token"`
}

// PortrayalConfig holds the portrayal command behaviour
type PortrayalConfig struct {
	Command              string `mapstructure:"command"`
	MaxMsgCount          int    `mapstructure:"max_msg_count"`
	PerMsgCount          int    `mapstructure:"per_msg_count"`
	MaxQueryRounds       int    `mapstructure:"max_query_rounds"`
	TimestampContexts    bool   `mapstructure:"timestamp_contexts"`
	SystemPromptTemplate string `mapstructure:"system_prompt_template"`
	LLMMaxRetries        int    `mapstructure:"llm_max_retries"`
	LLMRetryDelay        int    `mapstructure:"llm_retry_delay"`
}

// RetryDelay returns the configured inter-attempt delay as a duration.
func (c PortrayalConfig) RetryDelay() time.Duration {
	return time.Duration(c.LLMRetryDelay) * time.Second
}

// LLMConfig holds the LLM provider configuration
type LLMConfig struct {
	SpecificProviderID string           `mapstructure:"specific_provider_id"`
	Providers          []ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig holds one OpenAI-compatible provider entry
type ProviderConfig struct {
	ID      string `mapstructure:"id"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// RenderConfig holds the external HTML render service configuration
type RenderConfig struct {
	URL      string  `mapstructure:"url"`
	Width    int     `mapstructure:"width"`
	Height   int     `mapstructure:"height"`
	Scale    float64 `mapstructure:"scale"`
	FullPage bool    `mapstructure:"full_page"`
}

// DefaultSystemPromptTemplate is used when the config does not supply one.
// Placeholders are substituted from the resolved profile fields.
const DefaultSystemPromptTemplate = "你是一位犀利又不失温度的性格分析师。" +
	"请根据聊天记录分析群友「{nickname}」（性别：{gender}）的性格画像。" +
	"已知资料：{summary}。" +
	"输出使用 Markdown，包含性格关键词、说话风格、群内形象三个部分，言之有物，不要空话。"

// Load loads the configuration from the config.yaml file.
// A .env file, when present, is read first so ${VAR} references in the
// config resolve. CONFIG_PATH overrides the default search path.
func Load() (*Config, error) {
	_ = godotenv.Load()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetDefault("log.level", "info")
	viper.SetDefault("portrayal.command", "画像")
	viper.SetDefault("portrayal.max_msg_count", 500)
	viper.SetDefault("portrayal.per_msg_count", 200)
	viper.SetDefault("portrayal.max_query_rounds", 10)
	viper.SetDefault("portrayal.timestamp_contexts", false)
	viper.SetDefault("portrayal.system_prompt_template", DefaultSystemPromptTemplate)
	viper.SetDefault("portrayal.llm_max_retries", 3)
	viper.SetDefault("portrayal.llm_retry_delay", 2)
	viper.SetDefault("render.width", 800)
	viper.SetDefault("render.height", 600)
	viper.SetDefault("render.scale", 2.0)
	viper.SetDefault("render.full_page", true)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
