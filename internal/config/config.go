package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	LLM  LLMConfig  `mapstructure:"llm"`
	Chat ChatConfig `mapstructure:"chat"`
	Log  LogConfig  `mapstructure:"log"`
}

type LLMConfig struct {
	URL        string        `mapstructure:"url"`
	Deployment string        `mapstructure:"deployment"`
	Token      string        `mapstructure:"token"`
	Type       string        `mapstructure:"type"`
	Stream     bool          `mapstructure:"stream"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type ChatConfig struct {
	SystemPrompt string `mapstructure:"system_prompt"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SetDefaults registers every key so that environment variables are seen by
// Unmarshal even when no config file sets them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.url", "")
	v.SetDefault("llm.deployment", "gpt-4o")
	v.SetDefault("llm.token", "")
	v.SetDefault("llm.type", "dial")
	v.SetDefault("llm.stream", true)
	v.SetDefault("llm.timeout", time.Duration(0))
	v.SetDefault("chat.system_prompt", "")
	v.SetDefault("log.level", "warn")
}

func Load() (Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.LLM.Type {
	case "", "dial", "openai":
	default:
		return fmt.Errorf("invalid llm.type: %s", c.LLM.Type)
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("invalid llm.timeout: %s", c.LLM.Timeout)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log.level: %s", level)
	}
}

// EnvKeyReplacer maps nested keys such as llm.token to LLM_TOKEN.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}
