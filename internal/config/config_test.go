package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yaml != "" {
		path := filepath.Join(t.TempDir(), "dial-chat.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())
	}
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(newViper(t, ""))
	require.NoError(t, err)
	require.Equal(t, "dial", cfg.LLM.Type)
	require.Equal(t, "gpt-4o", cfg.LLM.Deployment)
	require.True(t, cfg.LLM.Stream)
	require.Zero(t, cfg.LLM.Timeout)
	require.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFrom(newViper(t, `
llm:
  url: https://dial.example.com
  deployment: gpt-35-turbo
  token: secret
  stream: false
  timeout: 45s
chat:
  system_prompt: Be terse.
log:
  level: debug
`))
	require.NoError(t, err)
	require.Equal(t, "https://dial.example.com", cfg.LLM.URL)
	require.Equal(t, "gpt-35-turbo", cfg.LLM.Deployment)
	require.Equal(t, "secret", cfg.LLM.Token)
	require.False(t, cfg.LLM.Stream)
	require.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	require.Equal(t, "Be terse.", cfg.Chat.SystemPrompt)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DIAL_CHAT_TEST_LLM_TOKEN", "from-env")
	v := newViper(t, "")
	v.SetEnvPrefix("DIAL_CHAT_TEST")
	v.SetEnvKeyReplacer(EnvKeyReplacer())
	v.AutomaticEnv()

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.LLM.Token)
}

func TestValidate(t *testing.T) {
	require.Error(t, Config{LLM: LLMConfig{Type: "gemini"}}.Validate())
	require.Error(t, Config{LLM: LLMConfig{Timeout: -time.Second}}.Validate())
	require.Error(t, Config{Log: LogConfig{Level: "loud"}}.Validate())
	require.NoError(t, Config{LLM: LLMConfig{Type: "openai"}, Log: LogConfig{Level: "ERROR"}}.Validate())
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("Debug")
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
	level, err = ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, level)
}
