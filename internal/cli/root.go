package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"dial-chat/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "DIAL_CHAT"

type Options struct {
	Config  string
	EnvFile string
}

func NewRootCmd() *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:          "dial-chat",
		Short:        "dial-chat - console client for chat-completion deployments",
		SilenceUsage: true,
	}

	cobra.OnInitialize(func() {
		initConfig(opts.Config, opts.EnvFile)
	})

	root.PersistentFlags().StringVar(
		&opts.Config,
		"config",
		"",
		"config file (default: ./dial-chat.yaml)",
	)
	root.PersistentFlags().StringVar(
		&opts.EnvFile,
		"env-file",
		".env",
		"dotenv file loaded before reading the environment",
	)
	_ = viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))

	root.AddCommand(newChatCmd())
	root.AddCommand(newAskCmd())
	root.AddCommand(newPingCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func initConfig(configFile, envFile string) {
	if err := loadEnvFile(envFile); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
	}

	config.SetDefaults(viper.GetViper())
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("dial-chat")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/dial-chat")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer())
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return
		}
		fmt.Fprintln(os.Stderr, err.Error())
	}
}

// loadEnvFile never overrides variables already set in the environment.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
