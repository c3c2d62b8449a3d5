package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
	"golang.org/x/term"

	"fitsync/internal/app/client"
	"fitsync/internal/app/client/config"
	"fitsync/internal/utils/logger"
)

var (
	cfgFile    string
	cfg        *config.Config
	log        *slog.Logger
	debug      bool
	jsonOutput bool
	apiAddress string
)

var rootCmd = &cobra.Command{
	Use:   "fitsync",
	Short: "fitsync - агент офлайн-синхронизации фитнес-приложения",
	Long: `fitsync хранит локальные изменения доменов (тренировки, профиль,
платежи, сообщество) и отправляет их на сервер пакетами, когда есть сеть.

Команда run запускает агента, остальные команды обращаются
к управляющему API уже запущенного агента.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Ошибка:"), err)
		os.Exit(1)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	if apiAddress != "" {
		cfg.APIAddress = apiAddress
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log = logger.NewWithLevel(cfg.Env, level)

	color.NoColor = jsonOutput || !term.IsTerminal(int(os.Stdout.Fd()))
	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		viper.AddConfigPath(filepath.Join(home, ".fitsync"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return config.Load()
}

func controlClient() *client.ControlClient {
	return client.NewControlClient(cfg.APIAddress, log)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл (yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().StringVar(&apiAddress, "api", "", "адрес управляющего API агента")

	rootCmd.AddCommand(runCmd, statusCmd, syncCmd, conflictsCmd, resolveCmd, failedCmd, pushCmd)
}
