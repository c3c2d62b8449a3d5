package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"fitsync/internal/app/client"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Запустить агента синхронизации",
	Long: `Запускает агента: монитор сети, периодическую синхронизацию
и управляющее API. Останавливается по SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := client.New(cmd.Context(), cfg, log)
		if err != nil {
			return fmt.Errorf("ошибка инициализации агента: %w", err)
		}
		defer app.Close()

		return app.Run(cmd.Context())
	},
}
