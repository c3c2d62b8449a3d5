package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Показать статус синхронизации",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := controlClient().Status(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(st)
		}

		header("Статус синхронизации")
		fmt.Printf("Сеть:                %s\n", yesNo(st.IsOnline, "online", "offline"))
		fmt.Printf("Идёт синхронизация:  %s\n", yesNo(st.IsSyncing, "да", "нет"))
		fmt.Printf("Последняя:           %s\n", formatTime(st.LastSyncAt))
		fmt.Printf("В очереди:           %d\n", st.PendingCount)
		fmt.Printf("Ожидают повтора:     %d\n", st.ScheduledCount)
		fmt.Printf("Неудачные:           %s\n", countColor(st.FailedCount, color.RedString))
		fmt.Printf("Конфликты:           %s\n", countColor(st.ConflictCount, color.YellowString))

		if st.LastError != "" {
			fmt.Printf("\n%s %s (%s)\n", color.RedString("Последняя ошибка:"), st.LastError, formatTime(st.LastErrorAt))
		}
		return nil
	},
}

func countColor(n int, paint func(string, ...interface{}) string) string {
	if n == 0 {
		return "0"
	}
	return paint("%d", n)
}
