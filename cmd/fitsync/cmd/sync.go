package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fitsync/internal/app/client"
	"fitsync/internal/domain/sync"
)

var syncOnce bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Принудительная синхронизация",
	Long: `Просит запущенного агента выполнить цикл синхронизации немедленно.
С флагом --once цикл выполняется в текущем процессе без агента.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if syncOnce {
			return runOnce(cmd)
		}

		result, err := controlClient().ForceSync(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]sync.ForceResult{"result": result})
		}

		switch result {
		case sync.ForceStarted:
			fmt.Println(color.GreenString("Синхронизация запущена"))
		case sync.ForceAlreadyInProgress:
			fmt.Println(color.YellowString("Синхронизация уже идёт"))
		}
		return nil
	},
}

func runOnce(cmd *cobra.Command) error {
	app, err := client.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации агента: %w", err)
	}
	defer app.Close()

	start := time.Now()
	report := app.SyncOnce(cmd.Context())

	if jsonOutput {
		errs := make([]string, 0, len(report.Errors))
		for _, e := range report.Errors {
			errs = append(errs, e.Error())
		}
		return printJSON(struct {
			Outcome   sync.CycleOutcome `json:"outcome"`
			Sent      int               `json:"sent"`
			Synced    int               `json:"synced"`
			Conflicts int               `json:"conflicts"`
			Retried   int               `json:"retried"`
			Failed    int               `json:"failed"`
			Errors    []string          `json:"errors"`
		}{report.Outcome, report.Sent, report.Synced, report.Conflicts, report.Retried, report.Failed, errs})
	}

	header("Синхронизация")
	fmt.Printf("Итог:           %s\n", report.Outcome)
	fmt.Printf("Отправлено:     %d\n", report.Sent)
	fmt.Printf("Подтверждено:   %d\n", report.Synced)
	fmt.Printf("Конфликты:      %d\n", report.Conflicts)
	fmt.Printf("На повтор:      %d\n", report.Retried)
	fmt.Printf("Неудачные:      %d\n", report.Failed)
	fmt.Printf("Время:          %v\n", time.Since(start).Round(time.Millisecond))

	for i, e := range report.Errors {
		if i == 3 {
			fmt.Printf("  ... и ещё %d ошибок\n", len(report.Errors)-3)
			break
		}
		fmt.Printf("  • %s\n", color.RedString(e.Error()))
	}
	return nil
}

func init() {
	syncCmd.Flags().BoolVar(&syncOnce, "once", false, "выполнить один цикл в этом процессе")
}
