package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var dismissID string

var failedCmd = &cobra.Command{
	Use:   "failed",
	Short: "Изменения, которые больше не повторяются",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctl := controlClient()

		if dismissID != "" {
			if err := ctl.DismissFailed(cmd.Context(), dismissID); err != nil {
				return err
			}
			fmt.Println(color.GreenString("Изменение %s убрано", dismissID))
			return nil
		}

		failed, err := ctl.Failed(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(failed)
		}

		if len(failed) == 0 {
			fmt.Println(color.GreenString("Неудачных изменений нет"))
			return nil
		}

		header(fmt.Sprintf("Неудачные изменения (%d)", len(failed)))
		for _, f := range failed {
			fmt.Printf("%s  %s/%s  %s  [%s, попыток: %d]\n",
				color.CyanString(f.Change.ID),
				f.Change.Domain,
				f.Change.EntityID,
				f.Change.Action,
				f.Kind,
				f.RetryCount,
			)
			fmt.Printf("    %s (%s)\n", color.RedString(f.Reason), formatTime(f.FailedAt))
		}
		return nil
	},
}

func init() {
	failedCmd.Flags().StringVar(&dismissID, "dismiss", "", "убрать изменение с указанным id")
}
