package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fitsync/internal/domain/sync"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Конфликты, ожидающие ручного решения",
	RunE: func(cmd *cobra.Command, _ []string) error {
		conflicts, err := controlClient().Conflicts(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(conflicts)
		}

		if len(conflicts) == 0 {
			fmt.Println(color.GreenString("Конфликтов нет"))
			return nil
		}

		header(fmt.Sprintf("Конфликты (%d)", len(conflicts)))
		for _, c := range conflicts {
			fmt.Printf("%s  %s/%s  %s\n",
				color.CyanString(c.Change.ID),
				c.Change.Domain,
				c.Change.EntityID,
				c.Change.Action,
			)
			fmt.Printf("    локальная версия: %d, серверная: %d, обнаружен: %s\n",
				c.Change.LocalVersion, c.ServerVersion, formatTime(c.DetectedAt))
			if c.Message != "" {
				fmt.Printf("    %s\n", c.Message)
			}
		}
		fmt.Println()
		fmt.Println("Решение: fitsync resolve <id> --choice local|server|discard")
		return nil
	},
}

var resolveChoice string

var resolveCmd = &cobra.Command{
	Use:   "resolve <change-id>",
	Short: "Разрешить конфликт вручную",
	Long: `Разрешает конфликт выбранным способом:
  local   - отправить локальную версию поверх серверной
  server  - принять серверную версию и убрать изменение
  discard - выбросить локальное изменение`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		choice := sync.Choice(strings.ToLower(resolveChoice))
		switch choice {
		case sync.ChoiceLocal, sync.ChoiceServer, sync.ChoiceDiscard:
		default:
			return fmt.Errorf("неизвестное решение %q, ожидается local, server или discard", resolveChoice)
		}

		if err := controlClient().ResolveConflict(cmd.Context(), args[0], choice); err != nil {
			return err
		}
		fmt.Println(color.GreenString("Конфликт %s разрешён (%s)", args[0], choice))
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveChoice, "choice", "", "local, server или discard")
	_ = resolveCmd.MarkFlagRequired("choice")
}
