package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fitsync/internal/domain/change"
)

var (
	pushAction      string
	pushPayload     string
	pushBaseVersion int64
	pushList        bool
)

var pushCmd = &cobra.Command{
	Use:   "push <domain> [entity-id]",
	Short: "Записать локальное изменение сущности",
	Long: `Записывает изменение сущности домена через запущенного агента.
С флагом --list показывает очередь домена.

Пример:
  fitsync push workout w-42 --action update --payload '{"reps":12}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctl := controlClient()
		domain := args[0]

		if pushList {
			changes, err := ctl.Changes(cmd.Context(), domain)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(changes)
			}
			header(fmt.Sprintf("Очередь %s (%d)", domain, len(changes)))
			for _, c := range changes {
				fmt.Printf("%s  %s  %s  v%d  %s\n",
					color.CyanString(c.ID), c.EntityID, c.Action, c.LocalVersion, formatTime(c.UpdatedAt))
			}
			return nil
		}

		if len(args) < 2 {
			return fmt.Errorf("нужен id сущности")
		}

		var payload json.RawMessage
		if pushPayload != "" {
			if !json.Valid([]byte(pushPayload)) {
				return fmt.Errorf("payload должен быть корректным JSON")
			}
			payload = json.RawMessage(pushPayload)
		}

		entry, err := ctl.AppendChange(cmd.Context(), domain, change.PendingChange{
			EntityID:    args[1],
			Action:      change.Action(pushAction),
			Payload:     payload,
			BaseVersion: pushBaseVersion,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(entry)
		}

		fmt.Printf("%s %s (%s, локальная версия %d)\n",
			color.GreenString("В очереди:"), entry.ID, entry.Action, entry.LocalVersion)
		return nil
	},
}

func init() {
	pushCmd.Flags().StringVar(&pushAction, "action", string(change.ActionUpdate), "create, update или delete")
	pushCmd.Flags().StringVar(&pushPayload, "payload", "", "новое состояние сущности в JSON")
	pushCmd.Flags().Int64Var(&pushBaseVersion, "base-version", 0, "серверная версия, от которой сделана правка")
	pushCmd.Flags().BoolVar(&pushList, "list", false, "показать очередь домена")
}
