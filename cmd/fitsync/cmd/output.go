package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return color.HiBlackString("никогда")
	}
	return t.Local().Format(timeLayout)
}

func yesNo(ok bool, yes, no string) string {
	if ok {
		return color.GreenString(yes)
	}
	return color.YellowString(no)
}

func header(title string) {
	fmt.Println(color.New(color.Bold).Sprintf("=== %s ===", title))
}
