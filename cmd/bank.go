package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/itembank"
	"github.com/abhisek/tierloop/internal/logger"
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Inspect item banks",
}

var bankCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Load a bank and print per-lesson counts and dropped items",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("bank")
		if len(args) == 1 {
			path = args[0]
		}
		log, err := logger.New("dev", "warn")
		if err != nil {
			return err
		}
		defer log.Sync()

		b, err := itembank.Load(path, log)
		if err != nil {
			return err
		}
		stats := b.Stats()
		fmt.Printf("Files: %d  Lessons: %d  Questions: %d  Dropped: %d\n\n",
			stats.Files, stats.Lessons, stats.Questions, stats.DroppedTotal())

		fmt.Printf("%-24s", "Lesson")
		for _, t := range curriculum.AllTiers() {
			fmt.Printf("  %13s", t.DisplayName())
		}
		fmt.Println()
		short := false
		for _, l := range b.Lessons() {
			fmt.Printf("%-24s", l.ID)
			for _, t := range curriculum.AllTiers() {
				n := b.Count(l.ID, t)
				mark := " "
				if n == 0 {
					mark, short = "!", true
				}
				fmt.Printf("  %12d%s", n, mark)
			}
			fmt.Println()
		}

		if len(stats.Dropped) > 0 {
			fmt.Println("\nDropped:")
			for _, reason := range stats.DropReasons() {
				fmt.Printf("  %-32s %d\n", reason, stats.Dropped[reason])
			}
		}
		if short {
			fmt.Println("\n! empty cells fall back to generated or placeholder content")
		}
		return nil
	},
}

func init() {
	bankCmd.AddCommand(bankCheckCmd)
}
