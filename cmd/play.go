package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/tierloop/internal/app"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a session in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd, setupOptions{logToFile: true})
		if err != nil {
			return err
		}
		defer rt.Close()
		return app.Run(cmd.Context(), rt.service)
	},
}
