package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/phanxgames/gesture"
)

func newReplayCommand(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "replay SCRIPT",
		Short: "Replay a recorded touch script and print the recognized gestures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			script, err := gesture.LoadScript(data)
			if err != nil {
				return err
			}
			eng, err := c.newEngine(gesture.WithBackend("replay"))
			if err != nil {
				return err
			}
			defer eng.Close()

			p := newPrinter(cmd.OutOrStdout(), asJSON)
			eng.RegisterEventCallback(p.event)
			if err := script.Run(eng); err != nil {
				return err
			}
			drain(eng)
			p.summary()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print events as JSON lines")
	return cmd
}
