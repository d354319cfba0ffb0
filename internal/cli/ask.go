package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAskCmd создаёт команду отправки голосовой команды.
func NewAskCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var correlationID string

	cmd := &cobra.Command{
		Use:   "ask \"TEXT\"",
		Short: "Send a command and stream its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var failed bool
			err := client.StreamCommand(args[0], correlationID, func(ev ProgressEvent) error {
				out.Event(ev)
				if ev.Terminal && ev.Err != "" {
					failed = true
				}
				return nil
			})
			if err != nil {
				return err
			}
			if failed {
				return fmt.Errorf("command failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&correlationID, "correlation-id", "", "Correlation ID attached to the request")

	return cmd
}
