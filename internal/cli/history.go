package cli

import (
	"github.com/spf13/cobra"
)

// NewHistoryCmd создаёт группу команд для истории запросов.
func NewHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect request history",
	}

	cmd.AddCommand(
		newHistoryListCmd(clientFn, outputFn),
		newHistoryShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newHistoryListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			requests, err := client.ListRequests(limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATUS", "TEXT", "RESPONSE", "CREATED"}
			rows := make([][]string, len(requests))
			for i, r := range requests {
				rows[i] = []string{r.ID, r.Status, r.Text, r.Response, r.CreatedAt}
			}

			out.Print(headers, rows, requests)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newHistoryShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show request details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			request, err := client.GetRequest(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "STATUS", "TEXT", "RESPONSE", "ERROR", "CREATED"},
				[][]string{{request.ID, request.Status, request.Text, request.Response, request.Error, request.CreatedAt}},
				request,
			)
			return nil
		},
	}
}
