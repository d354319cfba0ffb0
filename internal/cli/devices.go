package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewDevicesCmd создаёт группу команд для работы с реестром устройств.
func NewDevicesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Inspect the device registry",
	}

	cmd.AddCommand(
		newDevicesListCmd(clientFn, outputFn),
		newDevicesShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newDevicesListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var zone string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			devices, err := client.ListDevices(zone)
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "ZONE", "TYPE", "CAPABILITIES"}
			rows := make([][]string, len(devices))
			for i, d := range devices {
				rows[i] = []string{d.ID, d.Name, d.Zone, d.Type, strings.Join(d.Capabilities, ",")}
			}

			out.Print(headers, rows, devices)
			return nil
		},
	}

	cmd.Flags().StringVar(&zone, "zone", "", "Filter by zone")

	return cmd
}

func newDevicesShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show device details with known state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			device, err := client.GetDevice(args[0])
			if err != nil {
				return err
			}

			state := make([]string, 0, len(device.State))
			for k, v := range device.State {
				state = append(state, fmt.Sprintf("%s=%v", k, v))
			}

			out.Print(
				[]string{"ID", "NAME", "ZONE", "TYPE", "STATE"},
				[][]string{{device.ID, device.Name, device.Zone, device.Type, strings.Join(state, " ")}},
				device,
			)
			return nil
		},
	}
}
