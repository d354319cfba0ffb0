// Hearth CLI — инструмент командной строки для отправки команд
// и просмотра устройств и истории через HTTP API шлюза.
//
// Использование:
//
//	hearth [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	ask       Отправка команды со стримингом событий
//	devices   Просмотр реестра устройств
//	history   Просмотр истории запросов
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/korsky/hearth/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "hearth",
		Short:         "Hearth CLI — voice-driven home hub client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "Gateway API URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewAskCmd(clientFn, outputFn),
		cli.NewDevicesCmd(clientFn, outputFn),
		cli.NewHistoryCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
