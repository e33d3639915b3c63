package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ringio",
		Short: "Demos for the ringio async I/O runtime",
		Long: `ringio exercises the io_uring-backed runtime end to end:
a TCP echo server and client, a UDP echo pair, and a timer demo.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newEchoServerCommand(),
		newEchoClientCommand(),
		newUDPEchoCommand(),
		newDelayCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
