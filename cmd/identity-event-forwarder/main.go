package main

import (
	"os"

	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {

	var listenAddr string
	var fromBeginning bool

	// rootCmd represents the base command when called without any subcommands
	var rootCmd = &cobra.Command{
		Use: "identity-event-forwarder",
	}

	var forwarderCmd = &cobra.Command{
		Use:   "forwarder",
		Short: "Receive identity server events and forward them to the broker",
		Run: func(cmd *cobra.Command, args []string) {
			startForwarder(listenAddr)
		},
	}

	var tailCmd = &cobra.Command{
		Use:   "tail",
		Short: "Print the identity events published to the kafka topic",
		Run: func(cmd *cobra.Command, args []string) {
			startTail(fromBeginning)
		},
	}

	rootCmd.AddCommand(forwarderCmd)
	forwarderCmd.Flags().StringVarP(&listenAddr, "listen-addr", "l", ":8081", "Hostname:port")

	rootCmd.AddCommand(tailCmd)
	tailCmd.Flags().BoolVarP(&fromBeginning, "from-beginning", "b", false, "Start from the oldest retained event")

	return rootCmd
}

func main() {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
