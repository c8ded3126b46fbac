package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var echoCmd = &cobra.Command{
	Use:     "echo",
	Aliases: []string{"e"},
	Short:   "Get the version of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		manager, err := newManager(ctx)
		if err != nil {
			return err
		}

		version, err := manager.Server().Echo()
		if err != nil {
			return err
		}

		printText(cmd, version)

		return nil
	},
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Shut down the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		manager, err := newManager(ctx)
		if err != nil {
			return err
		}

		out, err := manager.Server().Shutdown()
		if err != nil {
			return err
		}

		printText(cmd, out)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(echoCmd)
	rootCmd.AddCommand(shutdownCmd)
}
