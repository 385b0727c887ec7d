package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"yliproxy/internal/logging"
)

func newRootCommand(ctx *commandContext) *cobra.Command {
	var levelFlag string

	rootCmd := &cobra.Command{
		Use:           "yliproxy-convert",
		Short:         "Convert media links into playable MP4 artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if levelFlag == "" {
				return nil
			}
			level, ok := logging.ParseLevel(levelFlag)
			if !ok {
				return fmt.Errorf("unknown log level %q", levelFlag)
			}
			logging.SetLevel(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&levelFlag, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")

	rootCmd.AddCommand(newConvertCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))

	return rootCmd
}
