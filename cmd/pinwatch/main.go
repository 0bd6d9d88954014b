// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// pinwatch watches sysfs GPIO value files through the pin reactor and logs
// every edge.
package main

import (
	"context"

	"github.com/momentics/pinselect/internal/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		logrus.Fatal(err)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pinwatch",
		Short:         "Watch GPIO lines for edges",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringP("config", "c", "pinwatch.yaml", "watch configuration file")
	root.AddCommand(newWatchCommand(), newCheckCommand())
	return root
}
