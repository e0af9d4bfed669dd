package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/shaderlive"
	"github.com/gogpu/shaderlive/backend"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of shaderlive",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shaderlive version %s (backends: %s)\n",
				shaderlive.Version, strings.Join(backend.Available(), ", "))
		},
	}
}
