package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codename-co/devs-sub002/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("devs version %s\n", version.Get())
	},
}
