package main

import (
	"os"

	flctlcmd "github.com/faultline/faultline-cli/pkg/flctl/cmd"
)

func main() {
	root := flctlcmd.NewRootCommand(flctlcmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
