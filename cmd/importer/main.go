package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/OrderImport/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCommand(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", cli.ErrorMessage(err))
		os.Exit(1)
	}
}
