package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/highlight-clips/internal/config"
)

const version = "1.0.0"

func main() {
	root := &cobra.Command{
		Use:          "highlight-clips",
		Short:        "Turn long videos into short highlight clips",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("config", config.DefaultPath, "Path to the YAML config file")

	root.AddCommand(newServeCmd(), newDetectCmd(), newDriveAuthCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
