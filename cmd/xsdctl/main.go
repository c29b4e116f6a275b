// Command xsdctl is the umbrella CLI for the schema processor: it
// folds instance validation (also built standalone as cmd/validate) and
// schema self-validation (also built standalone as cmd/test_schema) under one cobra command
// tree with a shared --config file and persistent flags.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	cfg := defaultConfig()
	var configPath string

	root := &cobra.Command{
		Use:           "xsdctl",
		Short:         "Validate XML instances and XSD schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			fromFlags, flags := *cfg, cmd.Flags()
			if err := loadConfigFile(cfg, configPath); err != nil {
				return err
			}
			if flags.Changed("base-path") {
				cfg.BasePath = fromFlags.BasePath
			}
			if flags.Changed("color") {
				cfg.Color = fromFlags.Color
			}
			if flags.Changed("context-lines") {
				cfg.ContextLines = fromFlags.ContextLines
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	cfg.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newValidateCmd(cfg))
	root.AddCommand(newParseCmd())
	root.AddCommand(newConformanceCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
