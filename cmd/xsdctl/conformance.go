package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// newConformanceCmd builds the "xsdctl conformance" subcommand. The W3C
// test-suite runner (download, msMeta parsing, failure analysis) is
// substantial enough to stay its own program at cmd/w3c_test; this
// subcommand is the umbrella entry point cobra.Command promises,
// delegating to that binary rather than duplicating its suite-download
// and report logic inline.
func newConformanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "conformance -- [w3c_test flags]",
		Short:              "Run the W3C XSD test suite (delegates to w3c_test)",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConformance(args)
		},
	}
}

func runConformance(args []string) error {
	bin, err := exec.LookPath("w3c_test")
	if err != nil {
		return fmt.Errorf("w3c_test not found on PATH: build it with `go build ./cmd/w3c_test` first: %w", err)
	}
	c := exec.Command(bin, args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Stdin = os.Stdin
	return c.Run()
}
