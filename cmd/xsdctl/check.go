package main

import (
	"fmt"
	"os"

	"github.com/agentflare-ai/go-xmldom"
	"github.com/spf13/cobra"

	"github.com/agentflare-ai/go-xsd"
)

// newParseCmd builds the "xsdctl parse" subcommand: run the schema-for-
// schemas (S4S) validator over an XSD document itself, catching
// malformed schemas before they're ever loaded against an instance.
func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <schema.xsd>",
		Short: "Parse and validate an XSD document against the schema-for-schemas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(args[0])
		},
	}
}

func runParse(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	doc, err := xmldom.Decode(file)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	sv := xsd.NewSchemaValidator()
	errs := sv.ValidateSchema(doc)

	if len(errs) == 0 {
		fmt.Printf("%s is a well-formed schema\n", path)
		return nil
	}

	fmt.Printf("%s has %d schema-level error(s):\n", path, len(errs))
	for i, e := range errs {
		fmt.Printf("%d. %v\n", i+1, e)
	}
	return fmt.Errorf("schema check failed")
}
