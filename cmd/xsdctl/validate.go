package main

import (
	"fmt"
	"os"

	"github.com/agentflare-ai/go-xmldom"
	"github.com/spf13/cobra"

	"github.com/agentflare-ai/go-xsd"
)

// newValidateCmd builds the "xsdctl validate" subcommand: validate an
// XML instance document against an XSD schema and print diagnostics in
// the same cvc-* style cmd/validate did.
func newValidateCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <instance.xml> <schema.xsd>",
		Short: "Validate an XML document against an XSD schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cfg, args[0], args[1])
		},
	}
	return cmd
}

func runValidate(cfg *Config, xmlFile, xsdFile string) error {
	xmlData, err := os.ReadFile(xmlFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", xmlFile, err)
	}

	doc, err := xmldom.NewDecoderFromBytes(xmlData).Decode()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", xmlFile, err)
	}

	cache := xsd.NewSchemaCache(cfg.BasePath)
	schema, err := cache.Get(xsdFile)
	if err != nil {
		return fmt.Errorf("loading schema %s: %w", xsdFile, err)
	}

	validator := xsd.NewValidator(schema)
	violations := validator.Validate(doc)

	converter := xsd.NewDiagnosticConverter(xmlFile, string(xmlData))
	diagnostics := converter.Convert(violations)

	if len(diagnostics) == 0 {
		fmt.Printf("%s is valid\n", xmlFile)
		return nil
	}

	formatter := &xsd.ErrorFormatter{
		Color:           cfg.Color,
		ShowFullElement: false,
		ContextLines:    cfg.ContextLines,
	}

	fmt.Printf("%d validation issue(s) in %s:\n\n", len(diagnostics), xmlFile)
	for _, diag := range diagnostics {
		fmt.Print(formatter.Format(diag, string(xmlData)))
		fmt.Println()
	}
	return fmt.Errorf("validation failed")
}
