package main

import (
	"fmt"
	"log"
	"os"

	"github.com/agentflare-ai/go-xmldom"
	"github.com/agentflare-ai/go-xsd"
)

// validate is the minimal, flag-free entry point to the validator: an
// XML instance and its schema in, a pass/fail exit code and rustc-style
// diagnostics on stdout out. cmd/xsdctl wraps the same pieces behind a
// cobra CLI with config-file and color support; this stays as the
// smallest thing that could work.
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: validate <xml-file> <xsd-file>")
		os.Exit(1)
	}

	xmlFile := os.Args[1]
	xsdFile := os.Args[2]

	// Read XML file
	xmlData, err := os.ReadFile(xmlFile)
	if err != nil {
		log.Fatalf("Failed to read XML file: %v", err)
	}

	// Parse XML document
	decoder := xmldom.NewDecoderFromBytes(xmlData)
	doc, err := decoder.Decode()
	if err != nil {
		log.Fatalf("Failed to parse XML: %v", err)
	}

	// Load XSD schema
	cache := xsd.NewSchemaCache("")
	schema, err := cache.Get(xsdFile)
	if err != nil {
		log.Fatalf("Failed to load XSD schema from %s: %v", xsdFile, err)
	}

	// Validate document
	validator := xsd.NewValidator(schema)
	violations := validator.Validate(doc)

	// Convert to diagnostics
	converter := xsd.NewDiagnosticConverter(xmlFile, string(xmlData))
	diagnostics := converter.Convert(violations)

	// Print results
	if len(diagnostics) == 0 {
		fmt.Printf("%s is valid\n", xmlFile)
		os.Exit(0)
	}

	// Format and print errors
	formatter := &xsd.ErrorFormatter{
		Color:           true,
		ShowFullElement: false,
		ContextLines:    2,
	}

	fmt.Printf("Found %d validation issues in %s:\n\n", len(diagnostics), xmlFile)
	for _, diag := range diagnostics {
		fmt.Print(formatter.Format(diag, string(xmlData)))
		fmt.Println()
	}

	os.Exit(1)
}
