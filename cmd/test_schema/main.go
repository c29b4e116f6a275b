// Command test_schema runs a schema document through S4S (the
// XML Schema for Schemas) rather than validating an instance against
// it — it checks that the .xsd itself is well-formed WXS, which is
// the check cmd/xsdctl's "parse" subcommand also exposes.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/agentflare-ai/go-xmldom"
	"github.com/agentflare-ai/go-xsd"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: test_schema <schema.xsd>")
		os.Exit(1)
	}

	filename := os.Args[1]

	file, err := os.Open(filename)
	if err != nil {
		log.Fatalf("failed to open %s: %v", filename, err)
	}
	defer file.Close()

	doc, err := xmldom.Decode(file)
	if err != nil {
		log.Fatalf("failed to parse %s: %v", filename, err)
	}

	sv := xsd.NewSchemaValidator()
	errs := sv.ValidateSchema(doc)

	if len(errs) == 0 {
		fmt.Printf("%s is a valid XML Schema document\n", filename)
		return
	}

	fmt.Printf("%s has %d schema-level errors:\n", filename, len(errs))
	for i, e := range errs {
		fmt.Printf("%d. %v\n", i+1, e)
	}
	os.Exit(1)
}
