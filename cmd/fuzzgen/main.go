// Command fuzzgen reverse-generates sample text satisfying the pattern
// facets of a compiled XSD schema. It's a one-way mirror of validation:
// instead of checking that an instance value matches xs:pattern, it
// asks reggen to produce a value that does, which is useful for seeding
// instance documents or fuzz corpora for a schema under development.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/lucasjones/reggen"

	"github.com/agentflare-ai/go-xsd"
)

func main() {
	maxLen := flag.Int("max-len", 24, "maximum length of generated samples")
	count := flag.Int("count", 1, "number of samples to generate per pattern")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: fuzzgen [-max-len N] [-count N] <schema.xsd>")
		os.Exit(1)
	}

	schema, err := xsd.LoadSchema(flag.Arg(0))
	if err != nil {
		slog.Error("failed to load schema", "file", flag.Arg(0), "error", err)
		os.Exit(1)
	}

	patterns := collectPatterns(schema)
	if len(patterns) == 0 {
		fmt.Println("no xs:pattern facets found in schema")
		return
	}

	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, pattern := range patterns[name] {
			for i := 0; i < *count; i++ {
				sample, err := reggen.Generate(pattern, *maxLen)
				if err != nil {
					slog.Warn("pattern could not be reverse-generated", "type", name, "pattern", pattern, "error", err)
					continue
				}
				fmt.Printf("%s\t%s\t%s\n", name, pattern, sample)
			}
		}
	}
}

// collectPatterns walks every named type in schema and gathers the raw
// xs:pattern strings reachable from its facets, keyed by the type's
// QName string. A type can carry more than one pattern facet (WXS
// unions their regexes), so each entry is generated independently
// rather than merged into one expression reggen would have to parse.
func collectPatterns(schema *xsd.Schema) map[string][]string {
	out := make(map[string][]string)
	for qn, typ := range schema.TypeDefs {
		var facets []xsd.FacetValidator
		switch t := typ.(type) {
		case *xsd.SimpleType:
			if t.Restriction != nil {
				facets = t.Restriction.Facets
			}
		case *xsd.ComplexType:
			if sc, ok := t.Content.(*xsd.SimpleContent); ok {
				if sc.Restriction != nil {
					facets = sc.Restriction.Facets
				}
			}
		}
		for _, f := range facets {
			if pf, ok := f.(*xsd.PatternFacet); ok {
				out[qn.String()] = append(out[qn.String()], pf.Pattern)
			}
		}
	}
	return out
}
