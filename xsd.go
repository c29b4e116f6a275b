package xsd

import (
	"fmt"
	"io"
	"os"

	"github.com/agentflare-ai/go-xmldom"
)

// Option is a bitmask of behaviors that change how a ParserContext
// loads a schema or a ValidatorContext validates an instance, the way
// cache.go's SchemaCache is configured at construction time
// rather than per call.
type Option uint32

const (
	// OptCreateDefaultAttrs materializes xs:attribute default (or,
	// failing that, fixed) values into the instance DOM as validation
	// proceeds, per fixed_default.go's materializeDefaultAttribute.
	// Without it, a ValidatorContext still validates as though the
	// default applied, it just never writes it back into the document.
	OptCreateDefaultAttrs Option = 1 << iota
)

// ParserContext wraps schema loading with the option bits a caller
// configured up front, mirroring ValidatorContext's shape on the
// instance-validation side.
type ParserContext struct {
	opts Option
}

// NewParserContext creates a parser context governed by opts. opts
// currently has no effect on schema loading itself (every
// OptCreateDefaultAttrs-sensitive step happens during validation, not
// parsing) but is threaded through so a ValidatorContext built from
// this context's schema inherits the same bits by default.
func NewParserContext(opts Option) *ParserContext {
	return &ParserContext{opts: opts}
}

// ParseFile loads the schema document at path, resolving its
// xs:include/xs:import graph the way LoadSchemaWithImports does.
func (pc *ParserContext) ParseFile(path string) (*Schema, error) {
	return LoadSchemaWithImports(path)
}

// ParseString loads a schema from raw XSD source with no base
// directory to resolve relative includes/imports against; schemas that
// only reference already-cached or absolute locations work fine.
func (pc *ParserContext) ParseString(content string) (*Schema, error) {
	return LoadSchemaFromString(content, "")
}

// NewValidatorContext creates a ValidatorContext bound to schema,
// inheriting pc's option bits; pass nil to start from the zero Option.
func (pc *ParserContext) NewValidatorContext(schema *Schema) *ValidatorContext {
	opts := Option(0)
	if pc != nil {
		opts = pc.opts
	}
	return NewValidatorContext(schema, opts)
}

// ValidatorContext drives instance validation against one schema,
// carrying the option bits, an optional Locator for source positions,
// and an optional SAXPlug that mirrors every event the context's core
// processes. It is the same StreamValidator core that Validator and
// ValidateOneElement use, wrapped with the configuration knobs spec.md
// §6 exposes as a standalone contract for SAX-style callers.
type ValidatorContext struct {
	core *StreamValidator
}

// NewValidatorContext creates a validator context for schema governed
// by opts.
func NewValidatorContext(schema *Schema, opts Option) *ValidatorContext {
	core := NewStreamValidator(schema)
	core.opts = opts
	return &ValidatorContext{core: core}
}

// SetLocator installs loc as the source-position source every
// subsequent Violation the context records is stamped with. Passing
// nil clears it.
func (vc *ValidatorContext) SetLocator(loc Locator) {
	vc.core.locator = loc
}

// Plug attaches p so every StartElement/Text/EndElement call the
// context's core processes is mirrored to p first. Plug replaces any
// previously plugged handler; Unplug removes it.
func (vc *ValidatorContext) Plug(p SAXPlug) {
	vc.core.plug = p
}

// Unplug detaches the current SAXPlug, if any.
func (vc *ValidatorContext) Unplug() {
	vc.core.plug = nil
}

// StartElement, Text, and EndElement expose the context's underlying
// push-style core directly, for a caller driving events itself (a SAX
// parser, a streaming decoder) rather than handing over a whole
// xmldom.Document via ValidateStream.
func (vc *ValidatorContext) StartElement(elem xmldom.Element) { vc.core.StartElement(elem) }
func (vc *ValidatorContext) Text(data string)                 { vc.core.Text(data) }
func (vc *ValidatorContext) EndElement()                      { vc.core.EndElement() }

// Violations returns every violation accumulated so far by the
// context's core.
func (vc *ValidatorContext) Violations() []Violation { return vc.core.violations }

// ValidateFile opens path, decodes it as XML, and validates it against
// the context's schema in one call.
func (vc *ValidatorContext) ValidateFile(path string) ([]Violation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening instance document: %w", err)
	}
	defer f.Close()
	return vc.ValidateStream(f)
}

// ValidateStream decodes r as XML and validates the resulting document
// against the context's schema, running the same identity-constraint
// pass Validator.Validate does after the tree-walk completes.
func (vc *ValidatorContext) ValidateStream(r io.Reader) ([]Violation, error) {
	doc, err := xmldom.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding instance document: %w", err)
	}
	root := doc.DocumentElement()
	if root == nil {
		return []Violation{{Code: "xsd-no-root", Message: "Document has no root element"}}, nil
	}

	vc.core.reset()
	driveFromDOM(vc.core, root)
	violations := vc.core.violations

	idc := NewIdentityConstraintValidator(vc.core.schema)
	violations = append(violations, idc.Validate(root)...)
	return violations, nil
}
