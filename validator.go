package xsd

import (
	"fmt"
	"strings"

	"github.com/agentflare-ai/go-xmldom"

	"github.com/agentflare-ai/go-xsd/internal/arena"
	"github.com/agentflare-ai/go-xsd/internal/automaton"
)

// Validator validates XML documents against XSD schemas. It drives the
// streaming core (start/text/end) from an in-memory xmldom.Document via
// driveFromDOM; SAX callers that never materialize a DOM at all drive
// the same StreamValidator core directly, through xsd.go's
// ValidatorContext and the SAXPlug/Locator hooks in sax.go.
type Validator struct {
	schema *Schema
	core   *StreamValidator
}

// NewValidator creates a new validator for a schema.
func NewValidator(schema *Schema) *Validator {
	return &Validator{schema: schema, core: NewStreamValidator(schema)}
}

// Validate validates an XML document against the schema.
func (v *Validator) Validate(doc xmldom.Document) []Violation {
	if doc == nil {
		return []Violation{{Code: "xsd-null-document", Message: "Document is null"}}
	}
	root := doc.DocumentElement()
	if root == nil {
		return []Violation{{Code: "xsd-no-root", Message: "Document has no root element"}}
	}

	v.core.reset()
	driveFromDOM(v.core, root)
	violations := v.core.violations

	idc := NewIdentityConstraintValidator(v.schema)
	violations = append(violations, idc.Validate(root)...)

	return violations
}

// ValidateOneElement validates elem as though it were the root of its
// own document against schema: it looks up a global element declaration
// for elem's qname and drives the same start/text/end core over just
// that subtree. This is how a wildcard's processContents="strict"/"lax"
// (wildcards.go) and cross-namespace import validation (cache.go's
// SchemaRegistry) assess a single element against a declaration without
// re-entering the parent document's own content-model run.
func ValidateOneElement(elem xmldom.Element, schema *Schema) []Violation {
	if elem == nil || schema == nil {
		return nil
	}
	core := NewStreamValidator(schema)
	core.reset()
	driveFromDOM(core, elem)
	return core.violations
}

// frame is one open element's validation state on the StreamValidator's
// stack: which type it was assigned, the content automaton run tracking
// its children, and accumulated text for simple/mixed content checks.
type frame struct {
	elem     xmldom.Element
	decl     *ElementDecl
	typ      Type
	exec     *automaton.Exec
	ca       *contentAutomaton
	text     strings.Builder
	sawChild bool
}

// StreamValidator is the push-style validation core: start_element,
// text, and end_element calls drive it one SAX event at a time, with no
// requirement that the whole document ever exist as a single tree (SAX
// callers never build one; driveFromDOM just happens to replay a tree
// through the same three calls for callers that already have a DOM).
type StreamValidator struct {
	schema     *Schema
	stack      []*frame
	violations []Violation
	ids        map[string]xmldom.Element
	idrefs     map[string][]xmldom.Element
	frames     *arena.Pool[frame] // per-validator frame freelist; reset() clears it between documents

	opts    Option  // behavior bits set by a ValidatorContext (xsd.go), zero value for direct StreamValidator use
	locator Locator // source-position hook installed via ValidatorContext.SetLocator; nil unless a SAX caller plugs one in
	plug    SAXPlug // optional second handler that mirrors every start/text/end event (sax.go)
}

// NewStreamValidator builds a streaming validator bound to schema. The
// frame pool is owned by this validator alone (spec.md §5: "the
// validator's own caches... are owned by that validator").
func NewStreamValidator(schema *Schema) *StreamValidator {
	sv := &StreamValidator{schema: schema}
	sv.frames = arena.NewPool(func() *frame { return &frame{} }, resetFrame)
	return sv
}

func resetFrame(f *frame) {
	f.elem, f.decl, f.typ, f.exec, f.ca, f.sawChild = nil, nil, nil, nil, nil, false
	f.text.Reset()
}

func (sv *StreamValidator) reset() {
	for _, f := range sv.stack {
		sv.frames.Put(f)
	}
	sv.stack = nil
	sv.violations = nil
	sv.ids = make(map[string]xmldom.Element)
	sv.idrefs = make(map[string][]xmldom.Element)
}

func (sv *StreamValidator) addViolation(elem xmldom.Element, attr, code, message string, expected []string, actual string) {
	v := Violation{
		Element: elem, Attribute: attr, Code: code, Message: message, Expected: expected, Actual: actual,
	}
	if sv.locator != nil {
		v.Line, v.Column = sv.locator.Line(), sv.locator.Column()
	}
	sv.violations = append(sv.violations, v)
}

// StartElement pushes a new frame for elem, resolving its declaration
// (or, for a child of an already-open element, its expected type from
// the parent's content automaton) and validating its attributes.
func (sv *StreamValidator) StartElement(elem xmldom.Element) {
	if sv.plug != nil {
		sv.plug.StartElement(elem)
	}
	qn := sv.schema.qn(string(elem.NamespaceURI()), string(elem.LocalName()))

	var decl *ElementDecl
	var typ Type

	if len(sv.stack) == 0 {
		sv.schema.mu.RLock()
		decl = sv.schema.ElementDecls[qn]
		sv.schema.mu.RUnlock()
		if decl == nil {
			sv.addViolation(elem, "", "cvc-elt.1", fmt.Sprintf("Element '%s' is not declared", qn), nil, qn.String())
		} else {
			typ = decl.Type
		}
	} else {
		parent := sv.stack[len(sv.stack)-1]
		parent.sawChild = true
		decl, typ = sv.expectChild(parent, elem, qn)
	}

	f := sv.frames.Get()
	f.elem, f.decl, f.typ = elem, decl, typ
	if ct, ok := typ.(*ComplexType); ok && ct.compiled != nil && ct.compiled.a != nil {
		f.ca = ct.compiled
		f.exec = ct.compiled.a.NewExec()
	} else if ct, ok := typ.(*ComplexType); ok {
		f.ca = ct.compiled
	}
	sv.validateAttributes(elem, typ)
	sv.collectIDsAndRefs(elem, typ)
	sv.stack = append(sv.stack, f)
}

// expectChild finds the expected declaration/type for a child element
// of an already-open parent, pushing a wildcard/UPA-violation diagnostic
// if the content automaton rejects the token.
func (sv *StreamValidator) expectChild(parent *frame, elem xmldom.Element, qn QName) (*ElementDecl, Type) {
	sv.schema.mu.RLock()
	decl := sv.schema.ElementDecls[qn]
	sv.schema.mu.RUnlock()

	if parent.exec == nil {
		if parent.ca != nil && parent.ca.allowAny {
			return decl, declType(decl)
		}
		if parent.ca != nil && parent.ca.elementOnly {
			sv.addViolation(elem, "", "cvc-complex-type.2.3",
				fmt.Sprintf("Element '%s' has simple content and cannot have child element '%s'", parent.elem.LocalName(), qn), nil, qn.String())
		}
		return decl, declType(decl)
	}

	tok := automaton.Token{Namespace: qn.Namespace, Local: qn.Local}
	result := parent.exec.PushToken(tok)
	if !result.OK {
		expected := tokenNames(result.ExpectedNext)
		sv.addViolation(elem, "", "cvc-complex-type.2.4",
			fmt.Sprintf("Element '%s' is not allowed here", qn), expected, qn.String())
		return decl, declType(decl)
	}
	if payloadDecl, ok := result.Payload.(*ElementDecl); ok {
		return payloadDecl, payloadDecl.Type
	}
	if wildcard, ok := result.Payload.(*AnyElement); ok {
		_ = wildcard
		return decl, declType(decl)
	}
	return decl, declType(decl)
}

func declType(decl *ElementDecl) Type {
	if decl == nil {
		return nil
	}
	return decl.Type
}

func tokenNames(toks []automaton.Token) []string {
	out := make([]string, 0, len(toks))
	seen := make(map[string]bool)
	for _, t := range toks {
		n := QName{Namespace: t.Namespace, Local: t.Local}.String()
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// Text accumulates character data for the currently open element.
func (sv *StreamValidator) Text(data string) {
	if sv.plug != nil {
		sv.plug.Characters(data)
	}
	if len(sv.stack) == 0 {
		return
	}
	sv.stack[len(sv.stack)-1].text.WriteString(data)
}

// EndElement pops the current frame, checking its content automaton
// reached an accepting state and, for simple/mixed content, validating
// the accumulated text against the type's simple-type facets.
func (sv *StreamValidator) EndElement() {
	if sv.plug != nil {
		sv.plug.EndElement()
	}
	if len(sv.stack) == 0 {
		return
	}
	f := sv.stack[len(sv.stack)-1]
	sv.stack = sv.stack[:len(sv.stack)-1]

	if f.exec != nil {
		if ok, expected := f.exec.EndOfSequence(); !ok {
			sv.addViolation(f.elem, "", "cvc-complex-type.2.4",
				fmt.Sprintf("Element '%s' is missing required child content", f.elem.LocalName()), tokenNames(expected), "")
		}
	}

	sv.validateText(f)

	if f.decl != nil {
		violations := ValidateElementFixedDefault(f.elem, f.decl)
		sv.violations = append(sv.violations, violations...)
	}

	sv.frames.Put(f)
}

// validateText checks text content rules: a ComplexType with
// SimpleContent or a SimpleType both validate the accumulated text
// against the type's facets/union/list; a ComplexType with an
// element-only content model rejects stray non-whitespace text
// (mixed="true" content models allow it through unchecked, per WXS,
// since mixed content text carries no type constraint).
func (sv *StreamValidator) validateText(f *frame) {
	text := strings.TrimSpace(f.text.String())

	switch t := f.typ.(type) {
	case *SimpleType:
		if err := validateSimpleTypeValue(text, t, sv.schema); err != nil {
			sv.addViolation(f.elem, "", "cvc-datatype-valid.1.2.1", err.Error(), nil, text)
		}
	case *ComplexType:
		if sc, ok := t.Content.(*SimpleContent); ok {
			sv.validateSimpleContentText(f.elem, sc, text)
			return
		}
		if f.ca != nil && !f.ca.mixed && !f.ca.allowAny && text != "" {
			sv.addViolation(f.elem, "", "cvc-complex-type.2.3",
				fmt.Sprintf("Element '%s' cannot have text content (mixed=false)", f.elem.LocalName()), nil, text)
		}
	}
}

func (sv *StreamValidator) validateSimpleContentText(elem xmldom.Element, sc *SimpleContent, text string) {
	var base Type
	switch {
	case sc.Extension != nil:
		base = sv.schema.TypeDefs[sc.Extension.Base]
	case sc.Restriction != nil:
		base = sv.schema.TypeDefs[sc.Restriction.Base]
	}
	if st, ok := base.(*SimpleType); ok {
		if err := validateSimpleTypeValue(text, st, sv.schema); err != nil {
			sv.addViolation(elem, "", "cvc-datatype-valid.1", err.Error(), nil, text)
		}
	}
	if sc.Restriction != nil && len(sc.Restriction.Facets) > 0 {
		if err := ValidateFacets(text, sc.Restriction.Facets, nil); err != nil {
			sv.addViolation(elem, "", "cvc-facet-valid", err.Error(), nil, text)
		}
	}
}

// collectIDsAndRefs records attributes whose declared type resolves to
// the builtin xs:ID / xs:IDREF(S) types, driven by the type system
// instead of guessing from attribute names.
func (sv *StreamValidator) collectIDsAndRefs(elem xmldom.Element, typ Type) {
	ct, ok := typ.(*ComplexType)
	if !ok {
		return
	}
	expected := attributeDecls(sv.schema, ct)
	attrs := elem.Attributes()
	for i := uint(0); i < attrs.Length(); i++ {
		attr := attrs.Item(i)
		if attr == nil {
			continue
		}
		decl, ok := expected[string(attr.LocalName())]
		if !ok || decl.Type == nil {
			continue
		}
		base := baseBuiltinName(decl.Type)
		value := string(attr.NodeValue())
		switch base {
		case "ID":
			if _, exists := sv.ids[value]; exists {
				sv.addViolation(elem, string(attr.LocalName()), "cvc-id.2", fmt.Sprintf("Duplicate ID value '%s'", value), nil, value)
			} else {
				sv.ids[value] = elem
			}
		case "IDREF":
			sv.idrefs[value] = append(sv.idrefs[value], elem)
		case "IDREFS":
			for _, v := range strings.Fields(value) {
				sv.idrefs[v] = append(sv.idrefs[v], elem)
			}
		}
	}
}

// baseBuiltinName walks a (possibly restricted) SimpleType's base chain
// back to a builtin type name, so a user-defined type derived from
// xs:IDREF is still recognized as one.
func baseBuiltinName(t Type) string {
	seen := map[QName]bool{}
	for {
		st, ok := t.(*SimpleType)
		if !ok {
			return ""
		}
		if st.QName.Namespace == XSDNamespace {
			return st.QName.Local
		}
		if st.Restriction == nil || seen[st.Restriction.Base] {
			return ""
		}
		seen[st.Restriction.Base] = true
		if st.Restriction.Base.Namespace == XSDNamespace {
			return st.Restriction.Base.Local
		}
		t = nil // resolved lazily by caller's schema lookup; unresolved here means "not builtin"
		return ""
	}
}

// ValidateIDREFs checks every collected IDREF/IDREFS value resolved to
// some element's ID attribute. Called once, after the whole document
// has been walked.
func (sv *StreamValidator) ValidateIDREFs() {
	for ref, elems := range sv.idrefs {
		if _, ok := sv.ids[ref]; ok {
			continue
		}
		for _, elem := range elems {
			sv.addViolation(elem, "", "cvc-id.1", fmt.Sprintf("There is no ID/IDREF binding for IDREF '%s'", ref), nil, ref)
		}
	}
}

// driveFromDOM replays an already-parsed xmldom.Element tree through
// the streaming core's start/text/end calls, then checks the IDREF
// bindings collected across the whole walk.
func driveFromDOM(sv *StreamValidator, elem xmldom.Element) {
	driveElement(sv, elem)
	sv.ValidateIDREFs()
}

func driveElement(sv *StreamValidator, elem xmldom.Element) {
	sv.StartElement(elem)
	nodes := elem.ChildNodes()
	for i := uint(0); i < nodes.Length(); i++ {
		node := nodes.Item(i)
		if node == nil {
			continue
		}
		switch node.NodeType() {
		case 1: // ELEMENT_NODE
			if child, ok := node.(xmldom.Element); ok {
				driveElement(sv, child)
			}
		case 3, 4: // TEXT_NODE, CDATA_SECTION_NODE
			sv.Text(string(node.NodeValue()))
		}
	}
	sv.EndElement()
}

// suggestAttribute suggests similarly-spelled attribute names for an
// unrecognized attribute, to put in a Violation's Expected list.
func suggestAttribute(wrong string, attrs []*AttributeDecl) []string {
	var suggestions []string
	wrongLower := strings.ToLower(wrong)
	for _, attr := range attrs {
		name := attr.Name.Local
		nameLower := strings.ToLower(name)
		if wrongLower == nameLower || levenshteinDistance(wrongLower, nameLower) <= 2 {
			suggestions = append(suggestions, name)
		}
	}
	return suggestions
}

func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}
	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}
	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			matrix[i][j] = minInt(matrix[i-1][j]+1, matrix[i][j-1]+1, matrix[i-1][j-1]+cost)
		}
	}
	return matrix[len(s1)][len(s2)]
}

func minInt(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

// ValidateChildSequence is a narrow convenience used by callers (and
// tests) that already have an expected element-name sequence and just
// want to diff it against an element's actual children, without going
// through a full schema-driven Validate call.
func ValidateChildSequence(elem xmldom.Element, expected []string) []Violation {
	var violations []Violation
	children := elem.Children()
	childIndex := 0
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil {
			continue
		}
		name := string(child.LocalName())
		if childIndex >= len(expected) {
			violations = append(violations, Violation{
				Element: child, Code: "cvc-complex-type.2.4",
				Message: fmt.Sprintf("Unexpected element '%s'", name), Actual: name,
			})
			continue
		}
		if name != expected[childIndex] {
			violations = append(violations, Violation{
				Element: child, Code: "cvc-complex-type.2.4",
				Message:  fmt.Sprintf("Expected element '%s' but found '%s'", expected[childIndex], name),
				Expected: []string{expected[childIndex]}, Actual: name,
			})
		}
		childIndex++
	}
	return violations
}
