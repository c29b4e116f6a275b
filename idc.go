package xsd

import (
	"fmt"
	"strings"

	"github.com/agentflare-ai/go-xmldom"

	"github.com/agentflare-ai/go-xsd/internal/xpathsubset"
)

// IdentityConstraintKind represents the type of identity constraint
type IdentityConstraintKind string

const (
	KeyConstraint    IdentityConstraintKind = "key"
	KeyRefConstraint IdentityConstraintKind = "keyref"
	UniqueConstraint IdentityConstraintKind = "unique"
)

// IdentityConstraint represents an identity constraint (key, keyref, or unique)
type IdentityConstraint struct {
	Name     string
	Kind     IdentityConstraintKind
	Selector *Selector
	Fields   []*Field
	Refer    QName // For keyref, refers to a key or unique constraint

	compiledSelector []*xpathsubset.Path // resolved at fixup time by compileIdentityConstraint
	compiledFields   []*xpathsubset.Path
	referTarget      *IdentityConstraint // resolved at fixup time by linkKeyrefs, for keyref only
}

// Selector represents the xs:selector element
type Selector struct {
	XPath string // XPath expression to select nodes
}

// Field represents the xs:field element
type Field struct {
	XPath string // XPath expression to select field value
}

// compileIdentityConstraint compiles an identity constraint's selector
// and field expressions against the xpathsubset grammar. Failing to
// compile is non-fatal at the schema level (it's surfaced as a
// diagnostic via slog in the fixup pipeline); an uncompiled constraint
// is simply skipped by the validator.
func compileIdentityConstraint(ic *IdentityConstraint) error {
	if ic.Selector == nil {
		return fmt.Errorf("missing xs:selector")
	}
	sel, err := xpathsubset.Compile(ic.Selector.XPath, nil)
	if err != nil {
		return fmt.Errorf("selector: %w", err)
	}
	ic.compiledSelector = sel

	fields := make([]*xpathsubset.Path, 0, len(ic.Fields))
	for _, f := range ic.Fields {
		fp, err := xpathsubset.Compile(f.XPath, nil)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.XPath, err)
		}
		if len(fp) != 1 {
			return fmt.Errorf("field %q: a field path may not be a union", f.XPath)
		}
		fields = append(fields, fp[0])
	}
	ic.compiledFields = fields
	return nil
}

// elementNode adapts xmldom.Element to xpathsubset.Node.
type elementNode struct{ e xmldom.Element }

func (n elementNode) Namespace() string { return string(n.e.NamespaceURI()) }
func (n elementNode) Local() string     { return string(n.e.LocalName()) }
func (n elementNode) Text() string      { return strings.TrimSpace(string(n.e.TextContent())) }

func (n elementNode) Attribute(namespace, local string) (string, bool) {
	attrs := n.e.Attributes()
	for i := uint(0); i < attrs.Length(); i++ {
		a := attrs.Item(i)
		if a == nil {
			continue
		}
		if string(a.LocalName()) == local {
			return string(a.NodeValue()), true
		}
	}
	return "", false
}

func (n elementNode) ChildElements() []xpathsubset.Node {
	children := n.e.Children()
	out := make([]xpathsubset.Node, 0, children.Length())
	for i := uint(0); i < children.Length(); i++ {
		c := children.Item(i)
		if c == nil {
			continue
		}
		out = append(out, elementNode{c})
	}
	return out
}

// idcTuple is one matched scope element's key: the field values in
// declaration order, plus the element they were found on for
// diagnostics.
type idcTuple struct {
	elem   xmldom.Element
	values []string
	// someAbsent and allAbsent record whether some, or every, field
	// failed to produce a value. For a key either one is an error; a
	// unique tuple with an absent field is not a candidate and is skipped.
	someAbsent, allAbsent bool
}

// IdentityConstraintValidator evaluates every identity constraint
// declared in a schema against one validated document, using the
// compiled xpathsubset selector/field paths rather than the informal
// string matching an early draft of this engine used.
type IdentityConstraintValidator struct {
	schema *Schema
}

// NewIdentityConstraintValidator builds a validator bound to schema,
// whose ElementDecls carry the compiled constraints.
func NewIdentityConstraintValidator(schema *Schema) *IdentityConstraintValidator {
	return &IdentityConstraintValidator{schema: schema}
}

// Validate runs every identity constraint reachable from doc's root
// element and returns one Violation per constraint failure.
func (v *IdentityConstraintValidator) Validate(root xmldom.Element) []Violation {
	var violations []Violation
	tuples := make(map[*IdentityConstraint][]idcTuple)

	v.walk(root, func(elem xmldom.Element, decl *ElementDecl) {
		if decl == nil {
			return
		}
		for _, ic := range decl.Constraints {
			if ic.compiledSelector == nil {
				continue
			}
			for _, sel := range ic.compiledSelector {
				for _, node := range xpathsubset.SelectNodes(sel, elementNode{elem}) {
					en := node.(elementNode)
					t := v.evalTuple(ic, en.e)
					tuples[ic] = append(tuples[ic], t)
				}
			}
		}
	})

	for ic, ts := range tuples {
		violations = append(violations, v.checkConstraint(ic, ts, tuples)...)
	}
	return violations
}

func (v *IdentityConstraintValidator) evalTuple(ic *IdentityConstraint, scope xmldom.Element) idcTuple {
	t := idcTuple{elem: scope, values: make([]string, len(ic.compiledFields)), allAbsent: true}
	anyPresent := false
	anyAbsent := false
	for i, fp := range ic.compiledFields {
		val, ok := xpathsubset.FieldValue(fp, elementNode{scope})
		if ok {
			t.values[i] = val
			anyPresent = true
			t.allAbsent = false
		} else {
			anyAbsent = true
		}
	}
	t.someAbsent = anyPresent && anyAbsent
	return t
}

func (v *IdentityConstraintValidator) checkConstraint(ic *IdentityConstraint, tuples []idcTuple, all map[*IdentityConstraint][]idcTuple) []Violation {
	var violations []Violation
	switch ic.Kind {
	case KeyConstraint, UniqueConstraint:
		seen := make(map[string]bool)
		for _, t := range tuples {
			if t.allAbsent || t.someAbsent {
				if ic.Kind == KeyConstraint {
					violations = append(violations, Violation{
						Element: t.elem,
						Code:    "cvc-identity-constraint.4.2.1",
						Message: fmt.Sprintf("key %q field value cannot be null: every field of a key must have a value", ic.Name),
					})
				}
				continue
			}
			key := strings.Join(t.values, "\x1f")
			if seen[key] {
				violations = append(violations, Violation{
					Element: t.elem,
					Code:    "cvc-identity-constraint.4.2.2",
					Message: fmt.Sprintf("Duplicate key-sequence [%s] for %s %q", strings.Join(t.values, ", "), ic.Kind, ic.Name),
				})
				continue
			}
			seen[key] = true
		}
	case KeyRefConstraint:
		if ic.referTarget == nil {
			violations = append(violations, Violation{
				Code:    "cvc-identity-constraint.3",
				Message: fmt.Sprintf("keyref %q refers to undefined constraint %q", ic.Name, ic.Refer),
			})
			return violations
		}
		targetKeys := make(map[string]bool)
		for _, t := range all[ic.referTarget] {
			if !t.allAbsent && !t.someAbsent {
				targetKeys[strings.Join(t.values, "\x1f")] = true
			}
		}
		for _, t := range tuples {
			if t.allAbsent {
				continue
			}
			key := strings.Join(t.values, "\x1f")
			if !targetKeys[key] {
				violations = append(violations, Violation{
					Element: t.elem,
					Code:    "cvc-identity-constraint.4.3",
					Message: fmt.Sprintf("No match found for key-sequence [%s] of keyref %q: it does not match any key of %q", strings.Join(t.values, ", "), ic.Name, ic.Refer.Local),
				})
			}
		}
	}
	return violations
}

func (v *IdentityConstraintValidator) walk(elem xmldom.Element, visit func(xmldom.Element, *ElementDecl)) {
	decl := v.declFor(elem)
	visit(elem, decl)
	children := elem.Children()
	for i := uint(0); i < children.Length(); i++ {
		c := children.Item(i)
		if c != nil {
			v.walk(c, visit)
		}
	}
}

func (v *IdentityConstraintValidator) declFor(elem xmldom.Element) *ElementDecl {
	qn := v.schema.qn(string(elem.NamespaceURI()), string(elem.LocalName()))
	v.schema.mu.RLock()
	defer v.schema.mu.RUnlock()
	return v.schema.ElementDecls[qn]
}
