package xsd

import (
	"fmt"

	"github.com/agentflare-ai/go-xmldom"
)

// attributeDecls flattens a complex type's own attribute declarations,
// its referenced attribute groups, and (via resolveExtension's
// fixup.go pass, which already copies a base type's Attributes/
// AttributeGroup forward onto ct) its ancestors' attributes into one
// lookup table keyed by local name. A direct declaration wins over one
// pulled in through an attribute group of the same name, matching how
// XSD resolves attribute uses when both name the same attribute.
func attributeDecls(schema *Schema, ct *ComplexType) map[string]*AttributeDecl {
	if ct == nil {
		return nil
	}
	decls := make(map[string]*AttributeDecl, len(ct.Attributes))
	for _, decl := range schema.ResolveAttributeGroups(ct) {
		decls[decl.Name.Local] = decl
	}
	for _, decl := range ct.Attributes {
		decls[decl.Name.Local] = decl
	}
	return decls
}

// validateAttributes checks elem's actual attributes against the
// declarations typ's complex type carries: prohibited/required use,
// value validity against the declared type, fixed-value agreement
// (reused from fixed_default.go), and xs:anyAttribute wildcard
// tolerance for anything not otherwise declared. Simple-typed and
// untyped elements carry no attribute declarations of their own, so
// anything beyond the xmlns/xsi bookkeeping attributes is rejected.
func (sv *StreamValidator) validateAttributes(elem xmldom.Element, typ Type) {
	ct, ok := typ.(*ComplexType)
	if !ok {
		sv.rejectAllAttributes(elem)
		return
	}

	expected := attributeDecls(sv.schema, ct)
	seen := make(map[string]bool, len(expected))

	attrs := elem.Attributes()
	for i := uint(0); i < attrs.Length(); i++ {
		attr := attrs.Item(i)
		if attr == nil || isBookkeepingAttribute(attr) {
			continue
		}
		local := string(attr.LocalName())
		decl, ok := expected[local]
		if !ok {
			sv.validateWildcardAttribute(elem, attr, ct)
			continue
		}
		seen[local] = true
		sv.validateDeclaredAttribute(elem, attr, decl)
	}

	for local, decl := range expected {
		if seen[local] {
			continue
		}
		if decl.Use == RequiredUse {
			sv.addViolation(elem, local, "cvc-complex-type.4",
				fmt.Sprintf("Required attribute '%s' is missing", local), nil, "")
			continue
		}
		sv.materializeDefaultAttribute(elem, decl)
	}
}

// validateDeclaredAttribute checks one actual attribute against the
// declaration it matched: prohibited use, the declared type's lexical
// space and facets, then fixed-value agreement.
func (sv *StreamValidator) validateDeclaredAttribute(elem xmldom.Element, attr xmldom.Node, decl *AttributeDecl) {
	local := string(attr.LocalName())
	value := string(attr.NodeValue())

	if decl.Use == ProhibitedUse {
		sv.addViolation(elem, local, "cvc-complex-type.3.2.1",
			fmt.Sprintf("Attribute '%s' is prohibited", local), nil, value)
		return
	}

	if decl.Type != nil {
		if err := validateValueAgainstType(value, decl.Type, sv.schema); err != nil {
			sv.addViolation(elem, local, "cvc-attribute.3", err.Error(), nil, value)
		}
	}

	for _, v := range ValidateAttributeFixedDefault(attr, decl, elem) {
		if v.Attribute == "" {
			v.Attribute = local
		}
		sv.violations = append(sv.violations, v)
	}
}

// validateWildcardAttribute handles an actual attribute that matched no
// declaration: it's only tolerated under an xs:anyAttribute wildcard,
// reusing wildcards.go's own namespace-constraint/processContents logic
// rather than re-deriving it here.
func (sv *StreamValidator) validateWildcardAttribute(elem xmldom.Element, attr xmldom.Node, ct *ComplexType) {
	if ct.AnyAttribute == nil {
		sv.addViolation(elem, string(attr.LocalName()), "cvc-complex-type.3.2.2",
			fmt.Sprintf("Attribute '%s' is not allowed by the type's declaration", attr.LocalName()), nil, string(attr.NodeValue()))
		return
	}
	for _, v := range ValidateAnyAttribute(attr, ct.AnyAttribute, sv.schema) {
		if v.Element == nil {
			v.Element = elem
		}
		if v.Attribute == "" {
			v.Attribute = string(attr.LocalName())
		}
		sv.violations = append(sv.violations, v)
	}
}

// rejectAllAttributes is used for an element whose type carries no
// attribute declarations at all (a simple type or an unresolved type):
// any non-bookkeeping attribute on the instance is an error.
func (sv *StreamValidator) rejectAllAttributes(elem xmldom.Element) {
	attrs := elem.Attributes()
	for i := uint(0); i < attrs.Length(); i++ {
		attr := attrs.Item(i)
		if attr == nil || isBookkeepingAttribute(attr) {
			continue
		}
		sv.addViolation(elem, string(attr.LocalName()), "cvc-complex-type.3.2.2",
			fmt.Sprintf("Attribute '%s' is not allowed; element has simple content", attr.LocalName()), nil, string(attr.NodeValue()))
	}
}

// materializeDefaultAttribute applies materializeDefaultAttribute
// (fixed_default.go) when the validator context was built with
// OptCreateDefaultAttrs; otherwise an absent defaulted attribute is
// left as-is, since most callers only want validation, not mutation.
func (sv *StreamValidator) materializeDefaultAttribute(elem xmldom.Element, decl *AttributeDecl) {
	if sv.opts&OptCreateDefaultAttrs == 0 {
		return
	}
	materializeDefaultAttribute(elem, decl)
}

// isBookkeepingAttribute reports whether attr is a namespace
// declaration or an xsi: instance attribute, neither of which is ever
// subject to a type's attribute declarations.
func isBookkeepingAttribute(attr xmldom.Node) bool {
	ns := string(attr.NamespaceURI())
	if ns == "http://www.w3.org/2000/xmlns/" || string(attr.LocalName()) == "xmlns" {
		return true
	}
	return ns == xsiNamespace
}
