package xpathsubset

// Node is the minimal tree-walking contract xpathsubset needs from an
// XML element, so this package stays independent of any particular DOM
// library. idc.go adapts xmldom.Element to this interface.
type Node interface {
	Namespace() string
	Local() string
	ChildElements() []Node
	Attribute(namespace, local string) (string, bool)
	Text() string
}

// SelectNodes evaluates a compiled selector path starting at ctx
// (normally the element the identity constraint is declared on, or an
// ancestor scope for a keyref) and returns every matching element.
func SelectNodes(path *Path, ctx Node) []Node {
	cur := []Node{ctx}
	for _, step := range path.Steps {
		var next []Node
		for _, n := range cur {
			next = append(next, stepFrom(step, n)...)
		}
		cur = next
	}
	return cur
}

func stepFrom(step Step, n Node) []Node {
	if step.Axis == AxisDescendant {
		var out []Node
		var walk func(Node)
		walk = func(x Node) {
			for _, c := range x.ChildElements() {
				if step.Matches(c.Namespace(), c.Local()) {
					out = append(out, c)
				}
				walk(c)
			}
		}
		walk(n)
		return out
	}
	var out []Node
	for _, c := range n.ChildElements() {
		if step.Matches(c.Namespace(), c.Local()) {
			out = append(out, c)
		}
	}
	return out
}

// FieldValue evaluates a field path (already Compile'd, exactly one
// alternative) against ctx and returns its string value plus whether a
// value was found at all (WXS requires every field to match exactly
// zero or one node; zero means the field contributes no key tuple).
func FieldValue(path *Path, ctx Node) (string, bool) {
	targets := []Node{ctx}
	if len(path.Steps) > 0 {
		targets = SelectNodes(&Path{Steps: path.Steps}, ctx)
	}
	if len(targets) == 0 {
		return "", false
	}
	if len(targets) > 1 {
		return "", false // ambiguous field match: treat as absent, the caller reports cvc-identity-constraint
	}
	target := targets[0]
	if path.Attribute != nil {
		return target.Attribute(path.Attribute.Namespace, path.Attribute.Local)
	}
	if path.Steps == nil {
		// "." field: the context node's own text.
		return target.Text(), true
	}
	return target.Text(), true
}
