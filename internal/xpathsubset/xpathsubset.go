// Package xpathsubset compiles and evaluates the restricted XPath
// subset XML Schema identity constraints are allowed to use for
// xs:selector and xs:field (WXS Structures §3.11.1): a sequence of
// child-axis or descendant-axis steps, each a qname, "*", or "." for
// field expressions, with the optional "@attr" attribute step at the
// end of a field path. There is no operator precedence, no predicate,
// and no function calls to support — this is a path matcher, not a
// general XPath engine, so it is implemented directly rather than
// against a full XPath package from the example pack (none of them
// expose a restricted-subset compiler; they all target full XPath 1.0
// or later). See DESIGN.md for the full justification.
package xpathsubset

import (
	"fmt"
	"strings"
)

// Axis distinguishes a child step from a "//" descendant-or-self step.
type Axis int

const (
	AxisChild Axis = iota
	AxisDescendant
)

// Step is one qname or wildcard step in a compiled path.
type Step struct {
	Axis      Axis
	Namespace string // resolved namespace URI; "" means unprefixed/no-namespace
	Local     string // "*" for a wildcard step, "." for self
}

// Path is a compiled selector or field expression: a sequence of
// element steps, optionally followed by an attribute step (field paths
// only, e.g. "@id" or "foo/@id").
type Path struct {
	Steps     []Step
	Attribute *Step // non-nil if the path ends in an attribute step
	raw       string
}

// Resolver maps an XML namespace prefix (as written in the path) to its
// URI, the way the identity constraint's declaring element's in-scope
// namespaces would.
type Resolver func(prefix string) string

// Compile parses expr against resolve. Selector paths may be a union of
// alternatives separated by "|"; each alternative is compiled
// independently and Compile returns one Path per alternative.
func Compile(expr string, resolve Resolver) ([]*Path, error) {
	var paths []*Path
	for _, alt := range strings.Split(expr, "|") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		p, err := compileOne(alt, resolve)
		if err != nil {
			return nil, fmt.Errorf("xpathsubset: %q: %w", alt, err)
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("xpathsubset: empty path expression")
	}
	return paths, nil
}

func compileOne(expr string, resolve Resolver) (*Path, error) {
	p := &Path{raw: expr}
	descendant := strings.HasPrefix(expr, ".//") || strings.HasPrefix(expr, "//")
	expr = strings.TrimPrefix(expr, "./")

	segments := splitSegments(expr)
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "@") {
			if i != len(segments)-1 {
				return nil, fmt.Errorf("attribute step must be the last step")
			}
			step, err := compileStep(strings.TrimPrefix(seg, "@"), resolve)
			if err != nil {
				return nil, err
			}
			p.Attribute = &step
			continue
		}
		step, err := compileStep(seg, resolve)
		if err != nil {
			return nil, err
		}
		p.Steps = append(p.Steps, step)
	}

	if descendant && len(p.Steps) > 0 {
		p.Steps[0].Axis = AxisDescendant
	}
	return p, nil
}

// splitSegments splits a path on "/" while preserving a leading "//" as
// its own marker rather than producing an empty first segment.
func splitSegments(expr string) []string {
	expr = strings.TrimPrefix(expr, "//")
	parts := strings.Split(expr, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func compileStep(tok string, resolve Resolver) (Step, error) {
	if tok == "." {
		return Step{Local: "."}, nil
	}
	if tok == "*" {
		return Step{Local: "*"}, nil
	}
	if idx := strings.Index(tok, ":"); idx >= 0 {
		prefix, local := tok[:idx], tok[idx+1:]
		ns := ""
		if resolve != nil {
			ns = resolve(prefix)
		}
		return Step{Namespace: ns, Local: local}, nil
	}
	return Step{Local: tok}, nil
}

// Matches reports whether the step accepts (namespace, local).
func (s Step) Matches(namespace, local string) bool {
	if s.Local == "*" {
		return true
	}
	return s.Namespace == namespace && s.Local == local
}
