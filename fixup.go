package xsd

import "log/slog"

// RunFixupPipeline brings a freshly-merged, reference-carrying Schema
// (every component map populated by Parse/parseRaw and the bucket
// graph, but nothing cross-linked yet) to a fully resolved, ready-to-
// validate state. Each pass only depends on maps the previous pass
// finished populating; later passes never rewrite something an earlier
// pass already committed.
//
//  1. resolveReferences    - link type/element/group/attribute-group refs
//  2. buildSubstitutionGroups - invert ElementDecl.SubstitutionGroup into Schema.SubstitutionGroups
//  3. compileContentModels  - turn every ComplexType's particle tree into a content automaton
//  4. compileIdentityConstraints - compile every key/keyref/unique selector+field XPath
//  5. linkKeyrefs           - bind each keyref to the key/unique it refers to
func RunFixupPipeline(s *Schema) {
	s.resolveReferences()
	s.buildSubstitutionGroups()
	s.compileContentModels()
	s.compileIdentityConstraints()
	s.linkKeyrefs()
}

// compileContentModels walks every ComplexType in the schema and
// compiles its Content into a contentAutomaton, attaching it to the
// type so the streaming validator never has to walk the particle tree
// at validation time.
func (s *Schema) compileContentModels() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.TypeDefs {
		ct, ok := t.(*ComplexType)
		if !ok || ct.Content == nil {
			continue
		}
		automaton, err := compileContent(s, ct.Content)
		if err != nil {
			slog.Warn("xsd: content model did not compile to a deterministic automaton", "type", ct.QName, "error", err)
			continue
		}
		ct.compiled = automaton
	}
}

// compileIdentityConstraints compiles the selector/field XPath subset
// on every identity constraint attached to an element declaration.
func (s *Schema) compileIdentityConstraints() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, decl := range s.ElementDecls {
		for _, ic := range decl.Constraints {
			if err := compileIdentityConstraint(ic); err != nil {
				slog.Warn("xsd: identity constraint selector/field did not compile", "constraint", ic.Name, "error", err)
			}
		}
	}
}

// linkKeyrefs resolves each keyref's Refer QName to the key or unique
// constraint it refers to, across the whole merged schema (a keyref
// may refer to a key defined in an included or redefined bucket).
func (s *Schema) linkKeyrefs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	byName := make(map[string]*IdentityConstraint)
	for _, decl := range s.ElementDecls {
		for _, ic := range decl.Constraints {
			byName[ic.Name] = ic
		}
	}
	for _, decl := range s.ElementDecls {
		for _, ic := range decl.Constraints {
			if ic.Kind != KeyRefConstraint {
				continue
			}
			if target, ok := byName[ic.Refer.Local]; ok {
				ic.referTarget = target
			}
		}
	}
}
