package xsd

import (
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/agentflare-ai/go-xmldom"

	"github.com/agentflare-ai/go-xsd/internal/qname"
)

// DocumentLoader resolves a schema location to a parsed XML document.
// SchemaLoader (schema_loader.go) provides the filesystem/HTTP-backed
// implementation used by callers; tests can substitute an in-memory one.
type DocumentLoader func(location string) (xmldom.Document, error)

// BucketGraph assembles one combined Schema from a root document and
// everything it transitively imports, includes, or redefines. Each
// parsed document is a bucket; buckets are merged into a single set of
// component maps before the fixup pipeline runs, so cross-bucket
// references (a type in one imported namespace extending a type from
// another) resolve the same way a single-document schema's would.
type BucketGraph struct {
	Load     DocumentLoader
	visited  map[string]*Schema // location (plus caller namespace for an include) -> bucket, breaks include/import cycles
	combined *Schema
	names    *qname.Dictionary // shared across every bucket this graph loads
}

// NewBucketGraph builds a graph that loads documents with load.
func NewBucketGraph(load DocumentLoader) *BucketGraph {
	return &BucketGraph{Load: load, visited: make(map[string]*Schema), names: qname.NewDictionary()}
}

// Assemble loads location and every schema it transitively pulls in,
// merges them, and runs the fixup pipeline over the result.
func (g *BucketGraph) Assemble(location string) (*Schema, error) {
	g.combined = &Schema{
		ElementDecls:             make(map[QName]*ElementDecl),
		TypeDefs:                 make(map[QName]Type),
		AttributeGroups:          make(map[QName]*AttributeGroup),
		Groups:                   make(map[QName]*ModelGroup),
		ImportedSchemas:          make(map[string]*Schema),
		SubstitutionGroups:       make(map[QName][]QName),
		RedefinedTypes:           make(map[QName]Type),
		RedefinedGroups:          make(map[QName]*ModelGroup),
		RedefinedAttributeGroups: make(map[QName]*AttributeGroup),
		names:                    g.names,
	}
	if err := g.loadBucket(location, ""); err != nil {
		return nil, err
	}
	if root, ok := g.visited[location]; ok {
		g.combined.TargetNamespace = root.TargetNamespace
	}
	RunFixupPipeline(g.combined)
	return g.combined, nil
}

// loadBucket parses location (skipping it if already visited, which
// breaks import/include cycles) and merges its components into the
// graph's combined schema. tnsHint is non-empty only when location is
// being pulled in as a chameleon include. An include is keyed by
// location and caller namespace, so a chameleon document included under
// a second namespace is parsed again under that namespace.
func (g *BucketGraph) loadBucket(location, tnsHint string) error {
	key := location
	if tnsHint != "" {
		key = location + "#" + tnsHint
	}
	if _, ok := g.visited[key]; ok {
		return nil
	}
	doc, err := g.Load(location)
	if err != nil {
		return fmt.Errorf("loading schema bucket %s: %w", location, err)
	}
	bucket, err := parseRaw(doc, tnsHint, g.names)
	if err != nil {
		return fmt.Errorf("parsing schema bucket %s: %w", location, err)
	}
	bucket.SchemaLocation = location
	g.visited[key] = bucket
	g.combined.ImportedSchemas[key] = bucket

	mergeBucket(bucket, g.combined)

	for _, imp := range bucket.Imports {
		if imp.SchemaLocation == "" {
			continue // namespace-only import with nothing to fetch
		}
		loc := resolveBucketLocation(location, imp.SchemaLocation)
		if err := g.loadBucket(loc, ""); err != nil {
			slog.Warn("xsd: failed to load imported schema", "namespace", imp.Namespace, "location", loc, "error", err)
		}
	}
	for _, inc := range bucket.Includes {
		loc := resolveBucketLocation(location, inc)
		if err := g.loadBucket(loc, bucket.TargetNamespace); err != nil {
			return fmt.Errorf("include %s: %w", loc, err)
		}
	}
	for _, red := range bucket.Redefines {
		if err := g.applyRedefine(bucket, red, location); err != nil {
			return fmt.Errorf("redefine %s: %w", red.SchemaLocation, err)
		}
	}
	return nil
}

// applyRedefine loads the redefined schema (if not already loaded),
// records the component being overridden in the combined schema's
// Redefined* shadow maps so the fixup pipeline can resolve a
// self-referencing restriction/extension against the original, then
// parses the <redefine> block's children over the base definitions.
func (g *BucketGraph) applyRedefine(redefiner *Schema, ref *RedefineRef, fromLocation string) error {
	loc := resolveBucketLocation(fromLocation, ref.SchemaLocation)
	if err := g.loadBucket(loc, ""); err != nil {
		return err
	}
	base := g.visited[loc]
	if base == nil {
		return fmt.Errorf("redefine target %s was not loaded", loc)
	}

	children := ref.Element.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil || string(child.NamespaceURI()) != XSDNamespace {
			continue
		}
		name := string(child.GetAttribute("name"))
		if name == "" {
			continue
		}
		qn := g.combined.qn(base.TargetNamespace, name)
		switch string(child.LocalName()) {
		case "simpleType":
			if orig, ok := g.combined.TypeDefs[qn]; ok {
				g.combined.RedefinedTypes[qn] = orig
			}
			if err := redefiner.parseSimpleType(child); err != nil {
				return err
			}
			g.combined.TypeDefs[qn] = redefiner.TypeDefs[qn]
		case "complexType":
			if orig, ok := g.combined.TypeDefs[qn]; ok {
				g.combined.RedefinedTypes[qn] = orig
			}
			if err := redefiner.parseComplexType(child); err != nil {
				return err
			}
			g.combined.TypeDefs[qn] = redefiner.TypeDefs[qn]
		case "group":
			if orig, ok := g.combined.Groups[qn]; ok {
				g.combined.RedefinedGroups[qn] = orig
			}
			if err := redefiner.parseGroup(child); err != nil {
				return err
			}
			g.combined.Groups[qn] = redefiner.Groups[qn]
		case "attributeGroup":
			if orig, ok := g.combined.AttributeGroups[qn]; ok {
				g.combined.RedefinedAttributeGroups[qn] = orig
			}
			if err := redefiner.parseAttributeGroup(child); err != nil {
				return err
			}
			g.combined.AttributeGroups[qn] = redefiner.AttributeGroups[qn]
		}
	}
	return nil
}

// mergeBucket copies source's components into target, keeping target's
// definition whenever a QName collides (the first bucket to define a
// name wins; redefine overrides happen separately and explicitly).
// Because every component key is a full QName, import and include
// merge the same way — the namespace in the key is what used to force
// SchemaLoader to special-case "is this an include" by comparing
// target namespaces.
func mergeBucket(source, target *Schema) {
	for qname, elem := range source.ElementDecls {
		if _, exists := target.ElementDecls[qname]; !exists {
			target.ElementDecls[qname] = elem
		}
	}
	for qname, typ := range source.TypeDefs {
		if _, exists := target.TypeDefs[qname]; !exists {
			target.TypeDefs[qname] = typ
		}
	}
	for qname, ag := range source.AttributeGroups {
		if _, exists := target.AttributeGroups[qname]; !exists {
			target.AttributeGroups[qname] = ag
		}
	}
	for qname, mg := range source.Groups {
		if _, exists := target.Groups[qname]; !exists {
			target.Groups[qname] = mg
		}
	}
	for head, members := range source.SubstitutionGroups {
		existing := target.SubstitutionGroups[head]
		for _, member := range members {
			if !containsQName(existing, member) {
				existing = append(existing, member)
			}
		}
		target.SubstitutionGroups[head] = existing
	}
	for _, imp := range source.Imports {
		found := false
		for _, e := range target.Imports {
			if e.Namespace == imp.Namespace && e.SchemaLocation == imp.SchemaLocation {
				found = true
				break
			}
		}
		if !found {
			target.Imports = append(target.Imports, imp)
		}
	}
}

func containsQName(list []QName, q QName) bool {
	for _, v := range list {
		if v == q {
			return true
		}
	}
	return false
}

// resolveBucketLocation resolves a schemaLocation found in a document
// loaded from base, handling absolute paths, URLs, and relative paths
// against either a URL or filesystem base the same way SchemaLoader's
// resolveRelative does.
func resolveBucketLocation(base, relative string) string {
	if filepath.IsAbs(relative) {
		return relative
	}
	if strings.HasPrefix(relative, "http://") || strings.HasPrefix(relative, "https://") {
		return relative
	}
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		if baseURL, err := url.Parse(base); err == nil {
			if relURL, err := baseURL.Parse(relative); err == nil {
				return relURL.String()
			}
		}
		return relative
	}
	return filepath.Join(filepath.Dir(base), relative)
}
