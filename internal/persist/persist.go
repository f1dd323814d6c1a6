// Package persist serializes the knowledge graph to a single JSON
// document and back. A round trip preserves every node and edge
// attribute, including attributes the engine does not model, and the
// written bytes do not depend on insertion order.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kestrelworks/kg/internal/graph"
)

// ErrCorrupt marks a stored graph that exists but cannot be decoded. A
// corrupt store is fatal for the invocation; it is never silently
// replaced with an empty graph.
var ErrCorrupt = errors.New("graph store is corrupt")

// document is the on-disk shape: nodes keyed by id, edges as records.
type document struct {
	Nodes map[string]map[string]any `json:"nodes"`
	Edges []map[string]any          `json:"edges"`
}

// Load reads the graph from path. A missing file yields an empty graph;
// any other failure, including unparseable content, is an error.
func Load(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return graph.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read graph store at %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}

	g := graph.New()
	for id, attrs := range doc.Nodes {
		n, err := decodeNode(id, attrs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		}
		g.AddNode(n)
	}
	for _, record := range doc.Edges {
		e, err := decodeEdge(record)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		}
		if err := g.AddEdge(e); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		}
	}
	return g, nil
}

// Save writes the full graph to path, replacing any previous content
// atomically (write to a temp file in the same directory, then rename).
func Save(path string, g *graph.Graph) error {
	doc := document{
		Nodes: make(map[string]map[string]any, g.NodeCount()),
		Edges: []map[string]any{},
	}
	for _, id := range g.NodeIDs() {
		doc.Nodes[id] = encodeNode(g.NodeByID(id))
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, encodeEdge(e))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write graph store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write graph store: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace graph store at %s: %w", path, err)
	}
	return nil
}

// Node attribute keys per kind. Everything else round-trips through the
// node's Extra map untouched.
const (
	keyType        = "type"
	keyName        = "name"
	keySourcePath  = "sourcePath"
	keyContentHash = "contentHash"
	keyText        = "text"
	keyTerm        = "canonicalTerm"
	keyNormalized  = "normalizedTerm"
	keyAliases     = "aliases"
	keySource      = "source"
	keyTarget      = "target"
	keyRelation    = "relation"
	keySourceNote  = "sourceNote"
)

func encodeNode(n *graph.Node) map[string]any {
	attrs := make(map[string]any, len(n.Extra)+4)
	for k, v := range n.Extra {
		attrs[k] = v
	}
	attrs[keyType] = string(n.Kind)

	switch n.Kind {
	case graph.KindSubject:
		attrs[keyName] = n.Subject.Name
	case graph.KindUnit:
		attrs[keyName] = n.Unit.Name
	case graph.KindNote:
		attrs[keySourcePath] = n.Note.SourcePath
		attrs[keyContentHash] = n.Note.ContentHash
		attrs[keyText] = n.Note.Text
	case graph.KindConcept:
		attrs[keyTerm] = n.Concept.Term
		attrs[keyNormalized] = n.Concept.Normalized
		attrs[keyAliases] = n.Concept.Aliases
	}
	return attrs
}

func decodeNode(id string, attrs map[string]any) (*graph.Node, error) {
	kind, ok := attrs[keyType].(string)
	if !ok || kind == "" {
		return nil, fmt.Errorf("node %s has no type", id)
	}

	n := &graph.Node{ID: id, Kind: graph.Kind(kind)}
	taken := map[string]bool{keyType: true}

	switch n.Kind {
	case graph.KindSubject:
		n.Subject = &graph.SubjectAttrs{Name: stringAttr(attrs, keyName)}
		taken[keyName] = true
	case graph.KindUnit:
		n.Unit = &graph.UnitAttrs{Name: stringAttr(attrs, keyName)}
		taken[keyName] = true
	case graph.KindNote:
		n.Note = &graph.NoteAttrs{
			SourcePath:  stringAttr(attrs, keySourcePath),
			ContentHash: stringAttr(attrs, keyContentHash),
			Text:        stringAttr(attrs, keyText),
		}
		taken[keySourcePath], taken[keyContentHash], taken[keyText] = true, true, true
	case graph.KindConcept:
		aliases, err := stringSliceAttr(attrs, keyAliases)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		n.Concept = &graph.ConceptAttrs{
			Term:       stringAttr(attrs, keyTerm),
			Normalized: stringAttr(attrs, keyNormalized),
			Aliases:    aliases,
		}
		taken[keyTerm], taken[keyNormalized], taken[keyAliases] = true, true, true
	default:
		return nil, fmt.Errorf("node %s has unknown type %q", id, kind)
	}

	for k, v := range attrs {
		if taken[k] {
			continue
		}
		if n.Extra == nil {
			n.Extra = make(map[string]any)
		}
		n.Extra[k] = v
	}
	return n, nil
}

func encodeEdge(e *graph.Edge) map[string]any {
	record := make(map[string]any, len(e.Extra)+4)
	for k, v := range e.Extra {
		record[k] = v
	}
	record[keySource] = e.Source
	record[keyTarget] = e.Target
	record[keyRelation] = e.Relation
	record[keySourceNote] = e.SourceNote
	return record
}

func decodeEdge(record map[string]any) (*graph.Edge, error) {
	e := &graph.Edge{
		Source:     stringAttr(record, keySource),
		Target:     stringAttr(record, keyTarget),
		Relation:   stringAttr(record, keyRelation),
		SourceNote: stringAttr(record, keySourceNote),
	}
	if e.Source == "" || e.Target == "" {
		return nil, fmt.Errorf("edge record missing source or target")
	}
	for k, v := range record {
		switch k {
		case keySource, keyTarget, keyRelation, keySourceNote:
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]any)
		}
		e.Extra[k] = v
	}
	return e, nil
}

func stringAttr(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return s
}

func stringSliceAttr(attrs map[string]any, key string) ([]string, error) {
	raw, ok := attrs[key]
	if !ok || raw == nil {
		return []string{}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("attribute %s is not a list", key)
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("attribute %s contains a non-string entry", key)
		}
		out = append(out, s)
	}
	return out, nil
}
