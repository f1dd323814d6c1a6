// Package graph owns the in-memory knowledge graph: typed nodes for the
// subject/unit/note/concept hierarchy, directed edges with relation and
// provenance tags, and the note-loading mutation with its garbage
// collection of orphaned concepts.
package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates the four node variants.
type Kind string

const (
	KindSubject Kind = "subject"
	KindUnit    Kind = "unit"
	KindNote    Kind = "note"
	KindConcept Kind = "concept"
)

// Relation tags carried by edges.
const (
	RelationBelongsTo = "belongs_to"
	RelationScopedTo  = "scoped_to"
	RelationMentions  = "mentions"
)

// ProvenanceSystem marks structural edges not tied to any single note.
const ProvenanceSystem = "system"

// SubjectAttrs holds subject node attributes.
type SubjectAttrs struct {
	Name string
}

// UnitAttrs holds unit node attributes.
type UnitAttrs struct {
	Name string
}

// NoteAttrs holds note node attributes.
type NoteAttrs struct {
	SourcePath  string
	ContentHash string
	Text        string
}

// ConceptAttrs holds concept node attributes. Term is the canonical
// surface form fixed at creation; Aliases collects later differing
// surface forms, deduplicated and sorted.
type ConceptAttrs struct {
	Term       string
	Normalized string
	Aliases    []string
}

// Node is a tagged variant: exactly one of the attribute pointers
// matching Kind is non-nil.
type Node struct {
	ID      string
	Kind    Kind
	Subject *SubjectAttrs
	Unit    *UnitAttrs
	Note    *NoteAttrs
	Concept *ConceptAttrs

	// Extra preserves attributes the engine does not model, so a
	// loaded graph saves back without loss.
	Extra map[string]any
}

// Edge is a directed edge with a relation tag and note provenance.
type Edge struct {
	Source     string
	Target     string
	Relation   string
	SourceNote string

	// Extra preserves attributes beyond relation/sourceNote.
	Extra map[string]any
}

// Graph is a directed graph over the four node kinds. At most one edge
// exists per (source, target) pair.
type Graph struct {
	nodes map[string]*Node
	out   map[string][]*Edge
	in    map[string][]*Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		out:   make(map[string][]*Edge),
		in:    make(map[string][]*Edge),
	}
}

// ───────────────────────── IDs ─────────────────────────

// Node ids are deterministic functions of hierarchy position, using "::"
// as the segment separator. ValidateName rejects names that would
// collide with the separator.

func SubjectID(subject string) string {
	return "subject::" + subject
}

func UnitID(subject, unit string) string {
	return fmt.Sprintf("unit::%s::%s", subject, unit)
}

func NoteID(absPath string) string {
	return "note::" + absPath
}

func ConceptID(subject, unit, normalized string) string {
	return fmt.Sprintf("concept::%s::%s::%s", subject, unit, normalized)
}

// ValidateName rejects subject/unit names containing the id separator,
// which would make ids ambiguous.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if strings.Contains(name, "::") {
		return fmt.Errorf("name must not contain %q: %s", "::", name)
	}
	return nil
}

// ───────────────────────── Nodes ─────────────────────────

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	return g.nodes[id]
}

// AddNode inserts or overwrites a node.
func (g *Graph) AddNode(n *Node) {
	g.nodes[n.ID] = n
}

// RemoveNode deletes a node and every edge touching it. It is a no-op
// for an unknown id.
func (g *Graph) RemoveNode(id string) {
	if _, ok := g.nodes[id]; !ok {
		return
	}
	for _, e := range g.out[id] {
		g.in[e.Target] = removeEdges(g.in[e.Target], id, e.Target)
	}
	for _, e := range g.in[id] {
		g.out[e.Source] = removeEdges(g.out[e.Source], e.Source, id)
	}
	delete(g.out, id)
	delete(g.in, id)
	delete(g.nodes, id)
}

// NodeIDs returns all node ids in ascending order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// ───────────────────────── Edges ─────────────────────────

// AddEdge inserts an edge, replacing any existing edge between the same
// source and target. Both endpoints must exist.
func (g *Graph) AddEdge(e *Edge) error {
	if _, ok := g.nodes[e.Source]; !ok {
		return fmt.Errorf("edge source does not exist: %s", e.Source)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return fmt.Errorf("edge target does not exist: %s", e.Target)
	}
	if g.EdgeBetween(e.Source, e.Target) != nil {
		g.out[e.Source] = removeEdges(g.out[e.Source], e.Source, e.Target)
		g.in[e.Target] = removeEdges(g.in[e.Target], e.Source, e.Target)
	}
	g.out[e.Source] = append(g.out[e.Source], e)
	g.in[e.Target] = append(g.in[e.Target], e)
	return nil
}

// EdgeBetween returns the edge from source to target, or nil.
func (g *Graph) EdgeBetween(source, target string) *Edge {
	for _, e := range g.out[source] {
		if e.Target == target {
			return e
		}
	}
	return nil
}

// Out returns the outgoing edges of a node.
func (g *Graph) Out(id string) []*Edge {
	return g.out[id]
}

// In returns the incoming edges of a node.
func (g *Graph) In(id string) []*Edge {
	return g.in[id]
}

// EdgeCount returns the total number of edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, edges := range g.out {
		n += len(edges)
	}
	return n
}

// Edges returns every edge, ordered by (source, target).
func (g *Graph) Edges() []*Edge {
	var all []*Edge
	for _, edges := range g.out {
		all = append(all, edges...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Source != all[j].Source {
			return all[i].Source < all[j].Source
		}
		return all[i].Target < all[j].Target
	})
	return all
}

func removeEdges(edges []*Edge, source, target string) []*Edge {
	out := edges[:0]
	for _, e := range edges {
		if e.Source == source && e.Target == target {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Validate checks referential integrity: every edge endpoint exists,
// every node carries the attribute set matching its kind, and concept
// alias lists are sorted without duplicates. Returns human-readable
// findings, empty when the graph is consistent.
func (g *Graph) Validate() []string {
	var findings []string

	for _, id := range g.NodeIDs() {
		n := g.nodes[id]
		switch n.Kind {
		case KindSubject:
			if n.Subject == nil {
				findings = append(findings, fmt.Sprintf("subject node missing attributes: %s", id))
			}
		case KindUnit:
			if n.Unit == nil {
				findings = append(findings, fmt.Sprintf("unit node missing attributes: %s", id))
			}
		case KindNote:
			if n.Note == nil || n.Note.ContentHash == "" {
				findings = append(findings, fmt.Sprintf("note node missing content hash: %s", id))
			}
		case KindConcept:
			if n.Concept == nil || n.Concept.Normalized == "" {
				findings = append(findings, fmt.Sprintf("concept node missing normalized term: %s", id))
			} else if !sort.StringsAreSorted(n.Concept.Aliases) {
				findings = append(findings, fmt.Sprintf("concept aliases out of order: %s", id))
			}
		default:
			findings = append(findings, fmt.Sprintf("unknown node kind %q: %s", n.Kind, id))
		}
	}

	for _, e := range g.Edges() {
		if !g.HasNode(e.Source) {
			findings = append(findings, fmt.Sprintf("dangling edge source: %s -> %s", e.Source, e.Target))
		}
		if !g.HasNode(e.Target) {
			findings = append(findings, fmt.Sprintf("dangling edge target: %s -> %s", e.Source, e.Target))
		}
		if e.Relation == "" {
			findings = append(findings, fmt.Sprintf("edge missing relation: %s -> %s", e.Source, e.Target))
		}
	}

	return findings
}
