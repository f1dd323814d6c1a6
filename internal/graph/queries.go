package graph

import (
	"errors"
	"sort"
	"strings"
)

// ErrNotFound is returned by read queries for an unknown subject, unit,
// or concept. Callers report it as "not found" without failing.
var ErrNotFound = errors.New("graph: not found")

// ConceptInfo is one row of a unit's concept listing.
type ConceptInfo struct {
	Term       string
	Normalized string
	Aliases    []string
}

// UnitConcepts lists the concepts scoped to a unit, ordered by
// normalized term.
func (g *Graph) UnitConcepts(subject, unit string) ([]ConceptInfo, error) {
	unitID := UnitID(subject, unit)
	if !g.HasNode(unitID) {
		return nil, ErrNotFound
	}

	var concepts []ConceptInfo
	for _, e := range g.In(unitID) {
		n := g.NodeByID(e.Source)
		if n == nil || n.Kind != KindConcept {
			continue
		}
		concepts = append(concepts, ConceptInfo{
			Term:       n.Concept.Term,
			Normalized: n.Concept.Normalized,
			Aliases:    n.Concept.Aliases,
		})
	}

	sort.Slice(concepts, func(i, j int) bool {
		return concepts[i].Normalized < concepts[j].Normalized
	})
	return concepts, nil
}

// RelatedConcept is a concept co-mentioned with the query concept, with
// the number of notes they share.
type RelatedConcept struct {
	Term        string
	Normalized  string
	SharedNotes int
}

// Related finds concepts co-occurring with the given concept through
// shared notes, ordered by shared-note count descending. The term must
// already be normalized the same way extraction normalizes.
func (g *Graph) Related(subject, unit, normalized string) ([]RelatedConcept, error) {
	conceptID := ConceptID(subject, unit, normalized)
	if !g.HasNode(conceptID) {
		return nil, ErrNotFound
	}

	var notes []string
	for _, e := range g.In(conceptID) {
		if n := g.NodeByID(e.Source); n != nil && n.Kind == KindNote {
			notes = append(notes, e.Source)
		}
	}

	counts := make(map[string]int)
	for _, noteID := range notes {
		for _, e := range g.Out(noteID) {
			if e.Target == conceptID {
				continue
			}
			if n := g.NodeByID(e.Target); n != nil && n.Kind == KindConcept {
				counts[e.Target]++
			}
		}
	}

	related := make([]RelatedConcept, 0, len(counts))
	for id, count := range counts {
		c := g.NodeByID(id).Concept
		related = append(related, RelatedConcept{
			Term:        c.Term,
			Normalized:  c.Normalized,
			SharedNotes: count,
		})
	}
	sort.Slice(related, func(i, j int) bool {
		if related[i].SharedNotes != related[j].SharedNotes {
			return related[i].SharedNotes > related[j].SharedNotes
		}
		return related[i].Normalized < related[j].Normalized
	})
	return related, nil
}

// UnitCount is a per-unit concept tally for the status report.
type UnitCount struct {
	Subject  string
	Unit     string
	Concepts int
}

// Stats summarizes the graph for the status report.
type Stats struct {
	Subjects int
	Units    int
	Notes    int
	Concepts int
	Edges    int
	PerUnit  []UnitCount
}

// Summarize counts nodes per kind, total edges, and concepts per unit,
// the latter ordered by count descending.
func (g *Graph) Summarize() Stats {
	s := Stats{Edges: g.EdgeCount()}

	perUnit := make(map[string]int)
	for _, id := range g.NodeIDs() {
		n := g.nodes[id]
		switch n.Kind {
		case KindSubject:
			s.Subjects++
		case KindUnit:
			s.Units++
		case KindNote:
			s.Notes++
		case KindConcept:
			s.Concepts++
			for _, e := range g.Out(id) {
				if t := g.NodeByID(e.Target); t != nil && t.Kind == KindUnit {
					perUnit[e.Target]++
				}
			}
		}
	}

	for unitID, count := range perUnit {
		subject, unit := splitUnitID(unitID)
		s.PerUnit = append(s.PerUnit, UnitCount{Subject: subject, Unit: unit, Concepts: count})
	}
	sort.Slice(s.PerUnit, func(i, j int) bool {
		if s.PerUnit[i].Concepts != s.PerUnit[j].Concepts {
			return s.PerUnit[i].Concepts > s.PerUnit[j].Concepts
		}
		if s.PerUnit[i].Subject != s.PerUnit[j].Subject {
			return s.PerUnit[i].Subject < s.PerUnit[j].Subject
		}
		return s.PerUnit[i].Unit < s.PerUnit[j].Unit
	})
	return s
}

func splitUnitID(unitID string) (subject, unit string) {
	rest := strings.TrimPrefix(unitID, "unit::")
	parts := strings.SplitN(rest, "::", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return rest, ""
}
