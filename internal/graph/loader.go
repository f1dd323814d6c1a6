package graph

import "sort"

// Action describes what LoadNote did with a note.
type Action string

const (
	ActionLoaded  Action = "loaded"
	ActionSkipped Action = "skipped"
	ActionRebuilt Action = "rebuilt"
)

// Mention is one extracted concept occurrence: the original surface form
// and its normalized form.
type Mention struct {
	Term       string
	Normalized string
}

// LoadInput carries everything LoadNote needs for one document.
// SourcePath must already be absolute.
type LoadInput struct {
	SourcePath  string
	Subject     string
	Unit        string
	ContentHash string
	Text        string
	Mentions    []Mention
}

// LoadResult reports the outcome of LoadNote.
type LoadResult struct {
	Action   Action
	NoteID   string
	Concepts int

	// EdgesTouched counts concept entries processed, not distinct new
	// edges: two surface forms collapsing to one concept still count
	// twice even though only one mentions edge exists.
	EdgesTouched int
}

// LoadNote ingests one document's contribution into the graph.
//
// An unchanged content hash makes the call a no-op (ActionSkipped). A
// changed hash first retracts the note's previous contribution,
// including concepts no other note sustains, then rebuilds it
// (ActionRebuilt). A new note is loaded fresh (ActionLoaded). Subject
// and unit nodes are created lazily and never removed.
func (g *Graph) LoadNote(in LoadInput) LoadResult {
	noteID := NoteID(in.SourcePath)

	existing, hadNote := g.noteHash(noteID)
	if hadNote && existing == in.ContentHash {
		return LoadResult{Action: ActionSkipped, NoteID: noteID}
	}

	action := ActionLoaded
	if hadNote {
		g.RetractNote(noteID)
		action = ActionRebuilt
	}

	subjectID := g.ensureSubject(in.Subject)
	unitID := g.ensureUnit(in.Subject, in.Unit, subjectID)

	g.AddNode(&Node{
		ID:   noteID,
		Kind: KindNote,
		Note: &NoteAttrs{
			SourcePath:  in.SourcePath,
			ContentHash: in.ContentHash,
			Text:        in.Text,
		},
	})
	g.AddEdge(&Edge{
		Source:     noteID,
		Target:     unitID,
		Relation:   RelationBelongsTo,
		SourceNote: ProvenanceSystem,
	})

	edgesTouched := 0
	for _, m := range in.Mentions {
		conceptID := g.ensureConcept(in.Subject, in.Unit, unitID, m)
		if g.EdgeBetween(noteID, conceptID) == nil {
			g.AddEdge(&Edge{
				Source:     noteID,
				Target:     conceptID,
				Relation:   RelationMentions,
				SourceNote: noteID,
			})
		}
		edgesTouched++
	}

	return LoadResult{
		Action:       action,
		NoteID:       noteID,
		Concepts:     len(in.Mentions),
		EdgesTouched: edgesTouched,
	}
}

// RetractNote removes a note node, its edges, and every concept the note
// was the sole remaining source for. Reports whether the note existed.
func (g *Graph) RetractNote(noteID string) bool {
	if !g.HasNode(noteID) {
		return false
	}

	var mentioned []string
	for _, e := range g.Out(noteID) {
		if t := g.NodeByID(e.Target); t != nil && t.Kind == KindConcept {
			mentioned = append(mentioned, e.Target)
		}
	}

	g.RemoveNode(noteID)

	for _, conceptID := range mentioned {
		if !g.conceptHasOtherSource(conceptID, noteID) {
			g.RemoveNode(conceptID)
		}
	}
	return true
}

// conceptHasOtherSource reports whether any note other than the excluded
// one still asserts a mentions edge into the concept, judged by edge
// provenance.
func (g *Graph) conceptHasOtherSource(conceptID, excludingNote string) bool {
	for _, e := range g.In(conceptID) {
		src := g.NodeByID(e.Source)
		if src == nil || src.Kind != KindNote {
			continue
		}
		if e.SourceNote != excludingNote {
			return true
		}
	}
	return false
}

func (g *Graph) noteHash(noteID string) (string, bool) {
	n := g.NodeByID(noteID)
	if n == nil || n.Note == nil {
		return "", false
	}
	return n.Note.ContentHash, true
}

func (g *Graph) ensureSubject(subject string) string {
	id := SubjectID(subject)
	if !g.HasNode(id) {
		g.AddNode(&Node{ID: id, Kind: KindSubject, Subject: &SubjectAttrs{Name: subject}})
	}
	return id
}

func (g *Graph) ensureUnit(subject, unit, subjectID string) string {
	id := UnitID(subject, unit)
	if !g.HasNode(id) {
		g.AddNode(&Node{ID: id, Kind: KindUnit, Unit: &UnitAttrs{Name: unit}})
		g.AddEdge(&Edge{
			Source:     id,
			Target:     subjectID,
			Relation:   RelationBelongsTo,
			SourceNote: ProvenanceSystem,
		})
	}
	return id
}

// ensureConcept creates the concept on first mention or, when it already
// exists under a different canonical term, records the new surface form
// as an alias. The canonical term never changes after creation.
func (g *Graph) ensureConcept(subject, unit, unitID string, m Mention) string {
	id := ConceptID(subject, unit, m.Normalized)

	if n := g.NodeByID(id); n != nil {
		if m.Term != n.Concept.Term {
			n.Concept.Aliases = mergeAlias(n.Concept.Aliases, m.Term)
		}
		return id
	}

	g.AddNode(&Node{
		ID:   id,
		Kind: KindConcept,
		Concept: &ConceptAttrs{
			Term:       m.Term,
			Normalized: m.Normalized,
			Aliases:    []string{},
		},
	})
	g.AddEdge(&Edge{
		Source:     id,
		Target:     unitID,
		Relation:   RelationScopedTo,
		SourceNote: ProvenanceSystem,
	})
	return id
}

func mergeAlias(aliases []string, term string) []string {
	for _, a := range aliases {
		if a == term {
			return aliases
		}
	}
	aliases = append(aliases, term)
	// Stored sorted so persistence output is stable.
	sort.Strings(aliases)
	return aliases
}
