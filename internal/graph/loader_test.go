package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noteInput(path, hash string, mentions ...Mention) LoadInput {
	return LoadInput{
		SourcePath:  path,
		Subject:     "cs",
		Unit:        "algorithms",
		ContentHash: hash,
		Text:        "text for " + path,
		Mentions:    mentions,
	}
}

func TestLoadNoteFresh(t *testing.T) {
	g := New()

	result := g.LoadNote(noteInput("/notes/a.txt", "hash-1",
		Mention{Term: "Machine Learning", Normalized: "machine learning"},
		Mention{Term: "gradient descent", Normalized: "gradient descent"},
	))

	assert.Equal(t, ActionLoaded, result.Action)
	assert.Equal(t, 2, result.Concepts)
	assert.Equal(t, 2, result.EdgesTouched)

	assert.True(t, g.HasNode(SubjectID("cs")))
	assert.True(t, g.HasNode(UnitID("cs", "algorithms")))
	assert.True(t, g.HasNode(result.NoteID))
	assert.True(t, g.HasNode(ConceptID("cs", "algorithms", "machine learning")))

	// unit->subject, note->unit, 2x concept->unit, 2x note->concept
	assert.Equal(t, 6, g.EdgeCount())

	mention := g.EdgeBetween(result.NoteID, ConceptID("cs", "algorithms", "machine learning"))
	require.NotNil(t, mention)
	assert.Equal(t, RelationMentions, mention.Relation)
	assert.Equal(t, result.NoteID, mention.SourceNote)

	structural := g.EdgeBetween(UnitID("cs", "algorithms"), SubjectID("cs"))
	require.NotNil(t, structural)
	assert.Equal(t, ProvenanceSystem, structural.SourceNote)
}

func TestLoadNoteIdempotentOnSameHash(t *testing.T) {
	g := New()
	in := noteInput("/notes/a.txt", "hash-1", Mention{Term: "binary search", Normalized: "binary search"})

	first := g.LoadNote(in)
	require.Equal(t, ActionLoaded, first.Action)
	nodes, edges := g.NodeCount(), g.EdgeCount()

	second := g.LoadNote(in)
	assert.Equal(t, ActionSkipped, second.Action)
	assert.Zero(t, second.Concepts)
	assert.Zero(t, second.EdgesTouched)
	assert.Equal(t, nodes, g.NodeCount())
	assert.Equal(t, edges, g.EdgeCount())
}

func TestLoadNoteRebuildOnChangedHash(t *testing.T) {
	g := New()
	g.LoadNote(noteInput("/notes/a.txt", "hash-1",
		Mention{Term: "old concept", Normalized: "old concept"},
	))

	result := g.LoadNote(noteInput("/notes/a.txt", "hash-2",
		Mention{Term: "new concept", Normalized: "new concept"},
	))

	assert.Equal(t, ActionRebuilt, result.Action)
	assert.False(t, g.HasNode(ConceptID("cs", "algorithms", "old concept")),
		"concept with no remaining source must be garbage-collected")
	assert.True(t, g.HasNode(ConceptID("cs", "algorithms", "new concept")))

	n := g.NodeByID(result.NoteID)
	require.NotNil(t, n)
	assert.Equal(t, "hash-2", n.Note.ContentHash)
}

func TestRebuildKeepsSharedConcepts(t *testing.T) {
	g := New()
	shared := Mention{Term: "shared concept", Normalized: "shared concept"}
	g.LoadNote(noteInput("/notes/a.txt", "a-1", shared))
	g.LoadNote(noteInput("/notes/b.txt", "b-1", shared))

	// Rebuild A without the shared concept; B still sustains it.
	g.LoadNote(noteInput("/notes/a.txt", "a-2",
		Mention{Term: "other concept", Normalized: "other concept"},
	))

	conceptID := ConceptID("cs", "algorithms", "shared concept")
	assert.True(t, g.HasNode(conceptID))
	assert.Nil(t, g.EdgeBetween(NoteID("/notes/a.txt"), conceptID))
	assert.NotNil(t, g.EdgeBetween(NoteID("/notes/b.txt"), conceptID))
}

func TestRetractNoteGarbageCollection(t *testing.T) {
	g := New()
	shared := Mention{Term: "shared concept", Normalized: "shared concept"}
	g.LoadNote(noteInput("/notes/a.txt", "a-1", shared))
	g.LoadNote(noteInput("/notes/b.txt", "b-1", shared))
	conceptID := ConceptID("cs", "algorithms", "shared concept")

	require.True(t, g.RetractNote(NoteID("/notes/a.txt")))
	assert.True(t, g.HasNode(conceptID), "B still mentions the concept")

	require.True(t, g.RetractNote(NoteID("/notes/b.txt")))
	assert.False(t, g.HasNode(conceptID), "last source retracted")

	// Subject and unit survive even when empty.
	assert.True(t, g.HasNode(SubjectID("cs")))
	assert.True(t, g.HasNode(UnitID("cs", "algorithms")))

	assert.False(t, g.RetractNote(NoteID("/notes/missing.txt")))
}

func TestAliasAccumulation(t *testing.T) {
	g := New()
	g.LoadNote(noteInput("/notes/a.txt", "a-1",
		Mention{Term: "Graph Algorithm", Normalized: "graph algorithm"},
	))
	g.LoadNote(noteInput("/notes/b.txt", "b-1",
		Mention{Term: "graph algorithm", Normalized: "graph algorithm"},
	))

	conceptID := ConceptID("cs", "algorithms", "graph algorithm")
	n := g.NodeByID(conceptID)
	require.NotNil(t, n)
	assert.Equal(t, "Graph Algorithm", n.Concept.Term, "canonical term is first-seen")
	assert.Equal(t, []string{"graph algorithm"}, n.Concept.Aliases)

	assert.NotNil(t, g.EdgeBetween(NoteID("/notes/a.txt"), conceptID))
	assert.NotNil(t, g.EdgeBetween(NoteID("/notes/b.txt"), conceptID))
}

func TestAliasSetDedupedAndSorted(t *testing.T) {
	g := New()
	g.LoadNote(noteInput("/notes/a.txt", "a-1",
		Mention{Term: "FFT", Normalized: "fft"},
	))
	g.LoadNote(noteInput("/notes/b.txt", "b-1",
		Mention{Term: "fft", Normalized: "fft"},
		Mention{Term: "Fft", Normalized: "fft"},
		Mention{Term: "fft", Normalized: "fft"},
	))

	n := g.NodeByID(ConceptID("cs", "algorithms", "fft"))
	require.NotNil(t, n)
	assert.Equal(t, []string{"Fft", "fft"}, n.Concept.Aliases)
}

func TestEdgesTouchedCountsEntriesNotEdges(t *testing.T) {
	g := New()

	// Two surface forms of one concept: one mentions edge, but the
	// result counts both processed entries.
	result := g.LoadNote(noteInput("/notes/a.txt", "a-1",
		Mention{Term: "Machine Learning", Normalized: "machine learning"},
		Mention{Term: "machine learning", Normalized: "machine learning"},
	))

	assert.Equal(t, 2, result.Concepts)
	assert.Equal(t, 2, result.EdgesTouched)

	conceptID := ConceptID("cs", "algorithms", "machine learning")
	mentions := 0
	for _, e := range g.In(conceptID) {
		if e.Relation == RelationMentions {
			mentions++
		}
	}
	assert.Equal(t, 1, mentions, "only one mentions edge per note/concept pair")
}

func TestLoadNoteEmptyMentions(t *testing.T) {
	g := New()
	result := g.LoadNote(noteInput("/notes/empty.txt", "e-1"))

	assert.Equal(t, ActionLoaded, result.Action)
	assert.Zero(t, result.Concepts)
	assert.Zero(t, result.EdgesTouched)
	assert.True(t, g.HasNode(SubjectID("cs")))
	assert.True(t, g.HasNode(UnitID("cs", "algorithms")))
	assert.True(t, g.HasNode(result.NoteID))
	// unit->subject plus note->unit only
	assert.Equal(t, 2, g.EdgeCount())
}

func TestSameTermDifferentUnitsDistinctConcepts(t *testing.T) {
	g := New()
	g.LoadNote(LoadInput{
		SourcePath: "/notes/a.txt", Subject: "cs", Unit: "algorithms",
		ContentHash: "a-1",
		Mentions:    []Mention{{Term: "graph theory", Normalized: "graph theory"}},
	})
	g.LoadNote(LoadInput{
		SourcePath: "/notes/b.txt", Subject: "cs", Unit: "discrete math",
		ContentHash: "b-1",
		Mentions:    []Mention{{Term: "graph theory", Normalized: "graph theory"}},
	})

	assert.True(t, g.HasNode(ConceptID("cs", "algorithms", "graph theory")))
	assert.True(t, g.HasNode(ConceptID("cs", "discrete math", "graph theory")))
}
