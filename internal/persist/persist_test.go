package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelworks/kg/internal/graph"
)

func graphPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "graph.json")
}

func sampleGraph() *graph.Graph {
	g := graph.New()
	g.LoadNote(graph.LoadInput{
		SourcePath:  "/notes/a.txt",
		Subject:     "cs",
		Unit:        "algorithms",
		ContentHash: "hash-a",
		Text:        "Machine Learning everywhere.",
		Mentions: []graph.Mention{
			{Term: "Machine Learning", Normalized: "machine learning"},
			{Term: "machine learning", Normalized: "machine learning"},
			{Term: "gradient descent", Normalized: "gradient descent"},
		},
	})
	return g
}

func TestLoadMissingFileReturnsEmptyGraph(t *testing.T) {
	g, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Zero(t, g.NodeCount())
	assert.Zero(t, g.EdgeCount())
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := graphPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadNodeWithoutTypeFails(t *testing.T) {
	path := graphPath(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"nodes":{"x":{"name":"a"}},"edges":[]}`), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadDanglingEdgeFails(t *testing.T) {
	path := graphPath(t)
	doc := `{"nodes":{"subject::cs":{"type":"subject","name":"cs"}},` +
		`"edges":[{"source":"subject::cs","target":"unit::cs::x","relation":"belongs_to","sourceNote":"system"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSaveThenLoadRestoresGraph(t *testing.T) {
	path := graphPath(t)
	g := sampleGraph()
	require.NoError(t, Save(path, g))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, g.NodeCount(), loaded.NodeCount())
	assert.Equal(t, g.EdgeCount(), loaded.EdgeCount())

	n := loaded.NodeByID(graph.ConceptID("cs", "algorithms", "machine learning"))
	require.NotNil(t, n)
	assert.Equal(t, graph.KindConcept, n.Kind)
	assert.Equal(t, "Machine Learning", n.Concept.Term)
	assert.Equal(t, []string{"machine learning"}, n.Concept.Aliases)

	note := loaded.NodeByID(graph.NoteID("/notes/a.txt"))
	require.NotNil(t, note)
	assert.Equal(t, "hash-a", note.Note.ContentHash)
	assert.Equal(t, "Machine Learning everywhere.", note.Note.Text)

	e := loaded.EdgeBetween(graph.NoteID("/notes/a.txt"), graph.ConceptID("cs", "algorithms", "machine learning"))
	require.NotNil(t, e)
	assert.Equal(t, graph.RelationMentions, e.Relation)
	assert.Equal(t, graph.NoteID("/notes/a.txt"), e.SourceNote)
}

func TestRoundTripIsStable(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")

	require.NoError(t, Save(first, sampleGraph()))
	loaded, err := Load(first)
	require.NoError(t, err)
	require.NoError(t, Save(second, loaded))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b), "save(load(save(G))) must equal save(G)")
}

func TestRoundTripPreservesExtraAttributes(t *testing.T) {
	path := graphPath(t)
	doc := map[string]any{
		"nodes": map[string]any{
			"subject::cs": map[string]any{"type": "subject", "name": "cs", "color": "blue", "weight": 3.5},
			"unit::cs::algorithms": map[string]any{"type": "unit", "name": "algorithms",
				"tags": []any{"hard", "fun"}},
		},
		"edges": []any{
			map[string]any{"source": "unit::cs::algorithms", "target": "subject::cs",
				"relation": "belongs_to", "sourceNote": "system", "confidence": 0.9},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	g, err := Load(path)
	require.NoError(t, err)

	subject := g.NodeByID("subject::cs")
	require.NotNil(t, subject)
	assert.Equal(t, "blue", subject.Extra["color"])
	assert.Equal(t, 3.5, subject.Extra["weight"])

	unit := g.NodeByID("unit::cs::algorithms")
	require.NotNil(t, unit)
	assert.Equal(t, []any{"hard", "fun"}, unit.Extra["tags"])

	e := g.EdgeBetween("unit::cs::algorithms", "subject::cs")
	require.NotNil(t, e)
	assert.Equal(t, 0.9, e.Extra["confidence"])

	// The extras survive a full save/load cycle too.
	out := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, Save(out, g))
	reloaded, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, "blue", reloaded.NodeByID("subject::cs").Extra["color"])
	assert.Equal(t, []any{"hard", "fun"}, reloaded.NodeByID("unit::cs::algorithms").Extra["tags"])
	assert.Equal(t, 0.9, reloaded.EdgeBetween("unit::cs::algorithms", "subject::cs").Extra["confidence"])
}

func TestSaveReplacesExistingFile(t *testing.T) {
	path := graphPath(t)
	require.NoError(t, Save(path, sampleGraph()))

	empty := graph.New()
	require.NoError(t, Save(path, empty))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, loaded.NodeCount())

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(path), entries[0].Name())
}

func TestSaveEmptyGraphDocumentShape(t *testing.T) {
	path := graphPath(t)
	require.NoError(t, Save(path, graph.New()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Nodes map[string]any `json:"nodes"`
		Edges []any          `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Empty(t, doc.Nodes)
	assert.NotNil(t, doc.Edges)
}
