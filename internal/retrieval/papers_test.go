package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/llm"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/vectorstore"
)

type fixture struct {
	store  *vectorstore.Memory
	text   *llm.MockEmbedder
	visual *llm.MockVisual
	gen    *llm.MockGenerator
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  vectorstore.NewMemory(),
		text:   llm.NewMockEmbedder(2),
		visual: llm.NewMockVisual(2),
		gen:    llm.NewMockGenerator(),
	}
	f.engine = NewEngine(Deps{Store: f.store, Text: f.text, Visual: f.visual, Generator: f.gen}, Config{})
	return f
}

func chunk(id, source, path, category string, vec []float32, text string) vectorstore.Entry {
	return vectorstore.Entry{
		ID:        id,
		Embedding: vec,
		Metadata:  map[string]string{"source": source, "page": "1", "path": path, "category": category},
		Document:  text,
	}
}

func TestAggregate(t *testing.T) {
	matches := []vectorstore.Match{
		{Metadata: map[string]string{"source": "A.pdf", "path": "/p/RL/A.pdf", "category": "RL"}, Distance: 0.2},
		{Metadata: map[string]string{"source": "A.pdf", "path": "/elsewhere/A.pdf", "category": "X"}, Distance: 0.1},
		{Metadata: map[string]string{"source": "B.pdf", "path": "/p/MM/B.pdf", "category": "MM"}, Distance: 0.5},
	}
	got := Aggregate(matches)
	require.Len(t, got, 2)

	assert.Equal(t, "A.pdf", got[0].Filename)
	assert.InDelta(t, 0.1, got[0].BestDistance, 1e-6)
	assert.Equal(t, 2, got[0].Hits)
	assert.Equal(t, "/p/RL/A.pdf", got[0].Path, "first-seen path wins")
	assert.Equal(t, "RL", got[0].Category)

	assert.Equal(t, "B.pdf", got[1].Filename)
	assert.InDelta(t, 0.5, got[1].BestDistance, 1e-6)
	assert.Equal(t, 1, got[1].Hits)
}

func TestAggregate_OrderByBestDistance(t *testing.T) {
	matches := []vectorstore.Match{
		{Metadata: map[string]string{"source": "late.pdf"}, Distance: 0.4},
		{Metadata: map[string]string{"source": "early.pdf"}, Distance: 0.45},
		{Metadata: map[string]string{"source": "early.pdf"}, Distance: 0.05},
	}
	got := Aggregate(matches)
	require.Len(t, got, 2)
	assert.Equal(t, "early.pdf", got[0].Filename)
	assert.Empty(t, Aggregate(nil))
}

func TestCandidate_Relevance(t *testing.T) {
	assert.InDelta(t, 75.0, Candidate{BestDistance: 0.25}.Relevance(), 1e-4)
	assert.Equal(t, 0.0, Candidate{BestDistance: 1.4}.Relevance())
}

func TestListPapers_Reranks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.text.Vectors["graph learning"] = []float32{1, 0}
	require.NoError(t, f.store.Upsert(ctx, vectorstore.Write{Collection: vectorstore.PaperChunks, Entries: []vectorstore.Entry{
		chunk("a_p1_0", "a.pdf", "/kb/a.pdf", "RL", []float32{1, 0.1}, "x"),
		chunk("a_p2_1", "a.pdf", "/kb/a.pdf", "RL", []float32{1, 0.5}, "y"),
		chunk("b_p1_0", "b.pdf", "/kb/b.pdf", "MM", []float32{0.2, 1}, "z"),
	}}))
	f.gen.AddResponse("Highly relevant: a.pdf\nNot relevant: b.pdf")

	list, err := f.engine.ListPapers(ctx, "graph learning")
	require.NoError(t, err)
	require.Len(t, list.Candidates, 2)
	assert.Equal(t, "a.pdf", list.Candidates[0].Filename)
	assert.Equal(t, 2, list.Candidates[0].Hits)
	assert.NoError(t, list.RerankErr)
	assert.Equal(t, "Highly relevant: a.pdf\nNot relevant: b.pdf", list.Output())

	prompt := f.gen.LastCall().Prompt
	assert.Contains(t, prompt, `"graph learning"`)
	assert.Contains(t, prompt, "1. a.pdf (category: RL)")
	assert.Contains(t, prompt, "2. b.pdf (category: MM)")
	assert.Contains(t, prompt, "superficial keyword")
}

func TestListPapers_RerankFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.Upsert(ctx, vectorstore.Write{Collection: vectorstore.PaperChunks, Entries: []vectorstore.Entry{
		chunk("a_p1_0", "a.pdf", "/kb/a.pdf", "RL", []float32{1, 0}, "x"),
		chunk("b_p1_0", "b.pdf", "/kb/b.pdf", "MM", []float32{0, 1}, "z"),
	}}))
	f.text.Vectors["topic"] = []float32{0, 1}
	f.gen.AddErrorResponse(errors.New("503"))

	list, err := f.engine.ListPapers(ctx, "topic")
	require.NoError(t, err)
	assert.Error(t, list.RerankErr)
	assert.Equal(t, "b.pdf\na.pdf", list.Output())
}

func TestListPapers_Empty(t *testing.T) {
	f := newFixture(t)
	list, err := f.engine.ListPapers(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, list.Candidates)
	assert.Empty(t, f.gen.GetCalls())
}

func TestListPapers_EmbedFailure(t *testing.T) {
	f := newFixture(t)
	f.text.Err = errors.New("down")
	_, err := f.engine.ListPapers(context.Background(), "x")
	assert.Error(t, err)
}

func TestListPapers_UsesCandidatePool(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.engine = NewEngine(Deps{Store: f.store, Text: f.text, Visual: f.visual, Generator: f.gen}, Config{CandidatePool: 2})
	f.text.Vectors["q"] = []float32{1, 0}
	require.NoError(t, f.store.Upsert(ctx, vectorstore.Write{Collection: vectorstore.PaperChunks, Entries: []vectorstore.Entry{
		chunk("a", "a.pdf", "/a", "RL", []float32{1, 0}, ""),
		chunk("b", "b.pdf", "/b", "RL", []float32{1, 0.2}, ""),
		chunk("c", "c.pdf", "/c", "RL", []float32{0, 1}, ""),
	}}))

	list, err := f.engine.ListPapers(ctx, "q")
	require.NoError(t, err)
	assert.Len(t, list.Candidates, 2)
}

func TestSearchPapers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.text.Vectors["what is PPO"] = []float32{1, 0}
	require.NoError(t, f.store.Upsert(ctx, vectorstore.Write{Collection: vectorstore.PaperChunks, Entries: []vectorstore.Entry{
		chunk("ppo_p1_0", "ppo.pdf", "/kb/ppo.pdf", "RL", []float32{1, 0}, "PPO clips the policy ratio."),
		chunk("vit_p1_0", "vit.pdf", "/kb/vit.pdf", "MM", []float32{0, 1}, "Images as patches."),
	}}))
	f.gen.AddResponse("PPO is a policy gradient method.")

	ans, err := f.engine.SearchPapers(ctx, "what is PPO")
	require.NoError(t, err)
	require.Len(t, ans.References, 2)
	assert.Equal(t, "ppo.pdf", ans.References[0].Source)
	assert.Equal(t, "1", ans.References[0].Page)
	assert.Equal(t, "PPO is a policy gradient method.", ans.Text)

	prompt := f.gen.LastCall().Prompt
	assert.Contains(t, prompt, "what is PPO")
	assert.Contains(t, prompt, "PPO clips the policy ratio.\n\nImages as patches.")
}

func TestSearchPapers_NoHits(t *testing.T) {
	f := newFixture(t)
	ans, err := f.engine.SearchPapers(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, ans.References)
	assert.Empty(t, ans.Text)
	assert.Empty(t, f.gen.GetCalls())
}
