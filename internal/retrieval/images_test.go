package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/vectorstore"
)

func addImage(t *testing.T, f *fixture, name, path, desc string, descVec, visVec []float32) {
	t.Helper()
	meta := func(extra map[string]string) map[string]string {
		m := map[string]string{"source": name, "path": path, "category": "Photos"}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}
	require.NoError(t, f.store.Upsert(context.Background(),
		vectorstore.Write{Collection: vectorstore.ImageVisuals, Entries: []vectorstore.Entry{
			{ID: "img_clip_" + name, Embedding: visVec, Metadata: meta(nil)},
		}},
		vectorstore.Write{Collection: vectorstore.ImageDescriptions, Entries: []vectorstore.Entry{
			{ID: "img_desc_" + name, Embedding: descVec, Metadata: meta(map[string]string{"desc": desc}), Document: desc},
		}},
	))
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))
}

func TestSearchImages_SeparateChannels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	addImage(t, f, "cat.jpg", "/kb/cat.jpg", "a cat", []float32{1, 0}, []float32{0, 1})
	addImage(t, f, "dog.jpg", "/kb/dog.jpg", "a dog", []float32{0, 1}, []float32{1, 0})
	f.text.Vectors["cat"] = []float32{1, 0}
	f.visual.Texts["cat"] = []float32{1, 0}

	res := f.engine.SearchImages(ctx, "cat")
	require.NoError(t, res.Semantic.Err)
	require.NoError(t, res.Visual.Err)
	assert.Equal(t, ChannelSemantic, res.Semantic.Channel)
	assert.Equal(t, ChannelVisual, res.Visual.Channel)

	require.Len(t, res.Semantic.Hits, 2)
	assert.Equal(t, "cat.jpg", res.Semantic.Hits[0].Filename)
	assert.Equal(t, "a cat", res.Semantic.Hits[0].Description)

	require.Len(t, res.Visual.Hits, 2)
	assert.Equal(t, "dog.jpg", res.Visual.Hits[0].Filename)
	assert.Empty(t, res.Visual.Hits[0].Description)
}

func TestSearchImages_ChannelFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	addImage(t, f, "cat.jpg", "/kb/cat.jpg", "a cat", []float32{1, 0}, []float32{0, 1})
	f.visual.TextErr = errors.New("clip down")

	res := f.engine.SearchImages(context.Background(), "cat")
	assert.NoError(t, res.Semantic.Err)
	assert.Len(t, res.Semantic.Hits, 1)
	assert.Error(t, res.Visual.Err)
	assert.Empty(t, res.Visual.Hits)

	f.visual.TextErr = nil
	f.text.Err = errors.New("gemini down")
	res = f.engine.SearchImages(context.Background(), "cat")
	assert.Error(t, res.Semantic.Err)
	assert.NoError(t, res.Visual.Err)
	assert.Len(t, res.Visual.Hits, 1)
}

func TestSearchImages_TopK(t *testing.T) {
	f := newFixture(t)
	for _, n := range []string{"a.png", "b.png", "c.png", "d.png"} {
		addImage(t, f, n, "/kb/"+n, n, []float32{1, 0}, []float32{1, 0})
	}
	res := f.engine.SearchImages(context.Background(), "q")
	assert.Len(t, res.Semantic.Hits, 3)
	assert.Len(t, res.Visual.Hits, 3)
}

func TestAskImage_SemanticWins(t *testing.T) {
	dir := t.TempDir()
	catPath, dogPath := filepath.Join(dir, "cat.jpg"), filepath.Join(dir, "dog.jpg")
	touch(t, catPath)
	touch(t, dogPath)

	f := newFixture(t)
	addImage(t, f, "cat.jpg", catPath, "a cat", []float32{1, 0}, []float32{0, 1})
	addImage(t, f, "dog.jpg", dogPath, "a dog", []float32{0, 1}, []float32{1, 0})
	f.text.Vectors["the cat"] = []float32{1, 0}
	f.visual.Texts["the cat"] = []float32{1, 0}
	f.gen.AddResponse("It is orange.")

	ans, err := f.engine.AskImage(context.Background(), "the cat", "what color?")
	require.NoError(t, err)
	assert.Equal(t, ChannelSemantic, ans.Channel)
	assert.Equal(t, catPath, ans.Image.Path)
	assert.Equal(t, "It is orange.", ans.Text)

	call := f.gen.LastCall()
	assert.Equal(t, "GenerateWithImage", call.Method)
	assert.Equal(t, "what color?", call.Prompt)
	assert.Equal(t, catPath, call.ImagePath)
}

func TestResolveImage_FallsBackToVisual(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// A visual entry without a description entry: the semantic channel is empty.
	require.NoError(t, f.store.Upsert(ctx, vectorstore.Write{Collection: vectorstore.ImageVisuals, Entries: []vectorstore.Entry{
		{ID: "img_clip_x.png", Embedding: []float32{1, 0}, Metadata: map[string]string{"source": "x.png", "path": "/kb/x.png"}},
	}}))

	hit, channel, err := f.engine.ResolveImage(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, ChannelVisual, channel)
	assert.Equal(t, "/kb/x.png", hit.Path)

	f.text.Err = errors.New("down")
	_, channel, err = f.engine.ResolveImage(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, ChannelVisual, channel)
}

func TestAskImage_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.AskImage(context.Background(), "anything", "q")
	assert.ErrorIs(t, err, ErrImageNotFound)

	addImage(t, f, "gone.jpg", filepath.Join(t.TempDir(), "gone.jpg"), "gone", []float32{1, 0}, []float32{1, 0})
	_, err = f.engine.AskImage(context.Background(), "anything", "q")
	assert.ErrorIs(t, err, ErrImageNotFound)
	assert.Empty(t, f.gen.GetCalls())
}
