package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()
	m := NewMockEmbedder(4)
	m.Vectors["known"] = []float32{1, 0, 0, 0}
	boom := errors.New("boom")
	m.FailOn["bad"] = boom

	v, err := m.EmbedText(ctx, "known")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0}, v)

	a, err := m.EmbedText(ctx, "other")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, a, 4)
	assert.Equal(t, a, b)

	_, err = m.EmbedText(ctx, "bad")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"known", "other", "other", "bad"}, m.Calls())
}

func TestMockGenerator_QueueThenDefault(t *testing.T) {
	ctx := context.Background()
	g := NewMockGenerator()
	g.AddResponse("first")
	g.AddErrorResponse(errors.New("down"))

	out, err := g.Generate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	_, err = g.Generate(ctx, "p2")
	assert.Error(t, err)

	out, err = g.GenerateWithImage(ctx, "q", "/img.png")
	require.NoError(t, err)
	assert.Equal(t, "Mock response", out)

	last := g.LastCall()
	require.NotNil(t, last)
	assert.Equal(t, "GenerateWithImage", last.Method)
	assert.Equal(t, "/img.png", last.ImagePath)
	assert.Len(t, g.GetCalls(), 3)
}
