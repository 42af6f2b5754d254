package ingest

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/extract"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/vectorstore"
)

func TestScan(t *testing.T) {
	f := newFixture(t)
	f.file(t, "a.pdf")
	f.file(t, "b.png")
	f.file(t, ".hidden.pdf")
	f.file(t, "notes.txt")
	f.file(t, filepath.Join("sub", "c.JPG"))

	files, err := Scan(f.inbox)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(f.inbox, "a.pdf"),
		filepath.Join(f.inbox, "b.png"),
		filepath.Join(f.inbox, "sub", "c.JPG"),
	}, files)
}

func TestScan_NotADirectory(t *testing.T) {
	f := newFixture(t)
	_, err := Scan(f.file(t, "a.pdf"))
	assert.ErrorIs(t, err, ErrNotADirectory)

	_, err = Scan(filepath.Join(f.dir, "missing"))
	assert.ErrorIs(t, err, ErrNotADirectory)
}

func TestBatch_ProcessesEveryFile(t *testing.T) {
	for _, workers := range []int{0, 3} {
		f := newFixture(t)
		f.file(t, "a.pdf")
		f.file(t, "empty.pdf")
		f.file(t, "b.png")
		f.file(t, filepath.Join("sub", "c.jpg"))
		f.file(t, ".DS_Store")
		f.pages["a.pdf"] = []extract.Page{{Number: 1, Text: longText("alpha")}}
		f.gen.Default = "Photos"

		var seen atomic.Int32
		br, err := f.pipeline.Batch(context.Background(), f.inbox, BatchOptions{
			Workers:  workers,
			OnResult: func(*Result) { seen.Add(1) },
		})
		require.NoError(t, err)

		_, parseErr := uuid.Parse(br.RunID)
		assert.NoError(t, parseErr)
		assert.Equal(t, 2, br.Papers)
		assert.Equal(t, 2, br.Images)
		assert.Equal(t, 3, br.Persisted)
		assert.Equal(t, 1, br.Aborted)
		assert.Equal(t, 1, br.Degraded, "paper answered with an image label")
		assert.Equal(t, int32(4), seen.Load())
		require.Len(t, br.Completed(), 4)
		assert.Equal(t, "a.pdf", br.Results[0].Source)
		assert.Equal(t, "b.png", br.Results[1].Source)
		assert.ErrorIs(t, br.Results[2].Err, ErrExtractionEmpty)

		assert.Equal(t, 1, f.count(t, vectorstore.PaperChunks))
		assert.Equal(t, 2, f.count(t, vectorstore.ImageVisuals))
		assert.FileExists(t, filepath.Join(f.dir, "images", "Photos", "c.jpg"))

		again, err := f.pipeline.Batch(context.Background(), f.inbox, BatchOptions{Workers: workers})
		require.NoError(t, err)
		assert.Equal(t, 1, again.Aborted, "empty.pdf is retried and fails again")
		assert.Zero(t, again.Persisted)
	}
}

func TestBatch_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.file(t, "a.pdf")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	br, err := f.pipeline.Batch(ctx, f.inbox, BatchOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, br)
	assert.Empty(t, br.Completed())
}

func TestBatch_InvalidFolder(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipeline.Batch(context.Background(), filepath.Join(f.dir, "nope"), BatchOptions{})
	assert.ErrorIs(t, err, ErrNotADirectory)
}
