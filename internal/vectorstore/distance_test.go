package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineDistance(tt.a, tt.b), 1e-6)
		})
	}
}

func TestRank_TopK(t *testing.T) {
	rows := []stored{
		{id: "far", vector: []float32{0, 1}},
		{id: "near", vector: []float32{1, 0}},
	}
	got := rank(rows, []float32{1, 0}, 1)
	assert.Len(t, got, 1)
	assert.Equal(t, "near", got[0].ID)

	all := rank(rows, []float32{1, 0}, 0)
	assert.Len(t, all, 2)
}
