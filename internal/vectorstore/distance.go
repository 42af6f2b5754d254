package vectorstore

import (
	"math"
	"sort"
)

// cosineDistance returns 1 - cosine similarity: 0 for identical directions,
// 2 for opposite ones. Zero vectors are at distance 1 from everything.
func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

// stored is a row as seen by the ranker. Rows must be passed in storage order.
type stored struct {
	id       string
	vector   []float32
	metadata map[string]string
	document string
}

// rank orders rows by distance to query, keeping storage order for ties.
func rank(rows []stored, query []float32, topK int) []Match {
	matches := make([]Match, len(rows))
	for i, r := range rows {
		matches[i] = Match{
			ID:       r.id,
			Metadata: r.metadata,
			Document: r.document,
			Distance: cosineDistance(query, r.vector),
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if topK > 0 && topK < len(matches) {
		matches = matches[:topK]
	}
	return matches
}
