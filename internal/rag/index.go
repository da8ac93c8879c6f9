package rag

import (
	"fmt"
	"sort"
)

// Index is a flat exact-scan vector index using squared L2 distance.
// Row i corresponds to chunk i of the document it was built for; callers
// must append vectors in chunk order and never remove them.
//
// A flat scan is deliberate: document chunk counts are small (hundreds), the
// index lives only in the per-conversation cache, and exact L2 keeps the
// row-to-chunk mapping trivial.
type Index struct {
	dim     int
	vectors [][]float32
}

// NewIndex creates an empty index for vectors of the given dimension.
func NewIndex(dim int) *Index {
	return &Index{dim: dim}
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int {
	return len(ix.vectors)
}

// Add appends vectors to the index. All vectors must match the index
// dimension.
func (ix *Index) Add(vectors ...[]float32) error {
	for _, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(v), ix.dim)
		}
	}
	ix.vectors = append(ix.vectors, vectors...)
	return nil
}

// Search returns the indices of the k nearest vectors to query by L2
// distance, ordered by increasing distance, along with the squared
// distances. At most Len() results are returned.
func (ix *Index) Search(query []float32, k int) ([]int, []float32, error) {
	if len(query) != ix.dim {
		return nil, nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), ix.dim)
	}
	if k > len(ix.vectors) {
		k = len(ix.vectors)
	}
	if k <= 0 {
		return nil, nil, nil
	}

	type scored struct {
		index    int
		distance float32
	}
	results := make([]scored, len(ix.vectors))
	for i, v := range ix.vectors {
		var sum float32
		for j := range v {
			d := v[j] - query[j]
			sum += d * d
		}
		results[i] = scored{index: i, distance: sum}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].distance < results[j].distance
	})

	indices := make([]int, k)
	distances := make([]float32, k)
	for i := 0; i < k; i++ {
		indices[i] = results[i].index
		distances[i] = results[i].distance
	}
	return indices, distances, nil
}
