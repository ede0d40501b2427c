package match

import (
	"math"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/uuid"

	"github.com/your-org/presence/internal/models"
)

const (
	indexMaxNeighbors = 16
	// searchCandidates bounds the approximate search; the exact accept
	// decision is re-run over the candidates.
	searchCandidates = 8
)

// Index is an HNSW approximate-nearest-neighbor index over a gallery
// snapshot. It keeps the same accept and tie-break contract as Select:
// candidates from the graph are re-ranked by exact Euclidean distance.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	dim     int
	size    int
	skipped int
}

// NewIndex builds an index from a gallery snapshot. Entries whose descriptor
// length disagrees with the first entry are skipped and counted.
func NewIndex(gallery []models.GalleryEntry) *Index {
	idx := &Index{}
	idx.Rebuild(gallery)
	return idx
}

// Rebuild replaces the index contents with a fresh gallery snapshot.
func (ix *Index) Rebuild(gallery []models.GalleryEntry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.graph = nil
	ix.dim = 0
	ix.size = 0
	ix.skipped = 0

	if len(gallery) == 0 {
		return
	}

	g := hnsw.NewGraph[string]()
	g.M = indexMaxNeighbors
	g.Ml = 1.0 / float64(indexMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	for _, entry := range gallery {
		if len(entry.Descriptor) == 0 {
			ix.skipped++
			continue
		}
		if ix.dim == 0 {
			ix.dim = len(entry.Descriptor)
		}
		if len(entry.Descriptor) != ix.dim {
			ix.skipped++
			continue
		}
		g.Add(hnsw.MakeNode(entry.IdentityID.String(), entry.Descriptor))
		ix.size++
	}

	ix.graph = g
}

// Size returns the number of indexed descriptors.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.size
}

// Select resolves a probe against the index with the same contract as the
// brute-force Select.
func (ix *Index) Select(probe []float32, threshold float64) Result {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	res := Result{Skipped: ix.skipped}
	if ix.graph == nil || ix.size == 0 {
		return res
	}
	if len(probe) != ix.dim {
		res.Skipped += ix.size
		return res
	}

	k := searchCandidates
	if k > ix.size {
		k = ix.size
	}
	neighbors := ix.graph.Search(probe, k)

	best := math.Inf(1)
	var bestID uuid.UUID
	found := false

	for _, n := range neighbors {
		d, err := Distance(probe, n.Value)
		if err != nil {
			continue
		}
		id, err := uuid.Parse(n.Key)
		if err != nil {
			continue
		}
		if !found || d < best || (d == best && less(id, bestID)) {
			best = d
			bestID = id
			found = true
		}
	}

	if found && best <= threshold {
		res.Matched = true
		res.IdentityID = bestID
		res.Distance = best
	}
	return res
}
