package match

import (
	"sync"

	"github.com/your-org/presence/internal/models"
)

// Resolver holds the current gallery snapshot and resolves probes against it,
// either by brute-force scan or through the HNSW index.
type Resolver struct {
	mu        sync.RWMutex
	threshold float64
	useIndex  bool
	gallery   []models.GalleryEntry
	index     *Index
}

func NewResolver(threshold float64, useIndex bool) *Resolver {
	r := &Resolver{threshold: threshold, useIndex: useIndex}
	if useIndex {
		r.index = NewIndex(nil)
	}
	return r
}

// SetGallery replaces the snapshot. Call after enrollment or on a refresh
// interval; the identity store is the source of truth.
func (r *Resolver) SetGallery(gallery []models.GalleryEntry) {
	r.mu.Lock()
	r.gallery = gallery
	r.mu.Unlock()
	if r.useIndex {
		r.index.Rebuild(gallery)
	}
}

// Size returns the number of entries in the current snapshot.
func (r *Resolver) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.gallery)
}

// Resolve matches one probe against the current snapshot.
func (r *Resolver) Resolve(probe []float32) Result {
	if r.useIndex {
		return r.index.Select(probe, r.threshold)
	}
	r.mu.RLock()
	gallery := r.gallery
	r.mu.RUnlock()
	return Select(probe, gallery, r.threshold)
}
