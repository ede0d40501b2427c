// Package match resolves probe descriptors against a gallery of enrolled
// identities. Matching is pure computation over its inputs; gallery snapshots
// are loaded by the caller.
package match

import (
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/your-org/presence/internal/models"
)

// ErrDimensionMismatch reports descriptors of different lengths.
var ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

// Result is the outcome of resolving one probe.
type Result struct {
	Matched    bool
	IdentityID uuid.UUID
	// Distance is the Euclidean distance to the winning descriptor.
	// Only meaningful when Matched is true.
	Distance float64
	// Skipped counts gallery entries ignored due to dimension mismatch.
	Skipped int
}

// Distance computes the Euclidean (L2) distance between two descriptors.
func Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, ErrDimensionMismatch
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Select finds the gallery entry closest to probe and accepts it when its
// distance is within threshold. Gallery entries whose descriptor length
// disagrees with the probe are skipped, never aborting the scan.
//
// Ties on the exact minimum distance resolve to the lexicographically
// smallest identity ID, so repeated calls are deterministic.
func Select(probe []float32, gallery []models.GalleryEntry, threshold float64) Result {
	var res Result

	best := math.Inf(1)
	var bestID uuid.UUID
	found := false

	for _, entry := range gallery {
		d, err := Distance(probe, entry.Descriptor)
		if err != nil {
			res.Skipped++
			continue
		}
		if !found || d < best || (d == best && less(entry.IdentityID, bestID)) {
			best = d
			bestID = entry.IdentityID
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

func less(a, b uuid.UUID) bool {
	return a.String() < b.String()
}
