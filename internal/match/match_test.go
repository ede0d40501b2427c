package match

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/your-org/presence/internal/models"
)

var (
	idA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	idB = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	idC = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
)

func twoPersonGallery() []models.GalleryEntry {
	return []models.GalleryEntry{
		{IdentityID: idA, Descriptor: []float32{0, 0}},
		{IdentityID: idB, Descriptor: []float32{10, 10}},
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float32
		want    float64
		wantErr bool
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 0},
		{name: "unit apart", a: []float32{0, 0}, b: []float32{0, 1}, want: 1},
		{name: "pythagorean", a: []float32{0, 0}, b: []float32{3, 4}, want: 5},
		{name: "length mismatch", a: []float32{1, 2}, b: []float32{1, 2, 3}, wantErr: true},
		{name: "empty", a: nil, b: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Distance(tt.a, tt.b)
			if tt.wantErr {
				if err != ErrDimensionMismatch {
					t.Fatalf("expected ErrDimensionMismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Distance() error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestSelect_NearProbe(t *testing.T) {
	res := Select([]float32{0.1, 0.1}, twoPersonGallery(), 1.0)
	if !res.Matched {
		t.Fatal("expected match")
	}
	if res.IdentityID != idA {
		t.Errorf("expected identity %s, got %s", idA, res.IdentityID)
	}
}

func TestSelect_FarProbe(t *testing.T) {
	res := Select([]float32{5, 5}, twoPersonGallery(), 1.0)
	if res.Matched {
		t.Errorf("expected no match, got identity %s at distance %f", res.IdentityID, res.Distance)
	}
}

func TestSelect_EmptyGallery(t *testing.T) {
	res := Select([]float32{1, 2, 3}, nil, 100)
	if res.Matched {
		t.Error("expected no match for empty gallery")
	}
}

func TestSelect_SelfMatch(t *testing.T) {
	gallery := twoPersonGallery()
	for _, entry := range gallery {
		res := Select(entry.Descriptor, gallery, 0)
		if !res.Matched {
			t.Fatalf("expected self-match for %s", entry.IdentityID)
		}
		if res.IdentityID != entry.IdentityID {
			t.Errorf("self-match resolved to %s, want %s", res.IdentityID, entry.IdentityID)
		}
		if res.Distance != 0 {
			t.Errorf("self-match distance = %f, want 0", res.Distance)
		}
	}
}

func TestSelect_Deterministic(t *testing.T) {
	probe := []float32{0.3, 0.2}
	gallery := twoPersonGallery()

	first := Select(probe, gallery, 1.0)
	for i := 0; i < 10; i++ {
		if got := Select(probe, gallery, 1.0); got != first {
			t.Fatalf("call %d returned %+v, first call returned %+v", i, got, first)
		}
	}
}

func TestSelect_ThresholdMonotonicity(t *testing.T) {
	probe := []float32{0.5, 0.5}
	gallery := twoPersonGallery()

	tight := Select(probe, gallery, 1.0)
	if !tight.Matched {
		t.Fatal("expected match at threshold 1.0")
	}
	for _, threshold := range []float64{1.5, 2.0, 50.0} {
		loose := Select(probe, gallery, threshold)
		if !loose.Matched {
			t.Fatalf("expected match at threshold %f", threshold)
		}
		if loose.IdentityID != tight.IdentityID {
			t.Errorf("threshold %f resolved to %s, want %s", threshold, loose.IdentityID, tight.IdentityID)
		}
	}
}

func TestSelect_TieBreakLowestID(t *testing.T) {
	// idC before idA in the slice; both at the same distance from the probe.
	gallery := []models.GalleryEntry{
		{IdentityID: idC, Descriptor: []float32{0, 1}},
		{IdentityID: idA, Descriptor: []float32{0, -1}},
	}

	res := Select([]float32{0, 0}, gallery, 2.0)
	if !res.Matched {
		t.Fatal("expected match")
	}
	if res.IdentityID != idA {
		t.Errorf("tie resolved to %s, want lexicographically smallest %s", res.IdentityID, idA)
	}
}

func TestSelect_DimensionMismatchSkipped(t *testing.T) {
	gallery := []models.GalleryEntry{
		{IdentityID: idB, Descriptor: []float32{1, 2, 3}}, // wrong length
		{IdentityID: idA, Descriptor: []float32{0, 0}},
	}

	res := Select([]float32{0.1, 0}, gallery, 1.0)
	if !res.Matched {
		t.Fatal("expected match despite bad gallery entry")
	}
	if res.IdentityID != idA {
		t.Errorf("resolved to %s, want %s", res.IdentityID, idA)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
}

func TestSelect_AllMismatched(t *testing.T) {
	gallery := []models.GalleryEntry{
		{IdentityID: idA, Descriptor: []float32{1, 2, 3}},
		{IdentityID: idB, Descriptor: []float32{4, 5, 6, 7}},
	}

	res := Select([]float32{0, 0}, gallery, 100)
	if res.Matched {
		t.Error("expected no match when every entry is skipped")
	}
	if res.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", res.Skipped)
	}
}

func TestSelect_ExactThresholdBoundary(t *testing.T) {
	gallery := []models.GalleryEntry{{IdentityID: idA, Descriptor: []float32{0, 0}}}

	// Distance is exactly 1.0; accept is <=.
	res := Select([]float32{0, 1}, gallery, 1.0)
	if !res.Matched {
		t.Error("expected match at exact threshold boundary")
	}
}
