package cover

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/robert-malhotra/burn-severity/internal/geometry"
)

func box(t *testing.T, id string, w, s, e, n float64) Footprint {
	t.Helper()
	p, err := geometry.BBox{West: w, South: s, East: e, North: n}.Polygon()
	if err != nil {
		t.Fatalf("Polygon() error: %v", err)
	}
	return NewFootprint(id, p, 0, time.Time{})
}

func unionArea(fps []Footprint) float64 {
	polys := make([]geometry.Polygon, len(fps))
	for i, fp := range fps {
		polys[i] = fp.Polygon
	}
	return geometry.Union(polys...).Area()
}

func TestSort(t *testing.T) {
	t0 := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	fps := []Footprint{
		{ID: "c", CloudCover: 5, Ingestion: t0},
		{ID: "b", CloudCover: 1, Ingestion: t0.Add(time.Hour)},
		{ID: "a", CloudCover: 1, Ingestion: t0},
		{ID: "d", CloudCover: 0.5, Ingestion: t0.Add(48 * time.Hour)},
	}

	Sort(fps)

	if got, want := IDs(fps), []string{"d", "a", "b", "c"}; !slices.Equal(got, want) {
		t.Errorf("Sort() order = %v, want %v", got, want)
	}
}

func TestReduce_Empty(t *testing.T) {
	if _, err := Reduce(nil); !errors.Is(err, ErrNoCoverage) {
		t.Errorf("Reduce(nil) error = %v, want ErrNoCoverage", err)
	}
	if _, err := ReduceMinimal(nil); !errors.Is(err, ErrNoCoverage) {
		t.Errorf("ReduceMinimal(nil) error = %v, want ErrNoCoverage", err)
	}
}

func TestReduceRedundant_DropsContained(t *testing.T) {
	fps := []Footprint{
		box(t, "big", 0, 0, 4, 4),
		box(t, "inside", 1, 1, 2, 2),
		box(t, "right", 3, 0, 6, 4),
		box(t, "duplicate", 0, 0, 4, 4),
	}

	got, err := ReduceRedundant(fps)
	if err != nil {
		t.Fatalf("ReduceRedundant() error: %v", err)
	}
	if ids := IDs(got); !slices.Equal(ids, []string{"big", "right"}) {
		t.Errorf("ReduceRedundant() = %v, want [big right]", ids)
	}
}

func TestReduceMinimal_DropsCoveredByLaterTiles(t *testing.T) {
	// "middle" adds area over "left" alone, so pass 1 keeps it, but "left"
	// and "right" together cover it.
	fps := []Footprint{
		box(t, "left", 0, 0, 2, 2),
		box(t, "middle", 1, 0, 3, 2),
		box(t, "right", 2, 0, 4, 2),
	}

	l1, err := ReduceRedundant(fps)
	if err != nil {
		t.Fatalf("ReduceRedundant() error: %v", err)
	}
	if len(l1) != 3 {
		t.Fatalf("ReduceRedundant() kept %d footprints, want 3", len(l1))
	}

	l2, err := ReduceMinimal(l1)
	if err != nil {
		t.Fatalf("ReduceMinimal() error: %v", err)
	}
	if ids := IDs(l2); !slices.Equal(ids, []string{"left", "right"}) {
		t.Errorf("ReduceMinimal() = %v, want [left right]", ids)
	}
}

func TestReduce_SingleFootprint(t *testing.T) {
	fps := []Footprint{box(t, "only", 0, 0, 1, 1)}

	got, err := Reduce(fps)
	if err != nil {
		t.Fatalf("Reduce() error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "only" {
		t.Errorf("Reduce() = %v, want [only]", IDs(got))
	}
}

// TestReduce_Properties checks on random footprint sets that the reduced
// cover keeps the covered area, is a subset of the input, and that every
// kept footprint is necessary.
func TestReduce_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 20; round++ {
		n := 2 + rng.IntN(8)
		fps := make([]Footprint, n)
		for i := range fps {
			w := rng.Float64() * 8
			s := rng.Float64() * 8
			fps[i] = box(t, string(rune('a'+i)), w, s, w+0.5+rng.Float64()*3, s+0.5+rng.Float64()*3)
			fps[i].CloudCover = float64(rng.IntN(10))
		}
		Sort(fps)

		got, err := Reduce(fps)
		if err != nil {
			t.Fatalf("round %d: Reduce() error: %v", round, err)
		}

		if !geometry.AreaEqual(unionArea(got), unionArea(fps)) {
			t.Errorf("round %d: covered area %v, want %v", round, unionArea(got), unionArea(fps))
		}

		inputIDs := IDs(fps)
		for _, fp := range got {
			if !slices.Contains(inputIDs, fp.ID) {
				t.Errorf("round %d: output footprint %s not in input", round, fp.ID)
			}
		}

		whole := unionArea(got)
		for i := range got {
			rest := slices.Delete(slices.Clone(got), i, i+1)
			if len(rest) == 0 {
				continue
			}
			if whole-unionArea(rest) < geometry.Epsilon {
				t.Errorf("round %d: footprint %s is not necessary", round, got[i].ID)
			}
		}
	}
}
