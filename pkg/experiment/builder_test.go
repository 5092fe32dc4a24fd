package experiment_test

import (
	"errors"
	"fmt"
	"testing"

	"fishstack/internal/fixture"
	"fishstack/pkg/axes"
	"fishstack/pkg/experiment"
)

func TestBuildImagePlanar(t *testing.T) {
	coll, err := experiment.BuildImage(
		[]int{0, 1}, []int{0, 1}, []int{0, 1}, nil,
		fixture.NewIndexedFetcher(4, 4), nil, nil,
	)
	if err != nil {
		t.Fatalf("BuildImage failed: %v", err)
	}

	names := coll.Names()
	if len(names) != 2 || names[0] != "fov_000" || names[1] != "fov_001" {
		t.Fatalf("partitions = %v, want [fov_000 fov_001]", names)
	}

	ts, _ := coll.Partition("fov_000")
	if ts.Volumetric() {
		t.Error("a build without z labels produced a volumetric tile set")
	}
	if ts.Len() != 4 {
		t.Fatalf("fov_000 has %d tiles, want 4", ts.Len())
	}

	// Default priority with a single implicit z: round varies slower than
	// channel.
	wantOrder := []axes.Selector{
		{axes.Round: 0, axes.Ch: 0},
		{axes.Round: 0, axes.Ch: 1},
		{axes.Round: 1, axes.Ch: 0},
		{axes.Round: 1, axes.Ch: 1},
	}
	for i, tile := range ts.Tiles() {
		if _, ok := tile.Indices[axes.ZPlane]; ok {
			t.Errorf("tile %d carries a z index in a planar build", i)
		}
		for a, v := range wantOrder[i] {
			if tile.Indices[a] != v {
				t.Errorf("tile %d indices = %v, want %v", i, tile.Indices, wantOrder[i])
			}
		}
		if tile.Provenance == "" {
			t.Errorf("tile %d lost its provenance", i)
		}
		if tile.Extras["source"] != "fixture" {
			t.Errorf("tile %d lost its extras: %v", i, tile.Extras)
		}
	}
}

func TestBuildImageVolumetric(t *testing.T) {
	coll, err := experiment.BuildImage(
		[]int{0}, []int{0, 1}, []int{0, 1}, []int{0, 1},
		fixture.NewIndexedFetcher(4, 4), nil, nil,
	)
	if err != nil {
		t.Fatalf("BuildImage failed: %v", err)
	}

	ts, _ := coll.Partition("fov_000")
	if !ts.Volumetric() {
		t.Fatal("a build with z labels produced a planar tile set")
	}
	if ts.Len() != 8 {
		t.Fatalf("fov_000 has %d tiles, want 8", ts.Len())
	}

	tiles := ts.Tiles()
	// Default priority: z slowest, so the first four tiles sit at z=0.
	for i := 0; i < 4; i++ {
		if tiles[i].Indices[axes.ZPlane] != 0 {
			t.Errorf("tile %d = %v, want z=0", i, tiles[i].Indices)
		}
	}
	if tiles[1].Indices[axes.Ch] != 1 || tiles[1].Indices[axes.Round] != 0 {
		t.Errorf("tile 1 = %v, want channel spinning fastest", tiles[1].Indices)
	}
	if tiles[4].Indices[axes.ZPlane] != 1 {
		t.Errorf("tile 4 = %v, want z=1", tiles[4].Indices)
	}
}

func TestBuildImageCustomPriority(t *testing.T) {
	coll, err := experiment.BuildImage(
		[]int{0}, []int{0, 1}, []int{0, 1}, []int{0, 1},
		fixture.NewIndexedFetcher(4, 4), nil,
		[]axes.Axis{axes.Ch, axes.Round, axes.ZPlane},
	)
	if err != nil {
		t.Fatalf("BuildImage failed: %v", err)
	}

	ts, _ := coll.Partition("fov_000")
	tiles := ts.Tiles()
	// Channel leads: the first four tiles sit at c=0, z spins fastest.
	for i := 0; i < 4; i++ {
		if tiles[i].Indices[axes.Ch] != 0 {
			t.Errorf("tile %d = %v, want c=0", i, tiles[i].Indices)
		}
	}
	if tiles[1].Indices[axes.ZPlane] != 1 {
		t.Errorf("tile 1 = %v, want z=1", tiles[1].Indices)
	}
}

func TestBuildImagePermutedLabels(t *testing.T) {
	coll, err := experiment.BuildImage(
		[]int{0}, []int{1, 0}, []int{0}, nil,
		fixture.NewIndexedFetcher(4, 4), nil, nil,
	)
	if err != nil {
		t.Fatalf("BuildImage failed: %v", err)
	}
	ts, _ := coll.Partition("fov_000")
	tiles := ts.Tiles()
	if tiles[0].Indices[axes.Round] != 1 || tiles[1].Indices[axes.Round] != 0 {
		t.Errorf("permuted round labels not preserved: %v, %v", tiles[0].Indices, tiles[1].Indices)
	}
	if err := ts.Complete(); err != nil {
		t.Errorf("permuted labels left the set incomplete: %v", err)
	}
}

func TestBuildImageFetcherFailure(t *testing.T) {
	boom := errors.New("stage jammed")
	fetcher := experiment.TileFetcherFunc(func(fov, r, c, z int) (experiment.FetchedTile, error) {
		if r == 1 {
			return nil, boom
		}
		return &fixture.Tile{FOV: fov, Round: r, Ch: c, Z: z, Width: 4, Height: 4}, nil
	})

	_, err := experiment.BuildImage([]int{0}, []int{0, 1}, []int{0}, nil, fetcher, nil, nil)
	if !errors.Is(err, boom) {
		t.Errorf("a failing fetcher should fail the build: error = %v", err)
	}
}

// shapelessTile exercises the default-shape fallback.
type shapelessTile struct {
	fixture.Tile
}

func (s *shapelessTile) Shape() map[axes.Axis]int { return nil }

func TestBuildImageDefaultShape(t *testing.T) {
	fetcher := experiment.TileFetcherFunc(func(fov, r, c, z int) (experiment.FetchedTile, error) {
		return &shapelessTile{fixture.Tile{FOV: fov, Round: r, Ch: c, Z: z, Width: 4, Height: 4}}, nil
	})

	coll, err := experiment.BuildImage([]int{0}, []int{0}, []int{0}, nil, fetcher, map[axes.Axis]int{axes.Y: 4, axes.X: 4}, nil)
	if err != nil {
		t.Fatalf("BuildImage with a default shape failed: %v", err)
	}
	ts, _ := coll.Partition("fov_000")
	if got := ts.Tiles()[0].Width(); got != 4 {
		t.Errorf("tile width = %d, want the default 4", got)
	}

	if _, err := experiment.BuildImage([]int{0}, []int{0}, []int{0}, nil, fetcher, nil, nil); err == nil {
		t.Error("a shapeless tile with no default shape should fail the build")
	}
}

func TestBuildImageArgumentValidation(t *testing.T) {
	if _, err := experiment.BuildImage([]int{0}, []int{0}, []int{0}, nil, nil, nil, nil); err == nil {
		t.Error("a nil fetcher should be rejected")
	}
	if _, err := experiment.BuildImage(nil, []int{0}, []int{0}, nil, fixture.NewIndexedFetcher(4, 4), nil, nil); err == nil {
		t.Error("an empty fov list should be rejected")
	}
}

func TestFOVName(t *testing.T) {
	for fov, want := range map[int]string{0: "fov_000", 7: "fov_007", 123: "fov_123"} {
		if got := experiment.FOVName(fov); got != want {
			t.Errorf("FOVName(%d) = %q, want %q", fov, got, want)
		}
	}
}

func TestNoiseFetcherDeterminism(t *testing.T) {
	shape := map[axes.Axis]int{axes.Y: 8, axes.X: 8}

	read := func(f experiment.TileFetcher) []float64 {
		tile, err := f.GetTile(0, 1, 2, 3)
		if err != nil {
			t.Fatalf("GetTile failed: %v", err)
		}
		data, err := tile.Data()
		if err != nil {
			t.Fatalf("Data failed: %v", err)
		}
		return data
	}

	a := read(experiment.NewRandomNoiseFetcher(42, shape))
	b := read(experiment.NewRandomNoiseFetcher(42, shape))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different noise at pixel %d", i)
		}
	}

	c := read(experiment.NewRandomNoiseFetcher(43, shape))
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical noise")
	}

	for i, v := range a {
		if v < 0 || v >= 1 {
			t.Fatalf("noise pixel %d = %v outside [0, 1)", i, v)
		}
	}
}

func TestNoiseTileProvenance(t *testing.T) {
	tile, err := experiment.NewRandomNoiseFetcher(1, map[axes.Axis]int{axes.Y: 4, axes.X: 4}).GetTile(2, 0, 1, 3)
	if err != nil {
		t.Fatalf("GetTile failed: %v", err)
	}
	p, ok := tile.(experiment.Provenancer)
	if !ok {
		t.Fatal("noise tiles should report provenance")
	}
	if want := fmt.Sprintf("noise:%d/%d/%d/%d", 2, 0, 1, 3); p.Provenance() != want {
		t.Errorf("Provenance() = %q, want %q", p.Provenance(), want)
	}

	coords := tile.Coordinates()
	if _, ok := coords[axes.CoordX]; !ok {
		t.Error("noise tiles should carry xc coordinates")
	}
}
