package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"fishstack/pkg/axes"
	"fishstack/pkg/codebook"
	"fishstack/pkg/sptx"
)

// PrimaryImages is the image type name every experiment must carry.
const PrimaryImages = "primary"

// DocumentName is the file name of the top-level experiment manifest.
const DocumentName = "experiment.json"

// Document is the in-memory form of an experiment manifest: the version,
// the image collections by type, the codebook file and free-form extras.
type Document struct {
	Version  string            `json:"version"`
	Images   map[string]string `json:"images"`
	Codebook string            `json:"codebook"`
	Extras   map[string]any    `json:"extras,omitempty"`
}

// PostProcessor rewrites the experiment document after every image
// collection has been written but before the manifest itself lands on disk.
// Typical uses add calibration tables or acquisition notes to Extras.
type PostProcessor interface {
	Process(doc *Document) error
}

// NoOpPostProcessor leaves the document untouched.
type NoOpPostProcessor struct{}

// Process implements PostProcessor.
func (NoOpPostProcessor) Process(*Document) error { return nil }

// WriteConfig carries the optional knobs of an experiment write. The zero
// value builds deterministic noise tiles, uses the default dimension order
// and writes compact PNG-backed manifests.
type WriteConfig struct {
	// PrimaryFetcher supplies primary image tiles; nil means seeded noise.
	PrimaryFetcher TileFetcher
	// AuxFetchers supplies tiles per auxiliary image type; missing entries
	// fall back to seeded noise.
	AuxFetchers map[string]TileFetcher
	// PostProcess rewrites the document before serialization; nil means no
	// rewrite.
	PostProcess PostProcessor
	// DefaultTileShape is the pixel shape recorded set-wide and used for
	// fetched tiles that do not declare their own.
	DefaultTileShape map[axes.Axis]int
	// DimensionOrder is the tile enumeration priority; nil means z, round,
	// channel.
	DimensionOrder []axes.Axis
	// Format is the tile pixel encoding; empty means PNG.
	Format sptx.ImageFormat
	// Seed drives the default noise fetchers.
	Seed int64
	// Pretty switches all manifests to indented JSON.
	Pretty bool
}

// WriteLabeledExperiment builds and writes a complete experiment under dir:
// a collection per image type built from explicit axis labels, a
// placeholder codebook, and the experiment manifest binding them together.
// The primary labels must carry rounds and channels; a missing z entry
// builds planar collections. Auxiliary image types are written in sorted
// name order.
func WriteLabeledExperiment(dir string, fovCount int, primary map[axes.Axis][]int, aux map[string]map[axes.Axis][]int, cfg WriteConfig) error {
	if fovCount < 1 {
		return fmt.Errorf("experiment: need at least one field of view, got %d", fovCount)
	}
	if len(primary[axes.Round]) == 0 || len(primary[axes.Ch]) == 0 {
		return fmt.Errorf("experiment: primary image needs round and channel labels")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("experiment: creating output directory: %w", err)
	}

	fovs := make([]int, fovCount)
	for i := range fovs {
		fovs[i] = i
	}

	doc := &Document{
		Version: CurrentVersion.String(),
		Images:  make(map[string]string, 1+len(aux)),
	}

	writeImage := func(name string, labels map[axes.Axis][]int, fetcher TileFetcher) error {
		if len(labels[axes.Round]) == 0 || len(labels[axes.Ch]) == 0 {
			return fmt.Errorf("experiment: image %q needs round and channel labels", name)
		}
		if fetcher == nil {
			fetcher = NewRandomNoiseFetcher(cfg.Seed, cfg.DefaultTileShape)
		}
		coll, err := BuildImage(fovs, labels[axes.Round], labels[axes.Ch], labels[axes.ZPlane],
			fetcher, cfg.DefaultTileShape, cfg.DimensionOrder)
		if err != nil {
			return fmt.Errorf("experiment: building image %q: %w", name, err)
		}
		file := collectionFileName(name)
		opts := &sptx.WriteOptions{Pretty: cfg.Pretty, Format: cfg.Format}
		if err := sptx.Write(coll, filepath.Join(dir, file), opts); err != nil {
			return fmt.Errorf("experiment: writing image %q: %w", name, err)
		}
		doc.Images[name] = file
		return nil
	}

	if err := writeImage(PrimaryImages, primary, cfg.PrimaryFetcher); err != nil {
		return err
	}
	auxNames := make([]string, 0, len(aux))
	for name := range aux {
		if name == PrimaryImages {
			return fmt.Errorf("experiment: auxiliary image may not be named %q", PrimaryImages)
		}
		auxNames = append(auxNames, name)
	}
	sort.Strings(auxNames)
	for _, name := range auxNames {
		if err := writeImage(name, aux[name], cfg.AuxFetchers[name]); err != nil {
			return err
		}
	}

	doc.Codebook = "codebook.json"
	if err := codebook.Placeholder().ToJSON(filepath.Join(dir, doc.Codebook)); err != nil {
		return err
	}

	post := cfg.PostProcess
	if post == nil {
		post = NoOpPostProcessor{}
	}
	if err := post.Process(doc); err != nil {
		return fmt.Errorf("experiment: post-processing document: %w", err)
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("experiment: marshaling document: %w", err)
	}
	b = append(b, '\n')
	if err := ValidateDocument(b); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, DocumentName), b, 0o644); err != nil {
		return fmt.Errorf("experiment: writing %s: %w", DocumentName, err)
	}
	return nil
}

// WriteExperiment is WriteLabeledExperiment for the common case of
// contiguous labels: each axis gets 0..n-1. Omit the z entry for a planar
// experiment.
func WriteExperiment(dir string, fovCount int, primary map[axes.Axis]int, aux map[string]map[axes.Axis]int, cfg WriteConfig) error {
	auxLabels := make(map[string]map[axes.Axis][]int, len(aux))
	for name, counts := range aux {
		auxLabels[name] = labelsFromCounts(counts)
	}
	return WriteLabeledExperiment(dir, fovCount, labelsFromCounts(primary), auxLabels, cfg)
}

func labelsFromCounts(counts map[axes.Axis]int) map[axes.Axis][]int {
	if counts == nil {
		return nil
	}
	out := make(map[axes.Axis][]int, len(counts))
	for a, n := range counts {
		seq := make([]int, n)
		for i := range seq {
			seq[i] = i
		}
		out[a] = seq
	}
	return out
}

// collectionFileName maps an image type to its manifest file name.
func collectionFileName(name string) string {
	if name == PrimaryImages {
		return "primary_images.json"
	}
	return name + ".json"
}
