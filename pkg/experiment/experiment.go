package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/blang/semver"

	"fishstack/pkg/codebook"
	"fishstack/pkg/imagestack"
	"fishstack/pkg/sptx"
)

// Experiment is a fully loaded experiment: every image collection, the
// codebook and the manifest metadata.
type Experiment struct {
	doc      Document
	version  semver.Version
	dir      string
	images   map[string]*sptx.Collection
	codebook *codebook.Codebook
}

// FromJSON loads an experiment manifest and everything it references. The
// document is schema-checked and version-gated before any image data is
// read; tile payloads are checksum-verified as they load.
func FromJSON(path string) (*Experiment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("experiment: reading manifest: %w", err)
	}
	if err := ValidateDocument(b); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("experiment: parsing manifest: %w", err)
	}
	version, err := checkVersion(doc.Version)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	images := make(map[string]*sptx.Collection, len(doc.Images))
	names := make([]string, 0, len(doc.Images))
	for name := range doc.Images {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		coll, err := sptx.ReadCollection(filepath.Join(dir, doc.Images[name]))
		if err != nil {
			return nil, fmt.Errorf("experiment: loading image %q: %w", name, err)
		}
		images[name] = coll
	}

	cb, err := codebook.FromJSON(filepath.Join(dir, doc.Codebook))
	if err != nil {
		return nil, err
	}

	return &Experiment{
		doc:      doc,
		version:  version,
		dir:      dir,
		images:   images,
		codebook: cb,
	}, nil
}

// Version returns the manifest's parsed document version.
func (e *Experiment) Version() semver.Version {
	return e.version
}

// Codebook returns the experiment's codebook.
func (e *Experiment) Codebook() *codebook.Codebook {
	return e.codebook
}

// Extras returns the manifest's free-form metadata.
func (e *Experiment) Extras() map[string]any {
	return e.doc.Extras
}

// ImageTypes lists the image collection names, sorted, with primary first.
func (e *Experiment) ImageTypes() []string {
	names := make([]string, 0, len(e.images))
	for name := range e.images {
		if name != PrimaryImages {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{PrimaryImages}, names...)
}

// Collection returns the raw tile collection of an image type.
func (e *Experiment) Collection(imageType string) (*sptx.Collection, bool) {
	coll, ok := e.images[imageType]
	return coll, ok
}

// FOVs lists the field-of-view names of the primary collection.
func (e *Experiment) FOVs() []string {
	return e.images[PrimaryImages].Names()
}

// FOV returns a view over one field of view.
func (e *Experiment) FOV(name string) (*FieldOfView, error) {
	if _, ok := e.images[PrimaryImages].Partition(name); !ok {
		return nil, fmt.Errorf("experiment: unknown field of view %q", name)
	}
	return &FieldOfView{name: name, exp: e}, nil
}

// FieldOfView is one named position of the experiment, with access to every
// image type acquired there.
type FieldOfView struct {
	name string
	exp  *Experiment
}

// Name returns the field of view's partition name.
func (f *FieldOfView) Name() string {
	return f.name
}

// ImageTypes lists the image types that cover this field of view.
func (f *FieldOfView) ImageTypes() []string {
	var out []string
	for _, name := range f.exp.ImageTypes() {
		if _, ok := f.exp.images[name].Partition(f.name); ok {
			out = append(out, name)
		}
	}
	return out
}

// Stack assembles this field of view's tiles for an image type into a
// labeled image stack.
func (f *FieldOfView) Stack(imageType string) (*imagestack.Stack, error) {
	coll, ok := f.exp.images[imageType]
	if !ok {
		return nil, fmt.Errorf("experiment: unknown image type %q", imageType)
	}
	ts, ok := coll.Partition(f.name)
	if !ok {
		return nil, fmt.Errorf("experiment: image %q has no field of view %q", imageType, f.name)
	}
	return StackFromTileSet(ts)
}
