package sptx

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fishstack/pkg/axes"
)

// DocVersion is the manifest format version stamped on collection and tile
// set documents this package writes.
const DocVersion = "1.0.0"

// collectionDoc is the on-disk shape of a collection manifest.
type collectionDoc struct {
	Version  string            `json:"version"`
	Contents map[string]string `json:"contents"`
	Extras   map[string]any    `json:"extras,omitempty"`
}

// tileSetDoc is the on-disk shape of one partition's manifest.
type tileSetDoc struct {
	Version           string            `json:"version"`
	Dimensions        []string          `json:"dimensions"`
	Shape             map[axes.Axis]int `json:"shape"`
	DefaultTileShape  map[axes.Axis]int `json:"default_tile_shape,omitempty"`
	DefaultTileFormat string            `json:"default_tile_format"`
	Tiles             []tileDoc         `json:"tiles"`
	Extras            map[string]any    `json:"extras,omitempty"`
}

// tileDoc is the on-disk shape of one tile entry.
type tileDoc struct {
	File        string                    `json:"file"`
	Indices     axes.Selector             `json:"indices"`
	Coordinates map[axes.Coord]CoordRange `json:"coordinates"`
	TileShape   map[axes.Axis]int         `json:"tile_shape,omitempty"`
	SHA256      string                    `json:"sha256"`
	Provenance  string                    `json:"provenance,omitempty"`
	Extras      map[string]any            `json:"extras,omitempty"`
}

// WriteOptions tunes how a collection lands on disk. The zero value writes
// compact JSON with default file naming and each tile set's own format.
type WriteOptions struct {
	// Pretty switches the manifests to indented JSON.
	Pretty bool
	// Format, when set, overrides every tile set's pixel encoding.
	Format ImageFormat
	// PartitionPath names a partition's manifest file given the collection
	// manifest path. The default appends "-<partition>.json" to the
	// collection stem, in the same directory.
	PartitionPath func(collectionPath, partition string) string
	// TilePath names a tile's payload file given the partition manifest
	// path. The default is "<stem>-Z<z>-H<r>-C<c>.<ext>" in the same
	// directory, with z falling back to 0 for planar sets.
	TilePath func(partitionPath string, t *Tile, ext string) string
}

func fillOptions(opts *WriteOptions) WriteOptions {
	var o WriteOptions
	if opts != nil {
		o = *opts
	}
	if o.PartitionPath == nil {
		o.PartitionPath = defaultPartitionPath
	}
	if o.TilePath == nil {
		o.TilePath = defaultTilePath
	}
	return o
}

func defaultPartitionPath(collectionPath, partition string) string {
	return filepath.Join(filepath.Dir(collectionPath), stem(collectionPath)+"-"+partition+".json")
}

func defaultTilePath(partitionPath string, t *Tile, ext string) string {
	name := fmt.Sprintf("%s-Z%d-H%d-C%d.%s",
		stem(partitionPath), t.Indices[axes.ZPlane], t.Indices[axes.Round], t.Indices[axes.Ch], ext)
	return filepath.Join(filepath.Dir(partitionPath), name)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Write serializes the collection: one manifest at path, one manifest per
// partition and one payload file per tile, each tile hashed into its
// manifest entry. Every partition must be complete.
func Write(c *Collection, path string, opts *WriteOptions) error {
	o := fillOptions(opts)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("sptx: creating output directory: %w", err)
		}
	}

	doc := collectionDoc{
		Version:  DocVersion,
		Contents: make(map[string]string, c.Len()),
		Extras:   c.Extras,
	}
	for _, name := range c.Names() {
		ts, _ := c.Partition(name)
		partPath := o.PartitionPath(path, name)
		if err := writeTileSet(ts, partPath, o); err != nil {
			return fmt.Errorf("sptx: writing partition %q: %w", name, err)
		}
		rel, err := filepath.Rel(filepath.Dir(path), partPath)
		if err != nil {
			return fmt.Errorf("sptx: relativizing partition path: %w", err)
		}
		doc.Contents[name] = rel
	}
	return writeJSON(path, doc, o.Pretty)
}

func writeTileSet(ts *TileSet, path string, o WriteOptions) error {
	if err := ts.Complete(); err != nil {
		return err
	}
	format := ts.Format
	if o.Format != "" {
		format = o.Format
	}

	doc := tileSetDoc{
		Version:           DocVersion,
		Dimensions:        ts.Dimensions,
		Shape:             ts.Shape,
		DefaultTileShape:  ts.DefaultTileShape,
		DefaultTileFormat: string(format),
		Extras:            ts.Extras,
	}
	dir := filepath.Dir(path)
	for _, t := range ts.Tiles() {
		if t.Data() == nil {
			return fmt.Errorf("sptx: tile %s has no pixel data", t.Indices)
		}
		width, height, err := ts.TileShape(t)
		if err != nil {
			return err
		}
		tilePath := o.TilePath(path, t, format.Ext())
		sum, err := writeTileFile(tilePath, t, width, height, format)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, tilePath)
		if err != nil {
			return fmt.Errorf("sptx: relativizing tile path: %w", err)
		}
		doc.Tiles = append(doc.Tiles, tileDoc{
			File:        rel,
			Indices:     t.Indices,
			Coordinates: t.Coordinates,
			TileShape:   t.Shape,
			SHA256:      sum,
			Provenance:  t.Provenance,
			Extras:      t.Extras,
		})
	}
	return writeJSON(path, doc, o.Pretty)
}

// writeTileFile encodes one tile to disk and returns the hex SHA-256 of the
// written bytes.
func writeTileFile(path string, t *Tile, width, height int, format ImageFormat) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("sptx: creating tile file: %w", err)
	}
	hasher := sha256.New()
	if err := format.Encode(io.MultiWriter(f, hasher), t.Data(), width, height); err != nil {
		f.Close()
		return "", fmt.Errorf("sptx: encoding tile %s: %w", t.Indices, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("sptx: closing tile file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func writeJSON(path string, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("sptx: marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("sptx: writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
