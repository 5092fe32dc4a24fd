package sptx

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"fishstack/pkg/axes"
)

// ErrChecksumMismatch is returned when a tile payload does not hash to the
// value recorded in its manifest.
var ErrChecksumMismatch = errors.New("sptx: tile checksum mismatch")

// ReadCollection loads a collection manifest, every partition it names and
// every tile payload, verifying checksums along the way. Partitions load in
// name order.
func ReadCollection(path string) (*Collection, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sptx: reading collection manifest: %w", err)
	}
	var doc collectionDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("sptx: parsing collection manifest %s: %w", filepath.Base(path), err)
	}

	c := NewCollection()
	c.Extras = doc.Extras

	names := make([]string, 0, len(doc.Contents))
	for name := range doc.Contents {
		names = append(names, name)
	}
	sort.Strings(names)

	dir := filepath.Dir(path)
	for _, name := range names {
		ts, err := readTileSet(filepath.Join(dir, doc.Contents[name]))
		if err != nil {
			return nil, fmt.Errorf("sptx: reading partition %q: %w", name, err)
		}
		if err := c.AddPartition(name, ts); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func readTileSet(path string) (*TileSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var doc tileSetDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", filepath.Base(path), err)
	}
	format, err := ParseImageFormat(doc.DefaultTileFormat)
	if err != nil {
		return nil, err
	}
	ts, err := NewTileSet(doc.Dimensions, doc.Shape, doc.DefaultTileShape, format)
	if err != nil {
		return nil, err
	}
	ts.Extras = doc.Extras

	dir := filepath.Dir(path)
	for _, td := range doc.Tiles {
		shape := td.TileShape
		if shape == nil {
			shape = doc.DefaultTileShape
		}
		tile, err := NewTile(td.Indices, td.Coordinates, shape, td.Extras)
		if err != nil {
			return nil, err
		}
		tile.Provenance = td.Provenance

		data, err := readTileFile(filepath.Join(dir, td.File), format, shape, td.SHA256)
		if err != nil {
			return nil, err
		}
		if err := tile.SetData(data); err != nil {
			return nil, err
		}
		if err := ts.AddTile(tile); err != nil {
			return nil, err
		}
	}
	if err := ts.Complete(); err != nil {
		return nil, err
	}
	return ts, nil
}

func readTileFile(path string, format ImageFormat, shape map[axes.Axis]int, wantSum string) ([]float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tile payload: %w", err)
	}
	if wantSum != "" {
		sum := sha256.Sum256(b)
		if hex.EncodeToString(sum[:]) != wantSum {
			return nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, filepath.Base(path))
		}
	}
	return format.Decode(bytes.NewReader(b), shape[axes.X], shape[axes.Y])
}
