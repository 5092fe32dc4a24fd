package sptx

import "fmt"

// Collection groups the tile sets of an acquisition by partition name, one
// partition per field of view. Partition order is insertion order.
type Collection struct {
	// Extras carries free-form collection-wide metadata.
	Extras map[string]any

	names []string
	parts map[string]*TileSet
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{parts: make(map[string]*TileSet)}
}

// AddPartition registers a tile set under a partition name.
func (c *Collection) AddPartition(name string, ts *TileSet) error {
	if _, ok := c.parts[name]; ok {
		return fmt.Errorf("sptx: partition %q already present", name)
	}
	c.names = append(c.names, name)
	c.parts[name] = ts
	return nil
}

// Partition returns the tile set registered under name.
func (c *Collection) Partition(name string) (*TileSet, bool) {
	ts, ok := c.parts[name]
	return ts, ok
}

// Names returns the partition names in insertion order.
func (c *Collection) Names() []string {
	return append([]string(nil), c.names...)
}

// Len returns the number of partitions.
func (c *Collection) Len() int {
	return len(c.names)
}
