// Package codebook maps targets (genes) to the codewords that identify
// them: the set of (round, channel) slots expected to light up in a decoded
// image stack.
package codebook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// DocVersion is the codebook document version this package writes.
const DocVersion = "0.0.0"

// PlaceholderTarget is the target name written into freshly generated
// experiments, meant to be replaced with a real codebook before decoding.
const PlaceholderTarget = "PLEASE_REPLACE_ME"

// CodeEntry is one lit slot of a codeword: the expected intensity in a
// specific round and channel.
type CodeEntry struct {
	Round int     `json:"r"`
	Ch    int     `json:"c"`
	Value float64 `json:"v"`
}

// Mapping binds one target to its codeword.
type Mapping struct {
	Codeword []CodeEntry `json:"codeword"`
	Target   string      `json:"target"`
}

// Codebook is a versioned list of target-to-codeword mappings.
type Codebook struct {
	Version  string    `json:"version"`
	Mappings []Mapping `json:"mappings"`
}

// New builds a codebook from mappings, validating that every mapping has a
// target and at least one code entry.
func New(mappings []Mapping) (*Codebook, error) {
	for i, m := range mappings {
		if m.Target == "" {
			return nil, fmt.Errorf("codebook: mapping %d has no target", i)
		}
		if len(m.Codeword) == 0 {
			return nil, fmt.Errorf("codebook: target %q has an empty codeword", m.Target)
		}
		for _, e := range m.Codeword {
			if e.Round < 0 || e.Ch < 0 {
				return nil, fmt.Errorf("codebook: target %q has a negative code index", m.Target)
			}
		}
	}
	return &Codebook{Version: DocVersion, Mappings: mappings}, nil
}

// Placeholder returns the single-entry codebook stamped into newly built
// experiments.
func Placeholder() *Codebook {
	return &Codebook{
		Version: DocVersion,
		Mappings: []Mapping{
			{
				Codeword: []CodeEntry{{Round: 0, Ch: 0, Value: 1}},
				Target:   PlaceholderTarget,
			},
		},
	}
}

// FromJSON loads a codebook document.
func FromJSON(path string) (*Codebook, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("codebook: reading %s: %w", filepath.Base(path), err)
	}
	var cb Codebook
	if err := json.Unmarshal(b, &cb); err != nil {
		return nil, fmt.Errorf("codebook: parsing %s: %w", filepath.Base(path), err)
	}
	return &cb, nil
}

// ToJSON writes the codebook as an indented document.
func (cb *Codebook) ToJSON(path string) error {
	b, err := json.MarshalIndent(cb, "", "  ")
	if err != nil {
		return fmt.Errorf("codebook: marshaling: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("codebook: writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Targets lists the target names in mapping order.
func (cb *Codebook) Targets() []string {
	out := make([]string, len(cb.Mappings))
	for i, m := range cb.Mappings {
		out[i] = m.Target
	}
	return out
}

// Matrix unrolls the codebook into a dense targets x (rounds*chs) matrix,
// one row per mapping and one column per (round, channel) slot in row-major
// order. Decoders match pixel traces against its rows.
func (cb *Codebook) Matrix(rounds, chs int) (*mat.Dense, error) {
	if rounds < 1 || chs < 1 {
		return nil, fmt.Errorf("codebook: matrix needs positive rounds and channels, got %dx%d", rounds, chs)
	}
	m := mat.NewDense(len(cb.Mappings), rounds*chs, nil)
	for i, mapping := range cb.Mappings {
		for _, e := range mapping.Codeword {
			if e.Round >= rounds || e.Ch >= chs {
				return nil, fmt.Errorf("codebook: target %q uses slot (r=%d c=%d) outside a %dx%d experiment",
					mapping.Target, e.Round, e.Ch, rounds, chs)
			}
			m.Set(i, e.Round*chs+e.Ch, e.Value)
		}
	}
	return m, nil
}
