// Package pipeline runs the standard processing chain over one field of
// view of an experiment: assemble, filter, normalize, project, decode.
package pipeline

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"fishstack/pkg/axes"
	"fishstack/pkg/experiment"
	"fishstack/pkg/filter"
	"fishstack/pkg/imagestack"
	"fishstack/pkg/sptx"
	"fishstack/pkg/visualization"
)

// ScaleFactorsKey is the extras key experiments store their per-(round,
// channel) normalization table under.
const ScaleFactorsKey = "scale_factors"

// Summary holds intensity statistics of the processed stack plus the decode
// outcome, for quick quality checks of a pipeline run.
type Summary struct {
	// Min and Max are the extreme intensities of the processed stack.
	Min float64
	Max float64

	// Mean and Std summarize the intensity distribution.
	Mean float64
	Std  float64

	// Spots is the number of decoded spots, 0 when decoding is disabled.
	Spots int
}

// Params holds the pipeline configuration: what to load and which stages
// to run over it. Zero-valued stages are skipped.
type Params struct {
	// ExperimentPath is the path to the experiment manifest (experiment.json).
	ExperimentPath string

	// FOV is the field of view to process. Empty selects the first one.
	FOV string

	// Image is the image type to process. Empty selects the primary images.
	Image string

	// HighPassSigma is the Gaussian high-pass sigma in pixels, applied first
	// to remove slowly varying background. Zero disables the stage.
	HighPassSigma float64

	// LowPassSigma is the Gaussian low-pass sigma in pixels, applied after
	// the high-pass to suppress pixel noise. Zero disables the stage.
	LowPassSigma float64

	// ApplyScaleFactors divides each (round, channel) slab by the matching
	// factor from the experiment's scale_factors extras table.
	ApplyScaleFactors bool

	// ProjectZ collapses the z axis with ProjectFunc before decoding.
	ProjectZ bool

	// ProjectFunc names the reduction used by ProjectZ; empty means "max".
	ProjectFunc string

	// Clip is the normalization applied with the projection: "clip"
	// (default) clamps to [0, 1], "scale_by_image" rescales by the stack
	// maximum.
	Clip string

	// Decoder turns the processed stack into spots. Nil disables decoding.
	Decoder PixelDecoder

	// SpotsFile, when set, receives the decoded spots as a CSV table.
	SpotsFile string

	// OutputDir, when set, receives the processed stack as a tile
	// collection in float32 format.
	OutputDir string

	// SaveIntermediate saves the stack's planes as PNGs after each stage.
	SaveIntermediate bool

	// IntermediateDir is the directory intermediate planes are saved under.
	// Only used when SaveIntermediate is true.
	IntermediateDir string

	// Verbose enables per-stage detail logging.
	Verbose bool
}

// Processor runs the processing chain over one field of view.
//
// The full chain is:
// 1. Load the experiment and assemble the field of view into a stack
// 2. Gaussian high-pass filter for background removal
// 3. Gaussian low-pass filter for noise suppression
// 4. Scale-factor normalization from the experiment's extras
// 5. Z-projection with a named reducer
// 6. Pixel decoding against the codebook
// 7. Writing the processed stack and summary statistics
type Processor struct {
	// params stores the pipeline configuration
	params *Params

	// exp is the loaded experiment
	exp *experiment.Experiment

	// fov is the resolved field of view name
	fov string

	// stack holds the image data as it moves through the stages
	stack *imagestack.Stack

	// spots holds the decode result
	spots []Spot

	// summary stores the run statistics after processing
	summary Summary
}

// NewProcessor creates a new processor instance with the provided
// parameters. This is the entry point for a pipeline run.
func NewProcessor(params *Params) *Processor {
	return &Processor{params: params}
}

// Process runs the complete pipeline.
func (p *Processor) Process() error {
	if p.params.SaveIntermediate {
		if err := os.MkdirAll(p.params.IntermediateDir, 0755); err != nil {
			return fmt.Errorf("failed to create intermediate directory: %w", err)
		}
	}

	fmt.Println("Step 1: Loading experiment...")
	if err := p.loadExperiment(); err != nil {
		return fmt.Errorf("failed to load experiment: %w", err)
	}

	fmt.Println("Step 2: Assembling image stack...")
	if err := p.assembleStack(); err != nil {
		return fmt.Errorf("failed to assemble stack: %w", err)
	}
	p.saveIntermediate("01_raw")

	if p.params.HighPassSigma > 0 {
		fmt.Println("Step 3: Applying Gaussian high-pass filter...")
		hp, err := filter.NewGaussianHighPass(p.params.HighPassSigma)
		if err != nil {
			return err
		}
		filtered, err := hp.Run(p.stack)
		if err != nil {
			return fmt.Errorf("failed to apply high-pass filter: %w", err)
		}
		p.stack = filtered
		p.saveIntermediate("02_highpass")
	}

	if p.params.LowPassSigma > 0 {
		fmt.Println("Step 4: Applying Gaussian low-pass filter...")
		lp, err := filter.NewGaussianLowPass(p.params.LowPassSigma)
		if err != nil {
			return err
		}
		filtered, err := lp.Run(p.stack)
		if err != nil {
			return fmt.Errorf("failed to apply low-pass filter: %w", err)
		}
		p.stack = filtered
		p.saveIntermediate("03_lowpass")
	}

	if p.params.ApplyScaleFactors {
		fmt.Println("Step 5: Applying scale factors...")
		if err := p.applyScaleFactors(); err != nil {
			return fmt.Errorf("failed to apply scale factors: %w", err)
		}
		p.saveIntermediate("04_scaled")
	}

	if p.params.ProjectZ {
		fmt.Println("Step 6: Projecting along z...")
		if err := p.projectZ(); err != nil {
			return fmt.Errorf("failed to project along z: %w", err)
		}
		p.saveIntermediate("05_projected")
	}

	if p.params.Decoder != nil {
		fmt.Println("Step 7: Decoding spots...")
		if err := p.decodeSpots(); err != nil {
			return fmt.Errorf("failed to decode spots: %w", err)
		}
	}

	if p.params.OutputDir != "" {
		fmt.Println("Step 8: Writing processed collection...")
		if err := p.writeOutput(); err != nil {
			return fmt.Errorf("failed to write processed collection: %w", err)
		}
	}

	fmt.Println("Step 9: Computing summary statistics...")
	p.computeSummary()

	return nil
}

// loadExperiment loads the manifest and resolves the field of view to
// process.
func (p *Processor) loadExperiment() error {
	exp, err := experiment.FromJSON(p.params.ExperimentPath)
	if err != nil {
		return err
	}
	p.exp = exp

	p.fov = p.params.FOV
	if p.fov == "" {
		fovs := exp.FOVs()
		if len(fovs) == 0 {
			return fmt.Errorf("experiment has no fields of view")
		}
		p.fov = fovs[0]
	}

	if p.params.Verbose {
		fmt.Printf("Loaded experiment version %s with %d fields of view\n",
			exp.Version(), len(exp.FOVs()))
	}
	return nil
}

// assembleStack builds the dense stack for the selected field of view and
// image type.
func (p *Processor) assembleStack() error {
	fov, err := p.exp.FOV(p.fov)
	if err != nil {
		return err
	}
	imageType := p.params.Image
	if imageType == "" {
		imageType = experiment.PrimaryImages
	}
	st, err := fov.Stack(imageType)
	if err != nil {
		return err
	}
	p.stack = st

	fmt.Printf("Assembled %s of %s as %s\n", imageType, p.fov, st)
	return nil
}

// applyScaleFactors divides every (round, channel) slab by its factor from
// the experiment's normalization table. Each declared slab must have a
// positive factor.
func (p *Processor) applyScaleFactors() error {
	factors, err := ScaleFactors(p.exp.Extras())
	if err != nil {
		return err
	}
	for sel := range p.stack.IterAxes([]axes.Axis{axes.Round, axes.Ch}) {
		f, ok := factors[[2]int{sel[axes.Round], sel[axes.Ch]}]
		if !ok {
			return fmt.Errorf("no scale factor for r=%d c=%d", sel[axes.Round], sel[axes.Ch])
		}
		if f <= 0 {
			return fmt.Errorf("scale factor for r=%d c=%d is %v, want positive", sel[axes.Round], sel[axes.Ch], f)
		}
		slab, err := p.stack.GetSlice(sel)
		if err != nil {
			return err
		}
		floats.Scale(1/f, slab.Data())
		if err := p.stack.SetSlice(sel, slab); err != nil {
			return err
		}
		if p.params.Verbose {
			fmt.Printf("Scaled r=%d c=%d by 1/%v\n", sel[axes.Round], sel[axes.Ch], f)
		}
	}
	return nil
}

// projectZ collapses the z axis to a singleton with the configured reducer
// and normalization.
func (p *Processor) projectZ() error {
	if !p.stack.HasAxis(axes.ZPlane) {
		return fmt.Errorf("stack %s has no z axis", p.stack)
	}
	name := p.params.ProjectFunc
	if name == "" {
		name = "max"
	}
	clip := imagestack.ClipClamp
	if p.params.Clip != "" {
		var err error
		clip, err = imagestack.ParseClipMethod(p.params.Clip)
		if err != nil {
			return err
		}
	}
	red, err := filter.NewReduce([]axes.Axis{axes.ZPlane}, name, filter.FuncSourceGonum, clip)
	if err != nil {
		return err
	}
	projected, err := red.Run(p.stack)
	if err != nil {
		return err
	}
	p.stack = projected
	return nil
}

// decodeSpots runs the configured decoder and writes the CSV table when
// requested.
func (p *Processor) decodeSpots() error {
	spots, err := p.params.Decoder.Decode(p.stack, p.exp.Codebook())
	if err != nil {
		return err
	}
	p.spots = spots

	fmt.Printf("Decoded %d spots\n", len(spots))
	if p.params.SpotsFile != "" {
		if err := WriteSpotsCSV(p.params.SpotsFile, spots); err != nil {
			return err
		}
	}
	return nil
}

// writeOutput writes the processed stack back out as a single-partition
// tile collection in lossless float32 format.
func (p *Processor) writeOutput() error {
	coll, err := experiment.CollectionFromStack(p.fov, p.stack, sptx.FormatF32)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.params.OutputDir, 0755); err != nil {
		return err
	}
	return sptx.Write(coll, filepath.Join(p.params.OutputDir, "processed.json"), nil)
}

// saveIntermediate renders the current stack's planes under a stage
// directory. Failures here only warn, they never abort the pipeline.
func (p *Processor) saveIntermediate(stage string) {
	if !p.params.SaveIntermediate {
		return
	}
	dir := filepath.Join(p.params.IntermediateDir, stage)
	if err := visualization.NewViewer(p.stack).SavePlaneSequence(dir); err != nil {
		fmt.Printf("Warning: failed to save %s planes: %v\n", stage, err)
	}
}

// computeSummary fills the run statistics from the final stack.
func (p *Processor) computeSummary() {
	data := p.stack.Data()
	p.summary = Summary{
		Min:   floats.Min(data),
		Max:   floats.Max(data),
		Mean:  stat.Mean(data, nil),
		Std:   stat.StdDev(data, nil),
		Spots: len(p.spots),
	}
}

// Stack returns the stack in its current processing state.
func (p *Processor) Stack() *imagestack.Stack {
	return p.stack
}

// Spots returns the decode result.
func (p *Processor) Spots() []Spot {
	return p.spots
}

// GetSummary returns the run statistics computed by Process.
func (p *Processor) GetSummary() Summary {
	return p.summary
}

// ScaleFactors reads the normalization table from experiment extras: a list
// of {"r": ..., "c": ..., "scale_factor": ...} entries keyed by round and
// channel.
func ScaleFactors(extras map[string]any) (map[[2]int]float64, error) {
	raw, ok := extras[ScaleFactorsKey]
	if !ok {
		return nil, fmt.Errorf("experiment extras carry no %q table", ScaleFactorsKey)
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%q should be a list, got %T", ScaleFactorsKey, raw)
	}
	out := make(map[[2]int]float64, len(entries))
	for i, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d] should be an object, got %T", ScaleFactorsKey, i, e)
		}
		r, ok1 := asInt(m["r"])
		c, ok2 := asInt(m["c"])
		f, ok3 := asFloat(m["scale_factor"])
		if !ok1 || !ok2 || !ok3 {
			return nil, fmt.Errorf("%s[%d] needs integer r, c and a numeric scale_factor", ScaleFactorsKey, i)
		}
		out[[2]int{r, c}] = f
	}
	return out, nil
}

// asInt accepts the integer encodings JSON decoding and in-process extras
// produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
