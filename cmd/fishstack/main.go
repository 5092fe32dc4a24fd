package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fishstack/pkg/axes"
	"fishstack/pkg/config"
	"fishstack/pkg/experiment"
	"fishstack/pkg/filter"
	"fishstack/pkg/imagestack"
	"fishstack/pkg/pipeline"
	"fishstack/pkg/sptx"
	"fishstack/pkg/visualization"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "build":
		runBuild(os.Args[2:])
	case "run":
		runPipeline(os.Args[2:])
	case "project":
		runProject(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "init-config":
		runInitConfig(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("fishstack: build and process image-based transcriptomics experiments")
	fmt.Println()
	fmt.Println("Usage: fishstack <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  build        Build a synthetic experiment with deterministic tiles")
	fmt.Println("  run          Run the processing pipeline over one field of view")
	fmt.Println("  project      Collapse stack axes with a named reduction")
	fmt.Println("  validate     Check an experiment manifest and its tile data")
	fmt.Println("  init-config  Write a default configuration file")
	fmt.Println()
	fmt.Println("Run 'fishstack <command> -h' for command flags.")
}

func banner(lines ...string) {
	fmt.Println("================================")
	for _, line := range lines {
		fmt.Println(line)
	}
	fmt.Println("================================")
}

// resolveManifest accepts either the manifest file itself or the experiment
// directory containing it.
func resolveManifest(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, experiment.DocumentName)
	}
	return path
}

func runBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", "fishstack.yaml", "Configuration file (YAML)")
	outDir := fs.String("out", "experiment", "Directory to write the experiment under")
	fovs := fs.Int("fovs", 0, "Number of fields of view (overrides config)")
	rounds := fs.Int("rounds", 0, "Number of imaging rounds (overrides config)")
	channels := fs.Int("channels", 0, "Number of channels per round (overrides config)")
	zplanes := fs.Int("zplanes", -1, "Number of z-planes, 0 for planar (overrides config)")
	format := fs.String("format", "", "Tile pixel encoding, png or f32.gz (overrides config)")
	seed := fs.Int64("seed", 0, "Seed for the synthetic tile generator (overrides config)")
	fs.Parse(args)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *fovs > 0 {
		cfg.Experiment.FOVs = *fovs
	}
	if *rounds > 0 {
		cfg.Experiment.Rounds = *rounds
	}
	if *channels > 0 {
		cfg.Experiment.Channels = *channels
	}
	if *zplanes >= 0 {
		cfg.Experiment.ZPlanes = *zplanes
	}
	if *format != "" {
		cfg.Experiment.Format = *format
	}
	if *seed != 0 {
		cfg.Experiment.Seed = *seed
	}

	tileFormat, err := sptx.ParseImageFormat(cfg.Experiment.Format)
	if err != nil {
		log.Fatalf("Invalid tile format: %v", err)
	}

	banner("FISHSTACK EXPERIMENT BUILDER",
		"Deterministic multi-round imaging experiments in the field-of-view format")

	primary := map[axes.Axis]int{
		axes.Round: cfg.Experiment.Rounds,
		axes.Ch:    cfg.Experiment.Channels,
	}
	if cfg.Experiment.ZPlanes > 0 {
		primary[axes.ZPlane] = cfg.Experiment.ZPlanes
	}

	// Auxiliary images are single-round, single-channel planar stains.
	aux := make(map[string]map[axes.Axis]int, len(cfg.Experiment.AuxImages))
	for _, name := range cfg.Experiment.AuxImages {
		aux[name] = map[axes.Axis]int{axes.Round: 1, axes.Ch: 1}
	}

	writeCfg := experiment.WriteConfig{
		DefaultTileShape: map[axes.Axis]int{
			axes.Y: cfg.Experiment.TileHeight,
			axes.X: cfg.Experiment.TileWidth,
		},
		Format: tileFormat,
		Seed:   cfg.Experiment.Seed,
		Pretty: cfg.Experiment.Pretty,
	}

	fmt.Println("Building experiment...")
	startTime := time.Now()
	if err := experiment.WriteExperiment(*outDir, cfg.Experiment.FOVs, primary, aux, writeCfg); err != nil {
		log.Fatalf("Build failed: %v", err)
	}
	buildTime := time.Since(startTime)

	fmt.Printf("\nExperiment built successfully in %.2f seconds!\n", buildTime.Seconds())
	fmt.Printf("Manifest: %s\n\n", filepath.Join(*outDir, experiment.DocumentName))
	fmt.Printf("Fields of view: %d\n", cfg.Experiment.FOVs)
	fmt.Printf("Primary geometry: %d rounds x %d channels x %d z-planes\n",
		cfg.Experiment.Rounds, cfg.Experiment.Channels, cfg.Experiment.ZPlanes)
	fmt.Printf("Tile shape: %dx%d pixels (%s)\n",
		cfg.Experiment.TileWidth, cfg.Experiment.TileHeight, tileFormat)
	if len(cfg.Experiment.AuxImages) > 0 {
		fmt.Printf("Auxiliary images: %s\n", strings.Join(cfg.Experiment.AuxImages, ", "))
	}
}

func runPipeline(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "fishstack.yaml", "Configuration file (YAML)")
	expPath := fs.String("experiment", "", "Experiment manifest or directory")
	fov := fs.String("fov", "", "Field of view to process (default: first)")
	image := fs.String("image", "", "Image type to process (default: primary)")
	highPass := fs.Float64("high-pass", -1, "Gaussian high-pass sigma in pixels, 0 disables (overrides config)")
	lowPass := fs.Float64("low-pass", -1, "Gaussian low-pass sigma in pixels, 0 disables (overrides config)")
	scale := fs.Bool("scale", false, "Apply the experiment's scale_factors table")
	project := fs.Bool("project", true, "Project along z before decoding")
	projectFunc := fs.String("func", "", "Reduction function for the z-projection (overrides config)")
	clip := fs.String("clip", "", "Projection normalization, clip or scale_by_image (overrides config)")
	threshold := fs.Float64("threshold", -1, "Minimum peak intensity for decoding (overrides config)")
	decode := fs.Bool("decode", true, "Decode spots against the codebook")
	spotsFile := fs.String("spots", "spots.csv", "Output CSV for decoded spots")
	outDir := fs.String("out", "", "Directory for the processed collection (empty skips)")
	saveIntermediate := fs.Bool("save-intermediate", false, "Save plane renders after each stage")
	intermediateDir := fs.String("intermediate-dir", "intermediate_results", "Directory for intermediate plane renders")
	fs.Parse(args)

	if *expPath == "" {
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *highPass >= 0 {
		cfg.Filter.HighPassSigma = *highPass
	}
	if *lowPass >= 0 {
		cfg.Filter.LowPassSigma = *lowPass
	}
	if *projectFunc != "" {
		cfg.Projection.Func = *projectFunc
	}
	if *clip != "" {
		cfg.Projection.Clip = *clip
	}
	if *threshold >= 0 {
		cfg.Decode.Threshold = *threshold
	}
	if *saveIntermediate {
		cfg.Output.SaveIntermediate = true
	}

	banner("FISHSTACK PROCESSING PIPELINE",
		"Filter, normalize, project and decode one field of view")

	params := &pipeline.Params{
		ExperimentPath:    resolveManifest(*expPath),
		FOV:               *fov,
		Image:             *image,
		HighPassSigma:     cfg.Filter.HighPassSigma,
		LowPassSigma:      cfg.Filter.LowPassSigma,
		ApplyScaleFactors: *scale,
		ProjectZ:          *project,
		ProjectFunc:       cfg.Projection.Func,
		Clip:              cfg.Projection.Clip,
		SpotsFile:         *spotsFile,
		OutputDir:         *outDir,
		SaveIntermediate:  cfg.Output.SaveIntermediate,
		IntermediateDir:   *intermediateDir,
		Verbose:           cfg.Output.Verbose,
	}
	if *decode {
		params.Decoder = &pipeline.ThresholdDecoder{Threshold: cfg.Decode.Threshold}
	}

	processor := pipeline.NewProcessor(params)

	fmt.Println("Starting pipeline...")
	startTime := time.Now()
	if err := processor.Process(); err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}
	processingTime := time.Since(startTime)

	summary := processor.GetSummary()
	fmt.Printf("\nPipeline completed successfully in %.2f seconds!\n\n", processingTime.Seconds())
	fmt.Printf("Stack statistics:\n")
	fmt.Printf("=================\n")
	fmt.Printf("Intensity range: [%.6f, %.6f]\n", summary.Min, summary.Max)
	fmt.Printf("Mean intensity: %.6f\n", summary.Mean)
	fmt.Printf("Std deviation: %.6f\n", summary.Std)
	fmt.Printf("Decoded spots: %d\n", summary.Spots)

	if *decode && *spotsFile != "" {
		fmt.Printf("\nSpot table saved to: %s\n", *spotsFile)
	}
	if *outDir != "" {
		fmt.Printf("Processed collection saved to: %s\n", *outDir)
	}
	if cfg.Output.SaveIntermediate {
		fmt.Println("\nIntermediate planes saved to:")
		fmt.Printf("%s\n", *intermediateDir)
		fmt.Println("The following stages were saved:")
		fmt.Println("- 01_raw: Assembled stack")
		if cfg.Filter.HighPassSigma > 0 {
			fmt.Println("- 02_highpass: After Gaussian high-pass filtering")
		}
		if cfg.Filter.LowPassSigma > 0 {
			fmt.Println("- 03_lowpass: After Gaussian low-pass filtering")
		}
		if *scale {
			fmt.Println("- 04_scaled: After scale-factor normalization")
		}
		if *project {
			fmt.Println("- 05_projected: After z-projection")
		}
	}
}

func runProject(args []string) {
	fs := flag.NewFlagSet("project", flag.ExitOnError)
	configPath := fs.String("config", "fishstack.yaml", "Configuration file (YAML)")
	expPath := fs.String("experiment", "", "Experiment manifest or directory")
	fov := fs.String("fov", "", "Field of view to project (default: first)")
	image := fs.String("image", "", "Image type to project (default: primary)")
	dims := fs.String("dims", "", "Comma-separated axes to collapse, e.g. z or z,r (overrides config)")
	funcName := fs.String("func", "", fmt.Sprintf("Reduction function, one of %v plus aliases max and min (overrides config)",
		filter.Functions(filter.FuncSourceGonum)))
	source := fs.String("source", "", "Function registry the reduction resolves from (overrides config)")
	clip := fs.String("clip", "", "Normalization, clip or scale_by_image (overrides config)")
	outDir := fs.String("out", "projected", "Directory for the projected collection")
	planes := fs.Bool("planes", false, "Also render the projected planes as PNG files")
	fs.Parse(args)

	if *expPath == "" {
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dims != "" {
		cfg.Projection.Dims = strings.Split(*dims, ",")
	}
	if *funcName != "" {
		cfg.Projection.Func = *funcName
	}
	if *source != "" {
		cfg.Projection.Source = *source
	}
	if *clip != "" {
		cfg.Projection.Clip = *clip
	}

	reduceDims := make([]axes.Axis, 0, len(cfg.Projection.Dims))
	for _, name := range cfg.Projection.Dims {
		axis, err := axes.ParseAxis(strings.TrimSpace(name))
		if err != nil {
			log.Fatalf("Invalid projection axis: %v", err)
		}
		reduceDims = append(reduceDims, axis)
	}
	clipMethod, err := imagestack.ParseClipMethod(cfg.Projection.Clip)
	if err != nil {
		log.Fatalf("Invalid normalization: %v", err)
	}
	reduce, err := filter.NewReduce(reduceDims, cfg.Projection.Func,
		filter.FunctionSource(cfg.Projection.Source), clipMethod)
	if err != nil {
		log.Fatalf("Invalid reduction: %v", err)
	}

	banner("FISHSTACK AXIS PROJECTION",
		"Collapse stack axes with a named reduction function")

	fmt.Println("Loading experiment...")
	exp, err := experiment.FromJSON(resolveManifest(*expPath))
	if err != nil {
		log.Fatalf("Failed to load experiment: %v", err)
	}

	fovName := *fov
	if fovName == "" {
		fovs := exp.FOVs()
		if len(fovs) == 0 {
			log.Fatalf("Experiment has no fields of view")
		}
		fovName = fovs[0]
	}
	fieldOfView, err := exp.FOV(fovName)
	if err != nil {
		log.Fatalf("Failed to resolve field of view: %v", err)
	}

	imageType := *image
	if imageType == "" {
		imageType = experiment.PrimaryImages
	}

	fmt.Printf("Assembling %s of %s...\n", imageType, fovName)
	stack, err := fieldOfView.Stack(imageType)
	if err != nil {
		log.Fatalf("Failed to assemble stack: %v", err)
	}
	before := stack.String()

	fmt.Printf("Projecting with %s over %v...\n", cfg.Projection.Func, cfg.Projection.Dims)
	startTime := time.Now()
	projected, err := reduce.Run(stack)
	if err != nil {
		log.Fatalf("Projection failed: %v", err)
	}
	projectionTime := time.Since(startTime)

	collection, err := experiment.CollectionFromStack(fovName, projected, sptx.FormatF32)
	if err != nil {
		log.Fatalf("Failed to build output collection: %v", err)
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	outPath := filepath.Join(*outDir, "projected.json")
	if err := sptx.Write(collection, outPath, nil); err != nil {
		log.Fatalf("Failed to write projected collection: %v", err)
	}

	if *planes {
		planesDir := filepath.Join(*outDir, "planes")
		fmt.Printf("Rendering projected planes to: %s\n", planesDir)
		if err := visualization.NewViewer(projected).SavePlaneSequence(planesDir); err != nil {
			log.Printf("Warning: failed to render planes: %v", err)
		}
	}

	fmt.Printf("\nProjection completed successfully in %.2f seconds!\n", projectionTime.Seconds())
	fmt.Printf("Input stack: %s\n", before)
	fmt.Printf("Projected stack: %s\n", projected)
	fmt.Printf("Output saved to: %s\n", outPath)
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	expPath := fs.String("experiment", "", "Experiment manifest or directory")
	fs.Parse(args)

	path := *expPath
	if path == "" && fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if path == "" {
		fs.Usage()
		os.Exit(1)
	}
	path = resolveManifest(path)

	banner("FISHSTACK EXPERIMENT VALIDATOR",
		"Schema, version and tile checksum verification")

	fmt.Println("Step 1: Checking manifest against schema...")
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read manifest: %v", err)
	}
	if err := experiment.ValidateDocument(data); err != nil {
		log.Fatalf("Schema check failed: %v", err)
	}

	fmt.Println("Step 2: Loading collections and verifying tile checksums...")
	exp, err := experiment.FromJSON(path)
	if err != nil {
		log.Fatalf("Validation failed: %v", err)
	}

	fmt.Printf("\nValidation passed!\n\n")
	fmt.Printf("Version: %s\n", exp.Version())
	fmt.Printf("Fields of view: %d\n", len(exp.FOVs()))
	fmt.Printf("Codebook targets: %d\n", len(exp.Codebook().Targets()))
	for _, imageType := range exp.ImageTypes() {
		collection, ok := exp.Collection(imageType)
		if !ok {
			continue
		}
		tiles := 0
		volumetric := false
		for _, name := range collection.Names() {
			if ts, ok := collection.Partition(name); ok {
				tiles += ts.Len()
				volumetric = volumetric || ts.Volumetric()
			}
		}
		kind := "planar"
		if volumetric {
			kind = "volumetric"
		}
		fmt.Printf("Image type %q: %d partitions, %d tiles, %s\n",
			imageType, collection.Len(), tiles, kind)
	}
}

func runInitConfig(args []string) {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	outPath := fs.String("out", "fishstack.yaml", "Path for the default configuration file")
	fs.Parse(args)

	if err := config.CreateDefaultConfigFile(*outPath); err != nil {
		log.Fatalf("Failed to write configuration: %v", err)
	}
	fmt.Printf("Default configuration written to: %s\n", *outPath)
}
