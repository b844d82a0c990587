package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"forge/internal/bridge"
	"forge/internal/cache"
	"forge/internal/config"
	"forge/internal/module"
	"forge/internal/pipeline"
	"forge/internal/respath"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [path]",
	Short: "Build a forge project",
	Long:  "Build the module graph of a forge project using forge.toml as the entrypoint definition.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  buildExecution,
}

func init() {
	buildCmd.Flags().Bool("no-cache", false, "skip the persistent build cache")
	buildCmd.Flags().String("out", "", "artifact output directory (default <root>/target/forge)")
}

func buildExecution(cmd *cobra.Command, args []string) error {
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	jobs, err := cmd.Root().PersistentFlags().GetInt("jobs")
	if err != nil {
		return err
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}

	baseDir := "."
	if len(args) > 0 && args[0] != "" {
		baseDir = args[0]
	}
	manifestPath, found := config.Find(baseDir)
	if !found {
		return fmt.Errorf("no %s found in %s or any parent directory", config.ManifestName, baseDir)
	}
	cfg, err := config.Load(manifestPath)
	if err != nil {
		return err
	}
	if jobs == 0 {
		jobs = cfg.Build.Jobs
	}
	if maxDiagnostics == 100 && cfg.Build.MaxDiagnostics != 0 {
		maxDiagnostics = cfg.Build.MaxDiagnostics
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false, Prefix: "forge"})
	if quiet {
		logger.SetLevel(log.ErrorLevel)
	}

	var disk *cache.DiskCache
	if !noCache {
		disk, err = cache.OpenDiskCache("forge")
		if err != nil {
			logger.Warn("build cache unavailable", "err", err)
			disk = nil
		}
	}

	ctx := cmd.Context()

	var driver module.PluginDriver = module.NopDriver{}
	if cfg.Build.Worker != "" {
		worker, err := bridge.StartWorker(ctx, cfg.Build.Worker)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := worker.Close(); closeErr != nil {
				logger.Debug("worker shutdown", "err", closeErr)
			}
		}()
		driver = bridge.NewPolicy(worker.Conduit())
	}

	p := pipeline.New(pipeline.Options{
		Module:         cfg.ModuleOptions(),
		Resolve:        cfg.ResolveOptions(),
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
		Driver:         driver,
		Memory:         cache.NewMemoryCache(64),
		Disk:           disk,
		Logger:         logger,
	})

	result, err := p.Run(ctx, cfg.Build.Entry)
	if err != nil {
		return err
	}

	printDiagnostics(os.Stderr, result.Diagnostics, maxDiagnostics)
	if timings {
		printTimings(os.Stdout, result)
	}
	if result.HasErrors() {
		return fmt.Errorf("build failed with %d modules, see diagnostics above", len(result.Modules))
	}

	if outDir == "" {
		outDir = filepath.Join(cfg.Context, "target", "forge")
	}
	written, err := emitArtifacts(outDir, cfg.Context, result)
	if err != nil {
		return err
	}
	if !quiet {
		_, _ = fmt.Fprintf(os.Stdout, "built %d modules (%d cached), wrote %d artifacts to %s\n",
			len(result.Modules), result.CacheHits, written, outDir)
	}
	return nil
}

// emitArtifacts writes every generated artifact under outDir, named by the
// module's chunk name. Source types beyond the first get the type appended
// so a module emitting both script and css does not self-overwrite.
func emitArtifacts(outDir, root string, result *pipeline.Result) (int, error) {
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	ids := make([]module.Identifier, 0, len(result.Artifacts))
	for id := range result.Artifacts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	written := 0
	for _, id := range ids {
		m := result.Modules[id]
		cg := result.Artifacts[id]
		name := respath.ChunkName(root, m.Resource().Path)
		for i, st := range m.SourceTypes() {
			artifact, ok := cg.Get(st)
			if !ok {
				continue
			}
			fileName := name
			if i > 0 {
				fileName += "." + string(st)
			}
			dst := filepath.Join(outDir, fileName+extensionFor(st))
			if err := os.WriteFile(dst, artifact.Source.Buffer(), 0o600); err != nil {
				return written, fmt.Errorf("failed to write artifact %q: %w", dst, err)
			}
			written++
		}
	}
	return written, nil
}

func extensionFor(st module.SourceType) string {
	switch st {
	case module.SourceTypeCSS:
		return ".css"
	case module.SourceTypeAsset:
		return ""
	default:
		return ".js"
	}
}

func printTimings(out *os.File, result *pipeline.Result) {
	_, _ = fmt.Fprintf(out, "timings:\n")
	for _, stage := range []pipeline.Stage{pipeline.StageBuild, pipeline.StageCodegen} {
		_, _ = fmt.Fprintf(out, "  %-10s %7.2f ms\n", string(stage),
			float64(result.Timings.Duration(stage).Microseconds())/1000.0)
	}
	_, _ = fmt.Fprintf(out, "  %-10s %7.2f ms\n", "total",
		float64(result.Timings.Total().Microseconds())/1000.0)
}
