// # cmd/mosaicmap/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mosaicmap/internal/analysis"
	"mosaicmap/internal/capture"
	"mosaicmap/internal/core/config"
	"mosaicmap/internal/engine/parser"
	"mosaicmap/internal/gitinfo"
	"mosaicmap/internal/resolver"
	"mosaicmap/internal/workspace"
)

var (
	configPath  = flag.String("config", "./mosaicmap.toml", "Path to config file")
	outputDir   = flag.String("output-dir", "", "Override output_dir from config")
	focusPrefix = flag.String("focus", "", "Override focus_prefix from config (the printed summary is not filtered by it)")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	version     = flag.Bool("version", false, "Print version and exit")
)

const versionString = "0.1.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("mosaicmap v%s\n", versionString)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	result, err := capture.Run(ctx, cfg, logger)
	if err != nil {
		slog.Error("capture failed", "error", err)
		os.Exit(1)
	}

	ws := workspace.Detect(cfg.Root)
	git := gitinfo.New(cfg.Root)
	commit := git.CurrentCommit(ctx)
	churn := churnForFiles(ctx, git, result.Files)

	resolved := resolver.Resolve(result.Files)
	hotspots := analysis.ScoreHotspots(result.Files, churn)
	clusters := analysis.ClusterFunctions(result.Files)
	typeFlows, crossPackage := analysis.TraceTypeFlow(result.Files)
	errorFlow := analysis.TraceErrorFlow(result.Files)
	safety := analysis.SummarizeSafety(result.Files)

	printSummary(summaryInput{
		root:         cfg.Root,
		languages:    ws.Languages,
		members:      len(ws.Members),
		commit:       commit,
		files:        result.Files,
		symbols:      len(resolved.Table),
		references:   len(resolved.References),
		hotspots:     hotspots,
		clusters:     clusters,
		typeFlows:    typeFlows,
		crossPackage: crossPackage,
		errorFlow:    errorFlow,
		safety:       safety,
	})
}

func churnForFiles(ctx context.Context, git *gitinfo.Collaborator, files []parser.FileRecord) map[string]uint32 {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	return git.ChurnAll(ctx, paths)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		root := "."
		if flag.NArg() > 0 {
			root = flag.Arg(0)
		}
		abs, absErr := filepath.Abs(root)
		if absErr != nil {
			abs = root
		}
		cfg = config.Default(abs)
	}

	if flag.NArg() > 0 {
		abs, absErr := filepath.Abs(flag.Arg(0))
		if absErr == nil {
			cfg.Root = abs
		}
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *focusPrefix != "" {
		cfg.FocusPrefix = *focusPrefix
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
