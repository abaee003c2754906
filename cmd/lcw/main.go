package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lcw/internal/config"
	"github.com/standardbeagle/lcw/internal/debug"
	lcwerrors "github.com/standardbeagle/lcw/internal/errors"
	"github.com/standardbeagle/lcw/internal/llm"
	"github.com/standardbeagle/lcw/internal/version"
	"github.com/standardbeagle/lcw/internal/watcher"
	"github.com/standardbeagle/lcw/pkg/pathutil"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")

	var absRoot string
	if rootFlag := c.String("root"); rootFlag != "" {
		var err error
		absRoot, err = filepath.Abs(rootFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", rootFlag, err)
		}
		// With a default config path, look for the config in the root directory
		if configPath == ".lcw.kdl" {
			configPath = filepath.Join(absRoot, ".lcw.kdl")
		}
	}

	cfg, err := config.LoadWithRoot(configPath, absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}
	if absRoot != "" && cfg.Project.Root != absRoot {
		// CLI root wins over whatever the config file declared; rescan
		// build configs under the new root.
		cfg.Project.Root = absRoot
		cfg.EnrichExclusionsWithBuildArtifacts()
	}
	if delayFlag := c.Int("delay"); delayFlag > 0 {
		cfg.Watch.AnalysisDelayMs = delayFlag
	}
	if concFlag := c.Int("max-concurrent"); concFlag > 0 {
		cfg.Watch.MaxConcurrentAnalysis = concFlag
	}

	validator := config.NewValidator()
	if err := validator.ValidateAndSetDefaults(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newService(cfg *config.Config) *watcher.Service {
	return watcher.NewService(cfg, llm.NewClient(cfg.Analyzer), lcwerrors.NewLogReporter(), nil)
}

func main() {
	app := &cli.App{
		Name:                   "lcw",
		Usage:                  "Adaptive change analysis for AI-assisted codebases",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   ".lcw.kdl",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to watch (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include files matching glob patterns (e.g., --include '**/*.go')",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns (e.g., --exclude '**/vendor/**')",
			},
			&cli.IntFlag{
				Name:  "delay",
				Usage: "Base analysis delay in milliseconds (overrides config)",
			},
			&cli.IntFlag{
				Name:  "max-concurrent",
				Usage: "Maximum concurrent analysis calls (overrides config)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Watch the project and analyze changes as they happen",
				Action:  watchCommand,
			},
			{
				Name:    "batch",
				Aliases: []string{"b"},
				Usage:   "Analyze every matching file once, then exit",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Suppress per-file progress output",
					},
				},
				Action: batchCommand,
			},
			{
				Name:    "status",
				Aliases: []string{"st"},
				Usage:   "Show effective configuration and watch filters",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: statusCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Start MCP (Model Context Protocol) server with stdio transport",
				Action: mcpCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	service := newService(cfg)
	if err := service.Start(); err != nil {
		return err
	}
	defer service.Stop()

	fmt.Printf("Watching %s (%d include, %d exclude patterns)\n",
		cfg.Project.Root, len(cfg.Include), len(cfg.Exclude))
	debug.LogWatch("watch started: root=%s\n", cfg.Project.Root)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig != syscall.SIGHUP {
			break
		}
		// SIGHUP re-reads configuration and rebuilds the watch
		// subscriptions; pending jobs keep their already-armed delays.
		newCfg, err := loadConfigWithOverrides(c)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Reload failed: %v\n", err)
			continue
		}
		if err := service.Reload(newCfg); err != nil {
			fmt.Fprintf(os.Stderr, "Reload failed: %v\n", err)
			continue
		}
		fmt.Printf("Configuration reloaded from %s\n", newCfg.Project.Root)
		debug.LogWatch("config reloaded: root=%s\n", newCfg.Project.Root)
	}

	fmt.Println("\nShutting down...")
	snapshot := service.Metrics()
	fmt.Printf("Analyzed %d files (%d errors, %d dropped)\n",
		snapshot.AnalysisCompleted, snapshot.AnalysisErrors, snapshot.AnalysisDropped)
	return nil
}

func batchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	if !cfg.Watch.BatchAnalysis {
		return fmt.Errorf("batch analysis disabled in configuration")
	}

	service := newService(cfg)
	defer service.Stop()

	var progress watcher.BatchProgress
	if !c.Bool("quiet") {
		progress = func(done, total int) {
			fmt.Printf("\rAnalyzing %d/%d", done, total)
		}
	}

	result, err := service.RunBatch(progress)
	if err != nil {
		return err
	}
	if progress != nil {
		fmt.Println()
	}

	fmt.Printf("Batch complete: %d files, %d analyzed, %d failed, %d dropped\n",
		result.Total, result.Completed, result.Failed, result.Dropped)
	for _, p := range pathutil.ToRelativeAll(result.FailedPaths, cfg.Project.Root) {
		fmt.Printf("  failed: %s\n", p)
	}
	return nil
}
