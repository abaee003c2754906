package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lcw/internal/debug"
	"github.com/standardbeagle/lcw/internal/mcp"
	"github.com/standardbeagle/lcw/internal/version"
)

func statusCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		data, err := json.MarshalIndent(map[string]interface{}{
			"version": version.Version,
			"project": map[string]interface{}{
				"root": cfg.Project.Root,
				"name": cfg.Project.Name,
			},
			"watch": map[string]interface{}{
				"enabled":                 cfg.Watch.Enabled,
				"real_time_analysis":      cfg.Watch.RealTimeAnalysis,
				"batch_analysis":          cfg.Watch.BatchAnalysis,
				"max_concurrent_analysis": cfg.Watch.MaxConcurrentAnalysis,
				"analysis_delay_ms":       cfg.Watch.AnalysisDelayMs,
				"max_file_size":           cfg.Watch.MaxFileSize,
			},
			"analyzer": map[string]interface{}{
				"model":       cfg.Analyzer.Model,
				"timeout_sec": cfg.Analyzer.TimeoutSec,
				"configured":  os.Getenv(cfg.Analyzer.APIKeyEnv) != "",
			},
			"include": cfg.Include,
			"exclude": cfg.Exclude,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%s\n\n", version.FullInfo())
	fmt.Printf("Project root:    %s\n", cfg.Project.Root)
	fmt.Printf("Watching:        %v (real-time: %v, batch: %v)\n",
		cfg.Watch.Enabled, cfg.Watch.RealTimeAnalysis, cfg.Watch.BatchAnalysis)
	fmt.Printf("Concurrency cap: %d\n", cfg.Watch.MaxConcurrentAnalysis)
	fmt.Printf("Base delay:      %dms\n", cfg.Watch.AnalysisDelayMs)
	fmt.Printf("Analyzer model:  %s (key via %s: %v)\n",
		cfg.Analyzer.Model, cfg.Analyzer.APIKeyEnv, os.Getenv(cfg.Analyzer.APIKeyEnv) != "")
	fmt.Printf("Include (%d):\n", len(cfg.Include))
	for _, p := range cfg.Include {
		fmt.Printf("  %s\n", p)
	}
	fmt.Printf("Exclude (%d):\n", len(cfg.Exclude))
	for _, p := range cfg.Exclude {
		fmt.Printf("  %s\n", p)
	}
	return nil
}

func mcpCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	service := newService(cfg)
	if cfg.Watch.Enabled {
		if err := service.Start(); err != nil {
			return err
		}
	}
	defer service.Stop()

	server := mcp.NewServer(service, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		debug.LogMCP("Starting MCP server with stdio transport...\n")
		errChan <- server.Run(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		cancel()
		return nil
	}
}
