// Package mcp exposes the watcher over the Model Context Protocol so AI
// tooling can inspect scheduling state and trigger analysis on stdio.
//
// CRITICAL: stdout/stderr belong to the protocol. All diagnostics go
// through the debug package's file-based log.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/lcw/internal/config"
	"github.com/standardbeagle/lcw/internal/debug"
	"github.com/standardbeagle/lcw/internal/types"
	"github.com/standardbeagle/lcw/internal/version"
	"github.com/standardbeagle/lcw/internal/watcher"
	"github.com/standardbeagle/lcw/pkg/pathutil"
)

type Server struct {
	service *watcher.Service
	cfg     *config.Config
	server  *mcp.Server
}

// NewServer wraps a running watcher service in an MCP tool surface.
func NewServer(service *watcher.Service, cfg *config.Config) *Server {
	debug.SetMCPMode(true)
	// Debug logging is best-effort in MCP mode.
	_, _ = debug.InitDebugLogFile()

	s := &Server{
		service: service,
		cfg:     cfg,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "lcw-mcp-server",
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	debug.LogMCP("server starting: %s\n", version.FullInfo())
	defer debug.CloseDebugLog()
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// AnalyzeFileParams identifies a file for immediate analysis.
type AnalyzeFileParams struct {
	FilePath string `json:"file_path"`
}

// PatternsParams identifies a file whose classification history to return.
type PatternsParams struct {
	FilePath string `json:"file_path"`
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "watch_status",
		Description: "Watcher health and throughput: files tracked, pending jobs, active and completed analysis, drop and error counts, timing averages.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleWatchStatus)

	s.server.AddTool(&mcp.Tool{
		Name:        "scheduled_jobs",
		Description: "Pending analysis jobs sorted by priority score, with fire deadlines and change classification.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleScheduledJobs)

	s.server.AddTool(&mcp.Tool{
		Name:        "analyze_file",
		Description: "Analyze one file immediately, bypassing the debounce timer. Subject to the concurrency cap: returns dropped when capacity is exhausted.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"file_path": {
					Type:        "string",
					Description: "Path of the file to analyze",
				},
			},
			Required: []string{"file_path"},
		},
	}, s.handleAnalyzeFile)

	s.server.AddTool(&mcp.Tool{
		Name:        "recent_patterns",
		Description: "Change pattern candidates from the most recent classification of a file (kind, confidence, indicators).",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"file_path": {
					Type:        "string",
					Description: "Path of the file whose classification history to return",
				},
			},
			Required: []string{"file_path"},
		},
	}, s.handlePatterns)
}

func (s *Server) handleWatchStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snapshot := s.service.Metrics()
	stats := s.service.WatchStats()

	return createJSONResponse(map[string]interface{}{
		"metrics": snapshot,
		"watcher": map[string]interface{}{
			"events_processed":  stats.EventsProcessed,
			"events_filtered":   stats.EventsFiltered,
			"events_suppressed": stats.EventsSuppressed,
			"error_count":       stats.ErrorCount,
			"last_event_time":   stats.LastEventTime,
		},
		"project_root": s.cfg.Project.Root,
	})
}

func (s *Server) handleScheduledJobs(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs := s.service.ScheduledJobs()

	views := make([]map[string]interface{}, 0, len(jobs))
	for _, job := range jobs {
		view := map[string]interface{}{
			"file_path":      pathutil.ToRelative(job.Context.FilePath, s.cfg.Project.Root),
			"priority":       job.Context.Priority.String(),
			"priority_score": job.PriorityScore,
			"complexity":     job.Context.EstimatedComplexity,
			"fire_at":        job.FireAt,
		}
		if job.Context.Pattern != nil {
			view["pattern"] = job.Context.Pattern.Kind.String()
			view["confidence"] = job.Context.Pattern.Confidence
		}
		views = append(views, view)
	}

	return createJSONResponse(map[string]interface{}{
		"jobs":  views,
		"count": len(views),
	})
}

func (s *Server) handleAnalyzeFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params AnalyzeFileParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("analyze_file", fmt.Errorf("invalid parameters: %w", err))
	}
	if params.FilePath == "" {
		return createErrorResponse("analyze_file", fmt.Errorf("file_path is required"))
	}

	outcome := s.service.AnalyzeNow(params.FilePath, types.SourceManual)
	debug.LogMCP("analyze_file %s: %s\n", params.FilePath, outcome)

	return createJSONResponse(map[string]interface{}{
		"file_path": params.FilePath,
		"outcome":   outcome.String(),
	})
}

func (s *Server) handlePatterns(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params PatternsParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("recent_patterns", fmt.Errorf("invalid parameters: %w", err))
	}
	if params.FilePath == "" {
		return createErrorResponse("recent_patterns", fmt.Errorf("file_path is required"))
	}

	patterns := s.service.RecentPatterns(params.FilePath)
	views := make([]map[string]interface{}, 0, len(patterns))
	for _, p := range patterns {
		views = append(views, map[string]interface{}{
			"kind":        p.Kind.String(),
			"confidence":  p.Confidence,
			"description": p.Description,
			"indicators":  p.Indicators,
		})
	}

	return createJSONResponse(map[string]interface{}{
		"file_path": params.FilePath,
		"patterns":  views,
	})
}
