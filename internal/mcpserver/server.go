package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/penwyp/go-cfs-perfmon/internal/analyzer"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
	"github.com/penwyp/go-cfs-perfmon/internal/core/registry"
	"github.com/penwyp/go-cfs-perfmon/internal/core/sequencer"
	"github.com/penwyp/go-cfs-perfmon/internal/core/statistics"
	"github.com/penwyp/go-cfs-perfmon/internal/core/timebase"
	"github.com/penwyp/go-cfs-perfmon/internal/data/scanner"
	"github.com/penwyp/go-cfs-perfmon/internal/presentation/formatter"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
	"github.com/spf13/afero"
)

const (
	serverName       = "cfs-perfmon"
	defaultEventPage = 100
)

// Server exposes an analyzer as MCP tools.
type Server struct {
	analyzer *analyzer.Analyzer
	fs       afero.Fs
	mcp      *server.MCPServer
}

func New(a *analyzer.Analyzer, fs afero.Fs, version string) *Server {
	s := &Server{
		analyzer: a,
		fs:       fs,
		mcp:      server.NewMCPServer(serverName, version, server.WithLogging()),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server for transports other than stdio.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio blocks serving requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("load_log",
		mcp.WithDescription("Load one or more cFS performance logs. Logs are concatenated in the given order; directories are scanned for log files."),
		mcp.WithString("paths",
			mcp.Required(),
			mcp.Description("Comma-separated log file or directory paths"),
		),
	), s.handleLoadLog)

	s.mcp.AddTool(mcp.NewTool("get_statistics",
		mcp.WithDescription("Per-ID duration statistics of the plotted IDs in the loaded logs"),
		mcp.WithString("sort",
			mcp.Description("Sort order: name (default) or value"),
		),
	), s.handleGetStatistics)

	s.mcp.AddTool(mcp.NewTool("get_events",
		mcp.WithDescription("Enriched events with sequence error, time anomaly and overrun flags"),
		mcp.WithNumber("offset",
			mcp.Description("Index of the first event to return (default: 0)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of events to return (default: 100)"),
		),
		mcp.WithBoolean("errors_only",
			mcp.Description("Only return flagged events"),
		),
	), s.handleGetEvents)

	s.mcp.AddTool(mcp.NewTool("set_plot_enabled",
		mcp.WithDescription("Include or exclude an ID from the statistics and recompute them"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Performance ID, 0x-prefixed hex or decimal"),
		),
		mcp.WithBoolean("enabled",
			mcp.Required(),
			mcp.Description("Whether the ID is plotted"),
		),
	), s.handleSetPlotEnabled)

	s.mcp.AddTool(mcp.NewTool("get_summary",
		mcp.WithDescription("Log sources, time span, error counts and totals of the loaded logs"),
	), s.handleGetSummary)

	s.mcp.AddTool(mcp.NewTool("set_note",
		mcp.WithDescription("Attach a note to an event, or clear it with an empty text. Notes are saved next to the log."),
		mcp.WithNumber("index",
			mcp.Required(),
			mcp.Description("Event index"),
		),
		mcp.WithString("text",
			mcp.Description("Note text; empty clears the note"),
		),
	), s.handleSetNote)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) current() (*analyzer.Result, *mcp.CallToolResult) {
	result := s.analyzer.Current()
	if result == nil {
		return nil, mcp.NewToolResultError("No log loaded. Use load_log first")
	}
	return result, nil
}

func splitPaths(raw string) []string {
	var paths []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func (s *Server) handleLoadLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	paths, err := scanner.ExpandPaths(s.fs, splitPaths(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.analyzer.Load(ctx, paths)
	if err != nil {
		util.LogWarn(fmt.Sprintf("MCP load_log failed: %v", err))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load logs: %v", err)), nil
	}
	return jsonResult(summaryOf(result))
}

func (s *Server) handleGetStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, errResult := s.current()
	if errResult != nil {
		return errResult, nil
	}

	if sortArg := request.GetString("sort", ""); sortArg != "" {
		order, err := model.ParseSortOrder(sortArg)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if order.String() != result.SortOrder {
			if result, err = s.analyzer.SetSortOrder(order); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
	}

	return jsonResult(map[string]interface{}{
		"generation": result.Generation,
		"sortOrder":  result.SortOrder,
		"precision":  result.Precision,
		"stats":      result.Stats,
		"totals":     result.Totals,
	})
}

func (s *Server) handleGetEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, errResult := s.current()
	if errResult != nil {
		return errResult, nil
	}

	opts := formatter.EventsOptions{
		Offset:     int(request.GetFloat("offset", 0)),
		Limit:      int(request.GetFloat("limit", defaultEventPage)),
		ErrorsOnly: request.GetBool("errors_only", false),
	}
	if opts.Offset < 0 || opts.Limit < 0 {
		return mcp.NewToolResultError("offset and limit must not be negative"), nil
	}

	events := formatter.SelectEvents(result.Events, opts)
	if events == nil {
		events = []model.EnrichedEvent{}
	}
	return jsonResult(map[string]interface{}{
		"generation": result.Generation,
		"total":      len(result.Events),
		"offset":     opts.Offset,
		"events":     events,
	})
}

func (s *Server) handleSetPlotEnabled(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawID, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	enabled, err := request.RequireBool("enabled")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := registry.ParseIDValue(rawID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.analyzer.SetPlotEnabled(id, enabled)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if result == nil {
		return mcp.NewToolResultText(fmt.Sprintf("%s plot flag set to %t; no log loaded yet", model.FormatID(id), enabled)), nil
	}
	return jsonResult(map[string]interface{}{
		"generation": result.Generation,
		"stats":      result.Stats,
		"totals":     result.Totals,
	})
}

func (s *Server) handleGetSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, errResult := s.current()
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(summaryOf(result))
}

func (s *Server) handleSetNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, errResult := s.current(); errResult != nil {
		return errResult, nil
	}
	index, err := request.RequireFloat("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.analyzer.SetNote(int(index), request.GetString("text", ""))
	if err != nil {
		if errors.Is(err, analyzer.ErrIndexInvalid) {
			return mcp.NewToolResultError(fmt.Sprintf("Event %d does not exist", int(index))), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result.Events[int(index)])
}

type summary struct {
	Generation uint64            `json:"generation"`
	Sources    []analyzer.Source `json:"sources"`
	Precision  int               `json:"precision"`
	Events     int               `json:"events"`
	Span       timebase.Span     `json:"span"`
	Summary    sequencer.Summary `json:"summary"`
	Totals     statistics.Totals `json:"totals"`
}

func summaryOf(result *analyzer.Result) summary {
	return summary{
		Generation: result.Generation,
		Sources:    result.Sources,
		Precision:  result.Precision,
		Events:     len(result.Events),
		Span:       result.Span,
		Summary:    result.Summary,
		Totals:     result.Totals,
	}
}
