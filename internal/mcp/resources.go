// ABOUTME: MCP resource implementations for healthcal.
// ABOUTME: Provides healthcal://today, healthcal://stats, and healthcal://settings resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/healthcal/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	todayURI    = "healthcal://today"
	statsURI    = "healthcal://stats"
	settingsURI = "healthcal://settings"

	statsWindowDays = 30
)

func (s *Server) registerResources() {
	// healthcal://today - today's status and calendar entries
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         todayURI,
		Name:        "Today",
		Description: "Today's health status and calendar entries",
		MIMEType:    "application/json",
	}, s.handleTodayResource)

	// healthcal://stats - last 30 days plus all time
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         statsURI,
		Name:        "Health Statistics",
		Description: "Good, normal and bad day counts for the last 30 days and all time",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         settingsURI,
		Name:        "Settings",
		Description: "Current user settings",
		MIMEType:    "application/json",
	}, s.handleSettingsResource)
}

// Resource handlers

func (s *Server) handleTodayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	today := models.Today()

	rec, err := s.svc.Records.GetByDate(ctx, today)
	if err != nil {
		return nil, toolError("load today's record", err)
	}
	scheds, err := s.svc.Schedules.ListByDate(ctx, today)
	if err != nil {
		return nil, toolError("list today's schedules", err)
	}

	result := map[string]interface{}{
		"date":      today,
		"record":    rec,
		"schedules": scheds,
		"counts": map[string]int{
			"schedules": len(scheds),
		},
	}
	return jsonResource(todayURI, result)
}

func (s *Server) handleStatsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	now := time.Now()
	from := models.FormatDate(now.AddDate(0, 0, -(statsWindowDays - 1)))
	to := models.FormatDate(now)

	recent, err := s.svc.Records.Stats(ctx, from, to)
	if err != nil {
		return nil, toolError("compute stats", err)
	}
	all, err := s.svc.Records.Stats(ctx, "", "")
	if err != nil {
		return nil, toolError("compute stats", err)
	}

	result := map[string]interface{}{
		"generated_at": now.Format(time.RFC3339),
		"last_30_days": map[string]interface{}{
			"from":  from,
			"to":    to,
			"stats": recent,
		},
		"all_time": all,
	}
	return jsonResource(statsURI, result)
}

func (s *Server) handleSettingsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	settings, err := s.svc.Settings.Get(ctx)
	if err != nil {
		return nil, toolError("load settings", err)
	}
	return jsonResource(settingsURI, settings)
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
