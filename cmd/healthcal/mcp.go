// ABOUTME: CLI command for starting the MCP server.
// ABOUTME: Runs a stdio MCP server over the signed-in account.
package main

import (
	"github.com/harperreed/healthcal/internal/apperr"
	"github.com/harperreed/healthcal/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout and acts as the account saved by
'healthcal auth signin'.

CONFIGURATION:

  {
    "mcpServers": {
      "healthcal": {
        "command": "healthcal",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  record_health     Record a day's status
  cycle_health      Advance a day's status
  list_records      List health records
  get_stats         Good/normal/bad percentages
  delete_record     Delete a record by ID or date
  add_schedule      Create a calendar entry
  list_schedules    List calendar entries
  delete_schedule   Delete a calendar entry
  get_settings      Show settings
  update_settings   Change settings

AVAILABLE RESOURCES:

  healthcal://today      Today's status and entries
  healthcal://stats      Last 30 days and all-time statistics
  healthcal://settings   Current settings`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := app.auth.CurrentUser(cmd.Context())
		if err != nil {
			return err
		}
		if user == nil {
			return apperr.AuthRequired()
		}

		server, err := mcp.NewServer(mcp.Services{
			Records:   app.records,
			Schedules: app.schedules,
			Settings:  app.settings,
		})
		if err != nil {
			return err
		}
		app.logger.Info("mcp server starting", "user", user.Email)
		return server.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
