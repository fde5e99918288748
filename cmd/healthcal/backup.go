// ABOUTME: CLI commands for encrypted cloud backups in Charm KV.
// ABOUTME: Supports link, unlink, push, list, restore, delete, prune, repair, and wipe.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/charm/kv"
	"github.com/fatih/color"
	"github.com/harperreed/healthcal/internal/backup"
	"github.com/spf13/cobra"
)

var (
	pruneKeep   int
	repairForce bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up your data to Charm Cloud",
	Long: `Store snapshots of your records, schedules, and settings in Charm Cloud.

Snapshots are E2E encrypted with your SSH key before upload.

GETTING STARTED:

  1. Link this device (creates/uses an SSH key automatically):
     healthcal backup link

  2. Push a snapshot:
     healthcal backup push

  3. Restore on any linked device:
     healthcal backup list
     healthcal backup restore 01HZX3

COMMANDS:

  link        Link this device to your Charm account
  unlink      Disconnect this device from Charm
  push        Upload a snapshot of your data
  list        List your snapshots, newest first
  restore     Import a snapshot into your account
  delete      Delete a snapshot
  prune       Keep only the newest N snapshots
  repair      Repair the local backup database
  wipe        Delete every snapshot, locally and in the cloud`,
}

var backupLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link this device to Charm",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runCharm("link"); err != nil {
			return fmt.Errorf("failed to link: %w\n\nMake sure 'charm' CLI is installed: go install github.com/charmbracelet/charm@latest", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("\n✓ Device linked to Charm"))
		return nil
	},
}

var backupUnlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Disconnect from Charm",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runCharm("unlink"); err != nil {
			return fmt.Errorf("failed to unlink: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Device unlinked from Charm"))
		fmt.Fprintln(cmd.OutOrStdout(), "Your local healthcal data is preserved.")
		return nil
	},
}

var backupPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload a snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackup(func(svc *backup.Service) error {
			snap, err := svc.Push(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Snapshot %s", snap.ID))
			fmt.Fprintf(cmd.OutOrStdout(), "  %d records, %d schedules\n", snap.Records, snap.Schedules)
			return nil
		})
	},
}

var backupListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackup(func(svc *backup.Service) error {
			snaps, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No snapshots found.")
				return nil
			}
			for _, s := range snaps {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d records, %d schedules\n",
					faint.Sprint(s.ID),
					s.CreatedAt.Local().Format("2006-01-02 15:04"),
					s.Records, s.Schedules)
			}
			return nil
		})
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Import a snapshot into your account",
	Long: `Import a snapshot by ID or unique prefix. Records are matched by date, so
restoring over existing data replaces those days rather than duplicating them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackup(func(svc *backup.Service) error {
			res, err := svc.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Restored %d records, %d schedules", res.Records, res.Schedules))
			return nil
		})
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a snapshot",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackup(func(svc *backup.Service) error {
			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("✗ Deleted snapshot %s", args[0]))
			return nil
		})
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Keep only the newest snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackup(func(svc *backup.Service) error {
			n, err := svc.Prune(cmd.Context(), pruneKeep)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Removed %d snapshots", n))
			return nil
		})
	},
}

var backupRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair the local backup database",
	Long: `Repair the local backup database by checkpointing WAL, removing SHM files,
checking integrity, and vacuuming. Run with --force to attempt recovery even
if integrity checks fail.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Repairing backup database...")
		result, err := kv.Repair(backup.DefaultDBName, repairForce)

		if result != nil {
			if result.WalCheckpointed {
				fmt.Fprintln(out, color.GreenString("  ✓ WAL checkpointed"))
			}
			if result.ShmRemoved {
				fmt.Fprintln(out, color.GreenString("  ✓ SHM file removed"))
			}
			if result.IntegrityOK {
				fmt.Fprintln(out, color.GreenString("  ✓ Integrity check passed"))
			} else {
				fmt.Fprintln(out, color.RedString("  ✗ Integrity check failed"))
			}
			if result.Vacuumed {
				fmt.Fprintln(out, color.GreenString("  ✓ Database vacuumed"))
			}
		}

		if err != nil {
			if !repairForce {
				fmt.Fprintln(out, color.YellowString("\nRun with --force to attempt recovery."))
			}
			return fmt.Errorf("repair failed: %w", err)
		}
		fmt.Fprintln(out, color.GreenString("\n✓ Repair complete"))
		return nil
	},
}

var backupWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete every snapshot",
	Long: `Delete all snapshots, locally and in Charm Cloud. Your healthcal records are
not touched. This is a DESTRUCTIVE operation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "This will PERMANENTLY DELETE all healthcal snapshots.")
		fmt.Fprint(out, "Type 'wipe' to confirm: ")
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if strings.TrimSpace(line) != "wipe" {
			fmt.Fprintln(out, "Canceled.")
			return nil
		}

		result, err := kv.Wipe(backup.DefaultDBName)
		if err != nil {
			return fmt.Errorf("wipe failed: %w", err)
		}
		fmt.Fprintln(out, color.GreenString("✓ Snapshots wiped"))
		fmt.Fprintf(out, "  Cloud backups deleted: %d\n", result.CloudBackupsDeleted)
		fmt.Fprintf(out, "  Local files deleted: %d\n", result.LocalFilesDeleted)
		return nil
	},
}

// withBackup opens the Charm KV for the duration of fn.
func withBackup(fn func(*backup.Service) error) error {
	client, err := backup.Open(backup.DefaultDBName, app.cfg.CharmHost)
	if err != nil {
		return err
	}
	defer client.Close()

	return fn(backup.NewService(client, app.exporter, app.auth.CurrentUser))
}

func runCharm(args ...string) error {
	c := exec.Command("charm", args...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

func init() {
	backupPruneCmd.Flags().IntVar(&pruneKeep, "keep", 10, "number of snapshots to keep")
	backupRepairCmd.Flags().BoolVar(&repairForce, "force", false, "attempt recovery even if integrity checks fail")

	backupCmd.AddCommand(backupLinkCmd, backupUnlinkCmd, backupPushCmd, backupListCmd,
		backupRestoreCmd, backupDeleteCmd, backupPruneCmd, backupRepairCmd, backupWipeCmd)
	rootCmd.AddCommand(backupCmd)
}
