// ABOUTME: Install Claude Code skill for healthcal.
// ABOUTME: Embeds the skill definition and copies it to ~/.claude/skills/.
package main

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

//go:embed skill/SKILL.md
var skillFS embed.FS

var skillSkipConfirm bool

var installSkillCmd = &cobra.Command{
	Use:   "install-skill",
	Short: "Install Claude Code skill",
	Long: `Install the healthcal skill for Claude Code.

This copies the skill definition to ~/.claude/skills/healthcal/
so Claude Code can use the healthcal tools contextually.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		return installSkill(cmd.OutOrStdout(), cmd.InOrStdin(), home, skillSkipConfirm)
	},
}

func init() {
	installSkillCmd.Flags().BoolVarP(&skillSkipConfirm, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(installSkillCmd)
}

func skillPath(home string) string {
	return filepath.Join(home, ".claude", "skills", "healthcal", "SKILL.md")
}

func installSkill(w io.Writer, in io.Reader, home string, skipConfirm bool) error {
	dest := skillPath(home)

	fmt.Fprintln(w, "This will install the healthcal skill, enabling Claude Code to:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  • Record how each day went")
	fmt.Fprintln(w, "  • Add and list schedule entries")
	fmt.Fprintln(w, "  • Summarize good, normal, and bad days")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Destination:")
	fmt.Fprintf(w, "  %s\n\n", dest)

	if _, err := os.Stat(dest); err == nil {
		fmt.Fprintln(w, "Note: A skill file already exists and will be overwritten.")
		fmt.Fprintln(w)
	}

	if !skipConfirm {
		fmt.Fprint(w, "Install the healthcal skill? [y/N] ")
		response, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read response: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(w, "Installation canceled.")
			return nil
		}
		fmt.Fprintln(w)
	}

	content, err := skillFS.ReadFile("skill/SKILL.md")
	if err != nil {
		return fmt.Errorf("failed to read embedded skill: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return fmt.Errorf("failed to create skill directory: %w", err)
	}
	if err := os.WriteFile(dest, content, 0600); err != nil {
		return fmt.Errorf("failed to write skill file: %w", err)
	}

	fmt.Fprintln(w, "✓ Installed healthcal skill successfully!")
	fmt.Fprintln(w, "Try asking Claude: \"I had a rough day\" or \"How was last month?\"")
	return nil
}
