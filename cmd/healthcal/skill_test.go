// ABOUTME: Tests for the install-skill command.
// ABOUTME: Validates the embedded skill file and installation behavior.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSkillFSReadEmbeddedContent(t *testing.T) {
	content, err := skillFS.ReadFile("skill/SKILL.md")
	if err != nil {
		t.Fatalf("Failed to read embedded skill/SKILL.md: %v", err)
	}

	s := string(content)
	if !strings.HasPrefix(s, "---") {
		t.Error("Expected SKILL.md to start with YAML frontmatter (---)")
	}
	for _, marker := range []string{"name: healthcal", "description:", "## When to use healthcal"} {
		if !strings.Contains(s, marker) {
			t.Errorf("Expected SKILL.md to contain %q", marker)
		}
	}
}

func TestSkillReferencesEveryTool(t *testing.T) {
	content, err := skillFS.ReadFile("skill/SKILL.md")
	if err != nil {
		t.Fatalf("Failed to read embedded skill: %v", err)
	}

	tools := []string{
		"record_health", "cycle_health", "list_records", "get_stats", "delete_record",
		"add_schedule", "list_schedules", "delete_schedule", "get_settings", "update_settings",
	}
	for _, tool := range tools {
		if !strings.Contains(string(content), "mcp__healthcal__"+tool) {
			t.Errorf("Expected embedded SKILL.md to reference %q", tool)
		}
	}
}

func TestInstallSkillWithConfirmFlag(t *testing.T) {
	home := t.TempDir()
	var out bytes.Buffer

	if err := installSkill(&out, strings.NewReader(""), home, true); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}

	data, err := os.ReadFile(skillPath(home))
	if err != nil {
		t.Fatalf("Skill file not created: %v", err)
	}
	if !strings.Contains(string(data), "name: healthcal") {
		t.Error("Installed skill missing frontmatter name")
	}
	if !strings.Contains(out.String(), "Installed healthcal skill") {
		t.Errorf("Unexpected output: %s", out.String())
	}

	info, err := os.Stat(skillPath(home))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0077 != 0 {
		t.Errorf("Expected owner-only permissions, got %v", info.Mode().Perm())
	}
}

func TestInstallSkillCanceled(t *testing.T) {
	home := t.TempDir()
	var out bytes.Buffer

	if err := installSkill(&out, strings.NewReader("n\n"), home, false); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".claude")); !os.IsNotExist(err) {
		t.Error("Expected nothing to be written when canceled")
	}
	if !strings.Contains(out.String(), "Installation canceled.") {
		t.Errorf("Unexpected output: %s", out.String())
	}
}

func TestInstallSkillOverwritesExistingFile(t *testing.T) {
	home := t.TempDir()
	dest := skillPath(home)
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dest, []byte("stale content"), 0600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := installSkill(&out, strings.NewReader("yes\n"), home, false); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}

	data, _ := os.ReadFile(dest)
	if strings.Contains(string(data), "stale content") {
		t.Error("Old content should have been replaced")
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Error("Expected overwrite notice")
	}
}

func TestSkillSkipConfirmFlag(t *testing.T) {
	flag := installSkillCmd.Flags().Lookup("yes")
	if flag == nil {
		t.Fatal("Expected --yes flag to be defined")
	}
	if flag.Shorthand != "y" {
		t.Errorf("Expected shorthand 'y', got %q", flag.Shorthand)
	}
	if flag.DefValue != "false" {
		t.Errorf("Expected default value 'false', got %q", flag.DefValue)
	}
}
