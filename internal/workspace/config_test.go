package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/edithist/internal/workspace"
)

func TestLoadConfig_DefaultsWhenNoFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := workspace.LoadConfig(workspace.LoadConfigInput{
		WorkDirOverride: dir,
		Env:             map[string]string{},
	})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if len(cfg.RootsAbs) != 1 || cfg.RootsAbs[0] != dir {
		t.Errorf("RootsAbs = %v, want [%s]", cfg.RootsAbs, dir)
	}
}

func TestLoadConfig_ProjectFileOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfgPath := filepath.Join(dir, workspace.ConfigFileName)
	contents := `{
		// allow a comment, per the JSONC format
		"roots": ["sub"],
		"log_warn_bytes": 1024,
	}`

	if err := os.WriteFile(cfgPath, []byte(contents), 0o640); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := workspace.LoadConfig(workspace.LoadConfigInput{
		WorkDirOverride: dir,
		Env:             map[string]string{},
	})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if len(cfg.Roots) != 1 || cfg.Roots[0] != "sub" {
		t.Errorf("Roots = %v, want [sub]", cfg.Roots)
	}

	if cfg.LogWarnBytes != 1024 {
		t.Errorf("LogWarnBytes = %d, want 1024", cfg.LogWarnBytes)
	}

	if cfg.Sources.Project != cfgPath {
		t.Errorf("Sources.Project = %q, want %q", cfg.Sources.Project, cfgPath)
	}
}

func TestLoadConfig_CLIRootsOverrideFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfgPath := filepath.Join(dir, workspace.ConfigFileName)
	if err := os.WriteFile(cfgPath, []byte(`{"roots": ["from-file"]}`), 0o640); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := workspace.LoadConfig(workspace.LoadConfigInput{
		WorkDirOverride: dir,
		RootsOverride:   []string{"from-cli"},
		Env:             map[string]string{},
	})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if len(cfg.Roots) != 1 || cfg.Roots[0] != "from-cli" {
		t.Errorf("Roots = %v, want [from-cli]", cfg.Roots)
	}
}

func TestLoadConfig_ExplicitConfigPathMustExist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := workspace.LoadConfig(workspace.LoadConfigInput{
		WorkDirOverride: dir,
		ConfigPath:      "does-not-exist.json",
		Env:             map[string]string{},
	})
	if err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}
