package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestImportDryRunCommand(t *testing.T) {
	t.Setenv("OBO_LOADER_CONFIG", "")
	t.Setenv("GRAPH_BACKEND", "memory")

	path := filepath.Join(t.TempDir(), "mini.obo")
	obo := "[Term]\nid: GO:0000001\nname: mitochondrion inheritance\nnamespace: biological_process\n"
	if err := os.WriteFile(path, []byte(obo), 0o600); err != nil {
		t.Fatalf("write obo: %v", err)
	}

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"import", "--dry-run", "--log-level", "error", path})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "scanned=1 loaded=1") {
		t.Fatalf("unexpected output: %q", out.String())
	}
	if !strings.Contains(out.String(), "dry run graph: terms=1 ") {
		t.Fatalf("dry run counts missing: %q", out.String())
	}
}

func TestImportRequiresFile(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"import"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected argument error")
	}
}
