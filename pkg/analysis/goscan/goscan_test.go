package goscan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"onionscope/pkg/errors"
	"onionscope/pkg/graph"
	"onionscope/pkg/onion"
)

// writeProject lays down a small Go project under a temp dir.
func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"go.mod": "module example.com/demo\n\ngo 1.24\n",
		"README.md": "# demo\n\nA demo project for navigation tests.\n",
		"cmd/demo/main.go": `package main

import (
	"example.com/demo/auth"
	"example.com/demo/store"
)

func main() {
	_ = auth.Login
	_ = store.Open
}
`,
		"auth/auth.go": `// Package auth verifies user sessions. It owns login and token
// validation.
package auth

import "example.com/demo/store"

// Login authenticates a user.
func Login(name string) error {
	_ = store.Open
	return nil
}

// Session is an authenticated user session.
type Session struct{}
`,
		"store/store.go": `package store

// Open connects to the backing database.
func Open() error { return nil }
`,
		"store/testdata/fixture.go": "package broken!!\n",
	}
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestScan(t *testing.T) {
	snap, err := NewScanner(writeProject(t), nil).Scan()
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(snap.Domain.Nodes) != 3 {
		t.Fatalf("modules = %v, want cmd, auth, store", snap.Domain.Nodes)
	}

	auth := snap.Domain.Node("auth")
	if auth == nil {
		t.Fatal("auth module missing")
	}
	if auth.ArchitectureLayer != graph.TierBusiness {
		t.Errorf("auth tier = %v, want business", auth.ArchitectureLayer)
	}
	if len(auth.Exports) != 2 { // Login, Session
		t.Errorf("auth exports = %v", auth.Exports)
	}
	if len(auth.Dependencies) != 1 || auth.Dependencies[0] != "store" {
		t.Errorf("auth dependencies = %v, want [store]", auth.Dependencies)
	}

	if cmd := snap.Domain.Node("cmd"); cmd.ArchitectureLayer != graph.TierPresentation {
		t.Errorf("cmd tier = %v, want presentation", cmd.ArchitectureLayer)
	}
	if store := snap.Domain.Node("store"); store.ArchitectureLayer != graph.TierData {
		t.Errorf("store tier = %v, want data", store.ArchitectureLayer)
	}

	// cmd imports auth and store, auth imports store.
	if len(snap.Domain.Relationships) != 3 {
		t.Errorf("relationships = %v", snap.Domain.Relationships)
	}

	// Dependent counts recomputed by Normalize: store has two dependents.
	if store := snap.Domain.Node("store"); store.DependentCount != 2 {
		t.Errorf("store dependents = %d, want 2", store.DependentCount)
	}
}

func TestScanIntentAndProcesses(t *testing.T) {
	snap, err := NewScanner(writeProject(t), nil).Scan()
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if snap.Intent.Name != "demo" {
		t.Errorf("project name = %q", snap.Intent.Name)
	}
	if snap.Intent.Description == "" {
		t.Error("description should come from the README")
	}
	if len(snap.Intent.EntryPoints) != 1 || snap.Intent.EntryPoints[0] != "cmd/demo" {
		t.Errorf("entry points = %v", snap.Intent.EntryPoints)
	}
	if snap.Intent.ModuleCount != 3 || snap.Intent.FileCount != 3 {
		t.Errorf("counts = %d modules, %d files", snap.Intent.ModuleCount, snap.Intent.FileCount)
	}

	if len(snap.Processes) != 1 {
		t.Fatalf("processes = %+v", snap.Processes)
	}
	proc := snap.Processes[0]
	if proc.Steps[0].Module != "cmd" {
		t.Errorf("process starts at %q, want cmd", proc.Steps[0].Module)
	}
	if len(proc.Steps) != 3 { // cmd start, then auth and store
		t.Errorf("process steps = %+v", proc.Steps)
	}
}

func TestScanFilesAndAnnotations(t *testing.T) {
	snap, err := NewScanner(writeProject(t), nil).Scan()
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	files := snap.Files["auth"]
	if len(files) != 1 || files[0].Name != "auth.go" || files[0].Type != graph.FileTypeFile {
		t.Errorf("auth files = %+v", files)
	}
	if files[0].Language != "Go" || files[0].LineCount == 0 {
		t.Errorf("auth.go metadata = %+v", files[0])
	}

	ann, ok := snap.Annotations["auth/auth.go"]
	if !ok {
		t.Fatal("auth/auth.go has no annotation")
	}
	if ann.Summary != "Package auth verifies user sessions." {
		t.Errorf("summary = %q", ann.Summary)
	}

	// Files without doc comments get the generic summary.
	ann = snap.Annotations["store/store.go"]
	if ann.Summary == "" {
		t.Error("undocumented file should still get a summary")
	}
}

func TestScanErrors(t *testing.T) {
	// No go.mod.
	if _, err := NewScanner(t.TempDir(), nil).Scan(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing go.mod error = %v", err)
	}

	// go.mod but no Go files.
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644)
	if _, err := NewScanner(root, nil).Scan(); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty project error = %v", err)
	}
}

func TestProviderCachesSnapshot(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(writeProject(t), nil)

	first, err := p.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}
	second, _ := p.Snapshot(ctx)
	if first != second {
		t.Error("repeated fetches should reuse the held snapshot")
	}

	p.Invalidate()
	third, err := p.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot after Invalidate: %v", err)
	}
	if third == first {
		t.Error("Invalidate should force a re-scan")
	}

	payload, err := p.FetchLayerData(ctx, onion.LayerBusinessDomain, "")
	if err != nil {
		t.Fatalf("FetchLayerData error: %v", err)
	}
	if len(payload.(onion.BusinessDomainData).Domains) != 3 {
		t.Errorf("domains = %+v", payload)
	}
}

func TestDeriveProcessStepOrderContiguous(t *testing.T) {
	// The entry module imports a sibling package under its own top-level
	// directory; that dependency folds into the start step and must not
	// leave a hole in the numbering.
	modules := map[string][]goFile{
		"cmd": {{
			relPath: "cmd/demo/main.go",
			imports: []string{
				"example.com/demo/auth",
				"example.com/demo/cmd/util",
				"example.com/demo/store",
			},
		}},
	}

	procs := deriveProcesses("example.com/demo", modules, []string{"cmd/demo"})
	if len(procs) != 1 {
		t.Fatalf("processes = %+v", procs)
	}

	steps := procs[0].Steps
	want := []onion.ProcessStep{
		{Order: 1, Module: "cmd", Action: "start"},
		{Order: 2, Module: "auth", Action: "initialize"},
		{Order: 3, Module: "store", Action: "initialize"},
	}
	if len(steps) != len(want) {
		t.Fatalf("steps = %+v, want %+v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("step %d = %+v, want %+v", i, steps[i], want[i])
		}
	}
}
