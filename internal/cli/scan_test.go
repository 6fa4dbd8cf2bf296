package cli

import (
	"path/filepath"
	"testing"
)

func TestSnapshotPath(t *testing.T) {
	tests := []struct {
		name string
		root string
		want string
	}{
		{"named dir", "/home/me/MyProject", "myproject.onion.json"},
		{"relative dir", "demo", "demo.onion.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snapshotPath(tt.root); got != tt.want {
				t.Errorf("snapshotPath(%q) = %q, want %q", tt.root, got, tt.want)
			}
		})
	}
}

func TestSnapshotPathCurrentDir(t *testing.T) {
	got := snapshotPath(".")
	// Resolves to the working directory's base name.
	if filepath.Ext(got) != ".json" {
		t.Errorf("snapshotPath(\".\") = %q", got)
	}
}
